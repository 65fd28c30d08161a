package volces

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/atelier-ai/atelier-ai/pkg/ai"
)

const NAME = "volces"

const (
	defaultBaseURL = "https://ark.cn-beijing.volces.com/api/v3"
	pollInterval   = 3 * time.Second
)

// Driver covers the Volcengine Ark endpoints used by the canvas tools:
// seedream image generation (synchronous) and seedance video generation
// (task create + poll).
type Driver struct {
	cli *resty.Client
}

func New(apiKey, baseURL string) *Driver {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Driver{
		cli: resty.New().
			SetBaseURL(strings.TrimSuffix(baseURL, "/")).
			SetAuthToken(apiKey).
			SetHeader("Content-Type", "application/json").
			SetTimeout(10 * time.Minute),
	}
}

type imageResponse struct {
	Data []struct {
		URL        string `json:"url"`
		B64JSON    string `json:"b64_json"`
		RevisedPmt string `json:"revised_prompt"`
	} `json:"data"`
	Error *arkError `json:"error"`
}

type arkError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Driver) GenerateImage(ctx context.Context, req ai.GenerateImageRequest) (*ai.GeneratedAsset, error) {
	body := map[string]any{
		"model":  req.Model,
		"prompt": req.Prompt,
	}
	if req.AspectRatio != "" {
		body["size"] = sizeFromAspectRatio(req.AspectRatio)
	}

	var result imageResponse
	resp, err := s.cli.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/images/generations")
	if err != nil {
		return nil, fmt.Errorf("volces image generation failed: %w", err)
	}
	if resp.IsError() || result.Error != nil {
		return nil, fmt.Errorf("volces image generation failed: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("volces image generation returned no data")
	}

	asset := &ai.GeneratedAsset{
		Type:     "image",
		MimeType: "image/png",
	}
	if result.Data[0].URL != "" {
		asset.URL = result.Data[0].URL
	} else {
		asset.B64 = result.Data[0].B64JSON
	}
	return asset, nil
}

type videoTask struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Content struct {
		VideoURL string `json:"video_url"`
	} `json:"content"`
	Error *arkError `json:"error"`
}

func (s *Driver) GenerateVideo(ctx context.Context, req ai.GenerateVideoRequest) (*ai.GeneratedAsset, error) {
	// seedance packs generation options into the text prompt
	prompt := req.Prompt
	if req.Resolution != "" {
		prompt += " --resolution " + req.Resolution
	}
	if req.Duration > 0 {
		prompt += fmt.Sprintf(" --duration %d", req.Duration)
	}

	content := []map[string]any{
		{"type": "text", "text": prompt},
	}
	for _, img := range req.InputImages {
		content = append(content, map[string]any{
			"type":      "image_url",
			"image_url": map[string]string{"url": img},
		})
	}

	var task videoTask
	resp, err := s.cli.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"model":   req.Model,
			"content": content,
		}).
		SetResult(&task).
		Post("/contents/generations/tasks")
	if err != nil {
		return nil, fmt.Errorf("volces video task create failed: %w", err)
	}
	if resp.IsError() || task.Error != nil {
		return nil, fmt.Errorf("volces video task create failed: status %d: %s", resp.StatusCode(), resp.String())
	}

	return s.waitVideoTask(ctx, task.ID)
}

func (s *Driver) waitVideoTask(ctx context.Context, taskID string) (*ai.GeneratedAsset, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}

		var task videoTask
		resp, err := s.cli.R().
			SetContext(ctx).
			SetResult(&task).
			Get("/contents/generations/tasks/" + taskID)
		if err != nil {
			return nil, fmt.Errorf("volces video task poll failed: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("volces video task poll failed: status %d", resp.StatusCode())
		}

		switch task.Status {
		case "succeeded":
			if task.Content.VideoURL == "" {
				return nil, fmt.Errorf("volces video task %s succeeded without video url", taskID)
			}
			return &ai.GeneratedAsset{
				Type:     "video",
				URL:      task.Content.VideoURL,
				MimeType: "video/mp4",
			}, nil
		case "failed", "cancelled":
			return nil, fmt.Errorf("volces video task %s %s: %v", taskID, task.Status, task.Error)
		}
	}
}

func sizeFromAspectRatio(ratio string) string {
	switch ratio {
	case "16:9":
		return "1280x720"
	case "9:16":
		return "720x1280"
	case "4:3":
		return "1152x864"
	case "3:4":
		return "864x1152"
	default:
		return "1024x1024"
	}
}
