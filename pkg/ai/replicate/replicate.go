package replicate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/atelier-ai/atelier-ai/pkg/ai"
)

const NAME = "replicate"

const (
	defaultBaseURL = "https://api.replicate.com/v1"
	pollInterval   = 2 * time.Second
)

// Driver talks to the Replicate predictions API. Model ids are the
// "owner/name" form used by the canvas tool list (e.g. google/imagen-4).
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
			SetTimeout(5 * time.Minute),
	}
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
}

func (s *Driver) GenerateImage(ctx context.Context, req ai.GenerateImageRequest) (*ai.GeneratedAsset, error) {
	input := map[string]any{
		"prompt": req.Prompt,
	}
	if req.AspectRatio != "" {
		input["aspect_ratio"] = req.AspectRatio
	}
	if len(req.InputImages) > 0 {
		input["input_image"] = req.InputImages[0]
	}

	pred, err := s.createPrediction(ctx, req.Model, input)
	if err != nil {
		return nil, err
	}

	pred, err = s.waitPrediction(ctx, pred)
	if err != nil {
		return nil, err
	}

	url, err := firstOutputURL(pred.Output)
	if err != nil {
		return nil, fmt.Errorf("replicate model %s: %w", req.Model, err)
	}

	return &ai.GeneratedAsset{
		Type: "image",
		URL:  url,
	}, nil
}

func (s *Driver) createPrediction(ctx context.Context, model string, input map[string]any) (*prediction, error) {
	var result prediction
	resp, err := s.cli.R().
		SetContext(ctx).
		SetBody(map[string]any{"input": input}).
		SetResult(&result).
		Post(fmt.Sprintf("/models/%s/predictions", model))
	if err != nil {
		return nil, fmt.Errorf("replicate create prediction failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("replicate create prediction failed: status %d: %s", resp.StatusCode(), resp.String())
	}
	return &result, nil
}

func (s *Driver) waitPrediction(ctx context.Context, pred *prediction) (*prediction, error) {
	for {
		switch pred.Status {
		case "succeeded":
			return pred, nil
		case "failed", "canceled":
			return nil, fmt.Errorf("replicate prediction %s %s: %v", pred.ID, pred.Status, pred.Error)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}

		var result prediction
		resp, err := s.cli.R().
			SetContext(ctx).
			SetResult(&result).
			Get("/predictions/" + pred.ID)
		if err != nil {
			return nil, fmt.Errorf("replicate poll prediction failed: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("replicate poll prediction failed: status %d", resp.StatusCode())
		}

		slog.Debug("prediction poll", slog.String("driver", NAME), slog.String("id", result.ID), slog.String("status", result.Status))
		pred = &result
	}
}

// firstOutputURL handles both output shapes replicate models use:
// a single url string or a list of urls.
func firstOutputURL(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("prediction has no output")
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return single, nil
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return many[0], nil
	}

	return "", fmt.Errorf("unrecognized prediction output: %s", string(raw))
}
