package openai

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/atelier-ai/atelier-ai/pkg/ai"
)

const NAME = "openai"

type Driver struct {
	client *openai.Client
}

func NewClient(token, proxy string) *openai.Client {
	cfg := openai.DefaultConfig(token)
	if proxy != "" {
		cfg.BaseURL = proxy
	}

	return openai.NewClientWithConfig(cfg)
}

func New(token, proxy string) *Driver {
	return &Driver{
		client: NewClient(token, proxy),
	}
}

func (s *Driver) Query(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	slog.Debug("Query", slog.String("driver", NAME), slog.String("model", req.Model))
	return s.client.CreateChatCompletion(ctx, req)
}

func (s *Driver) QueryStream(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error) {
	slog.Debug("QueryStream", slog.String("driver", NAME), slog.String("model", req.Model))
	req.Stream = true
	return s.client.CreateChatCompletionStream(ctx, req)
}

// GenerateImage drives gpt-image-1 (and dall-e models on compatible
// endpoints). The API returns base64 payloads for gpt-image-1.
func (s *Driver) GenerateImage(ctx context.Context, req ai.GenerateImageRequest) (*ai.GeneratedAsset, error) {
	size := sizeFromAspectRatio(req.AspectRatio)

	resp, err := s.client.CreateImage(ctx, openai.ImageRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		N:      1,
		Size:   size,
	})
	if err != nil {
		return nil, fmt.Errorf("openai image generation failed: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai image generation returned no data")
	}

	asset := &ai.GeneratedAsset{
		Type:     "image",
		MimeType: "image/png",
	}
	if resp.Data[0].B64JSON != "" {
		asset.B64 = resp.Data[0].B64JSON
	} else {
		asset.URL = resp.Data[0].URL
	}
	return asset, nil
}

func sizeFromAspectRatio(ratio string) string {
	switch ratio {
	case "16:9", "3:2":
		return "1536x1024"
	case "9:16", "2:3":
		return "1024x1536"
	default:
		return "1024x1024"
	}
}
