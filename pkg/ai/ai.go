package ai

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

const (
	PROVIDER_OPENAI    = "openai"
	PROVIDER_REPLICATE = "replicate"
	PROVIDER_VOLCES    = "volces"
	PROVIDER_COMFYUI   = "comfyui"
	PROVIDER_OLLAMA    = "ollama"
)

// Chat is the text-model driver. Requests and stream chunks reuse the
// go-openai wire types, every supported provider speaks that dialect.
type Chat interface {
	Query(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	QueryStream(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error)
}

type GenerateImageRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	AspectRatio string   `json:"aspect_ratio,omitempty"`
	InputImages []string `json:"input_images,omitempty"` // reference image URLs for edit models
}

type GenerateVideoRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	Resolution  string   `json:"resolution,omitempty"`
	Duration    int      `json:"duration,omitempty"` // seconds
	InputImages []string `json:"input_images,omitempty"`
}

// GeneratedAsset is a provider result before it is persisted locally.
// Either URL (remote download) or B64 (inline payload) is set.
type GeneratedAsset struct {
	Type     string `json:"type"` // image / video
	URL      string `json:"url,omitempty"`
	B64      string `json:"b64,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

type ImageGenerator interface {
	GenerateImage(ctx context.Context, req GenerateImageRequest) (*GeneratedAsset, error)
}

type VideoGenerator interface {
	GenerateVideo(ctx context.Context, req GenerateVideoRequest) (*GeneratedAsset, error)
}

// ProgressFunc receives 0-100 progress reports from drivers that expose
// execution progress (comfyui), forwarded to the session topic.
type ProgressFunc func(percent int)
