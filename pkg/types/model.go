package types

type ModelType string

const (
	MODEL_TYPE_TEXT  ModelType = "text"
	MODEL_TYPE_IMAGE ModelType = "image"
	MODEL_TYPE_VIDEO ModelType = "video"
)

// ModelInfo describes one configured model exposed to the canvas frontend.
type ModelInfo struct {
	Provider string    `json:"provider"`
	Model    string    `json:"model"`
	URL      string    `json:"url"`
	Type     ModelType `json:"type"`
}

// ToolInfo describes one generation tool the chat agent may invoke.
type ToolInfo struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	Type        ModelType `json:"type"`
	DisplayName string    `json:"display_name"`
}
