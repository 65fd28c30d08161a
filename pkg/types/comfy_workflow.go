package types

type ComfyWorkflow struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	APIJson     string `json:"api_json" db:"api_json"`
	Inputs      string `json:"inputs" db:"inputs"`
	Outputs     string `json:"outputs" db:"outputs"`
	CreatedAt   int64  `json:"created_at" db:"created_at"`
	UpdatedAt   int64  `json:"updated_at" db:"updated_at"`
}
