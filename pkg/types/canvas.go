package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type Canvas struct {
	ID          string     `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description" db:"description"`
	Data        CanvasData `json:"data" db:"data"`
	Thumbnail   string     `json:"thumbnail" db:"thumbnail"`
	CreatedAt   int64      `json:"created_at" db:"created_at"`
	UpdatedAt   int64      `json:"updated_at" db:"updated_at"`
}

// CanvasData is the frontend scene graph, stored opaque as jsonb.
type CanvasData json.RawMessage

func (d CanvasData) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("{}"), nil
	}
	return d, nil
}

func (d *CanvasData) UnmarshalJSON(data []byte) error {
	*d = CanvasData(data)
	return nil
}

func (d CanvasData) Value() (driver.Value, error) {
	if len(d) == 0 {
		return "{}", nil
	}
	return string(d), nil
}

func (d *CanvasData) Scan(src interface{}) error {
	switch src := src.(type) {
	case []byte:
		*d = CanvasData(src)
		return nil
	case string:
		*d = CanvasData(src)
		return nil
	case nil:
		*d = nil
		return nil
	}
	return fmt.Errorf("pq: cannot convert %T to CanvasData", src)
}

// CanvasDetail is the GET canvas payload, canvas data plus its sessions.
type CanvasDetail struct {
	Name     string        `json:"name"`
	Data     CanvasData    `json:"data"`
	Sessions []ChatSession `json:"sessions"`
}
