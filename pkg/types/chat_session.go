package types

type ChatSession struct {
	ID               string            `json:"id" db:"id"`
	CanvasID         string            `json:"canvas_id" db:"canvas_id"`
	Title            string            `json:"title" db:"title"`
	Model            string            `json:"model" db:"model"`
	Provider         string            `json:"provider" db:"provider"`
	Status           ChatSessionStatus `json:"status" db:"status"`
	CreatedAt        int64             `json:"created_at" db:"created_at"`
	LatestAccessTime int64             `json:"latest_access_time" db:"latest_access_time"`
}

type ChatSessionStatus int8

const (
	// CHAT_SESSION_STATUS_OFFICIAL session has at least one persisted message
	CHAT_SESSION_STATUS_OFFICIAL ChatSessionStatus = 1
	// CHAT_SESSION_STATUS_UNOFFICIAL placeholder session created ahead of the
	// first message, purged by the cleanup process when it stays empty
	CHAT_SESSION_STATUS_UNOFFICIAL ChatSessionStatus = 2
)
