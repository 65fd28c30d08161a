package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type ChatMessage struct {
	ID        string            `db:"id" json:"id"`
	SessionID string            `db:"session_id" json:"session_id"`
	Role      MessageUserRole   `db:"role" json:"role"`
	Message   string            `db:"message" json:"message"`
	Complete  MessageProgress   `db:"complete" json:"complete"`
	SendTime  int64             `db:"send_time" json:"send_time"`
	Attach    ChatMessageAttach `db:"attach" json:"attach"`
}

// ChatAttach references one generated asset attached to a message.
type ChatAttach struct {
	Type string `json:"type"` // image / video
	URL  string `json:"url"`
	Tool string `json:"tool"` // tool id that produced the asset
}

type ChatMessageAttach []ChatAttach

func (a ChatMessageAttach) String() string {
	raw, _ := json.Marshal(a)
	return string(raw)
}

func (a ChatMessageAttach) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(a)
	return string(raw), err
}

func (a *ChatMessageAttach) Scan(src interface{}) error {
	switch src := src.(type) {
	case []byte:
		return a.scanBytes(src)
	case string:
		return a.scanBytes([]byte(src))
	case nil:
		*a = nil
		return nil
	}

	return fmt.Errorf("pq: cannot convert %T to ChatMessageAttach", src)
}

func (a *ChatMessageAttach) scanBytes(src []byte) error {
	if len(src) == 0 {
		*a = ChatMessageAttach{}
		return nil
	}
	return json.Unmarshal(src, a)
}

type MessageUserRole int8

const (
	USER_ROLE_UNKNOWN   MessageUserRole = 0
	USER_ROLE_USER      MessageUserRole = 1
	USER_ROLE_ASSISTANT MessageUserRole = 2
	USER_ROLE_SYSTEM    MessageUserRole = 3
	USER_ROLE_TOOL      MessageUserRole = 4
)

func (s MessageUserRole) String() string {
	switch s {
	case USER_ROLE_ASSISTANT:
		return "assistant"
	case USER_ROLE_USER:
		return "user"
	case USER_ROLE_SYSTEM:
		return "system"
	case USER_ROLE_TOOL:
		return "tool"
	default:
		return "unknown"
	}
}

func GetMessageUserRole(r string) MessageUserRole {
	switch r {
	case "assistant":
		return USER_ROLE_ASSISTANT
	case "user":
		return USER_ROLE_USER
	case "system":
		return USER_ROLE_SYSTEM
	case "tool":
		return USER_ROLE_TOOL
	default:
		return USER_ROLE_UNKNOWN
	}
}

type MessageProgress int8

const (
	MESSAGE_PROGRESS_UNKNOWN    MessageProgress = 0
	MESSAGE_PROGRESS_COMPLETE   MessageProgress = 1
	MESSAGE_PROGRESS_GENERATING MessageProgress = 3
	MESSAGE_PROGRESS_FAILED     MessageProgress = 4
	MESSAGE_PROGRESS_CANCELED   MessageProgress = 5
)
