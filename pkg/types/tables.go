package types

import "fmt"

type TableName string

func (s TableName) Name() string {
	return fmt.Sprintf("%s%s", TABLE_PREFIX, s)
}

const TABLE_PREFIX = "atelier_"

const (
	TABLE_CANVAS         = TableName("canvases")
	TABLE_CHAT_SESSION   = TableName("chat_sessions")
	TABLE_CHAT_MESSAGE   = TableName("chat_messages")
	TABLE_COMFY_WORKFLOW = TableName("comfy_workflows")
)
