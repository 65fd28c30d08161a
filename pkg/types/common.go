package types

const NO_PAGING = 0

const (
	DEFAULT_PAGE_SIZE uint64 = 50
	MAX_PAGE_SIZE     uint64 = 200
)

const (
	LANGUAGE_EN_KEY = "en"
	LANGUAGE_CN_KEY = "zh-CN"
)

type WsEventType int32

const (
	WS_EVENT_UNKNOWN            WsEventType = 0
	WS_EVENT_ASSISTANT_INIT     WsEventType = 1   // assistant message carrier created
	WS_EVENT_ASSISTANT_CONTINUE WsEventType = 2   // assistant text delta
	WS_EVENT_ASSISTANT_DONE     WsEventType = 3   // assistant reply finished
	WS_EVENT_ASSISTANT_FAILED   WsEventType = 4   // assistant request failed
	WS_EVENT_TOOL_INIT          WsEventType = 5   // generation tool call started
	WS_EVENT_TOOL_PROGRESS      WsEventType = 6   // generation tool progress
	WS_EVENT_TOOL_DONE          WsEventType = 7   // generation tool finished, payload carries assets
	WS_EVENT_TOOL_FAILED        WsEventType = 8   // generation tool failed
	WS_EVENT_SESSION_RENAME     WsEventType = 100 // session title updated
	WS_EVENT_INIT_DONE          WsEventType = 200 // server side configuration (re)loaded
	WS_EVENT_SYSTEM_ONSUBSCRIBE WsEventType = 300
	WS_EVENT_SYSTEM_UNSUBSCRIBE WsEventType = 301
	WS_EVENT_OTHERS             WsEventType = 400
)

const (
	// TOWER_EVENT_CLOSE_CHAT_STREAM server side topic used to propagate
	// stream cancellation between nodes.
	TOWER_EVENT_CLOSE_CHAT_STREAM = "/atelier/system/close/chatstream"
)

// SessionTopic is the websocket topic carrying every event of one chat session.
func SessionTopic(sessionID string) string {
	return "/session/" + sessionID
}

// CanvasTopic carries canvas-scoped events (session list changes, renames).
func CanvasTopic(canvasID string) string {
	return "/canvas/" + canvasID
}

// NOTIFY_TOPIC carries service-wide events every client cares about,
// like provider configuration reloads.
const NOTIFY_TOPIC = "/notify"
