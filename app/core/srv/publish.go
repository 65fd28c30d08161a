package srv

import (
	"encoding/json"
	"log/slog"

	fireprotocol "github.com/holdno/firetower/protocol"
	"github.com/holdno/firetower/service/tower"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/atelier-ai/atelier-ai/pkg/socket/firetower"
	"github.com/atelier-ai/atelier-ai/pkg/types"
	"github.com/atelier-ai/atelier-ai/pkg/utils"
)

type Tower struct {
	pusher *firetower.SelfPusher[PublishData]
	tower.Manager[PublishData]
	systemEventRegistry *EventRegistry
}

type PublishData struct {
	Subject string            `json:"subject"`
	Version string            `json:"version"`
	Type    types.WsEventType `json:"type"`
	Data    any               `json:"data"`
}

func (c *PublishData) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte(""), nil
	}
	type plain PublishData
	return json.Marshal((*plain)(c))
}

func (c *PublishData) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == `""` {
		return nil
	}
	type plain PublishData
	return json.Unmarshal(data, (*plain)(c))
}

func SetupSocketSrv() (*Tower, error) {
	tower, pusher, err := firetower.SetupFiretower[PublishData]()
	if err != nil {
		return nil, err
	}

	return &Tower{
		pusher:              pusher,
		Manager:             tower,
		systemEventRegistry: newEventRegistry(),
	}, nil
}

func ApplyTower() ApplyFunc {
	return func(s *Srv) {
		var err error
		if s.tower, err = SetupSocketSrv(); err != nil {
			panic(err)
		}
		s.tower.RegisterServerSideTopic()
	}
}

func (t *Tower) NewMessage(imtopic string, _type fireprotocol.FireOperation, data PublishData) *fireprotocol.FireInfo[PublishData] {
	fire := t.NewFire(fireprotocol.SourceSystem, t.pusher)
	fire.Message.Topic = imtopic
	fire.Message.Type = _type
	fire.Message.Data = data
	return fire
}

// PublishSessionEvent 推送会话事件到 /session/{id} 主题
func (t *Tower) PublishSessionEvent(sessionID string, subject string, logic types.WsEventType, data any) error {
	return t.publish(types.SessionTopic(sessionID), fireprotocol.PublishOperation, PublishData{
		Subject: subject,
		Version: "v1",
		Type:    logic,
		Data:    data,
	})
}

// PublishCanvasEvent 推送画布事件到 /canvas/{id} 主题
func (t *Tower) PublishCanvasEvent(canvasID string, subject string, logic types.WsEventType, data any) error {
	return t.publish(types.CanvasTopic(canvasID), fireprotocol.PublishOperation, PublishData{
		Subject: subject,
		Version: "v1",
		Type:    logic,
		Data:    data,
	})
}

// PublishInitDone 通知所有客户端 provider 配置已重载，模型和工具列表需要刷新
func (t *Tower) PublishInitDone() error {
	return t.publish(types.NOTIFY_TOPIC, fireprotocol.PublishOperation, PublishData{
		Subject: "init_done",
		Version: "v1",
		Type:    types.WS_EVENT_INIT_DONE,
	})
}

func (t *Tower) PublishSessionReName(sessionID, name string) error {
	return t.publish(types.SessionTopic(sessionID), fireprotocol.PublishOperation, PublishData{
		Subject: "session_rename",
		Version: "v1",
		Type:    types.WS_EVENT_SESSION_RENAME,
		Data: map[string]string{
			"session_id": sessionID,
			"name":       name,
		},
	})
}

func (t *Tower) publish(imtopic string, _type fireprotocol.FireOperation, data PublishData) error {
	slog.Debug("ws event",
		slog.String("topic", imtopic),
		slog.String("subject", data.Subject),
		slog.Int("type", int(data.Type)),
		slog.Bool("has_payload", data.Data != nil))
	fire := t.NewMessage(imtopic, _type, data)
	return t.Publish(fire)
}

func (t *Tower) RegisterServerSideTopic() {
	serverSideTower := t.BuildServerSideTower(utils.RandomStr(32))
	fire := t.NewFire(fireprotocol.SourceSystem, t.pusher)
	serverSideTower.Subscribe(fire.Context, []string{ // 订阅事件
		types.TOWER_EVENT_CLOSE_CHAT_STREAM,
	})
	serverSideTower.SetReceivedHandler(func(fi fireprotocol.ReadOnlyFire[PublishData]) (ignore bool) {
		slog.Debug("new signal", slog.String("topic", fi.GetMessage().Topic))
		switch fi.GetMessage().Topic {
		case types.TOWER_EVENT_CLOSE_CHAT_STREAM:
			// 取消对应会话的生成任务
			closeFunc, exist := t.systemEventRegistry.ChatStreamSignal.Get(fi.GetMessage().Data.Subject)
			if exist {
				closeFunc()
			}
		default:
			slog.Warn("got unknown handler signal", slog.String("topic", fi.GetMessage().Topic))
		}
		return
	})
}

type EventRegistry struct {
	ChatStreamSignal cmap.ConcurrentMap[string, func()]
}

func newEventRegistry() *EventRegistry {
	return &EventRegistry{
		ChatStreamSignal: cmap.New[func()](),
	}
}

func (t *Tower) RegisterStreamSignal(sessionID string, closeFunc func()) (removeFunc func()) {
	t.systemEventRegistry.ChatStreamSignal.Set(sessionID, closeFunc)
	return func() {
		t.systemEventRegistry.ChatStreamSignal.Remove(sessionID)
	}
}

// HasStreamSignal 会话当前是否有进行中的生成任务
func (t *Tower) HasStreamSignal(sessionID string) bool {
	return t.systemEventRegistry.ChatStreamSignal.Has(sessionID)
}

func (t *Tower) NewCloseChatStreamSignal(sessionID string) error {
	fire := t.NewFire(fireprotocol.SourceSystem, t.pusher)
	fire.Message.Topic = types.TOWER_EVENT_CLOSE_CHAT_STREAM
	fire.Message.Data = PublishData{
		Subject: sessionID,
		Version: "v1",
		Type:    types.WS_EVENT_OTHERS,
	}

	return t.Publish(fire)
}
