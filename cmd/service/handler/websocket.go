package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/holdno/firetower/protocol"

	"github.com/atelier-ai/atelier-ai/app/core"
	"github.com/atelier-ai/atelier-ai/app/core/srv"
	"github.com/atelier-ai/atelier-ai/app/response"
	"github.com/atelier-ai/atelier-ai/pkg/errors"
	"github.com/atelier-ai/atelier-ai/pkg/types"
	"github.com/atelier-ai/atelier-ai/pkg/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func Websocket(core *core.Core) func(c *gin.Context) {
	if core.Srv().Tower() == nil {
		return func(c *gin.Context) {
			response.APIError(c, errors.New("api.Websocket", "this server not support websocket service", nil))
		}
	}
	return func(c *gin.Context) {
		var ws *websocket.Conn
		var err error

		tower := core.Srv().Tower()

		ws, err = upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("Websocket Upgrade err", slog.String("error", err.Error()))
			response.APIError(c, errors.New("api.Websocket", "failed to upgrade http", err))
			return
		}

		id := utils.GenRandomID()
		thisTower, err := tower.BuildTower(ws, id)
		if err != nil {
			response.APIError(c, errors.New("api.Websocket", "failed to build firetower", err))
			return
		}

		thisTower.SetReadHandler(func(fire protocol.ReadOnlyFire[srv.PublishData]) bool {
			// 客户端只订阅，不允许通过 websocket 发布消息
			return false
		})

		thisTower.SetReceivedHandler(func(fi protocol.ReadOnlyFire[srv.PublishData]) bool {
			raw, err := json.Marshal(fi.GetMessage())
			if err != nil {
				slog.Error("failed to marshal firetower received message", slog.String("error", err.Error()))
				return false
			}
			thisTower.SendToClient(raw)
			return false
		})

		thisTower.SetReadTimeoutHandler(func(fire protocol.ReadOnlyFire[srv.PublishData]) {
			slog.Error("read timeout trigger", slog.String("component", "firetower"))
		})

		thisTower.SetBeforeSubscribeHandler(func(fireCtx protocol.FireLife, topics []string) bool {
			for _, v := range topics {
				if v == types.NOTIFY_TOPIC {
					continue
				}
				if !strings.HasPrefix(v, "/session/") && !strings.HasPrefix(v, "/canvas/") {
					return false
				}
			}
			return true
		})

		thisTower.SetSubscribeHandler(func(context protocol.FireLife, topic []string) {
			for _, v := range topic {
				resp := &protocol.TopicMessage[json.RawMessage]{
					Topic: v,
					Type:  protocol.SubscribeOperation,
				}
				resp.Data = json.RawMessage(`{"status":"success"}`)
				msg, _ := json.Marshal(resp)
				thisTower.SendToClient(msg)
			}
		})

		thisTower.SetUnSubscribeHandler(func(context protocol.FireLife, topic []string) {
			for _, v := range topic {
				resp := &protocol.TopicMessage[json.RawMessage]{
					Topic: v,
					Type:  protocol.UnSubscribeOperation,
				}
				resp.Data = json.RawMessage(`{"status":"success"}`)
				msg, _ := json.Marshal(resp)
				thisTower.SendToClient(msg)
			}
		})

		thisTower.Run()
	}
}
