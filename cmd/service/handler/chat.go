package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/atelier-ai/atelier-ai/app/logic/v1"
	"github.com/atelier-ai/atelier-ai/app/response"
	"github.com/atelier-ai/atelier-ai/pkg/utils"
)

// Chat 接收一次对话请求，生成过程异步推进，
// 增量与产物通过 /session/{id} 主题推送
func (s *HttpSrv) Chat(c *gin.Context) {
	var req v1.ChatRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	if err := v1.NewChatLogic(c, s.Core).HandleChat(req); err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, gin.H{
		"status":     "done",
		"session_id": req.SessionID,
	})
}

func (s *HttpSrv) CancelChat(c *gin.Context) {
	sessionID, _ := c.Params.Get("session_id")

	if err := v1.NewChatLogic(c, s.Core).StopStream(sessionID); err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, nil)
}

type CreateChatSessionRequest struct {
	SessionID string `json:"session_id"`
	CanvasID  string `json:"canvas_id" binding:"required"`
}

func (s *HttpSrv) CreateChatSession(c *gin.Context) {
	var req CreateChatSessionRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	id, err := v1.NewChatSessionLogic(c, s.Core).CreateChatSession(req.SessionID, req.CanvasID)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, gin.H{
		"session_id": id,
	})
}

type ListChatSessionsRequest struct {
	CanvasID string `form:"canvas_id" json:"canvas_id" binding:"required"`
}

func (s *HttpSrv) ListChatSessions(c *gin.Context) {
	var req ListChatSessionsRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	list, err := v1.NewChatSessionLogic(c, s.Core).ListByCanvas(req.CanvasID)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, list)
}

func (s *HttpSrv) GetChatSession(c *gin.Context) {
	sessionID, _ := c.Params.Get("session_id")

	session, err := v1.NewChatSessionLogic(c, s.Core).GetChatSession(sessionID)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, session)
}

func (s *HttpSrv) GetSessionMessages(c *gin.Context) {
	sessionID, _ := c.Params.Get("session_id")

	messages, err := v1.NewChatSessionLogic(c, s.Core).GetSessionMessages(sessionID)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, messages)
}
