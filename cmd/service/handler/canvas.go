package handler

import (
	"github.com/gin-gonic/gin"
	oai "github.com/sashabaranov/go-openai"

	v1 "github.com/atelier-ai/atelier-ai/app/logic/v1"
	"github.com/atelier-ai/atelier-ai/app/response"
	"github.com/atelier-ai/atelier-ai/pkg/types"
	"github.com/atelier-ai/atelier-ai/pkg/utils"
)

type CreateCanvasRequest struct {
	CanvasID    string `json:"canvas_id"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`

	// Messages 非空时在新画布下顺带发起第一轮会话，
	// 省掉前端建完画布再调一次 /api/chat
	SessionID    string                      `json:"session_id"`
	Messages     []oai.ChatCompletionMessage `json:"messages"`
	Provider     string                      `json:"provider"`
	Model        string                      `json:"model"`
	ToolList     []string                    `json:"tool_list"`
	SystemPrompt string                      `json:"system_prompt"`
}

type CreateCanvasResponse struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id,omitempty"`
}

func (s *HttpSrv) CreateCanvas(c *gin.Context) {
	var req CreateCanvasRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	id, err := v1.NewCanvasLogic(c, s.Core).CreateCanvas(req.CanvasID, req.Name, req.Description)
	if err != nil {
		response.APIError(c, err)
		return
	}

	if len(req.Messages) > 0 {
		if req.SessionID == "" {
			req.SessionID = utils.GenRandomID()
		}
		err = v1.NewChatLogic(c, s.Core).HandleChat(v1.ChatRequest{
			SessionID:    req.SessionID,
			CanvasID:     id,
			Messages:     req.Messages,
			Provider:     req.Provider,
			Model:        req.Model,
			ToolList:     req.ToolList,
			SystemPrompt: req.SystemPrompt,
		})
		if err != nil {
			response.APIError(c, err)
			return
		}
	}

	response.APISuccess(c, CreateCanvasResponse{ID: id, SessionID: req.SessionID})
}

type ListCanvasRequest struct {
	Page     uint64 `json:"page" form:"page"`
	PageSize uint64 `json:"pagesize" form:"pagesize"`
}

type ListCanvasResponse struct {
	List  []types.Canvas `json:"list"`
	Total uint64         `json:"total"`
}

func (s *HttpSrv) ListCanvases(c *gin.Context) {
	var req ListCanvasRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 || req.PageSize > types.MAX_PAGE_SIZE {
		req.PageSize = types.DEFAULT_PAGE_SIZE
	}

	list, total, err := v1.NewCanvasLogic(c, s.Core).ListCanvases(req.Page, req.PageSize)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, ListCanvasResponse{
		List:  list,
		Total: total,
	})
}

func (s *HttpSrv) GetCanvas(c *gin.Context) {
	canvasID, _ := c.Params.Get("canvas_id")

	detail, err := v1.NewCanvasLogic(c, s.Core).GetCanvasDetail(canvasID)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, detail)
}

type SaveCanvasRequest struct {
	Data      types.CanvasData `json:"data" binding:"required"`
	Thumbnail string           `json:"thumbnail"`
}

func (s *HttpSrv) SaveCanvas(c *gin.Context) {
	canvasID, _ := c.Params.Get("canvas_id")

	var req SaveCanvasRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	if err := v1.NewCanvasLogic(c, s.Core).SaveCanvasData(canvasID, req.Data, req.Thumbnail); err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, nil)
}

type RenameCanvasRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *HttpSrv) RenameCanvas(c *gin.Context) {
	canvasID, _ := c.Params.Get("canvas_id")

	var req RenameCanvasRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	if err := v1.NewCanvasLogic(c, s.Core).RenameCanvas(canvasID, req.Name); err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, nil)
}

func (s *HttpSrv) DeleteCanvas(c *gin.Context) {
	canvasID, _ := c.Params.Get("canvas_id")

	if err := v1.NewCanvasLogic(c, s.Core).DeleteCanvas(canvasID); err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, nil)
}
