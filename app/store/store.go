package store

import (
	"context"

	"github.com/atelier-ai/atelier-ai/pkg/sqlstore"
	"github.com/atelier-ai/atelier-ai/pkg/types"
)

// CanvasStore 定义画布存储的方法集合
type CanvasStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data types.Canvas) error
	GetCanvas(ctx context.Context, id string) (*types.Canvas, error)
	UpdateData(ctx context.Context, id string, data types.CanvasData, thumbnail string) error
	UpdateName(ctx context.Context, id string, name string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, page, pageSize uint64) ([]types.Canvas, error)
	Total(ctx context.Context) (uint64, error)
}

type ChatSessionStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data types.ChatSession) error
	GetChatSession(ctx context.Context, sessionID string) (*types.ChatSession, error)
	UpdateSessionTitle(ctx context.Context, sessionID string, title string) error
	UpdateSessionStatus(ctx context.Context, sessionID string, status types.ChatSessionStatus) error
	UpdateSessionModel(ctx context.Context, sessionID string, model, provider string) error
	UpdateChatSessionLatestAccessTime(ctx context.Context, sessionID string) error
	ListByCanvas(ctx context.Context, canvasID string) ([]types.ChatSession, error)
	ListUnofficial(ctx context.Context, beforeAccessTime int64, limit uint64) ([]types.ChatSession, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteByCanvas(ctx context.Context, canvasID string) error
}

type ChatMessageStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data *types.ChatMessage) error
	ListSessionMessage(ctx context.Context, sessionID string, page, pageSize uint64) ([]*types.ChatMessage, error)
	Exist(ctx context.Context, sessionID string) (bool, error)
	RewriteMessage(ctx context.Context, sessionID, id string, message string, attach types.ChatMessageAttach, complete types.MessageProgress) error
	UpdateMessageCompleteStatus(ctx context.Context, sessionID, id string, complete types.MessageProgress) error
	DeleteSessionMessage(ctx context.Context, sessionID string) error
	DeleteByCanvas(ctx context.Context, canvasID string) error
}

type ComfyWorkflowStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data *types.ComfyWorkflow) (int64, error)
	Get(ctx context.Context, id int64) (*types.ComfyWorkflow, error)
	List(ctx context.Context, page, pageSize uint64) ([]types.ComfyWorkflow, error)
	Delete(ctx context.Context, id int64) error
}
