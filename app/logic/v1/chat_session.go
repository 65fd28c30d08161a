package v1

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/atelier-ai/atelier-ai/app/core"
	"github.com/atelier-ai/atelier-ai/pkg/errors"
	"github.com/atelier-ai/atelier-ai/pkg/i18n"
	"github.com/atelier-ai/atelier-ai/pkg/types"
	"github.com/atelier-ai/atelier-ai/pkg/utils"
)

type ChatSessionLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewChatSessionLogic(ctx context.Context, core *core.Core) *ChatSessionLogic {
	return &ChatSessionLogic{
		ctx:  ctx,
		core: core,
	}
}

// CreateChatSession 前端打开新会话页时预建的占位会话，
// 第一条消息落库后转正，空置的由后台任务清理
func (l *ChatSessionLogic) CreateChatSession(sessionID, canvasID string) (string, error) {
	if sessionID == "" {
		sessionID = utils.GenRandomID()
	}

	err := l.core.Store().ChatSessionStore().Create(l.ctx, types.ChatSession{
		ID:       sessionID,
		CanvasID: canvasID,
		Title:    "New Chat",
		Status:   types.CHAT_SESSION_STATUS_UNOFFICIAL,
	})
	if err != nil {
		return "", errors.New("ChatSessionLogic.CreateChatSession.ChatSessionStore.Create", i18n.ERROR_INTERNAL, err)
	}
	return sessionID, nil
}

func (l *ChatSessionLogic) GetChatSession(sessionID string) (*types.ChatSession, error) {
	session, err := l.core.Store().ChatSessionStore().GetChatSession(l.ctx, sessionID)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("ChatSessionLogic.GetChatSession.ChatSessionStore.GetChatSession", i18n.ERROR_INTERNAL, err)
	}
	if session == nil || err == sql.ErrNoRows {
		return nil, errors.New("ChatSessionLogic.GetChatSession.notfound", i18n.ERROR_NOT_FOUND, nil).Code(http.StatusNotFound)
	}
	return session, nil
}

func (l *ChatSessionLogic) ListByCanvas(canvasID string) ([]types.ChatSession, error) {
	list, err := l.core.Store().ChatSessionStore().ListByCanvas(l.ctx, canvasID)
	if err != nil {
		return nil, errors.New("ChatSessionLogic.ListByCanvas.ChatSessionStore.ListByCanvas", i18n.ERROR_INTERNAL, err)
	}
	return list, nil
}

// GetSessionMessages 会话历史，供前端恢复会话
func (l *ChatSessionLogic) GetSessionMessages(sessionID string) ([]*types.ChatMessage, error) {
	if _, err := l.GetChatSession(sessionID); err != nil {
		return nil, err
	}

	messages, err := l.core.Store().ChatMessageStore().ListSessionMessage(l.ctx, sessionID, types.NO_PAGING, types.NO_PAGING)
	if err != nil {
		return nil, errors.New("ChatSessionLogic.GetSessionMessages.ChatMessageStore.ListSessionMessage", i18n.ERROR_INTERNAL, err)
	}

	if err = l.core.Store().ChatSessionStore().UpdateChatSessionLatestAccessTime(l.ctx, sessionID); err != nil {
		return nil, errors.New("ChatSessionLogic.GetSessionMessages.ChatSessionStore.UpdateChatSessionLatestAccessTime", i18n.ERROR_INTERNAL, err)
	}
	return messages, nil
}
