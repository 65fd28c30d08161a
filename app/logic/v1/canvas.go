package v1

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/atelier-ai/atelier-ai/app/core"
	"github.com/atelier-ai/atelier-ai/pkg/errors"
	"github.com/atelier-ai/atelier-ai/pkg/i18n"
	"github.com/atelier-ai/atelier-ai/pkg/types"
	"github.com/atelier-ai/atelier-ai/pkg/utils"
)

type CanvasLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewCanvasLogic(ctx context.Context, core *core.Core) *CanvasLogic {
	return &CanvasLogic{
		ctx:  ctx,
		core: core,
	}
}

const canvasDetailCacheTTL = time.Second * 30

func canvasCacheKey(id string) string {
	return "canvas:detail:" + id
}

func (l *CanvasLogic) CreateCanvas(id, name, description string) (string, error) {
	if id == "" {
		id = utils.GenRandomID()
	}

	err := l.core.Store().CanvasStore().Create(l.ctx, types.Canvas{
		ID:          id,
		Name:        name,
		Description: description,
	})
	if err != nil {
		return "", errors.New("CanvasLogic.CreateCanvas.CanvasStore.Create", i18n.ERROR_INTERNAL, err)
	}
	return id, nil
}

func (l *CanvasLogic) ListCanvases(page, pageSize uint64) ([]types.Canvas, uint64, error) {
	list, err := l.core.Store().CanvasStore().List(l.ctx, page, pageSize)
	if err != nil {
		return nil, 0, errors.New("CanvasLogic.ListCanvases.CanvasStore.List", i18n.ERROR_INTERNAL, err)
	}

	total, err := l.core.Store().CanvasStore().Total(l.ctx)
	if err != nil {
		return nil, 0, errors.New("CanvasLogic.ListCanvases.CanvasStore.Total", i18n.ERROR_INTERNAL, err)
	}
	return list, total, nil
}

// GetCanvasDetail 画布数据和其会话列表，短期缓存避免前端高频轮询打到库
func (l *CanvasLogic) GetCanvasDetail(id string) (*types.CanvasDetail, error) {
	if raw, err := l.core.Cache().Get(l.ctx, canvasCacheKey(id)); err == nil && raw != "" {
		var detail types.CanvasDetail
		if err = json.Unmarshal([]byte(raw), &detail); err == nil {
			return &detail, nil
		}
	}

	canvas, err := l.core.Store().CanvasStore().GetCanvas(l.ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("CanvasLogic.GetCanvasDetail.CanvasStore.GetCanvas", i18n.ERROR_NOT_FOUND, err).Code(http.StatusNotFound)
		}
		return nil, errors.New("CanvasLogic.GetCanvasDetail.CanvasStore.GetCanvas", i18n.ERROR_INTERNAL, err)
	}

	sessions, err := l.core.Store().ChatSessionStore().ListByCanvas(l.ctx, id)
	if err != nil {
		return nil, errors.New("CanvasLogic.GetCanvasDetail.ChatSessionStore.ListByCanvas", i18n.ERROR_INTERNAL, err)
	}

	detail := &types.CanvasDetail{
		Name:     canvas.Name,
		Data:     canvas.Data,
		Sessions: sessions,
	}

	if raw, err := json.Marshal(detail); err == nil {
		if err = l.core.Cache().SetEx(l.ctx, canvasCacheKey(id), string(raw), canvasDetailCacheTTL); err != nil {
			slog.Debug("failed to cache canvas detail", slog.String("canvas_id", id), slog.String("error", err.Error()))
		}
	}
	return detail, nil
}

func (l *CanvasLogic) SaveCanvasData(id string, data types.CanvasData, thumbnail string) error {
	if err := l.core.Store().CanvasStore().UpdateData(l.ctx, id, data, thumbnail); err != nil {
		return errors.New("CanvasLogic.SaveCanvasData.CanvasStore.UpdateData", i18n.ERROR_INTERNAL, err)
	}
	l.invalidate(id)
	return nil
}

func (l *CanvasLogic) RenameCanvas(id, name string) error {
	if err := l.core.Store().CanvasStore().UpdateName(l.ctx, id, name); err != nil {
		return errors.New("CanvasLogic.RenameCanvas.CanvasStore.UpdateName", i18n.ERROR_INTERNAL, err)
	}
	l.invalidate(id)
	return nil
}

// DeleteCanvas 级联删除画布下的会话和消息
func (l *CanvasLogic) DeleteCanvas(id string) error {
	err := l.core.Store().Transaction(l.ctx, func(ctx context.Context) error {
		if err := l.core.Store().ChatMessageStore().DeleteByCanvas(ctx, id); err != nil {
			return errors.New("CanvasLogic.DeleteCanvas.ChatMessageStore.DeleteByCanvas", i18n.ERROR_INTERNAL, err)
		}

		if err := l.core.Store().ChatSessionStore().DeleteByCanvas(ctx, id); err != nil {
			return errors.New("CanvasLogic.DeleteCanvas.ChatSessionStore.DeleteByCanvas", i18n.ERROR_INTERNAL, err)
		}

		if err := l.core.Store().CanvasStore().Delete(ctx, id); err != nil {
			return errors.New("CanvasLogic.DeleteCanvas.CanvasStore.Delete", i18n.ERROR_INTERNAL, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	l.invalidate(id)
	return nil
}

func (l *CanvasLogic) invalidate(id string) {
	if err := l.core.Cache().Del(l.ctx, canvasCacheKey(id)); err != nil {
		slog.Debug("failed to drop canvas cache", slog.String("canvas_id", id), slog.String("error", err.Error()))
	}
}
