package sqlstore

import (
	"context"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/atelier-ai/atelier-ai/pkg/register"
	"github.com/atelier-ai/atelier-ai/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.ChatSessionStore = NewChatSessionStore(provider)
	})
}

type ChatSessionStore struct {
	CommonFields
}

func NewChatSessionStore(provider SqlProviderAchieve) *ChatSessionStore {
	repo := &ChatSessionStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_CHAT_SESSION)
	repo.SetAllColumns("id", "canvas_id", "title", "model", "provider", "status", "created_at", "latest_access_time")
	return repo
}

func (s *ChatSessionStore) Create(ctx context.Context, data types.ChatSession) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	if data.LatestAccessTime == 0 {
		data.LatestAccessTime = time.Now().Unix()
	}

	done := s.traceOp("CREATE", slog.String("id", data.ID), slog.String("canvas_id", data.CanvasID))

	query := sq.Insert(s.GetTable()).
		Columns("id", "canvas_id", "title", "model", "provider", "status", "created_at", "latest_access_time").
		Values(data.ID, data.CanvasID, data.Title, data.Model, data.Provider, data.Status, data.CreatedAt, data.LatestAccessTime)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	done(err)
	return err
}

func (s *ChatSessionStore) GetChatSession(ctx context.Context, sessionID string) (*types.ChatSession, error) {
	done := s.traceOp("READ", slog.String("id", sessionID))

	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"id": sessionID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.ChatSession
	err = s.GetReplica(ctx).Get(&res, queryString, args...)
	done(err)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *ChatSessionStore) UpdateSessionTitle(ctx context.Context, sessionID string, title string) error {
	done := s.traceOp("UPDATE", slog.String("id", sessionID), slog.String("title", title))

	query := sq.Update(s.GetTable()).Where(sq.Eq{"id": sessionID}).Set("title", title)
	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	done(err)
	return err
}

func (s *ChatSessionStore) UpdateSessionStatus(ctx context.Context, sessionID string, status types.ChatSessionStatus) error {
	done := s.traceOp("UPDATE", slog.String("id", sessionID), slog.Int("status", int(status)))

	query := sq.Update(s.GetTable()).Where(sq.Eq{"id": sessionID}).Set("status", status)
	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	done(err)
	return err
}

func (s *ChatSessionStore) UpdateSessionModel(ctx context.Context, sessionID string, model, provider string) error {
	done := s.traceOp("UPDATE", slog.String("id", sessionID), slog.String("model", model), slog.String("provider", provider))

	query := sq.Update(s.GetTable()).Where(sq.Eq{"id": sessionID}).
		Set("model", model).
		Set("provider", provider)
	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	done(err)
	return err
}

func (s *ChatSessionStore) UpdateChatSessionLatestAccessTime(ctx context.Context, sessionID string) error {
	done := s.traceOp("UPDATE", slog.String("id", sessionID))

	query := sq.Update(s.GetTable()).Where(sq.Eq{"id": sessionID}).Set("latest_access_time", time.Now().Unix())

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	done(err)
	return err
}

func (s *ChatSessionStore) ListByCanvas(ctx context.Context, canvasID string) ([]types.ChatSession, error) {
	done := s.traceOp("LIST", slog.String("canvas_id", canvasID))

	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"canvas_id": canvasID}).
		OrderBy("latest_access_time DESC")

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.ChatSession
	err = s.GetReplica(ctx).Select(&res, queryString, args...)
	done(err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ListUnofficial 列出超过给定访问时间的未落库会话，供清理任务使用
func (s *ChatSessionStore) ListUnofficial(ctx context.Context, beforeAccessTime int64, limit uint64) ([]types.ChatSession, error) {
	done := s.traceOp("LIST", slog.Int64("before", beforeAccessTime))

	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"status": types.CHAT_SESSION_STATUS_UNOFFICIAL}).
		Where(sq.Lt{"latest_access_time": beforeAccessTime}).
		Limit(limit)

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.ChatSession
	err = s.GetReplica(ctx).Select(&res, queryString, args...)
	done(err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *ChatSessionStore) Delete(ctx context.Context, sessionID string) error {
	done := s.traceOp("DELETE", slog.String("id", sessionID))

	query := sq.Delete(s.GetTable()).Where(sq.Eq{"id": sessionID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	done(err)
	return err
}

func (s *ChatSessionStore) DeleteByCanvas(ctx context.Context, canvasID string) error {
	done := s.traceOp("DELETE", slog.String("canvas_id", canvasID))

	query := sq.Delete(s.GetTable()).Where(sq.Eq{"canvas_id": canvasID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	done(err)
	return err
}
