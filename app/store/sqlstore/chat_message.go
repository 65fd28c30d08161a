package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/atelier-ai/atelier-ai/pkg/register"
	"github.com/atelier-ai/atelier-ai/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.ChatMessageStore = NewChatMessageStore(provider)
	})
}

type ChatMessageStore struct {
	CommonFields
}

func NewChatMessageStore(provider SqlProviderAchieve) *ChatMessageStore {
	repo := &ChatMessageStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_CHAT_MESSAGE)
	repo.SetAllColumns("id", "session_id", "role", "message", "complete", "send_time", "attach")
	return repo
}

func (s *ChatMessageStore) Create(ctx context.Context, data *types.ChatMessage) error {
	if data.SendTime == 0 {
		data.SendTime = time.Now().Unix()
	}

	done := s.traceOp("CREATE",
		slog.String("id", data.ID),
		slog.String("session_id", data.SessionID),
		slog.String("role", data.Role.String()))

	query := sq.Insert(s.GetTable()).
		Columns("id", "session_id", "role", "message", "complete", "send_time", "attach").
		Values(data.ID, data.SessionID, data.Role, data.Message, data.Complete, data.SendTime, data.Attach)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	done(err)
	return err
}

func (s *ChatMessageStore) ListSessionMessage(ctx context.Context, sessionID string, page, pageSize uint64) ([]*types.ChatMessage, error) {
	done := s.traceOp("LIST", slog.String("session_id", sessionID))

	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("send_time ASC")

	if page != types.NO_PAGING || pageSize != types.NO_PAGING {
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []*types.ChatMessage
	err = s.GetReplica(ctx).Select(&res, queryString, args...)
	done(err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *ChatMessageStore) Exist(ctx context.Context, sessionID string) (bool, error) {
	done := s.traceOp("EXIST", slog.String("session_id", sessionID))

	query := sq.Select("1").From(s.GetTable()).Where(sq.Eq{"session_id": sessionID}).Limit(1)

	queryString, args, err := query.ToSql()
	if err != nil {
		return false, ErrorSqlBuild(err)
	}

	var exist int
	if err = s.GetReplica(ctx).Get(&exist, queryString, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			done(nil)
			return false, nil
		}
		done(err)
		return false, err
	}
	done(nil)
	return true, nil
}

// RewriteMessage 覆写消息内容，流式生成结束或被取消时落库最终内容
func (s *ChatMessageStore) RewriteMessage(ctx context.Context, sessionID, id string, message string, attach types.ChatMessageAttach, complete types.MessageProgress) error {
	done := s.traceOp("UPDATE",
		slog.String("id", id),
		slog.String("session_id", sessionID),
		slog.Int("complete", int(complete)))

	query := sq.Update(s.GetTable()).
		Where(sq.Eq{"session_id": sessionID, "id": id}).
		Set("message", message).
		Set("attach", attach).
		Set("complete", complete)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	done(err)
	return err
}

func (s *ChatMessageStore) UpdateMessageCompleteStatus(ctx context.Context, sessionID, id string, complete types.MessageProgress) error {
	done := s.traceOp("UPDATE",
		slog.String("id", id),
		slog.String("session_id", sessionID),
		slog.Int("complete", int(complete)))

	query := sq.Update(s.GetTable()).
		Where(sq.Eq{"session_id": sessionID, "id": id}).
		Set("complete", complete)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	done(err)
	return err
}

func (s *ChatMessageStore) DeleteSessionMessage(ctx context.Context, sessionID string) error {
	done := s.traceOp("DELETE", slog.String("session_id", sessionID))

	query := sq.Delete(s.GetTable()).Where(sq.Eq{"session_id": sessionID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	done(err)
	return err
}

// DeleteByCanvas 随画布级联清掉名下所有会话的消息
func (s *ChatMessageStore) DeleteByCanvas(ctx context.Context, canvasID string) error {
	done := s.traceOp("DELETE", slog.String("canvas_id", canvasID))

	query := sq.Delete(s.GetTable()).
		Where(sq.Expr("session_id IN (SELECT id FROM "+types.TABLE_CHAT_SESSION.Name()+" WHERE canvas_id = ?)", canvasID))

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	done(err)
	return err
}
