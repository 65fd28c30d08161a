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
		provider.stores.CanvasStore = NewCanvasStore(provider)
	})
}

type CanvasStore struct {
	CommonFields
}

func NewCanvasStore(provider SqlProviderAchieve) *CanvasStore {
	repo := &CanvasStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_CANVAS)
	repo.SetAllColumns("id", "name", "description", "data", "thumbnail", "created_at", "updated_at")
	return repo
}

func (s *CanvasStore) Create(ctx context.Context, data types.Canvas) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	if data.UpdatedAt == 0 {
		data.UpdatedAt = data.CreatedAt
	}

	done := s.traceOp("CREATE", slog.String("id", data.ID), slog.String("name", data.Name))

	query := sq.Insert(s.GetTable()).
		Columns("id", "name", "description", "data", "thumbnail", "created_at", "updated_at").
		Values(data.ID, data.Name, data.Description, data.Data, data.Thumbnail, data.CreatedAt, data.UpdatedAt)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	done(err)
	return err
}

func (s *CanvasStore) GetCanvas(ctx context.Context, id string) (*types.Canvas, error) {
	done := s.traceOp("READ", slog.String("id", id))

	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.Canvas
	err = s.GetReplica(ctx).Get(&res, queryString, args...)
	done(err)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *CanvasStore) UpdateData(ctx context.Context, id string, data types.CanvasData, thumbnail string) error {
	done := s.traceOp("UPDATE", slog.String("id", id), slog.Bool("has_thumbnail", thumbnail != ""))

	query := sq.Update(s.GetTable()).Where(sq.Eq{"id": id}).
		Set("data", data).
		Set("updated_at", time.Now().Unix())
	if thumbnail != "" {
		query = query.Set("thumbnail", thumbnail)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	done(err)
	return err
}

func (s *CanvasStore) UpdateName(ctx context.Context, id string, name string) error {
	done := s.traceOp("UPDATE", slog.String("id", id), slog.String("name", name))

	query := sq.Update(s.GetTable()).Where(sq.Eq{"id": id}).
		Set("name", name).
		Set("updated_at", time.Now().Unix())

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	done(err)
	return err
}

func (s *CanvasStore) Delete(ctx context.Context, id string) error {
	done := s.traceOp("DELETE", slog.String("id", id))

	query := sq.Delete(s.GetTable()).Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	done(err)
	return err
}

func (s *CanvasStore) List(ctx context.Context, page, pageSize uint64) ([]types.Canvas, error) {
	done := s.traceOp("LIST")

	query := sq.Select("id", "name", "description", "thumbnail", "created_at", "updated_at").
		From(s.GetTable()).
		OrderBy("updated_at DESC")

	if page != types.NO_PAGING || pageSize != types.NO_PAGING {
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.Canvas
	err = s.GetReplica(ctx).Select(&res, queryString, args...)
	done(err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *CanvasStore) Total(ctx context.Context) (uint64, error) {
	done := s.traceOp("COUNT")

	query := sq.Select("COUNT(*)").From(s.GetTable())

	queryString, args, err := query.ToSql()
	if err != nil {
		return 0, ErrorSqlBuild(err)
	}

	var total uint64
	err = s.GetReplica(ctx).Get(&total, queryString, args...)
	done(err)
	if err != nil {
		return 0, err
	}
	return total, nil
}
