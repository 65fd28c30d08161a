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
		provider.stores.ComfyWorkflowStore = NewComfyWorkflowStore(provider)
	})
}

type ComfyWorkflowStore struct {
	CommonFields
}

func NewComfyWorkflowStore(provider SqlProviderAchieve) *ComfyWorkflowStore {
	repo := &ComfyWorkflowStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_COMFY_WORKFLOW)
	repo.SetAllColumns("id", "name", "description", "api_json", "inputs", "outputs", "created_at", "updated_at")
	return repo
}

func (s *ComfyWorkflowStore) Create(ctx context.Context, data *types.ComfyWorkflow) (int64, error) {
	now := time.Now().Unix()
	if data.CreatedAt == 0 {
		data.CreatedAt = now
	}
	if data.UpdatedAt == 0 {
		data.UpdatedAt = now
	}

	done := s.traceOp("CREATE", slog.String("name", data.Name))

	query := sq.Insert(s.GetTable()).
		Columns("name", "description", "api_json", "inputs", "outputs", "created_at", "updated_at").
		Values(data.Name, data.Description, data.APIJson, data.Inputs, data.Outputs, data.CreatedAt, data.UpdatedAt).
		Suffix("RETURNING id")

	queryString, args, err := query.ToSql()
	if err != nil {
		return 0, ErrorSqlBuild(err)
	}

	err = s.GetReplica(ctx).QueryRowx(queryString, args...).Scan(&data.ID)
	done(err)
	if err != nil {
		return 0, err
	}
	return data.ID, nil
}

func (s *ComfyWorkflowStore) Get(ctx context.Context, id int64) (*types.ComfyWorkflow, error) {
	done := s.traceOp("READ", slog.Int64("id", id))

	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.ComfyWorkflow
	err = s.GetReplica(ctx).Get(&res, queryString, args...)
	done(err)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *ComfyWorkflowStore) List(ctx context.Context, page, pageSize uint64) ([]types.ComfyWorkflow, error) {
	done := s.traceOp("LIST")

	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).OrderBy("created_at DESC")

	if page != types.NO_PAGING || pageSize != types.NO_PAGING {
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.ComfyWorkflow
	err = s.GetReplica(ctx).Select(&res, queryString, args...)
	done(err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *ComfyWorkflowStore) Delete(ctx context.Context, id int64) error {
	done := s.traceOp("DELETE", slog.Int64("id", id))

	query := sq.Delete(s.GetTable()).Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	done(err)
	return err
}
