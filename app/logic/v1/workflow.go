package v1

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/atelier-ai/atelier-ai/app/core"
	"github.com/atelier-ai/atelier-ai/pkg/errors"
	"github.com/atelier-ai/atelier-ai/pkg/i18n"
	"github.com/atelier-ai/atelier-ai/pkg/types"
)

type ComfyWorkflowLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewComfyWorkflowLogic(ctx context.Context, core *core.Core) *ComfyWorkflowLogic {
	return &ComfyWorkflowLogic{
		ctx:  ctx,
		core: core,
	}
}

type CreateWorkflowArgs struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	APIJson     string `json:"api_json" binding:"required"`
	Inputs      string `json:"inputs"`
	Outputs     string `json:"outputs"`
}

// CreateWorkflow 入库一条 comfyui 工作流并注册为动态工具
func (l *ComfyWorkflowLogic) CreateWorkflow(args CreateWorkflowArgs) (int64, error) {
	var graph map[string]any
	if err := json.Unmarshal([]byte(args.APIJson), &graph); err != nil || len(graph) == 0 {
		return 0, errors.New("ComfyWorkflowLogic.CreateWorkflow.api_json", i18n.ERROR_WORKFLOW_INVALID_JSON, err).Code(http.StatusBadRequest)
	}
	if args.Inputs != "" {
		var inputs []map[string]any
		if err := json.Unmarshal([]byte(args.Inputs), &inputs); err != nil {
			return 0, errors.New("ComfyWorkflowLogic.CreateWorkflow.inputs", i18n.ERROR_WORKFLOW_INVALID_JSON, err).Code(http.StatusBadRequest)
		}
	}

	id, err := l.core.Store().ComfyWorkflowStore().Create(l.ctx, &types.ComfyWorkflow{
		Name:        args.Name,
		Description: args.Description,
		APIJson:     args.APIJson,
		Inputs:      args.Inputs,
		Outputs:     args.Outputs,
	})
	if err != nil {
		return 0, errors.New("ComfyWorkflowLogic.CreateWorkflow.ComfyWorkflowStore.Create", i18n.ERROR_INTERNAL, err)
	}

	l.reloadTools()
	return id, nil
}

func (l *ComfyWorkflowLogic) GetWorkflow(id int64) (*types.ComfyWorkflow, error) {
	wf, err := l.core.Store().ComfyWorkflowStore().Get(l.ctx, id)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("ComfyWorkflowLogic.GetWorkflow.ComfyWorkflowStore.Get", i18n.ERROR_INTERNAL, err)
	}
	if wf == nil || err == sql.ErrNoRows {
		return nil, errors.New("ComfyWorkflowLogic.GetWorkflow.notfound", i18n.ERROR_NOT_FOUND, nil).Code(http.StatusNotFound)
	}
	return wf, nil
}

func (l *ComfyWorkflowLogic) ListWorkflows() ([]types.ComfyWorkflow, error) {
	list, err := l.core.Store().ComfyWorkflowStore().List(l.ctx, types.NO_PAGING, types.NO_PAGING)
	if err != nil {
		return nil, errors.New("ComfyWorkflowLogic.ListWorkflows.ComfyWorkflowStore.List", i18n.ERROR_INTERNAL, err)
	}
	return list, nil
}

func (l *ComfyWorkflowLogic) DeleteWorkflow(id int64) error {
	if err := l.core.Store().ComfyWorkflowStore().Delete(l.ctx, id); err != nil {
		return errors.New("ComfyWorkflowLogic.DeleteWorkflow.ComfyWorkflowStore.Delete", i18n.ERROR_INTERNAL, err)
	}
	l.reloadTools()
	return nil
}

// ListCheckpoints 探测 comfyui server 上已安装的 checkpoint 模型，
// 供前端的工作流编辑页做下拉选择
func (l *ComfyWorkflowLogic) ListCheckpoints() ([]string, error) {
	comfy := l.core.Srv().AI().Comfy()
	if comfy == nil {
		return nil, errors.New("ComfyWorkflowLogic.ListCheckpoints.unconfigured", i18n.ERROR_UNSUPPORTED_FEATURE, nil).Code(http.StatusBadRequest)
	}

	models, err := comfy.ListCheckpoints(l.ctx)
	if err != nil {
		return nil, errors.New("ComfyWorkflowLogic.ListCheckpoints.comfyui", i18n.ERROR_INTERNAL, err)
	}
	return models, nil
}

func (l *ComfyWorkflowLogic) reloadTools() {
	if err := l.core.ReloadAI(l.ctx); err != nil {
		slog.Error("failed to reload tool registry", slog.String("error", err.Error()))
	}
}
