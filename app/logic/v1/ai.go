package v1

import (
	"context"

	"github.com/atelier-ai/atelier-ai/app/core"
	"github.com/atelier-ai/atelier-ai/pkg/types"
)

type AILogic struct {
	ctx  context.Context
	core *core.Core
}

func NewAILogic(ctx context.Context, core *core.Core) *AILogic {
	return &AILogic{
		ctx:  ctx,
		core: core,
	}
}

// ListModels 可用的文本模型，前端的模型选择器数据源
func (l *AILogic) ListModels() []types.ModelInfo {
	return l.core.Srv().AI().ListModels(l.ctx)
}

// ListTools 当前已启用的生成工具
func (l *AILogic) ListTools() []types.ToolInfo {
	return l.core.Srv().AI().ListTools()
}
