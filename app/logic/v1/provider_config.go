package v1

import (
	"context"
	"log/slog"

	"github.com/atelier-ai/atelier-ai/app/core"
	"github.com/atelier-ai/atelier-ai/pkg/aiconfig"
	"github.com/atelier-ai/atelier-ai/pkg/errors"
	"github.com/atelier-ai/atelier-ai/pkg/i18n"
)

type ProviderConfigLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewProviderConfigLogic(ctx context.Context, core *core.Core) *ProviderConfigLogic {
	return &ProviderConfigLogic{
		ctx:  ctx,
		core: core,
	}
}

// GetConfig 返回脱敏后的 provider 配置，api key 只露前四位
func (l *ProviderConfigLogic) GetConfig() aiconfig.AppConfig {
	return l.core.Providers().GetMasked()
}

func (l *ProviderConfigLogic) ConfigExists() bool {
	return l.core.Providers().Exists()
}

// UpdateConfig 保存 provider 配置并重建模型与工具注册表。
// 前端把脱敏值原样传回时保留已存的 key。
func (l *ProviderConfigLogic) UpdateConfig(next aiconfig.AppConfig) error {
	if err := l.core.Providers().Update(next); err != nil {
		return errors.New("ProviderConfigLogic.UpdateConfig.Update", i18n.ERROR_INTERNAL, err)
	}
	// Update 已通过 OnChange 触发 ReloadAI，这里只记录结果
	slog.Info("provider config updated", slog.Int("providers", len(next)))
	return nil
}
