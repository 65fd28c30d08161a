package process

import (
	"context"
	"log/slog"
	"time"

	"github.com/atelier-ai/atelier-ai/app/core"
	"github.com/atelier-ai/atelier-ai/pkg/register"
	"github.com/atelier-ai/atelier-ai/pkg/safe"
	"github.com/atelier-ai/atelier-ai/pkg/types"
)

type SessionCleanupProcess struct {
	core *core.Core
}

func NewSessionCleanupProcess(core *core.Core) *SessionCleanupProcess {
	return &SessionCleanupProcess{core: core}
}

// ClearUnofficialSessions 清理超过保留时长仍然空置的占位会话，
// 前端建了会话但从未发消息的那类。带消息的占位会话说明漏转正了，
// 补一次转正而不是删历史
func (p *SessionCleanupProcess) ClearUnofficialSessions(ctx context.Context) error {
	before := time.Now().Add(-p.core.Cfg().SessionTTL()).Unix()

	for {
		list, err := p.core.Store().ChatSessionStore().ListUnofficial(ctx, before, 50)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			return nil
		}

		for _, v := range list {
			exist, err := p.core.Store().ChatMessageStore().Exist(ctx, v.ID)
			if err != nil {
				return err
			}
			if exist {
				if err = p.core.Store().ChatSessionStore().UpdateSessionStatus(ctx, v.ID, types.CHAT_SESSION_STATUS_OFFICIAL); err != nil {
					return err
				}
				slog.Info("promoted placeholder session with history", slog.String("session_id", v.ID))
				continue
			}

			if err = p.core.Store().ChatSessionStore().Delete(ctx, v.ID); err != nil {
				return err
			}
		}

		if len(list) < 50 {
			return nil
		}
	}
}

func init() {
	register.RegisterFunc(ProcessKey{}, func(provider *Process) {
		provider.Cron().AddFunc("0 4 * * *", func() {
			safe.RunWithComponent(func() {
				err := NewSessionCleanupProcess(provider.Core()).ClearUnofficialSessions(context.Background())
				if err != nil {
					slog.Error("Failed to clear unofficial sessions", slog.String("error", err.Error()))
				} else {
					slog.Info("Successfully clear unofficial sessions")
				}
			}, "process.ClearUnofficialSessions")
		})
	})
}
