package srv

import (
	"github.com/atelier-ai/atelier-ai/pkg/socket/firetower"
)

type Srv struct {
	ai    *AI
	tower *Tower
}

type ApplyFunc func(*Srv)

func SetupSrvs(opts ...ApplyFunc) *Srv {
	a := &Srv{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (s *Srv) AI() *AI {
	return s.ai
}

func (s *Srv) Tower() *Tower {
	return s.tower
}

func (t *Tower) Pusher() *firetower.SelfPusher[PublishData] {
	return t.pusher
}

// ReloadAI 重新构建模型与工具注册表，provider 配置变更后调用
func (s *Srv) ReloadAI(opts AIOptions) error {
	news, err := SetupAI(opts)
	if err != nil {
		return err
	}
	s.ai = news
	return nil
}
