package core

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Limiter interface {
	Allow() bool
}

type LimitConfig struct {
	Limit int
}

type LimitOption func(*LimitConfig)

func WithLimit(n int) LimitOption {
	return func(c *LimitConfig) {
		c.Limit = n
	}
}

var (
	limiterMu sync.Mutex
	limiters  = make(map[string]*rate.Limiter)
)

// UseLimiter limit 代表每分钟允许的数量
func (s *Core) UseLimiter(key string, opts ...LimitOption) Limiter {
	cfg := &LimitConfig{
		Limit: 60,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	limiterMu.Lock()
	defer limiterMu.Unlock()
	l, exist := limiters[key]
	if !exist {
		limit := rate.Every(time.Minute / time.Duration(cfg.Limit))
		l = rate.NewLimiter(limit, cfg.Limit*2)
		limiters[key] = l
	}
	return l
}
