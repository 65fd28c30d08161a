package core

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/atelier-ai/atelier-ai/app/core/srv"
	"github.com/atelier-ai/atelier-ai/app/store/sqlstore"
	"github.com/atelier-ai/atelier-ai/pkg/aiconfig"
	"github.com/atelier-ai/atelier-ai/pkg/cache"
	"github.com/atelier-ai/atelier-ai/pkg/types"
)

type Core struct {
	cfg CoreConfig
	srv *srv.Srv

	providers *aiconfig.Service

	stores     func() *sqlstore.Provider
	httpClient *http.Client
	httpEngine *gin.Engine

	cache   types.Cache
	metrics *Metrics
}

func MustSetupCore(cfg CoreConfig) *Core {
	{
		var writer io.Writer = os.Stdout
		if cfg.Log.Path != "" {
			writer = &lumberjack.Logger{
				Filename:   cfg.Log.Path,
				MaxSize:    500, // megabytes
				MaxBackups: 3,
				MaxAge:     28,   //days
				Compress:   true, // disabled by default
			}
		}
		l := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
			Level: cfg.Log.SlogLevel(),
		}))
		slog.SetDefault(l)
	}

	core := &Core{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Second * 3},
		metrics:    NewMetrics("atelier", "core"),
		httpEngine: gin.New(),
		providers:  aiconfig.NewService(cfg.ProvidersConfigPath()),
	}

	if err := os.MkdirAll(cfg.FilesDir(), 0o755); err != nil {
		panic(err)
	}

	setupSqlStore(core)
	setupCache(core)

	if err := core.providers.Load(); err != nil {
		panic(err)
	}

	core.srv = srv.SetupSrvs(
		core.loadInitialAI(),
		// web socket
		srv.ApplyTower(),
	)

	// provider 配置变更后热重载模型与工具注册表
	core.providers.OnChange(func(aiconfig.AppConfig) {
		if err := core.ReloadAI(context.Background()); err != nil {
			slog.Error("failed to reload ai registry", slog.String("error", err.Error()))
			return
		}
		if err := core.srv.Tower().PublishInitDone(); err != nil {
			slog.Error("failed to publish init_done", slog.String("error", err.Error()))
		}
	})

	return core
}

func setupSqlStore(core *Core) {
	core.stores = sqlstore.MustSetup(core.cfg.Postgres)
	// 执行数据库表初始化
	if err := core.stores().Install(); err != nil {
		panic(err)
	}
	slog.Info("setupSqlStore done")
}

func setupCache(core *Core) {
	if core.cfg.Redis.Addr == "" {
		core.cache = cache.NewMemoryCache()
		slog.Info("cache driver: memory")
		return
	}

	rc := cache.NewRedisCache(cache.RedisOptions{
		Addr:     core.cfg.Redis.Addr,
		Password: core.cfg.Redis.Password,
		DB:       core.cfg.Redis.DB,
		Prefix:   core.cfg.Redis.KeyPrefix,
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		panic(err)
	}
	core.cache = rc
	slog.Info("cache driver: redis", slog.String("addr", core.cfg.Redis.Addr))
}

func (s *Core) loadInitialAI() srv.ApplyFunc {
	opts := s.buildAIOptions(context.Background())
	return func(sv *srv.Srv) {
		if err := sv.ReloadAI(opts); err != nil {
			panic(err)
		}
	}
}

func (s *Core) buildAIOptions(ctx context.Context) srv.AIOptions {
	opts := srv.AIOptions{
		Config: s.providers.Get(),
	}

	workflows, err := s.Store().ComfyWorkflowStore().List(ctx, types.NO_PAGING, types.NO_PAGING)
	if err != nil {
		slog.Error("failed to list comfy workflows for tool registry", slog.String("error", err.Error()))
	} else {
		opts.Workflows = workflows
	}
	return opts
}

// ReloadAI 重新构建模型与工具注册表
func (s *Core) ReloadAI(ctx context.Context) error {
	return s.srv.ReloadAI(s.buildAIOptions(ctx))
}

func (s *Core) Cfg() CoreConfig {
	return s.cfg
}

func (s *Core) HttpEngine() *gin.Engine {
	return s.httpEngine
}

func (s *Core) Metrics() *Metrics {
	return s.metrics
}

func (s *Core) Store() *sqlstore.Provider {
	return s.stores()
}

func (s *Core) Srv() *srv.Srv {
	return s.srv
}

func (s *Core) Cache() types.Cache {
	return s.cache
}

func (s *Core) Providers() *aiconfig.Service {
	return s.providers
}

func (s *Core) HttpClient() *http.Client {
	return s.httpClient
}
