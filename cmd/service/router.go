package service

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atelier-ai/atelier-ai/app/core"
	"github.com/atelier-ai/atelier-ai/app/response"
	"github.com/atelier-ai/atelier-ai/cmd/service/handler"
	"github.com/atelier-ai/atelier-ai/cmd/service/middleware"
	"github.com/atelier-ai/atelier-ai/pkg/metrics"
)

// Version 构建时通过 -ldflags 注入
var Version = "dev"

func healthHandler(c *gin.Context) {
	response.APISuccess(c, gin.H{
		"status":    "ok",
		"service":   "atelier",
		"version":   Version,
		"timestamp": time.Now().Unix(),
	})
}

func serve(core *core.Core) {
	httpSrv := &handler.HttpSrv{
		Core:   core,
		Engine: core.HttpEngine(),
	}
	setupHttpRouter(httpSrv)

	core.HttpEngine().Run(core.Cfg().Addr)
}

func GetIPLimitBuilder(appCore *core.Core) middleware.LimiterFunc {
	return func(key string, opts ...core.LimitOption) gin.HandlerFunc {
		return middleware.UseLimit(appCore, func(c *gin.Context) string {
			return key + ":" + c.ClientIP()
		}, opts...)
	}
}

func setupHttpRouter(s *handler.HttpSrv) {
	ipLimit := GetIPLimitBuilder(s.Core)

	s.Engine.Use(middleware.I18n(), response.NewResponse())
	s.Engine.Use(middleware.Cors)
	s.Engine.Use(middleware.ApiMetrics(s.Core))

	s.Engine.GET("/health", healthHandler)
	s.Engine.GET("/metrics", metrics.DefaultExportHandler())
	s.Engine.GET("/ws", handler.Websocket(s.Core))

	api := s.Engine.Group("/api")
	{
		api.GET("/connect", handler.Websocket(s.Core))

		canvas := api.Group("/canvas")
		{
			canvas.POST("/create", s.CreateCanvas)
			canvas.GET("/list", s.ListCanvases)
			canvas.GET("/:canvas_id", s.GetCanvas)
			canvas.POST("/:canvas_id/save", s.SaveCanvas)
			canvas.POST("/:canvas_id/rename", s.RenameCanvas)
			canvas.DELETE("/:canvas_id/delete", s.DeleteCanvas)
		}

		session := api.Group("/chat_session")
		{
			session.POST("/create", s.CreateChatSession)
			session.GET("/list", s.ListChatSessions)
			session.GET("/:session_id", s.GetChatSession)
			session.GET("/:session_id/messages", s.GetSessionMessages)
		}

		api.POST("/chat", ipLimit("chat", core.WithLimit(30)), s.Chat)
		api.POST("/cancel/:session_id", s.CancelChat)

		api.GET("/list_models", s.ListModels)
		api.GET("/list_tools", s.ListTools)

		config := api.Group("/config")
		{
			config.GET("", s.GetProviderConfig)
			config.GET("/exists", s.ProviderConfigExists)
			config.POST("", s.UpdateProviderConfig)
		}

		workflow := api.Group("/comfy_workflow")
		{
			workflow.POST("", s.CreateComfyWorkflow)
			workflow.GET("", s.ListComfyWorkflows)
			workflow.GET("/checkpoints", s.ListComfyCheckpoints)
			workflow.GET("/:id", s.GetComfyWorkflow)
			workflow.DELETE("/:id", s.DeleteComfyWorkflow)
		}

		api.POST("/upload_image", ipLimit("upload", core.WithLimit(60)), s.UploadImage)
		api.POST("/svg/render", s.RenderSVG)
		api.GET("/file/:filename", s.ServeFile)
	}
}
