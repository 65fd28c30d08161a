package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/atelier-ai/atelier-ai/app/logic/v1"
	"github.com/atelier-ai/atelier-ai/app/response"
	"github.com/atelier-ai/atelier-ai/pkg/aiconfig"
	"github.com/atelier-ai/atelier-ai/pkg/utils"
)

func (s *HttpSrv) GetProviderConfig(c *gin.Context) {
	response.APISuccess(c, v1.NewProviderConfigLogic(c, s.Core).GetConfig())
}

func (s *HttpSrv) ProviderConfigExists(c *gin.Context) {
	response.APISuccess(c, gin.H{
		"exists": v1.NewProviderConfigLogic(c, s.Core).ConfigExists(),
	})
}

func (s *HttpSrv) UpdateProviderConfig(c *gin.Context) {
	var req aiconfig.AppConfig
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	if err := v1.NewProviderConfigLogic(c, s.Core).UpdateConfig(req); err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, gin.H{
		"status": "success",
	})
}

func (s *HttpSrv) ListModels(c *gin.Context) {
	response.APISuccess(c, v1.NewAILogic(c, s.Core).ListModels())
}

func (s *HttpSrv) ListTools(c *gin.Context) {
	response.APISuccess(c, v1.NewAILogic(c, s.Core).ListTools())
}
