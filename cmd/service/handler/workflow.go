package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	v1 "github.com/atelier-ai/atelier-ai/app/logic/v1"
	"github.com/atelier-ai/atelier-ai/app/response"
	"github.com/atelier-ai/atelier-ai/pkg/errors"
	"github.com/atelier-ai/atelier-ai/pkg/i18n"
	"github.com/atelier-ai/atelier-ai/pkg/utils"
)

func (s *HttpSrv) CreateComfyWorkflow(c *gin.Context) {
	var req v1.CreateWorkflowArgs
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	id, err := v1.NewComfyWorkflowLogic(c, s.Core).CreateWorkflow(req)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, gin.H{
		"id": id,
	})
}

func (s *HttpSrv) ListComfyWorkflows(c *gin.Context) {
	list, err := v1.NewComfyWorkflowLogic(c, s.Core).ListWorkflows()
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, list)
}

func (s *HttpSrv) GetComfyWorkflow(c *gin.Context) {
	id, err := workflowID(c)
	if err != nil {
		response.APIError(c, err)
		return
	}

	wf, err := v1.NewComfyWorkflowLogic(c, s.Core).GetWorkflow(id)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, wf)
}

func (s *HttpSrv) DeleteComfyWorkflow(c *gin.Context) {
	id, err := workflowID(c)
	if err != nil {
		response.APIError(c, err)
		return
	}

	if err = v1.NewComfyWorkflowLogic(c, s.Core).DeleteWorkflow(id); err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, nil)
}

func (s *HttpSrv) ListComfyCheckpoints(c *gin.Context) {
	models, err := v1.NewComfyWorkflowLogic(c, s.Core).ListCheckpoints()
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, models)
}

func workflowID(c *gin.Context) (int64, error) {
	raw, _ := c.Params.Get("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("handler.workflowID", i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest)
	}
	return id, nil
}
