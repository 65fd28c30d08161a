package handler

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	v1 "github.com/atelier-ai/atelier-ai/app/logic/v1"
	"github.com/atelier-ai/atelier-ai/app/response"
	"github.com/atelier-ai/atelier-ai/pkg/errors"
	"github.com/atelier-ai/atelier-ai/pkg/i18n"
	"github.com/atelier-ai/atelier-ai/pkg/utils"
)

func (s *HttpSrv) UploadImage(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.APIError(c, errors.New("handler.UploadImage.FormFile", i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest))
		return
	}

	file, err := v1.NewFileLogic(c, s.Core).SaveUpload(fh)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, file)
}

// ServeFile 本地文件直出，生成产物与上传图都走这里
func (s *HttpSrv) ServeFile(c *gin.Context) {
	filename, _ := c.Params.Get("filename")

	path, err := v1.NewFileLogic(c, s.Core).FilePath(filename)
	if err != nil {
		response.APIError(c, err)
		return
	}

	if _, err = os.Stat(path); err != nil {
		response.APIError(c, errors.New("handler.ServeFile.Stat", i18n.ERROR_NOT_FOUND, err).Code(http.StatusNotFound))
		return
	}

	c.File(path)
}

type RenderSVGRequest struct {
	SVG string `json:"svg" binding:"required"`
}

func (s *HttpSrv) RenderSVG(c *gin.Context) {
	var req RenderSVGRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	file, err := v1.NewFileLogic(c, s.Core).RenderSVG([]byte(req.SVG))
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, file)
}
