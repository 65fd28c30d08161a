package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/atelier-ai/atelier-ai/app/response"
)

func Test_HealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(response.NewResponse())
	engine.GET("/health", healthHandler)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Data map[string]any `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "ok", res.Data["status"])
	assert.Equal(t, "atelier", res.Data["service"])
	assert.Equal(t, Version, res.Data["version"])
	assert.NotZero(t, res.Data["timestamp"])
}
