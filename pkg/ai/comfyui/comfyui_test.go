package comfyui_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atelier-ai/atelier-ai/pkg/ai/comfyui"
)

func Test_Ping(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/prompt", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"exec_info":{"queue_remaining":0}}`))
	}))
	defer ts.Close()

	assert.NoError(t, comfyui.New(ts.URL).Ping(context.Background()))
}

func Test_ListCheckpoints(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/object_info", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"CheckpointLoaderSimple":{"input":{"required":{"ckpt_name":[["sd_xl_base_1.0.safetensors","dreamshaper_8.safetensors"]]}}}}`))
	}))
	defer ts.Close()

	models, err := comfyui.New(ts.URL).ListCheckpoints(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{"sd_xl_base_1.0.safetensors", "dreamshaper_8.safetensors"}, models)
}

func Test_ListCheckpointsMissingLoader(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	models, err := comfyui.New(ts.URL).ListCheckpoints(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, models)
}
