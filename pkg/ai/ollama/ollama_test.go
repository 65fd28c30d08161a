package ollama_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atelier-ai/atelier-ai/pkg/ai/ollama"
)

func Test_ListModels(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"models":[{"name":"llama3:8b"},{"name":"qwen2:7b"}]}`))
	}))
	defer ts.Close()

	models, err := ollama.New(ts.URL).ListModels(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{"llama3:8b", "qwen2:7b"}, models)
}

func Test_ListModelsServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := ollama.New(ts.URL).ListModels(context.Background())
	assert.Error(t, err)
}
