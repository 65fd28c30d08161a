package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atelier-ai/atelier-ai/pkg/errors"
)

func Test_TraceChain(t *testing.T) {
	base := errors.New("store.CanvasStore.Get", "error.internal", fmt.Errorf("sql: no rows"))
	traced := errors.Trace("logic.CanvasLogic.GetCanvas", base)

	assert.Equal(t, http.StatusInternalServerError, traced.GetCode())
	assert.Contains(t, traced.Error(), "store.CanvasStore.Get->logic.CanvasLogic.GetCanvas")
}

func Test_CodePropagation(t *testing.T) {
	notFound := errors.New("logic.ChatSessionLogic.Get", "error.notfound", nil).Code(http.StatusNotFound)
	wrapped := errors.Wrap(notFound, "api.GetChatSession", "error.notfound")

	assert.Equal(t, http.StatusNotFound, wrapped.GetCode())
	assert.Equal(t, "error.notfound", wrapped.Message())
}

func Test_MessageFallsBackToCause(t *testing.T) {
	err := errors.New("api.Upload", "", fmt.Errorf("file too large"))
	assert.Equal(t, "file too large", err.Message())
}
