package i18n_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atelier-ai/atelier-ai/pkg/i18n"
)

func Test_Localizer(t *testing.T) {
	l := i18n.NewLocalizer("en", "zh-CN")

	assert.Equal(t, "Resource not found", l.Get("en", i18n.ERROR_NOT_FOUND))
	assert.Equal(t, "资源不存在", l.Get("zh-CN", i18n.ERROR_NOT_FOUND))
	// unknown language falls back to the message id
	assert.Equal(t, i18n.ERROR_NOT_FOUND, l.Get("fr", i18n.ERROR_NOT_FOUND))
}
