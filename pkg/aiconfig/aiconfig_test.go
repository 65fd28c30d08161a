package aiconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atelier-ai/atelier-ai/pkg/ai"
	"github.com/atelier-ai/atelier-ai/pkg/types"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(filepath.Join(t.TempDir(), "config.toml"))
}

func TestLoadCreatesDefaults(t *testing.T) {
	svc := newTestService(t)
	assert.False(t, svc.Exists())
	assert.NoError(t, svc.Load())
	assert.True(t, svc.Exists())

	cfg := svc.Get()
	openaiCfg, ok := cfg[ai.PROVIDER_OPENAI]
	assert.True(t, ok)
	assert.Equal(t, "https://api.openai.com/v1/", openaiCfg.URL)
	assert.Equal(t, types.MODEL_TYPE_IMAGE, openaiCfg.Models["gpt-image-1"].Type)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	svc := newTestService(t)
	content := `
[openai]
url = "https://api.openai.com/v1/"
api_key = "sk-test"

[openai.models."my-custom-text"]
type = "text"

[openai.models."my-custom-image"]
type = "image"

[myprovider]
url = "http://localhost:9999"
api_key = "abc"
`
	assert.NoError(t, os.WriteFile(svc.path, []byte(content), 0o644))
	assert.NoError(t, svc.Load())

	cfg := svc.Get()
	assert.Equal(t, "sk-test", cfg[ai.PROVIDER_OPENAI].APIKey)
	// custom text models extend the defaults
	assert.True(t, cfg[ai.PROVIDER_OPENAI].Models["my-custom-text"].IsCustom)
	// image models cannot be added through the file
	_, exists := cfg[ai.PROVIDER_OPENAI].Models["my-custom-image"]
	assert.False(t, exists)
	// built-ins survive the merge
	assert.Equal(t, types.MODEL_TYPE_TEXT, cfg[ai.PROVIDER_OPENAI].Models["gpt-4o"].Type)
	// unknown providers get flagged custom
	assert.True(t, cfg["myprovider"].IsCustom)
}

func TestLoadSeedsKeyFromEnv(t *testing.T) {
	svc := newTestService(t)
	t.Setenv("REPLICATE_API_KEY", "r8_env")

	assert.NoError(t, svc.Load())
	assert.Equal(t, "r8_env", svc.Get()[ai.PROVIDER_REPLICATE].APIKey)
}

func TestGetMasked(t *testing.T) {
	svc := newTestService(t)
	assert.NoError(t, svc.Load())

	cfg := svc.Get()
	pc := cfg[ai.PROVIDER_OPENAI]
	pc.APIKey = "sk-verysecretkey"
	cfg[ai.PROVIDER_OPENAI] = pc
	assert.NoError(t, svc.Update(cfg))

	masked := svc.GetMasked()
	assert.Equal(t, "sk-v"+maskedTail, masked[ai.PROVIDER_OPENAI].APIKey)
}

func TestUpdateKeepsKeyWhenMaskedValueComesBack(t *testing.T) {
	svc := newTestService(t)
	assert.NoError(t, svc.Load())

	cfg := svc.Get()
	pc := cfg[ai.PROVIDER_VOLCES]
	pc.APIKey = "volc-original-key"
	cfg[ai.PROVIDER_VOLCES] = pc
	assert.NoError(t, svc.Update(cfg))

	roundTrip := svc.GetMasked()
	assert.NoError(t, svc.Update(roundTrip))
	assert.Equal(t, "volc-original-key", svc.Get()[ai.PROVIDER_VOLCES].APIKey)
}

func TestUpdateNotifiesListeners(t *testing.T) {
	svc := newTestService(t)
	var got AppConfig
	svc.OnChange(func(cfg AppConfig) { got = cfg })
	assert.NoError(t, svc.Load())

	assert.NoError(t, svc.Update(svc.Get()))
	assert.NotNil(t, got)
}
