package utils_test

import (
	"bytes"
	"image"
	_ "image/png"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atelier-ai/atelier-ai/pkg/utils"
)

func Test_GenUniqID(t *testing.T) {
	utils.SetupIDWorker(1)

	a := utils.GenUniqID()
	b := utils.GenUniqID()
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b)
}

func Test_RandomStr(t *testing.T) {
	s := utils.RandomStr(32)
	assert.Len(t, s, 32)
}

func Test_ImageExtFromContentType(t *testing.T) {
	assert.Equal(t, "png", utils.ImageExtFromContentType("image/png"))
	assert.Equal(t, "jpg", utils.ImageExtFromContentType("image/jpeg"))
	assert.Equal(t, "jpg", utils.ImageExtFromContentType("application/octet-stream"))
}

func Test_ConvertSVGToPNG(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 50"><rect width="100" height="50" fill="red"/></svg>`

	raw, err := utils.ConvertSVGToPNG([]byte(svg))
	assert.NoError(t, err)
	assert.NotEmpty(t, raw)
	// PNG magic number
	assert.Equal(t, []byte{0x89, 0x50, 0x4E, 0x47}, raw[:4])
}

func Test_ConvertSVGToPNGCapsHugeViewBox(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 1000000 500000"><rect width="1000000" height="500000" fill="blue"/></svg>`

	raw, err := utils.ConvertSVGToPNG([]byte(svg))
	assert.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	assert.NoError(t, err)
	assert.Equal(t, 4096, cfg.Width)
	assert.Equal(t, 2048, cfg.Height)
}

func Test_ConvertSVGToPNGInvalidInput(t *testing.T) {
	_, err := utils.ConvertSVGToPNG([]byte("not an svg"))
	assert.Error(t, err)
}

func Test_TruncateString(t *testing.T) {
	assert.Equal(t, "hello", utils.TruncateString("hello", 200))
	assert.Equal(t, "绘制一", utils.TruncateString("绘制一张海报", 3))
}
