package v1

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func encodeTestPNG(t *testing.T, width, height int, noisy bool) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if noisy {
		// 随机噪点让 PNG 压不下去，方便撑过压缩阈值
		r := rand.New(rand.NewSource(1))
		for i := range img.Pix {
			img.Pix[i] = byte(r.Intn(256))
		}
	} else {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func Test_PrepareUploadImageRejectsNonImage(t *testing.T) {
	_, _, err := prepareUploadImage([]byte("<!DOCTYPE html><html><body>nope</body></html>"))
	assert.Error(t, err)
}

func Test_PrepareUploadImageKeepsSmallImage(t *testing.T) {
	raw := encodeTestPNG(t, 32, 32, false)

	out, mimeType, err := prepareUploadImage(raw)
	assert.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, raw, out)
}

func Test_PrepareUploadImageCompressesLargeImage(t *testing.T) {
	raw := encodeTestPNG(t, 1100, 1100, true)
	if len(raw) <= compressOverBytes {
		t.Fatalf("fixture too small to exercise compression: %d bytes", len(raw))
	}

	out, mimeType, err := prepareUploadImage(raw)
	assert.NoError(t, err)
	assert.Equal(t, "image/jpeg", mimeType)
	assert.Less(t, len(out), len(raw))

	width, height := probeImageSize(out)
	assert.Equal(t, 1100, width)
	assert.Equal(t, 1100, height)
}

func Test_SaveUploadRejectsOversizeFile(t *testing.T) {
	l := &FileLogic{}
	_, err := l.SaveUpload(&multipart.FileHeader{Size: maxUploadBytes + 1})
	assert.Error(t, err)
}

func Test_DownloadAssetRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("<html>upstream exploded</html>"))
	}))
	defer srv.Close()

	l := &FileLogic{ctx: context.Background()}
	_, err := l.DownloadAsset(srv.URL, "image")
	assert.Error(t, err)
}
