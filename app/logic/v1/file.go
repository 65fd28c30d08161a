package v1

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atelier-ai/atelier-ai/app/core"
	"github.com/atelier-ai/atelier-ai/pkg/errors"
	"github.com/atelier-ai/atelier-ai/pkg/i18n"
	"github.com/atelier-ai/atelier-ai/pkg/utils"
)

type FileLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewFileLogic(ctx context.Context, core *core.Core) *FileLogic {
	return &FileLogic{
		ctx:  ctx,
		core: core,
	}
}

type UploadedFile struct {
	FileID   string `json:"file_id"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

func FileURL(filename string) string {
	return "/api/file/" + filename
}

// FilePath 返回文件落盘路径，剥掉路径分隔符防止目录穿越
func (l *FileLogic) FilePath(filename string) (string, error) {
	filename = filepath.Base(filename)
	if filename == "." || filename == ".." || filename == "/" {
		return "", errors.New("FileLogic.FilePath.invalid", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}
	return filepath.Join(l.core.Cfg().FilesDir(), filename), nil
}

const (
	// maxUploadBytes 单次上传硬上限
	maxUploadBytes = 20 << 20
	// compressOverBytes 超过该大小的图片转存 JPEG 压一遍
	compressOverBytes = 3 << 20
)

// SaveUpload 保存前端上传的图片并返回尺寸信息
func (l *FileLogic) SaveUpload(fh *multipart.FileHeader) (*UploadedFile, error) {
	if fh.Size > maxUploadBytes {
		return nil, errors.New("FileLogic.SaveUpload.size", i18n.ERROR_MORE_TAHN_MAX, nil).Code(http.StatusBadRequest)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, errors.New("FileLogic.SaveUpload.Open", i18n.ERROR_IMAGE_READ_FAIL, err).Code(http.StatusBadRequest)
	}
	defer src.Close()

	raw, err := io.ReadAll(io.LimitReader(src, maxUploadBytes+1))
	if err != nil {
		return nil, errors.New("FileLogic.SaveUpload.ReadAll", i18n.ERROR_IMAGE_READ_FAIL, err).Code(http.StatusBadRequest)
	}
	if len(raw) > maxUploadBytes {
		return nil, errors.New("FileLogic.SaveUpload.size", i18n.ERROR_MORE_TAHN_MAX, nil).Code(http.StatusBadRequest)
	}

	raw, mimeType, err := prepareUploadImage(raw)
	if err != nil {
		return nil, err
	}

	fileID := utils.GenRandomID()
	filename := fileID + "." + utils.ImageExtFromContentType(mimeType)
	if err = l.write(filename, raw); err != nil {
		return nil, err
	}

	width, height := probeImageSize(raw)
	return &UploadedFile{
		FileID:   fileID,
		URL:      FileURL(filename),
		MimeType: mimeType,
		Width:    width,
		Height:   height,
	}, nil
}

// prepareUploadImage 校验上传内容确实是图片，过大的重编码成 JPEG
func prepareUploadImage(raw []byte) ([]byte, string, error) {
	mimeType := http.DetectContentType(raw)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", errors.New("FileLogic.SaveUpload.mime", i18n.ERROR_IMAGE_TYPE_UNSUPPORT, nil).Code(http.StatusBadRequest)
	}

	if len(raw) <= compressOverBytes {
		return raw, mimeType, nil
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", errors.New("FileLogic.SaveUpload.Decode", i18n.ERROR_IMAGE_READ_FAIL, err).Code(http.StatusBadRequest)
	}

	var buf bytes.Buffer
	if err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, "", errors.New("FileLogic.SaveUpload.Encode", i18n.ERROR_INTERNAL, err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

// SaveB64Asset 保存模型内联返回的生成结果
func (l *FileLogic) SaveB64Asset(b64, mimeType string) (*UploadedFile, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, errors.New("FileLogic.SaveB64Asset.DecodeString", i18n.ERROR_INTERNAL, err)
	}

	if mimeType == "" {
		mimeType = http.DetectContentType(raw)
	}

	fileID := utils.GenRandomID()
	filename := fileID + "." + utils.ImageExtFromContentType(mimeType)
	if err = l.write(filename, raw); err != nil {
		return nil, err
	}

	width, height := probeImageSize(raw)
	return &UploadedFile{
		FileID:   fileID,
		URL:      FileURL(filename),
		MimeType: mimeType,
		Width:    width,
		Height:   height,
	}, nil
}

// DownloadAsset 拉取 provider 返回的远端结果，video 用远端 URL 直接拉
func (l *FileLogic) DownloadAsset(url, assetType string) (*UploadedFile, error) {
	ctx, cancel := context.WithTimeout(l.ctx, time.Minute*3)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.New("FileLogic.DownloadAsset.NewRequest", i18n.ERROR_INTERNAL, err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, errors.New("FileLogic.DownloadAsset.Do", i18n.ERROR_INTERNAL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.New("FileLogic.DownloadAsset.status", i18n.ERROR_INTERNAL, fmt.Errorf("asset fetch returned %s", resp.Status))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New("FileLogic.DownloadAsset.ReadAll", i18n.ERROR_INTERNAL, err)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(raw)
	}

	var ext string
	if assetType == "video" || strings.HasPrefix(mimeType, "video/") {
		ext = "mp4"
	} else {
		ext = utils.ImageExtFromContentType(mimeType)
	}

	fileID := utils.GenRandomID()
	filename := fileID + "." + ext
	if err = l.write(filename, raw); err != nil {
		return nil, err
	}

	width, height := probeImageSize(raw)
	return &UploadedFile{
		FileID:   fileID,
		URL:      FileURL(filename),
		MimeType: mimeType,
		Width:    width,
		Height:   height,
	}, nil
}

// RenderSVG 将画布导出的 SVG 栅格化成 PNG 存本地，
// 生成工具只吃位图参考图
func (l *FileLogic) RenderSVG(svg []byte) (*UploadedFile, error) {
	raw, err := utils.ConvertSVGToPNG(svg)
	if err != nil {
		return nil, errors.New("FileLogic.RenderSVG.ConvertSVGToPNG", i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest)
	}

	fileID := utils.GenRandomID()
	filename := fileID + ".png"
	if err = l.write(filename, raw); err != nil {
		return nil, err
	}

	width, height := probeImageSize(raw)
	return &UploadedFile{
		FileID:   fileID,
		URL:      FileURL(filename),
		MimeType: "image/png",
		Width:    width,
		Height:   height,
	}, nil
}

func (l *FileLogic) write(filename string, raw []byte) error {
	path, err := l.FilePath(filename)
	if err != nil {
		return err
	}
	if err = os.WriteFile(path, raw, 0o644); err != nil {
		return errors.New("FileLogic.write.WriteFile", i18n.ERROR_INTERNAL, err)
	}
	return nil
}

func probeImageSize(raw []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
