package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrUploadTooLarge  = errors.New("上传文件过大")
	ErrUploadBadFormat = errors.New("不支持的文件格式")
)

// 允许的图片MIME类型及对应扩展名
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// mediaService 媒体上传服务实现
// 本地磁盘存储，对外暴露"流进来，公开URL出去"的契约
type mediaService struct {
	uploadDir string
	baseURL   string
	maxSize   int64
	log       *zap.Logger
}

// NewMediaService 创建媒体上传服务
func NewMediaService(config *Config, log *zap.Logger) MediaService {
	return &mediaService{
		uploadDir: config.UploadDir,
		baseURL:   config.MediaBaseURL,
		maxSize:   config.MaxUploadSize,
		log:       log,
	}
}

// SaveImage 保存图片并返回公开URL
// 文件名用uuid生成，不信任客户端文件名
func (s *mediaService) SaveImage(ctx context.Context, upload *Upload) (string, error) {
	if s.maxSize > 0 && upload.Size > s.maxSize {
		return "", ErrUploadTooLarge
	}

	// 嗅探真实类型，不依赖扩展名
	head := make([]byte, 512)
	n, err := io.ReadFull(upload.Reader, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("读取上传内容失败: %w", err)
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", ErrUploadBadFormat
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("创建上传目录失败: %w", err)
	}

	filename := uuid.New().String() + ext
	path := filepath.Join(s.uploadDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("创建文件失败: %w", err)
	}
	defer f.Close()

	reader := io.MultiReader(bytes.NewReader(head), upload.Reader)
	if s.maxSize > 0 {
		reader = io.LimitReader(reader, s.maxSize+1)
	}

	written, err := io.Copy(f, reader)
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("写入文件失败: %w", err)
	}
	if s.maxSize > 0 && written > s.maxSize {
		os.Remove(path)
		return "", ErrUploadTooLarge
	}

	s.log.Info("Image uploaded",
		zap.String("filename", filename),
		zap.String("content_type", contentType),
		zap.Int64("size", written))

	return strings.TrimRight(s.baseURL, "/") + "/" + filename, nil
}
