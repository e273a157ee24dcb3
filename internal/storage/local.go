package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go-pinboard/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocalStore 把文件写到本地目录, 由 HTTP 服务以静态文件方式提供
type LocalStore struct {
	dir       string
	publicURL string
}

func NewLocalStore(dir, publicURL string) (*LocalStore, error) {
	// 确保目录存在
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStore{dir: dir, publicURL: publicURL}, nil
}

func (s *LocalStore) Store(ctx context.Context, r io.Reader, size int64, contentType, ext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(dst, r)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	logger.L.Debug("File stored locally",
		zap.String("path", path),
		zap.Int64("size", written),
		zap.String("contentType", contentType))

	return s.publicURL + "/" + name, nil
}
