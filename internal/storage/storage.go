// Package storage 保存消息附件等二进制内容, 返回可以直接访问的 URL。
package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"regexp"
	"strings"

	"go-pinboard/pkg/config"
)

// BlobStore 外部二进制存储
type BlobStore interface {
	// Store 保存 r 中的 size 字节, ext 是建议的扩展名 (带点, 可以为空)
	Store(ctx context.Context, r io.Reader, size int64, contentType, ext string) (string, error)
}

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// Extension 从文件名中取扩展名, 不合法时根据 MIME 类型推断
func Extension(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if extPattern.MatchString(ext) {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// New 根据配置创建存储, namespace 区分不同用途 (例如 messages)
func New(ctx context.Context, cfg config.StorageConfig, namespace string) (BlobStore, error) {
	switch cfg.Provider {
	case "local", "":
		return NewLocalStore(
			filepath.Join(cfg.Local.BasePath, namespace),
			strings.TrimSuffix(cfg.Local.PublicPrefix, "/")+"/"+namespace,
		)
	case "s3":
		prefix := namespace
		if cfg.S3.KeyPrefix != "" {
			prefix = strings.Trim(cfg.S3.KeyPrefix, "/") + "/" + namespace
		}
		return NewS3Store(ctx, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.Endpoint, prefix)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.Provider)
	}
}
