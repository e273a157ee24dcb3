package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-pinboard/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtension(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		want        string
	}{
		{name: "From filename", filename: "cat.PNG", contentType: "image/png", want: ".png"},
		{name: "Video", filename: "clip.mp4", contentType: "video/mp4", want: ".mp4"},
		{name: "No extension uses mime", filename: "blob", contentType: "image/png", want: ".png"},
		{name: "Garbage extension uses mime", filename: "x.ph/p", contentType: "image/png", want: ".png"},
		{name: "Unknown", filename: "blob", contentType: "application/x-unknown-thing", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extension(tt.filename, tt.contentType))
		})
	}
}

func TestLocalStore_Store(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(filepath.Join(dir, "messages"), "/uploads/messages")
	require.NoError(t, err)

	url, err := store.Store(context.Background(), strings.NewReader("binary"), 6, "image/png", ".png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/messages/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	data, err := os.ReadFile(filepath.Join(dir, "messages", filepath.Base(url)))
	require.NoError(t, err)
	assert.Equal(t, "binary", string(data))

	// 每次保存生成新文件名
	other, err := store.Store(context.Background(), strings.NewReader("binary"), 6, "image/png", ".png")
	require.NoError(t, err)
	assert.NotEqual(t, url, other)
}

func TestLocalStore_CanceledContext(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Store(ctx, strings.NewReader("x"), 1, "image/png", ".png")
	assert.Error(t, err)
}

func TestNew_Local(t *testing.T) {
	cfg := config.StorageConfig{
		Provider: "local",
		Local:    config.LocalConfig{BasePath: t.TempDir(), PublicPrefix: "/uploads/"},
	}
	store, err := New(context.Background(), cfg, "messages")
	require.NoError(t, err)

	local, ok := store.(*LocalStore)
	require.True(t, ok)
	assert.Equal(t, "/uploads/messages", local.publicURL)
}

func TestNew_Unsupported(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Provider: "ftp"}, "messages")
	assert.Error(t, err)
}

func TestS3Store_ObjectURL(t *testing.T) {
	aws := &S3Store{bucket: "media", region: "eu-central-1"}
	assert.Equal(t, "https://media.s3.eu-central-1.amazonaws.com/messages/a%20b.png", aws.objectURL("messages/a b.png"))

	minio := &S3Store{bucket: "media", endpoint: "http://localhost:9000"}
	assert.Equal(t, "http://localhost:9000/media/messages/x.mp4", minio.objectURL("messages/x.mp4"))
}
