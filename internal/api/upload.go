package api

import (
	"errors"
	"net/http"
	"strings"

	"go-pinboard/internal/service"
	"go-pinboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func limitBody(c *gin.Context, maxBytes int64) {
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	}
}

// bindForm 解析表单或 JSON 请求体, 超过大小限制时返回 413
func bindForm(c *gin.Context, req any, op string) bool {
	if err := c.ShouldBind(req); err != nil {
		if isBodyTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "request body too large"})
			return false
		}
		logger.L.Debug("Failed to bind request", zap.String("operation", op), zap.Error(err))
		respondBadRequest(c, invalidBody)
		return false
	}
	return true
}

// formFile 读取可选的上传文件, 没有文件时返回 nil。
// 调用方在用完之后调用返回的 close。
func formFile(c *gin.Context, field string) (*service.Attachment, func(), bool) {
	noop := func() {}
	fileHeader, err := c.FormFile(field)
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return nil, noop, true
	case err != nil:
		logger.L.Warn("Failed to get file from request", zap.String("field", field), zap.Error(err))
		respondBadRequest(c, "missing or invalid file")
		return nil, noop, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.L.Error("Failed to open uploaded file", zap.Error(err), zap.String("filename", fileHeader.Filename))
		c.JSON(http.StatusInternalServerError, gin.H{"message": service.ErrInternal.Error()})
		return nil, noop, false
	}

	return &service.Attachment{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Reader:      file,
	}, func() { _ = file.Close() }, true
}

// multipart 解析时不一定用 %w 包装 MaxBytesReader 的错误
func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}
