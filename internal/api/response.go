package api

import (
	"errors"
	"net/http"
	"strconv"

	"go-pinboard/internal/middleware"
	"go-pinboard/internal/service"

	"github.com/gin-gonic/gin"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// 把业务错误转换成 HTTP 响应, 内部错误不返回细节
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	message := service.Reason(err)
	if status == http.StatusInternalServerError {
		message = service.ErrInternal.Error()
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"message": message})
}

// 绑定失败时的统一提示, 不把校验器的内部信息返回给客户端
const invalidBody = "invalid request body"

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": message})
}

// 从请求的 context 中获取当前用户ID (由认证中间件设置)
func getUserIDFromContext(c *gin.Context) (uint, bool) {
	userID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "user not authenticated"})
		return 0, false
	}
	return userID, true
}

func getUintParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || value == 0 {
		respondBadRequest(c, "invalid "+name+" parameter")
		return 0, false
	}
	return uint(value), true
}
