package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go-pinboard/internal/service"
	"go-pinboard/pkg/utils"

	"github.com/gin-gonic/gin"
)

// 保存在 gin.Context 中的当前用户ID的键
const UserIDKey = "userID"

type userIDCtxKey struct{}

// Authenticator 校验令牌中的用户是否仍然可以访问
type Authenticator interface {
	Authenticate(ctx context.Context, userID uint) error
}

// WithUserID 把当前用户ID放进请求的 context
func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, userIDCtxKey{}, userID)
}

// UserIDFromContext 读取 AuthMiddleware 放进 context 的用户ID
func UserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(userIDCtxKey{}).(uint)
	return id, ok && id != 0
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": message})
}

// 验证JWT中间件
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "authorization header is required")
			return
		}

		// 通常Authorization格式为: "Bearer token"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			unauthorized(c, "invalid authorization format")
			return
		}

		// 解析token
		claims, err := utils.ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			unauthorized(c, "invalid or expired token")
			return
		}

		// 用户已删除或停用时令牌失效
		if err := auth.Authenticate(c.Request.Context(), claims.UserID); err != nil {
			if errors.Is(err, service.ErrInternal) {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": service.Reason(err)})
				return
			}
			unauthorized(c, service.Reason(err))
			return
		}

		// 将用户ID存储在上下文中
		c.Set(UserIDKey, claims.UserID)
		c.Request = c.Request.WithContext(WithUserID(c.Request.Context(), claims.UserID))

		c.Next()
	}
}
