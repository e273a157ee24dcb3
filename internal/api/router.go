package api

import (
	"net/http"

	"go-pinboard/internal/middleware"
	"go-pinboard/internal/service"

	"github.com/gin-gonic/gin"
)

// RouterOptions 路由的可选项
type RouterOptions struct {
	// 本地存储时附件的目录和访问前缀, 为空时不注册静态路由
	UploadsDir    string
	UploadsPrefix string
	// 带附件或头像的请求体的最大字节数, 0 表示不限制
	MaxUploadBytes int64
}

// NewRouter 注册所有路由
func NewRouter(authService *service.AuthService, messageService *service.MessageService, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(middleware.GinZapLogger(), gin.Recovery())

	if opts.UploadsDir != "" && opts.UploadsPrefix != "" {
		r.Static(opts.UploadsPrefix, opts.UploadsDir)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authHandler := NewAuthHandler(authService, opts.MaxUploadBytes)
	messageHandler := NewMessageHandler(messageService, opts.MaxUploadBytes)
	requireAuth := middleware.AuthMiddleware(authService)

	// 公开路由
	auth := r.Group("/api/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// 受保护的路由
	account := auth.Group("", requireAuth)
	{
		account.GET("/me", authHandler.Me)
		account.PUT("/profile", authHandler.UpdateProfile)
		account.GET("/settings", authHandler.GetSettings)
		account.PUT("/settings/recommendations", authHandler.UpdateRecommendations)
		account.PUT("/settings/privacy", authHandler.UpdatePrivacy)
		account.POST("/change-password", authHandler.ChangePassword)
		account.PUT("/account-type", authHandler.ChangeAccountType)
		account.POST("/deactivate", authHandler.Deactivate)
		account.POST("/delete-account", authHandler.DeleteAccount)
	}

	messages := r.Group("/api/messages", requireAuth)
	{
		messages.GET("/dialogs", messageHandler.ListDialogs)
		messages.GET("/with/:userId", messageHandler.OpenConversation)
		messages.POST("", messageHandler.SendMessage)
		messages.POST("/with-attachment", messageHandler.SendMessageWithAttachment)
	}

	return r
}
