package api

import (
	"net/http"

	"go-pinboard/internal/model"
	"go-pinboard/internal/service"
	"go-pinboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

// 处理认证和账号设置相关的HTTP请求
type AuthHandler struct {
	authService    *service.AuthService
	maxUploadBytes int64
}

// 创建一个新的认证处理器实例, maxUploadBytes 限制头像上传的请求体
func NewAuthHandler(authService *service.AuthService, maxUploadBytes int64) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		maxUploadBytes: maxUploadBytes,
	}
}

func userView(user *model.User) gin.H {
	return gin.H{
		"id":          user.ID,
		"username":    user.Username,
		"email":       user.Email,
		"avatarUrl":   user.Avatar,
		"bio":         user.Bio,
		"accountType": user.Role,
	}
}

// bindJSON 解析请求体, 失败时直接返回 400
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		logger.L.Debug("Failed to bind request", zap.String("path", c.FullPath()), zap.Error(err))
		respondBadRequest(c, invalidBody)
		return false
	}
	return true
}

// 处理用户注册请求
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, token, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  userView(user),
	})
}

// 处理用户登陆请求
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  userView(user),
	})
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	user, err := h.authService.Me(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, userView(user))
}

// 修改个人资料 (multipart/form-data: username, bio, avatarUrl, avatar), 也接受 JSON
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	limitBody(c, h.maxUploadBytes)

	var req service.UpdateProfileRequest
	if !bindForm(c, &req, "update profile") {
		return
	}
	if c.ContentType() == binding.MIMEMultipartPOSTForm {
		file, closeFile, ok := formFile(c, "avatar")
		if !ok {
			return
		}
		defer closeFile()
		req.Avatar = file
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, userView(user))
}

func (h *AuthHandler) GetSettings(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	settings, err := h.authService.GetSettings(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *AuthHandler) UpdateRecommendations(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	var req service.UpdateRecommendationsRequest
	if !bindJSON(c, &req) {
		return
	}

	settings, err := h.authService.UpdateRecommendations(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *AuthHandler) UpdatePrivacy(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	var req service.UpdatePrivacyRequest
	if !bindJSON(c, &req) {
		return
	}

	settings, err := h.authService.UpdatePrivacy(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	var req service.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), userID, req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

func (h *AuthHandler) ChangeAccountType(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	var req service.ChangeAccountTypeRequest
	if !bindJSON(c, &req) {
		return
	}

	settings, err := h.authService.ChangeAccountType(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *AuthHandler) Deactivate(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	if err := h.authService.Deactivate(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account deactivated"})
}

func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	var req service.DeleteAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.DeleteAccount(c.Request.Context(), userID, req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}
