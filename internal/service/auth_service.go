package service

import (
	"context"
	"fmt"
	"strings"

	"go-pinboard/internal/model"
	"go-pinboard/internal/repository"
	"go-pinboard/internal/storage"
	"go-pinboard/pkg/logger"
	"go-pinboard/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// 处理认证和账号设置相关业务逻辑
type AuthService struct {
	userRepo *repository.UserRepository
	avatars  storage.BlobStore
}

// 创建一个新的认证服务实例, avatars 保存上传的头像
func NewAuthService(userRepo *repository.UserRepository, avatars storage.BlobStore) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		avatars:  avatars,
	}
}

// 用户注册请求
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,max=30"`
	Password string `json:"password" binding:"required,min=6"`
}

// 用户登陆请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// 账号设置
type Settings struct {
	Email                  string `json:"email"`
	Username               string `json:"username"`
	AccountType            string `json:"accountType"`
	Visibility             string `json:"visibility"`
	Searchable             bool   `json:"searchable"`
	ShowEmail              bool   `json:"showEmail"`
	RecommendationsEnabled bool   `json:"recommendationsEnabled"`
	PersonalizedAds        bool   `json:"personalizedAds"`
	IsDeactivated          bool   `json:"isDeactivated"`
}

// 为空的字段保持不变
type UpdateRecommendationsRequest struct {
	RecommendationsEnabled *bool `json:"recommendationsEnabled"`
	PersonalizedAds        *bool `json:"personalizedAds"`
}

type UpdatePrivacyRequest struct {
	Visibility string `json:"visibility"`
	Searchable *bool  `json:"searchable"`
	ShowEmail  *bool  `json:"showEmail"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

type ChangeAccountTypeRequest struct {
	AccountType string `json:"accountType" binding:"required"`
}

type DeleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}

func settingsOf(u *model.User) Settings {
	return Settings{
		Email:                  u.Email,
		Username:               u.Username,
		AccountType:            u.Role,
		Visibility:             u.Visibility,
		Searchable:             u.Searchable,
		ShowEmail:              u.ShowEmail,
		RecommendationsEnabled: u.RecommendationsEnabled,
		PersonalizedAds:        u.PersonalizedAds,
		IsDeactivated:          u.IsDeactivated,
	}
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// 注册新用户, 成功后直接返回登录令牌
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*model.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)
	if email == "" || username == "" {
		return nil, "", fmt.Errorf("%w: email and username are required", ErrValidation)
	}
	if len(req.Password) < minPasswordLength {
		return nil, "", fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}

	// 检查邮箱是否已存在
	existingEmail, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", internalError("register", 0, err)
	}
	if existingEmail != nil {
		return nil, "", fmt.Errorf("%w: email already exists", ErrConflict)
	}

	// 检查用户名是否已存在
	existingUser, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, "", internalError("register", 0, err)
	}
	if existingUser != nil {
		return nil, "", fmt.Errorf("%w: username already exists", ErrConflict)
	}

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		return nil, "", internalError("register", 0, err)
	}

	user := &model.User{
		Email:                  email,
		Username:               username,
		Password:               hashedPassword,
		Role:                   model.RoleUser,
		Visibility:             model.VisibilityPublic,
		Searchable:             true,
		RecommendationsEnabled: true,
		PersonalizedAds:        true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", internalError("register", 0, err)
	}

	token, err := utils.GenerateToken(user.ID)
	if err != nil {
		return nil, "", internalError("register", user.ID, err)
	}

	logger.L.Info("User registered", zap.Uint("userID", user.ID), zap.String("username", user.Username))
	return user, token, nil
}

// 用户登陆
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (string, *model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return "", nil, internalError("login", 0, err)
	}
	if user == nil || !checkPassword(user.Password, req.Password) {
		return "", nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	if user.IsDeactivated {
		return "", nil, fmt.Errorf("%w: account is deactivated", ErrUnauthorized)
	}

	token, err := utils.GenerateToken(user.ID)
	if err != nil {
		return "", nil, internalError("login", user.ID, err)
	}
	return token, user, nil
}

// 加载当前用户, 不存在时返回 ErrNotFound
func (s *AuthService) load(ctx context.Context, op string, userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, internalError(op, userID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user not found", ErrNotFound)
	}
	return user, nil
}

func (s *AuthService) save(ctx context.Context, op string, user *model.User) error {
	if err := s.userRepo.Update(ctx, user); err != nil {
		return internalError(op, user.ID, err)
	}
	return nil
}

// Me 返回当前登录的用户
func (s *AuthService) Me(ctx context.Context, userID uint) (*model.User, error) {
	return s.load(ctx, "me", userID)
}

func (s *AuthService) GetSettings(ctx context.Context, userID uint) (*Settings, error) {
	user, err := s.load(ctx, "get settings", userID)
	if err != nil {
		return nil, err
	}
	settings := settingsOf(user)
	return &settings, nil
}

func (s *AuthService) UpdateRecommendations(ctx context.Context, userID uint, req UpdateRecommendationsRequest) (*Settings, error) {
	user, err := s.load(ctx, "update recommendations", userID)
	if err != nil {
		return nil, err
	}
	if req.RecommendationsEnabled != nil {
		user.RecommendationsEnabled = *req.RecommendationsEnabled
	}
	if req.PersonalizedAds != nil {
		user.PersonalizedAds = *req.PersonalizedAds
	}
	if err := s.save(ctx, "update recommendations", user); err != nil {
		return nil, err
	}
	settings := settingsOf(user)
	return &settings, nil
}

func (s *AuthService) UpdatePrivacy(ctx context.Context, userID uint, req UpdatePrivacyRequest) (*Settings, error) {
	visibility := strings.TrimSpace(req.Visibility)
	if visibility != "" && visibility != model.VisibilityPublic && visibility != model.VisibilityPrivate {
		return nil, fmt.Errorf("%w: visibility must be Public or Private", ErrValidation)
	}

	user, err := s.load(ctx, "update privacy", userID)
	if err != nil {
		return nil, err
	}
	if visibility != "" {
		user.Visibility = visibility
	}
	if req.Searchable != nil {
		user.Searchable = *req.Searchable
	}
	if req.ShowEmail != nil {
		user.ShowEmail = *req.ShowEmail
	}
	if err := s.save(ctx, "update privacy", user); err != nil {
		return nil, err
	}
	settings := settingsOf(user)
	return &settings, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uint, req ChangePasswordRequest) error {
	if len(req.NewPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}

	user, err := s.load(ctx, "change password", userID)
	if err != nil {
		return err
	}
	if !checkPassword(user.Password, req.CurrentPassword) {
		return fmt.Errorf("%w: current password is incorrect", ErrValidation)
	}

	hashed, err := hashPassword(req.NewPassword)
	if err != nil {
		return internalError("change password", userID, err)
	}
	user.Password = hashed
	if err := s.save(ctx, "change password", user); err != nil {
		return err
	}

	logger.L.Info("Password changed", zap.Uint("userID", userID))
	return nil
}

func (s *AuthService) ChangeAccountType(ctx context.Context, userID uint, req ChangeAccountTypeRequest) (*Settings, error) {
	accountType := strings.TrimSpace(req.AccountType)
	if accountType != model.RoleUser && accountType != model.RoleCorporate {
		return nil, fmt.Errorf("%w: account type must be User or Corporate", ErrValidation)
	}

	user, err := s.load(ctx, "change account type", userID)
	if err != nil {
		return nil, err
	}
	user.Role = accountType
	if err := s.save(ctx, "change account type", user); err != nil {
		return nil, err
	}
	settings := settingsOf(user)
	return &settings, nil
}

// Deactivate 停用账号并隐藏个人资料, 停用后无法登录
func (s *AuthService) Deactivate(ctx context.Context, userID uint) error {
	user, err := s.load(ctx, "deactivate", userID)
	if err != nil {
		return err
	}
	user.IsDeactivated = true
	user.Visibility = model.VisibilityPrivate
	if err := s.save(ctx, "deactivate", user); err != nil {
		return err
	}

	logger.L.Info("Account deactivated", zap.Uint("userID", userID))
	return nil
}

// DeleteAccount 校验密码后删除账号以及所有相关消息
func (s *AuthService) DeleteAccount(ctx context.Context, userID uint, req DeleteAccountRequest) error {
	user, err := s.load(ctx, "delete account", userID)
	if err != nil {
		return err
	}
	if !checkPassword(user.Password, req.Password) {
		return fmt.Errorf("%w: password is incorrect", ErrValidation)
	}

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return internalError("delete account", userID, err)
	}

	logger.L.Info("Account deleted", zap.Uint("userID", userID))
	return nil
}

// 中间件使用: 校验令牌中的用户仍然存在且未停用
func (s *AuthService) Authenticate(ctx context.Context, userID uint) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return internalError("authenticate", userID, err)
	}
	if user == nil {
		return fmt.Errorf("%w: user not found", ErrUnauthorized)
	}
	if user.IsDeactivated {
		return fmt.Errorf("%w: account is deactivated", ErrUnauthorized)
	}
	return nil
}
