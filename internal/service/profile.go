package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"go-pinboard/internal/model"
	"go-pinboard/pkg/logger"

	"go.uber.org/zap"
)

const (
	maxAvatarSize     = 5 * mb
	maxUsernameLength = 30
	maxBioLength      = 500
)

var avatarExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// UpdateProfileRequest 为 nil 的字段保持不变。
// Avatar 优先于 AvatarURL, 后者用于外部图片地址。
type UpdateProfileRequest struct {
	Username  *string     `form:"username" json:"username"`
	Bio       *string     `form:"bio" json:"bio"`
	AvatarURL string      `form:"avatarUrl" json:"avatarUrl"`
	Avatar    *Attachment `form:"-" json:"-"`
}

func checkAvatar(file *Attachment) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !slices.Contains(avatarExtensions, ext) {
		return "", fmt.Errorf("%w: invalid file format, allowed: jpg, jpeg, png, gif, webp", ErrValidation)
	}
	if file.Size > maxAvatarSize {
		return "", fmt.Errorf("%w: avatar size cannot exceed %s", ErrValidation, formatSize(maxAvatarSize))
	}
	return ext, nil
}

// UpdateProfile 修改用户名, 简介和头像
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, req UpdateProfileRequest) (*model.User, error) {
	var username, bio string
	if req.Username != nil {
		username = strings.TrimSpace(*req.Username)
		if username == "" {
			return nil, fmt.Errorf("%w: username cannot be empty", ErrValidation)
		}
		if utf8.RuneCountInString(username) > maxUsernameLength {
			return nil, fmt.Errorf("%w: username cannot exceed %d characters", ErrValidation, maxUsernameLength)
		}
	}
	if req.Bio != nil {
		bio = strings.TrimSpace(*req.Bio)
		if utf8.RuneCountInString(bio) > maxBioLength {
			return nil, fmt.Errorf("%w: bio cannot exceed %d characters", ErrValidation, maxBioLength)
		}
	}
	hasAvatar := req.Avatar != nil && req.Avatar.Size > 0
	var ext string
	if hasAvatar {
		var err error
		if ext, err = checkAvatar(req.Avatar); err != nil {
			return nil, err
		}
	}

	user, err := s.load(ctx, "update profile", userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil && username != user.Username {
		existing, err := s.userRepo.FindByUsername(ctx, username)
		if err != nil {
			return nil, internalError("update profile", userID, err)
		}
		if existing != nil && existing.ID != userID {
			return nil, fmt.Errorf("%w: username already exists", ErrConflict)
		}
		user.Username = username
	}
	if req.Bio != nil {
		user.Bio = bio
	}

	switch avatarURL := strings.TrimSpace(req.AvatarURL); {
	case hasAvatar:
		contentType := strings.ToLower(req.Avatar.ContentType)
		url, err := s.avatars.Store(ctx, io.LimitReader(req.Avatar.Reader, req.Avatar.Size), req.Avatar.Size, contentType, ext)
		if err != nil {
			return nil, internalError("store avatar", userID, err)
		}
		user.Avatar = url
	case avatarURL != "":
		user.Avatar = avatarURL
	}

	if err := s.save(ctx, "update profile", user); err != nil {
		return nil, err
	}

	logger.L.Info("Profile updated",
		zap.Uint("userID", userID),
		zap.String("username", user.Username),
		zap.Bool("avatarUploaded", hasAvatar))
	return user, nil
}
