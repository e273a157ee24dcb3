package service

import (
	"context"
	"strings"
	"testing"

	"go-pinboard/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProfileFixture(t *testing.T) (*AuthService, *repository.UserRepository, *fakeStore) {
	t.Helper()
	conn := setupTestDB(t)
	users := repository.NewUserRepository(conn)
	store := &fakeStore{prefix: "/uploads/avatars"}
	return NewAuthService(users, store), users, store
}

func strPtr(s string) *string { return &s }

func avatar(name string, size int64) *Attachment {
	return &Attachment{Filename: name, ContentType: "image/png", Size: size, Reader: strings.NewReader("avatar")}
}

func TestAuthService_UpdateProfile(t *testing.T) {
	svc, users, store := newProfileFixture(t)
	user := registerUser(t, svc, "painter")

	updated, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileRequest{
		Username: strPtr("  sculptor  "),
		Bio:      strPtr(" clay and stone "),
		Avatar:   avatar("Me.PNG", 6),
	})
	require.NoError(t, err)
	assert.Equal(t, "sculptor", updated.Username)
	assert.Equal(t, "clay and stone", updated.Bio)
	assert.Equal(t, "/uploads/avatars/blob-1.png", updated.Avatar)

	require.Equal(t, 1, store.count())
	assert.Equal(t, "avatar", store.blobs[0].Data)
	assert.Equal(t, "image/png", store.blobs[0].ContentType)

	saved, err := users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "sculptor", saved.Username)
	assert.Equal(t, "/uploads/avatars/blob-1.png", saved.Avatar)

	// 未传的字段保持不变, 外部头像地址
	updated, err = svc.UpdateProfile(context.Background(), user.ID, UpdateProfileRequest{
		AvatarURL: "https://cdn.example.com/me.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "sculptor", updated.Username)
	assert.Equal(t, "clay and stone", updated.Bio)
	assert.Equal(t, "https://cdn.example.com/me.jpg", updated.Avatar)

	// 上传的文件优先于地址
	updated, err = svc.UpdateProfile(context.Background(), user.ID, UpdateProfileRequest{
		AvatarURL: "https://cdn.example.com/other.jpg",
		Avatar:    avatar("next.webp", 6),
	})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/avatars/blob-2.webp", updated.Avatar)

	// 保持自己的用户名不算冲突
	_, err = svc.UpdateProfile(context.Background(), user.ID, UpdateProfileRequest{Username: strPtr("sculptor")})
	assert.NoError(t, err)
}

func TestAuthService_UpdateProfile_Errors(t *testing.T) {
	svc, users, store := newProfileFixture(t)
	user := registerUser(t, svc, "owner")
	registerUser(t, svc, "taken")

	tests := []struct {
		name    string
		req     UpdateProfileRequest
		wantErr error
		reason  string
	}{
		{
			name:    "Blank username",
			req:     UpdateProfileRequest{Username: strPtr("   ")},
			wantErr: ErrValidation,
			reason:  "username cannot be empty",
		},
		{
			name:    "Username too long",
			req:     UpdateProfileRequest{Username: strPtr(strings.Repeat("u", 31))},
			wantErr: ErrValidation,
			reason:  "username cannot exceed 30 characters",
		},
		{
			name:    "Username taken",
			req:     UpdateProfileRequest{Username: strPtr(" taken ")},
			wantErr: ErrConflict,
			reason:  "username already exists",
		},
		{
			name:    "Bio too long",
			req:     UpdateProfileRequest{Bio: strPtr(strings.Repeat("b", 501))},
			wantErr: ErrValidation,
			reason:  "bio cannot exceed 500 characters",
		},
		{
			name:    "Bad extension",
			req:     UpdateProfileRequest{Avatar: avatar("me.bmp", 6)},
			wantErr: ErrValidation,
			reason:  "invalid file format, allowed: jpg, jpeg, png, gif, webp",
		},
		{
			name:    "No extension",
			req:     UpdateProfileRequest{Avatar: avatar("avatar", 6)},
			wantErr: ErrValidation,
			reason:  "invalid file format, allowed: jpg, jpeg, png, gif, webp",
		},
		{
			name:    "Avatar too large",
			req:     UpdateProfileRequest{Avatar: avatar("me.jpg", 5*mb+1)},
			wantErr: ErrValidation,
			reason:  "avatar size cannot exceed 5MB",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateProfile(context.Background(), user.ID, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.reason, Reason(err))
		})
	}

	assert.Zero(t, store.count())
	saved, err := users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "owner", saved.Username)
	assert.Empty(t, saved.Bio)
	assert.Empty(t, saved.Avatar)

	_, err = svc.UpdateProfile(context.Background(), 9999, UpdateProfileRequest{Bio: strPtr("ghost")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuthService_UpdateProfile_StoreFailure(t *testing.T) {
	svc, users, store := newProfileFixture(t)
	store.err = errBoom
	user := registerUser(t, svc, "unlucky")

	_, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileRequest{
		Bio:    strPtr("new bio"),
		Avatar: avatar("me.png", 6),
	})
	assert.ErrorIs(t, err, ErrInternal)

	saved, err := users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, saved.Bio)
}
