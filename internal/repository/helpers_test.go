package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"go-pinboard/internal/model"
	"go-pinboard/pkg/db"

	"gorm.io/gorm"
)

// 每个测试使用独立的内存数据库
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)

	conn, err := db.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

func createTestUser(t *testing.T, repo *UserRepository, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hash",
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("Failed to create test user %s: %v", username, err)
	}
	return user
}

func createTestMessage(t *testing.T, repo *MessageRepository, from, to uint, content string, at time.Time) *model.Message {
	t.Helper()
	msg := &model.Message{
		SenderID:    from,
		RecipientID: to,
		Content:     &content,
		CreatedAt:   at.UTC(),
	}
	if err := repo.Create(context.Background(), msg); err != nil {
		t.Fatalf("Failed to create test message: %v", err)
	}
	return msg
}
