package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go-pinboard/internal/api"
	"go-pinboard/internal/events"
	"go-pinboard/internal/repository"
	"go-pinboard/internal/service"
	"go-pinboard/internal/storage"
	"go-pinboard/pkg/config"
	"go-pinboard/pkg/db"
	"go-pinboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 初始化配置
	if err := config.Init(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.GlobalConfig

	// 初始化日志
	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.Production); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 初始化数据库连接
	if err := db.InitDB(cfg.Database.Driver, cfg.Database.DSN); err != nil {
		logger.L.Fatal("Failed to initialize database", zap.Error(err))
	}

	ctx := context.Background()
	blobs, err := storage.New(ctx, cfg.Storage, "messages")
	if err != nil {
		logger.L.Fatal("Failed to initialize blob storage", zap.Error(err))
	}

	avatars, err := storage.New(ctx, cfg.Storage, "avatars")
	if err != nil {
		logger.L.Fatal("Failed to initialize avatar storage", zap.Error(err))
	}

	publisher, err := events.NewPublisher(cfg.Messaging)
	if err != nil {
		logger.L.Fatal("Failed to initialize event publisher", zap.Error(err))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.L.Warn("Failed to close event publisher", zap.Error(err))
		}
	}()

	// 依赖注入
	userRepo := repository.NewUserRepository(db.DB)
	messageRepo := repository.NewMessageRepository(db.DB)
	authService := service.NewAuthService(userRepo, avatars)
	messageService := service.NewMessageService(
		messageRepo,
		userRepo,
		blobs,
		publisher,
		service.MessageLimitsFromConfig(cfg.Messages),
	)

	gin.SetMode(cfg.Server.Mode)
	opts := api.RouterOptions{MaxUploadBytes: cfg.Messages.MaxUploadBytes}
	if cfg.Storage.Provider == "local" || cfg.Storage.Provider == "" {
		opts.UploadsDir = cfg.Storage.Local.BasePath
		opts.UploadsPrefix = cfg.Storage.Local.PublicPrefix
	}
	router := api.NewRouter(authService, messageService, opts)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.L.Info("Starting server", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.L.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L.Error("Server forced to shutdown", zap.Error(err))
	}

	if sqlDB, err := db.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.L.Info("Server exited")
}
