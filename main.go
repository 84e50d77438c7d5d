package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"campus_relay/internal/api"
	"campus_relay/internal/middleware"
	"campus_relay/internal/models"
	"campus_relay/internal/repository"
	"campus_relay/internal/service"
	"campus_relay/internal/storage"
	"campus_relay/internal/utils"
	"campus_relay/pkg/config"
	"campus_relay/pkg/logging"
)

func main() {
	// 載入應用程式配置
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Level)
	slog.SetDefault(logger)

	// 初始化資料庫連接
	db, err := storage.Open(cfg.DB)
	if err != nil {
		logger.Error("Failed to initialize database", slog.Any("error", err))
		os.Exit(1)
	}
	// 確保在程序結束時關閉數據庫連接
	defer db.Close()

	// 自動遷移資料庫結構
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		logger.Error("Failed to auto migrate database", slog.Any("error", err))
		os.Exit(1)
	}

	// 初始化 repositories 與 services
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, cfg, logger)

	if cfg.Auth.AdminUsername != "" {
		if _, err := services.User.EnsureAdmin(context.Background(), cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
			logger.Error("Failed to ensure admin account", slog.Any("error", err))
			os.Exit(1)
		}
	}

	tokens := utils.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// 設置 Gin 路由
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))
	api.SetupRoutes(r, services, tokens, cfg)

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", slog.Any("error", err))
	}

	// 被升級的 WebSocket 連線不受 Shutdown 管理，要自己關
	closed := services.Hub.CloseAll()
	logger.Info("Server stopped", slog.Int("closedConnections", closed))
}
