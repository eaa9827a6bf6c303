package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/api/handlers"
	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/config"
	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/logging"
	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/services/tetris"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	logger := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		File:    cfg.LogFile,
		Console: true,
	})
	defer logger.Sync()

	sessionManager := tetris.NewSessionManager(tetris.SessionConfig{
		TickInterval: cfg.TickInterval,
		IdleTimeout:  cfg.SessionIdleTimeout,
		BoardRows:    cfg.BoardRows,
		BoardCols:    cfg.BoardCols,
		Picker:       cfg.Picker,
		Seed:         cfg.RandomSeed,
	}, logger)

	if err := sessionManager.CheckConfig(); err != nil {
		logger.Fatal("ゲーム設定が不正です", zap.Error(err))
	}

	auth := middleware.NewAuthenticator(cfg.JWTSecret, cfg.BypassAuth, logger)
	if !auth.Enabled() {
		logger.Warn("SUPABASE_JWT_SECRET is not set, authentication is disabled")
	}

	router := handlers.NewRouter(
		handlers.NewGameHandler(sessionManager, auth, cfg.AllowedOrigins, logger),
		handlers.NewPublicHandler(sessionManager),
		auth,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.CORSHandler(cfg.AllowedOrigins)(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.AppEnv),
			zap.Duration("tick", cfg.TickInterval),
			zap.String("picker", cfg.Picker),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	sessionManager.Shutdown()
}
