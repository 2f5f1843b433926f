package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/translatar/gateway/internal/api"
	"github.com/translatar/gateway/internal/auth"
	"github.com/translatar/gateway/internal/config"
	"github.com/translatar/gateway/internal/websocket"
	"github.com/translatar/gateway/usecase"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config validation failed: %v", err)
	}

	// Initialize logger
	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	injector := setupDI(cfg, logger)
	resources := mustInvoke[*closers](injector, logger)
	hub := mustInvoke[*websocket.Hub](injector, logger)
	sweeper := mustInvoke[*websocket.ConversationSweeper](injector, logger)
	store := mustInvoke[*storage](injector, logger)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == api.SilentHealthPath
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	deps := api.Dependencies{
		Health:        store.health,
		Tokens:        mustInvoke[*auth.Manager](injector, logger),
		Conversations: mustInvoke[*usecase.ConversationService](injector, logger),
		Users:         store.users,
		Audio:         mustInvoke[*usecase.PipelineService](injector, logger),
		Gatherer:      mustInvoke[*prometheus.Registry](injector, logger),
		Relay:         mustInvoke[*websocket.Handler](injector, logger).ServeWS,
		Logger:        logger,
	}
	// Optional services stay nil interfaces when not configured.
	if login := mustInvoke[*usecase.AuthService](injector, logger); login != nil {
		deps.Login = login
	}
	if summaries := mustInvoke[*usecase.SummaryService](injector, logger); summaries != nil {
		deps.Summaries = summaries
	}
	api.InitRoutes(e, deps)

	sweeper.Start()

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Gateway started",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
		zap.String("storage", cfg.StorageBackend),
		zap.String("stt", cfg.STTProvider),
		zap.String("translation", cfg.TranslationProvider),
		zap.Bool("googleLogin", deps.Login != nil),
		zap.Bool("summaries", deps.Summaries != nil))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	// Open relay connections end their conversations before storage closes.
	if err := hub.Shutdown(ctx); err != nil {
		logger.Warn("Relay connections did not close in time", zap.Error(err))
	}
	sweeper.Stop()
	resources.closeAll(ctx, logger)

	logger.Info("Server exited")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if cfg.IsDevelopment() {
		zapConfig = zap.NewDevelopmentConfig()
	}
	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		zapConfig.Level = level
	}
	return zapConfig.Build()
}
