package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skillforge/platform/config"
	"github.com/skillforge/platform/internal/handler"
	"github.com/skillforge/platform/internal/notify"
	"github.com/skillforge/platform/internal/repository"
	"github.com/skillforge/platform/internal/router"
	"github.com/skillforge/platform/internal/service"
	"github.com/skillforge/platform/pkg/database"
	"github.com/skillforge/platform/pkg/logger"
	"github.com/skillforge/platform/pkg/redisclient"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 15 * time.Second
	cleanupInterval = 6 * time.Hour
	cleanupGrace    = 24 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("configuration error: " + err.Error())
	}

	if err := logger.InitLogger(cfg.App.Environment, cfg.App.LogsPath); err != nil {
		panic("logger init failed: " + err.Error())
	}
	defer logger.Sync()

	zlog := logger.GetLogger()
	zlog.Info("Starting auth service",
		zap.String("environment", cfg.App.Environment),
		zap.String("port", cfg.App.Port),
	)

	db, err := database.NewPostgresDB(database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		zlog.Fatal("Database connection failed", zap.Error(err))
	}
	defer func() {
		if err := database.CloseDB(db); err != nil {
			zlog.Error("Database close failed", zap.Error(err))
		}
	}()

	if err := database.AutoMigrate(db); err != nil {
		zlog.Fatal("Migration failed", zap.Error(err))
	}
	if err := database.EnsureIndexes(db); err != nil {
		zlog.Fatal("Index creation failed", zap.Error(err))
	}
	if err := database.Seed(db); err != nil {
		zlog.Error("Seeding failed", zap.Error(err))
	}

	redisClient := redisclient.NewClient(redisclient.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		Enabled:      cfg.Redis.Enabled,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, zlog)
	defer redisClient.Close()

	var dispatcher notify.Dispatcher
	if cfg.AMQP.Enabled {
		amqpDispatcher, err := notify.NewAMQPDispatcher(cfg.AMQP.URL, cfg.AMQP.Queue, zlog)
		if err != nil {
			zlog.Fatal("AMQP dispatcher init failed", zap.Error(err))
		}
		defer amqpDispatcher.Close()
		dispatcher = amqpDispatcher
	} else {
		dispatcher = notify.NewLogDispatcher()
	}

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)

	tokenService := service.NewTokenService(service.JWTConfig{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
	}, userRepo, tokenRepo)

	singleUseService := service.NewSingleUseTokenService(service.SingleUseConfig{
		VerificationTTL: cfg.Token.VerificationTTL,
		ResetTTL:        cfg.Token.ResetTTL,
	}, userRepo)

	authService := service.NewAuthService(userRepo, tokenService, singleUseService, dispatcher)
	oauthService := service.NewOAuthService(userRepo, tokenService, service.NewHTTPIdentityVerifier(nil))
	userService := service.NewUserService(userRepo)

	engine := router.Setup(router.Dependencies{
		Redis:          redisClient,
		Tokens:         tokenService,
		AuthHandler:    handler.NewAuthHandler(authService, oauthService),
		SessionHandler: handler.NewSessionHandler(authService),
		UserHandler:    handler.NewUserHandler(userService),
		HealthHandler:  handler.NewHealthHandler(db, redisClient),
		AdminHandler:   handler.NewAdminHandler(tokenService),
		Environment:    cfg.App.Environment,
		CORSOrigins:    cfg.App.CORSOrigins,
		AuthRateLimit:  cfg.RateLimit.AuthLimit,
		AuthRateWindow: cfg.RateLimit.AuthWindow,
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Ledger pruning runs on a timer until shutdown.
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	go runLedgerCleanup(cleanupCtx, tokenService, zlog)

	go func() {
		zlog.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	zlog.Info("Shutdown signal received", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zlog.Error("Graceful shutdown failed", zap.Error(err))
	}

	zlog.Info("Server stopped")
}

// runLedgerCleanup prunes expired refresh-token rows periodically. Rows are
// kept for a grace period past expiry so recent sessions stay inspectable.
func runLedgerCleanup(ctx context.Context, tokens *service.TokenService, zlog *zap.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := tokens.CleanupExpired(ctx, cleanupGrace)
			if err != nil {
				zlog.Error("Ledger cleanup failed", zap.Error(err))
				continue
			}
			if deleted > 0 {
				zlog.Info("Ledger cleanup completed", zap.Int64("deleted", deleted))
			}
		}
	}
}
