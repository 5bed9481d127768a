package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/config"
	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/events/kafka"
	httphandler "github.com/nebula-social/social_platform/backend/services/auth-service/internal/handler/http"
	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/repository/postgres"
	redisrepo "github.com/nebula-social/social_platform/backend/services/auth-service/internal/repository/redis"
	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/security"
	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/service"
	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/utils/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "auth-service:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	if cfg.Logging.Format == "json" {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.Database.AutoMigrate {
		if err := postgres.RunMigrations(cfg.Database, "file://migrations", log); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dbPool, err := postgres.NewDBPool(ctx, cfg.Database)
	cancel()
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer dbPool.Close()

	redisClient, err := redisrepo.NewClient(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	var producer kafka.Producer = kafka.NoopProducer{}
	if cfg.Kafka.Enabled {
		producer, err = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
	}
	defer producer.Close()

	accounts := postgres.NewAccountRepository(dbPool)
	sessions := redisrepo.NewSessionStore(redisClient, log)
	codec := security.NewTokenCodec(&cfg.JWT)
	hasher, err := security.NewPasswordHasher(cfg.Security.PasswordHash)
	if err != nil {
		return fmt.Errorf("init password hasher: %w", err)
	}

	authService := service.NewAuthService(accounts, sessions, codec, hasher, producer, log)
	oauthService := service.NewOAuthService(cfg.OAuthProviders, accounts, authService, log)

	handler := httphandler.NewAuthHandler(authService, oauthService, cfg.JWT.RefreshTokenTTL, log)
	engine := httphandler.NewRouter(httphandler.RouterConfig{
		Handler:        handler,
		Logger:         log,
		MetricsEnabled: cfg.Metrics.Enabled,
		ReadinessCheck: func(ctx context.Context) error {
			if err := dbPool.Ping(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			return nil
		},
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Auth service listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Info("Shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("Auth service stopped")
	return nil
}
