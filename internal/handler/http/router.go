package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/handler/http/middleware"
)

// RouterConfig wires the handler and its cross-cutting concerns into the
// engine.
type RouterConfig struct {
	Handler        *AuthHandler
	Logger         *zap.Logger
	MetricsEnabled bool

	// ReadinessCheck reports whether backing stores are reachable. Nil means
	// always ready.
	ReadinessCheck func(ctx context.Context) error
}

// NewRouter builds the gin engine with the full middleware chain and the
// public route table.
func NewRouter(cfg RouterConfig) *gin.Engine {
	engine := gin.New()
	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.RequestLogger(cfg.Logger),
		middleware.CORS(),
	)
	if cfg.MetricsEnabled {
		engine.Use(middleware.Metrics())
		engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/readiness", func(c *gin.Context) {
		if cfg.ReadinessCheck != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := cfg.ReadinessCheck(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	auth := engine.Group("/api/v1/auth")
	{
		auth.POST("/register", cfg.Handler.Register)
		auth.POST("/login", cfg.Handler.Login)
		auth.POST("/refresh", cfg.Handler.Refresh)
		auth.POST("/validate", cfg.Handler.Validate)
		auth.POST("/logout", cfg.Handler.Logout)
		auth.GET("/oauth/:provider/initiate", cfg.Handler.OAuthInitiate)
		auth.POST("/oauth/:provider/exchange-code", cfg.Handler.OAuthExchangeCode)
	}

	return engine
}
