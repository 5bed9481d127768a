package gateway

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/config"
	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/handler/http/middleware"
)

// newReverseProxy builds a proxy to target that preserves the original
// request path and surfaces upstream failures as 502 instead of hanging
// connections.
func newReverseProxy(target *url.URL, logger *zap.Logger) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("Upstream request failed",
			zap.Error(err),
			zap.String("upstream", target.Host),
			zap.String("path", r.URL.Path))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"upstream unavailable"}`))
	}
	return proxy
}

// NewRouter assembles the gateway engine: the auth routes are forwarded
// untouched, configured service routes are forwarded with an optional
// token guard in front.
func NewRouter(cfg config.GatewayConfig, logger *zap.Logger) (*gin.Engine, error) {
	authTarget, err := url.Parse(cfg.AuthServiceURL)
	if err != nil {
		return nil, err
	}

	client := NewAuthClient(cfg.AuthServiceURL, cfg.RequestTimeout)
	guard := RequireAuth(client, logger)
	authProxy := newReverseProxy(authTarget, logger)

	engine := gin.New()
	engine.Use(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		middleware.CORS(),
		middleware.Metrics(),
	)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	engine.Any("/api/v1/auth/*path", gin.WrapH(authProxy))

	for name, route := range cfg.Services {
		target, err := url.Parse(route.Target)
		if err != nil {
			return nil, err
		}
		prefix := strings.TrimSuffix(route.Prefix, "/")
		proxy := newReverseProxy(target, logger)
		handlers := make([]gin.HandlerFunc, 0, 2)
		if route.Protected {
			handlers = append(handlers, guard)
		}
		handlers = append(handlers, gin.WrapH(proxy))
		engine.Any(prefix+"/*path", handlers...)
		logger.Info("Gateway route registered",
			zap.String("service", name),
			zap.String("prefix", prefix),
			zap.String("target", route.Target),
			zap.Bool("protected", route.Protected))
	}

	return engine, nil
}
