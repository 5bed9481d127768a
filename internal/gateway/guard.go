package gateway

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Identity propagation headers for downstream services.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUsername = "X-Username"
)

// RequireAuth rejects requests without a valid bearer token. Any validation
// failure, including the auth service being down, yields 401.
func RequireAuth(client *AuthClient, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		identity, err := client.Validate(c.Request.Context(), parts[1])
		if err != nil {
			logger.Debug("Token validation rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set("user_id", identity.UserID)
		c.Set("username", identity.Username)
		// Strip any client-supplied identity headers before trusting our own.
		c.Request.Header.Set(HeaderUserID, identity.UserID)
		c.Request.Header.Set(HeaderUsername, identity.Username)
		c.Next()
	}
}
