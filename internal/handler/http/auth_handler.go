package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/domain/models"
	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/service"
)

const refreshCookieName = "refreshToken"

// AuthHandler exposes the authentication API over HTTP.
type AuthHandler struct {
	auth       *service.AuthService
	oauth      *service.OAuthService
	refreshTTL time.Duration
	logger     *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, oauth *service.OAuthService, refreshTTL time.Duration, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:       auth,
		oauth:      oauth,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// setRefreshCookie installs the refresh token as an httpOnly cookie scoped
// to the whole site.
func (h *AuthHandler) setRefreshCookie(c *gin.Context, refreshToken string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, refreshToken, int(h.refreshTTL.Seconds()), "/", "", false, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, "", -1, "/", "", false, true)
}

// refreshTokenFrom resolves the caller's refresh token: the body field wins,
// the cookie is the fallback.
func refreshTokenFrom(c *gin.Context) string {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshTokenID != "" {
		return req.RefreshTokenID
	}
	if cookie, err := c.Cookie(refreshCookieName); err == nil {
		return cookie
	}
	return ""
}

// bearerTokenFrom extracts the token from an Authorization: Bearer header.
func bearerTokenFrom(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// Register handles POST /register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	c.JSON(http.StatusCreated, result)
}

// Login handles POST /login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	c.JSON(http.StatusOK, result)
}

// Refresh handles POST /refresh. A missing token is rejected the same way
// as an invalid one.
func (h *AuthHandler) Refresh(c *gin.Context) {
	token := refreshTokenFrom(c)
	if token == "" {
		c.JSON(http.StatusForbidden, errorResponse{Error: "refresh token rejected"})
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	c.JSON(http.StatusOK, result)
}

// Validate handles POST /validate. Success returns the decoded token
// payload as-is; the failure body always carries valid:false so callers can
// branch without inspecting the status text.
func (h *AuthHandler) Validate(c *gin.Context) {
	var req models.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false})
		return
	}

	claims, err := h.auth.Validate(c.Request.Context(), req.AccessToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false})
		return
	}

	c.JSON(http.StatusOK, claims)
}

// Logout handles POST /logout. It always answers 200: logout of a dead or
// absent session is a success from the client's point of view.
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken := refreshTokenFrom(c)
	accessToken := bearerTokenFrom(c)

	h.auth.Logout(c.Request.Context(), refreshToken, accessToken)

	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// OAuthInitiate handles GET /oauth/:provider/initiate.
func (h *AuthHandler) OAuthInitiate(c *gin.Context) {
	u, err := h.oauth.AuthorizationURL(c.Param("provider"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": u})
}

// OAuthExchangeCode handles POST /oauth/:provider/exchange-code.
func (h *AuthHandler) OAuthExchangeCode(c *gin.Context) {
	var req models.ExchangeCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.oauth.Login(c.Request.Context(), c.Param("provider"), req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	c.JSON(http.StatusOK, result)
}
