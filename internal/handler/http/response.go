package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/nebula-social/social_platform/backend/services/auth-service/internal/domain/errors"
)

// errorResponse is the uniform error body for every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps a service error onto an HTTP status and a client-safe
// message. Unclassified errors collapse to 500 with a generic message so
// internals never leak.
func statusFor(err error) (int, string) {
	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode, appErr.Message
	}

	switch {
	case errors.Is(err, domainErrors.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, domainErrors.ErrAlreadyExists):
		return http.StatusBadRequest, "email or username already in use"
	case errors.Is(err, domainErrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domainErrors.ErrRefreshRejected):
		return http.StatusForbidden, "refresh token rejected"
	case errors.Is(err, domainErrors.ErrTokenBlacklisted),
		errors.Is(err, domainErrors.ErrExpiredToken),
		errors.Is(err, domainErrors.ErrInvalidToken),
		errors.Is(err, domainErrors.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domainErrors.ErrOAuthExchangeFailed):
		return http.StatusBadRequest, "authorization code rejected"
	case errors.Is(err, domainErrors.ErrOAuthProfileFailed):
		return http.StatusBadRequest, "identity provider did not return a usable profile"
	case errors.Is(err, domainErrors.ErrNotFound):
		return http.StatusNotFound, "not found"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func respondError(c *gin.Context, err error) {
	status, message := statusFor(err)
	c.AbortWithStatusJSON(status, errorResponse{Error: message})
}
