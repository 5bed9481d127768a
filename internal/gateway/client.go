// Package gateway implements the public edge deployment: it validates
// bearer tokens against the auth service and forwards traffic to the
// downstream microservices.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	domainErrors "github.com/nebula-social/social_platform/backend/services/auth-service/internal/domain/errors"
)

// Identity is the caller identity the auth service certifies for a valid
// access token.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// AuthClient is the gateway's HTTP client for the auth service.
type AuthClient struct {
	baseURL string
	http    *http.Client
}

func NewAuthClient(baseURL string, timeout time.Duration) *AuthClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AuthClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Validate asks the auth service to verify an access token. Any transport
// failure or non-200 answer counts as rejection; the gateway never fails
// open.
func (c *AuthClient) Validate(ctx context.Context, accessToken string) (*Identity, error) {
	body, err := json.Marshal(map[string]string{"accessToken": accessToken})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrUnauthorized, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/auth/validate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrUnauthorized, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: auth service unreachable: %v", domainErrors.ErrUnauthorized, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domainErrors.ErrUnauthorized
	}

	// 200 carries the decoded token payload.
	var payload struct {
		UserID   string `json:"user_id"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrUnauthorized, err)
	}
	if payload.UserID == "" {
		return nil, domainErrors.ErrUnauthorized
	}
	return &Identity{UserID: payload.UserID, Username: payload.Username}, nil
}
