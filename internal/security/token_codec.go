package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/config"
	domainErrors "github.com/nebula-social/social_platform/backend/services/auth-service/internal/domain/errors"
)

// TokenKind distinguishes the two token families. Each kind is signed with
// its own secret.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Claims is the payload embedded in every issued token. The jti lives in
// RegisteredClaims.ID and is the revocation handle.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	TokenType string `json:"token_type"`
}

// TokenID returns the jti.
func (c *Claims) TokenID() string { return c.ID }

// TokenCodec signs and verifies access and refresh tokens. It holds no
// revocation state; blacklist and session-pointer checks belong to the
// session store.
type TokenCodec struct {
	cfg *config.JWTConfig
}

func NewTokenCodec(cfg *config.JWTConfig) *TokenCodec {
	return &TokenCodec{cfg: cfg}
}

// Issue mints a signed token of the given kind and returns it together with
// its freshly generated jti.
func (c *TokenCodec) Issue(userID, username string, kind TokenKind) (string, string, error) {
	now := time.Now()
	jti := uuid.NewString()

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    c.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl(kind))),
		},
		UserID:    userID,
		Username:  username,
		TokenType: string(kind),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret(kind))
	if err != nil {
		return "", "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, jti, nil
}

// Verify checks signature, expiry and kind. exp == now is treated as
// expired (zero leeway).
func (c *TokenCodec) Verify(tokenString string, kind TokenKind) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret(kind), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domainErrors.ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, domainErrors.ErrInvalidToken
	}
	if claims.TokenType != string(kind) {
		return nil, fmt.Errorf("%w: wrong token type %q", domainErrors.ErrInvalidToken, claims.TokenType)
	}
	return claims, nil
}

// DecodeUnverified extracts the claims without checking signature or expiry.
// It exists solely for best-effort logout and must never back an
// authorization decision.
func (c *TokenCodec) DecodeUnverified(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, _, err := jwt.NewParser().ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrInvalidToken, err)
	}
	return claims, nil
}

// TTL returns the configured lifetime for the given kind.
func (c *TokenCodec) TTL(kind TokenKind) time.Duration {
	return c.ttl(kind)
}

func (c *TokenCodec) ttl(kind TokenKind) time.Duration {
	if kind == TokenKindRefresh {
		return c.cfg.RefreshTokenTTL
	}
	return c.cfg.AccessTokenTTL
}

func (c *TokenCodec) secret(kind TokenKind) []byte {
	if kind == TokenKindRefresh {
		return []byte(c.cfg.RefreshTokenSecret)
	}
	return []byte(c.cfg.AccessTokenSecret)
}
