package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	domainErrors "github.com/nebula-social/social_platform/backend/services/auth-service/internal/domain/errors"
	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/domain/models"
	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/events/kafka"
	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/security"
	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/utils/metrics"
)

// SessionStore is the key-value registry of session pointers and revoked
// token ids. All session state lives behind this interface; the service
// itself stays stateless between requests.
type SessionStore interface {
	StoreSession(ctx context.Context, userID, refreshJTI string, ttl time.Duration) error
	FindUserByRefreshTokenID(ctx context.Context, refreshJTI string) (string, error)
	DeleteSession(ctx context.Context, userID string) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
	Blacklist(ctx context.Context, jti string, ttl time.Duration) error
}

// AccountRepository is the boundary to the external account store.
type AccountRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	Create(ctx context.Context, in models.NewAccount) (*models.Account, error)
}

// AuthService is the orchestrator for login, registration, refresh,
// validation and logout. Every successful authentication path funnels
// through issueSession, which is what enforces the one-active-refresh-token
// invariant per user.
type AuthService struct {
	accounts AccountRepository
	sessions SessionStore
	codec    *security.TokenCodec
	hasher   *security.PasswordHasher
	producer kafka.Producer
	logger   *zap.Logger
}

func NewAuthService(
	accounts AccountRepository,
	sessions SessionStore,
	codec *security.TokenCodec,
	hasher *security.PasswordHasher,
	producer kafka.Producer,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		accounts: accounts,
		sessions: sessions,
		codec:    codec,
		hasher:   hasher,
		producer: producer,
		logger:   logger,
	}
}

// issueSession mints a fresh access/refresh pair and installs the refresh
// jti as the user's single active session pointer, superseding any previous
// one.
func (s *AuthService) issueSession(ctx context.Context, userID, username string) (*models.AuthResult, error) {
	accessToken, _, err := s.codec.Issue(userID, username, security.TokenKindAccess)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	refreshToken, refreshJTI, err := s.codec.Issue(userID, username, security.TokenKindRefresh)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	if err := s.sessions.StoreSession(ctx, userID, refreshJTI, s.codec.TTL(security.TokenKindRefresh)); err != nil {
		return nil, err
	}

	return &models.AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         models.UserSummary{ID: userID, Username: username},
	}, nil
}

// Register creates an account+profile pair and logs the new user in.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (result *models.AuthResult, err error) {
	defer func() { metrics.RecordOperation("register", err) }()

	taken, err := s.accounts.ExistsByEmailOrUsername(ctx, req.Email, req.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domainErrors.ErrAlreadyExists
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account, err := s.accounts.Create(ctx, models.NewAccount{
		Username:     req.Username,
		Email:        &req.Email,
		PhoneNumber:  req.PhoneNumber,
		PasswordHash: &hash,
		Profile: models.Profile{
			FirstName:  req.FirstName,
			SecondName: req.SecondName,
		},
	})
	if err != nil {
		// The unique constraint can still fire between the existence check
		// and the insert.
		if errors.Is(err, domainErrors.ErrAlreadyExists) {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, err
	}

	s.publish(ctx, kafka.EventUserRegistered, account.UserID.String(), map[string]string{
		"user_id":  account.UserID.String(),
		"username": account.Username,
	})

	return s.issueSession(ctx, account.UserID.String(), account.Username)
}

// Login verifies an email/password pair. OAuth-only accounts (nil hash)
// fail with the same generic error as a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (result *models.AuthResult, err error) {
	defer func() { metrics.RecordOperation("login", err) }()

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, domainErrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if account.PasswordHash == nil {
		return nil, domainErrors.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(password, *account.PasswordHash)
	if err != nil {
		// A corrupt stored hash is a server problem; do not leak it.
		s.logger.Error("Password verification failed",
			zap.Error(err), zap.String("user_id", account.UserID.String()))
		return nil, domainErrors.ErrInvalidCredentials
	}
	if !ok {
		return nil, domainErrors.ErrInvalidCredentials
	}

	s.publish(ctx, kafka.EventUserLoggedIn, account.UserID.String(), map[string]string{
		"user_id":  account.UserID.String(),
		"username": account.Username,
	})

	return s.issueSession(ctx, account.UserID.String(), account.Username)
}

// Refresh rotates the session identified by oldRefreshToken. Expired,
// forged, malformed and superseded tokens all fail with the same
// undifferentiated rejection.
func (s *AuthService) Refresh(ctx context.Context, oldRefreshToken string) (result *models.AuthResult, err error) {
	defer func() { metrics.RecordOperation("refresh", err) }()

	claims, err := s.codec.Verify(oldRefreshToken, security.TokenKindRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrRefreshRejected, err)
	}

	jti := claims.TokenID()
	if jti == "" {
		return nil, fmt.Errorf("%w: missing token id", domainErrors.ErrRefreshRejected)
	}

	storedUserID, err := s.sessions.FindUserByRefreshTokenID(ctx, jti)
	if err != nil {
		if errors.Is(err, domainErrors.ErrSessionNotFound) {
			// Never issued, already rotated out, or logged out.
			return nil, domainErrors.ErrRefreshRejected
		}
		return nil, err
	}
	if storedUserID != claims.UserID {
		// Reverse index disagrees with the payload: treat as tampering.
		s.logger.Warn("Refresh token subject mismatch",
			zap.String("token_user_id", claims.UserID),
			zap.String("stored_user_id", storedUserID))
		return nil, domainErrors.ErrRefreshRejected
	}

	// Rotation: issueSession overwrites the pointer pair, so the old jti
	// stops resolving even before its own expiry.
	return s.issueSession(ctx, claims.UserID, claims.Username)
}

// Validate checks an access token for every protected request: one
// signature/expiry verification plus one blacklist lookup.
func (s *AuthService) Validate(ctx context.Context, accessToken string) (*security.Claims, error) {
	claims, err := s.codec.Verify(accessToken, security.TokenKindAccess)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrUnauthorized, err)
	}

	if jti := claims.TokenID(); jti != "" {
		revoked, err := s.sessions.IsBlacklisted(ctx, jti)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, domainErrors.ErrTokenBlacklisted
		}
	}
	return claims, nil
}

// Logout deletes the caller's session pointer, best-effort. The refresh
// token may be expired or garbage; the operation still succeeds from the
// caller's perspective. When the current access token is presented its jti
// is blacklisted for the remainder of its lifetime.
func (s *AuthService) Logout(ctx context.Context, refreshToken, accessToken string) {
	defer metrics.RecordOperation("logout", nil)

	if refreshToken != "" {
		claims, err := s.codec.DecodeUnverified(refreshToken)
		if err == nil && claims.UserID != "" {
			if err := s.sessions.DeleteSession(ctx, claims.UserID); err != nil {
				s.logger.Error("Failed to delete session on logout",
					zap.Error(err), zap.String("user_id", claims.UserID))
			} else {
				s.publish(ctx, kafka.EventUserLoggedOut, claims.UserID, map[string]string{
					"user_id": claims.UserID,
				})
			}
		}
	}

	if accessToken != "" {
		claims, err := s.codec.DecodeUnverified(accessToken)
		if err == nil && claims.TokenID() != "" && claims.ExpiresAt != nil {
			remaining := time.Until(claims.ExpiresAt.Time)
			if err := s.sessions.Blacklist(ctx, claims.TokenID(), remaining); err != nil {
				s.logger.Error("Failed to blacklist access token on logout", zap.Error(err))
			}
		}
	}
}

// publish sends a lifecycle event, logging failures without affecting the
// caller.
func (s *AuthService) publish(ctx context.Context, eventType kafka.EventType, subject string, data interface{}) {
	if err := s.producer.Publish(ctx, eventType, subject, data); err != nil {
		s.logger.Warn("Failed to publish auth event",
			zap.Error(err), zap.String("event_type", string(eventType)))
	}
}
