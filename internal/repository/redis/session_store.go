package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	domainErrors "github.com/nebula-social/social_platform/backend/services/auth-service/internal/domain/errors"
)

const (
	userSessionPrefix  = "user_session:"
	sessionTokenPrefix = "session_token:"
	blacklistPrefix    = "blacklist:"
)

// storeSessionSrc installs a new session pointer pair for a user in one
// server-side step: read the old forward pointer, drop its reverse entry,
// then write both new pointers with the same TTL. Running it as a script
// keeps two concurrent refreshes for the same user from interleaving the
// read-delete-write sequence.
//
// The superseded reverse key is derived from the jti stored under KEYS[1],
// which the caller cannot know in advance, so only its prefix travels in
// ARGV; no key name is baked into the script itself.
//
// KEYS[1] = user_session:{userID}
// KEYS[2] = session_token:{newJTI}
// ARGV[1] = newJTI, ARGV[2] = ttlSeconds, ARGV[3] = userID
// ARGV[4] = reverse-index key prefix
const storeSessionSrc = `
local old = redis.call("GET", KEYS[1])
if old and old ~= ARGV[1] then
    redis.call("DEL", ARGV[4] .. old)
end
redis.call("SET", KEYS[1], ARGV[1], "EX", ARGV[2])
redis.call("SET", KEYS[2], ARGV[3], "EX", ARGV[2])
return 1
`

// deleteSessionSrc removes both pointers for a user. Deleting an absent
// session is a no-op.
//
// KEYS[1] = user_session:{userID}
// ARGV[1] = reverse-index key prefix
const deleteSessionSrc = `
local jti = redis.call("GET", KEYS[1])
if jti then
    redis.call("DEL", ARGV[1] .. jti)
end
redis.call("DEL", KEYS[1])
return 1
`

var (
	storeSessionScript  = redis.NewScript(storeSessionSrc)
	deleteSessionScript = redis.NewScript(deleteSessionSrc)
)

// SessionStore is the Redis-backed session-pointer registry and token
// blacklist. It is the single source of truth for which refresh token is
// live for a user; no instance-local caching sits in front of it.
type SessionStore struct {
	client *redis.Client
	logger *zap.Logger
}

func NewSessionStore(client *redis.Client, logger *zap.Logger) *SessionStore {
	return &SessionStore{client: client, logger: logger}
}

// StoreSession makes refreshJTI the single active refresh token for userID.
// Any previously installed pointer pair is atomically superseded.
func (s *SessionStore) StoreSession(ctx context.Context, userID, refreshJTI string, ttl time.Duration) error {
	keys := []string{
		userSessionPrefix + userID,
		sessionTokenPrefix + refreshJTI,
	}
	err := storeSessionScript.Run(ctx, s.client, keys, refreshJTI, int(ttl.Seconds()), userID, sessionTokenPrefix).Err()
	if err != nil {
		s.logger.Error("Failed to store session pointer",
			zap.Error(err), zap.String("user_id", userID))
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// FindUserByRefreshTokenID resolves the reverse index. A missing entry means
// the token was never issued, already superseded, or the session was deleted.
func (s *SessionStore) FindUserByRefreshTokenID(ctx context.Context, refreshJTI string) (string, error) {
	userID, err := s.client.Get(ctx, sessionTokenPrefix+refreshJTI).Result()
	if err != nil {
		if err == redis.Nil {
			return "", domainErrors.ErrSessionNotFound
		}
		s.logger.Error("Failed to look up refresh token", zap.Error(err))
		return "", fmt.Errorf("failed to look up refresh token: %w", err)
	}
	return userID, nil
}

// DeleteSession drops both pointers for userID. Idempotent.
func (s *SessionStore) DeleteSession(ctx context.Context, userID string) error {
	err := deleteSessionScript.Run(ctx, s.client, []string{userSessionPrefix + userID}, sessionTokenPrefix).Err()
	if err != nil {
		s.logger.Error("Failed to delete session",
			zap.Error(err), zap.String("user_id", userID))
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// IsBlacklisted reports whether the token id has been revoked.
func (s *SessionStore) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	exists, err := s.client.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		s.logger.Error("Failed to check token blacklist", zap.Error(err))
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return exists > 0, nil
}

// Blacklist revokes a token id for ttl. The caller passes the token's
// remaining lifetime so the entry expires exactly when the token would have.
func (s *SessionStore) Blacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// Token already expired on its own, nothing to record.
		return nil
	}
	err := s.client.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
	if err != nil {
		s.logger.Error("Failed to blacklist token", zap.Error(err))
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}
