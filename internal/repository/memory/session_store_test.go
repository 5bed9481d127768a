package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/nebula-social/social_platform/backend/services/auth-service/internal/domain/errors"
)

func TestSessionStore_SinglePointerPerUser(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	require.NoError(t, store.StoreSession(ctx, "user-1", "jti-old", time.Hour))

	userID, err := store.FindUserByRefreshTokenID(ctx, "jti-old")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	// Installing a new pointer supersedes the old reverse entry.
	require.NoError(t, store.StoreSession(ctx, "user-1", "jti-new", time.Hour))

	_, err = store.FindUserByRefreshTokenID(ctx, "jti-old")
	assert.ErrorIs(t, err, domainErrors.ErrSessionNotFound)

	userID, err = store.FindUserByRefreshTokenID(ctx, "jti-new")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestSessionStore_DeleteSessionIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	require.NoError(t, store.StoreSession(ctx, "user-1", "jti-1", time.Hour))
	require.NoError(t, store.DeleteSession(ctx, "user-1"))

	_, err := store.FindUserByRefreshTokenID(ctx, "jti-1")
	assert.ErrorIs(t, err, domainErrors.ErrSessionNotFound)

	// Deleting an absent session is not an error.
	require.NoError(t, store.DeleteSession(ctx, "user-1"))
	require.NoError(t, store.DeleteSession(ctx, "never-existed"))
}

func TestSessionStore_PointerExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	require.NoError(t, store.StoreSession(ctx, "user-1", "jti-1", time.Second))

	_, err := store.FindUserByRefreshTokenID(ctx, "jti-1")
	require.NoError(t, err)

	time.Sleep(2 * time.Second)

	_, err = store.FindUserByRefreshTokenID(ctx, "jti-1")
	assert.ErrorIs(t, err, domainErrors.ErrSessionNotFound)
}

func TestSessionStore_BlacklistSelfExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	require.NoError(t, store.Blacklist(ctx, "jti-1", time.Second))

	revoked, err := store.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	time.Sleep(2 * time.Second)

	revoked, err = store.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestSessionStore_BlacklistZeroTTLIsNoop(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	require.NoError(t, store.Blacklist(ctx, "jti-1", 0))

	revoked, err := store.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}
