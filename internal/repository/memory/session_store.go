// Package memory provides an in-process SessionStore with the same
// semantics as the Redis implementation, including TTL expiry. It exists so
// service and handler tests can run without a network dependency; production
// wiring must use the Redis store (session state is shared across instances).
package memory

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/nebula-social/social_platform/backend/services/auth-service/internal/domain/errors"
)

type entry struct {
	value     string
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// SessionStore mirrors the Redis session-pointer registry in process memory.
type SessionStore struct {
	mu        sync.Mutex
	forward   map[string]entry // userID -> refresh jti
	reverse   map[string]entry // refresh jti -> userID
	blacklist map[string]entry // jti -> marker
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		forward:   make(map[string]entry),
		reverse:   make(map[string]entry),
		blacklist: make(map[string]entry),
	}
}

func (s *SessionStore) StoreSession(_ context.Context, userID, refreshJTI string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if old, ok := s.forward[userID]; ok && !old.expired(now) && old.value != refreshJTI {
		delete(s.reverse, old.value)
	}

	exp := now.Add(ttl)
	s.forward[userID] = entry{value: refreshJTI, expiresAt: exp}
	s.reverse[refreshJTI] = entry{value: userID, expiresAt: exp}
	return nil
}

func (s *SessionStore) FindUserByRefreshTokenID(_ context.Context, refreshJTI string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.reverse[refreshJTI]
	if !ok || e.expired(time.Now()) {
		return "", domainErrors.ErrSessionNotFound
	}
	return e.value, nil
}

func (s *SessionStore) DeleteSession(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.forward[userID]; ok {
		delete(s.reverse, e.value)
	}
	delete(s.forward, userID)
	return nil
}

func (s *SessionStore) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.blacklist[jti]
	if !ok {
		return false, nil
	}
	if e.expired(time.Now()) {
		delete(s.blacklist, jti)
		return false, nil
	}
	return true, nil
}

func (s *SessionStore) Blacklist(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blacklist[jti] = entry{value: "1", expiresAt: time.Now().Add(ttl)}
	return nil
}
