package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/civicgrid/civic-issues-backend/internal/core/errors"
	"github.com/civicgrid/civic-issues-backend/internal/core/ports"
)

// TokenStore keeps refresh tokens in memory with explicit expiry.
// Expired entries are rejected on read and reaped by Sweep, which the
// cron runner calls periodically.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]tokenEntry
}

type tokenEntry struct {
	userID    uuid.UUID
	expiresAt time.Time
}

var _ ports.TokenStore = (*TokenStore)(nil)

// NewTokenStore creates an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		tokens: make(map[string]tokenEntry),
	}
}

// Save records a refresh token for the user.
func (s *TokenStore) Save(ctx context.Context, token string, userID uuid.UUID, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token] = tokenEntry{userID: userID, expiresAt: expiresAt}
	return nil
}

// Get resolves a token to its user. Expired tokens behave as missing.
func (s *TokenStore) Get(ctx context.Context, token string) (uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.tokens[token]
	if !ok || time.Now().After(entry.expiresAt) {
		return uuid.Nil, apperrors.ErrTokenNotFound
	}
	return entry.userID, nil
}

// Delete removes a token.
func (s *TokenStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, token)
	return nil
}

// Sweep removes every token expired as of now and reports how many.
func (s *TokenStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, entry := range s.tokens {
		if now.After(entry.expiresAt) {
			delete(s.tokens, token)
			removed++
		}
	}
	return removed
}
