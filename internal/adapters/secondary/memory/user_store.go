package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
	apperrors "github.com/civicgrid/civic-issues-backend/internal/core/errors"
	"github.com/civicgrid/civic-issues-backend/internal/core/ports"
)

// UserStore is a thread-safe in-memory user repository.
type UserStore struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]*domain.User
	byEmail map[string]uuid.UUID
}

var _ ports.UserRepository = (*UserStore)(nil)

// NewUserStore creates an empty user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users:   make(map[uuid.UUID]*domain.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

// Create stores a new user. Emails are unique, case-insensitive.
func (s *UserStore) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey(user.Email)
	if _, exists := s.byEmail[key]; exists {
		return nil, apperrors.ErrUserExists
	}

	cp := *user
	s.users[cp.ID] = &cp
	s.byEmail[key] = cp.ID

	result := cp
	return &result, nil
}

// GetByID fetches one user.
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}

	cp := *user
	return &cp, nil
}

// GetByEmail fetches one user by email, case-insensitive.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[emailKey(email)]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}

	cp := *s.users[id]
	return &cp, nil
}

// CountActive returns the number of active accounts.
func (s *UserStore) CountActive(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, user := range s.users {
		if user.IsActive {
			count++
		}
	}
	return count, nil
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
