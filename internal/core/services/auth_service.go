package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
	apperrors "github.com/civicgrid/civic-issues-backend/internal/core/errors"
	"github.com/civicgrid/civic-issues-backend/internal/core/ports"
)

// AuthService implements authentication business logic. Refresh tokens
// live in an injected TokenStore with explicit TTLs.
type AuthService struct {
	userRepo        ports.UserRepository
	tokenStore      ports.TokenStore
	refreshTokenTTL time.Duration
}

var _ ports.AuthService = (*AuthService)(nil)

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo ports.UserRepository, tokenStore ports.TokenStore, refreshTokenTTL time.Duration) ports.AuthService {
	return &AuthService{
		userRepo:        userRepo,
		tokenStore:      tokenStore,
		refreshTokenTTL: refreshTokenTTL,
	}
}

// Register creates a new citizen account with validated credentials.
func (s *AuthService) Register(ctx context.Context, fullName, email, password string) (*domain.User, error) {
	params := domain.UserRegistrationParams{
		FullName: fullName,
		Email:    email,
		Password: password,
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}

	// Check if user already exists
	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, apperrors.ErrUserExists
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, err // An actual store error occurred
	}

	user, err := domain.NewUser(params, domain.RoleCitizen)
	if err != nil {
		return nil, err
	}

	return s.userRepo.Create(ctx, user)
}

// Login authenticates a user with email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	if email == "" {
		return nil, apperrors.ErrEmailRequired
	}
	if password == "" {
		return nil, apperrors.ErrPasswordRequired
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			// Don't reveal whether the email exists
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.CheckPassword(password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, apperrors.ErrForbidden
	}

	return user, nil
}

// IssueRefreshToken mints an opaque refresh token for the user and records
// it in the token store with the configured TTL.
func (s *AuthService) IssueRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	expiresAt := time.Now().UTC().Add(s.refreshTokenTTL)
	if err := s.tokenStore.Save(ctx, token, userID, expiresAt); err != nil {
		return "", err
	}
	return token, nil
}

// Refresh exchanges a refresh token for its user, rotating the token out
// of the store. The caller issues a fresh access/refresh pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.User, error) {
	userID, err := s.tokenStore.Get(ctx, refreshToken)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("Invalid or expired refresh token")
	}

	// Single use: a presented token is always invalidated.
	if err := s.tokenStore.Delete(ctx, refreshToken); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrForbidden
	}

	return user, nil
}

// RevokeRefreshToken drops a refresh token (logout).
func (s *AuthService) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	return s.tokenStore.Delete(ctx, refreshToken)
}
