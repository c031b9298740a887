package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
	apperrors "github.com/civicgrid/civic-issues-backend/internal/core/errors"
	"github.com/civicgrid/civic-issues-backend/internal/core/mocks"
	"github.com/civicgrid/civic-issues-backend/internal/core/services"
)

const testRefreshTTL = 24 * time.Hour

func activeUser(t *testing.T, email, password string) *domain.User {
	t.Helper()
	user, err := domain.NewUser(domain.UserRegistrationParams{
		FullName: "Asha Verma",
		Email:    email,
		Password: password,
	}, domain.RoleCitizen)
	require.NoError(t, err)
	return user
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mockUsers := mocks.NewMockUserRepository()
		mockTokens := mocks.NewMockTokenStore()
		svc := services.NewAuthService(mockUsers, mockTokens, testRefreshTTL)

		mockUsers.On("GetByEmail", ctx, "asha@example.com").Return(nil, apperrors.ErrUserNotFound)
		mockUsers.On("Create", ctx, mock.AnythingOfType("*domain.User")).
			Run(func(args mock.Arguments) {
				u := args.Get(1).(*domain.User)
				assert.Equal(t, domain.RoleCitizen, u.Role)
				assert.True(t, u.IsActive)
				assert.NotEqual(t, "SecurePass1!", u.HashedPassword)
			}).
			Return(&domain.User{ID: uuid.New(), Email: "asha@example.com"}, nil)

		user, err := svc.Register(ctx, "Asha Verma", "asha@example.com", "SecurePass1!")

		require.NoError(t, err)
		assert.Equal(t, "asha@example.com", user.Email)
		mockUsers.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		mockUsers := mocks.NewMockUserRepository()
		mockTokens := mocks.NewMockTokenStore()
		svc := services.NewAuthService(mockUsers, mockTokens, testRefreshTTL)

		existing := activeUser(t, "asha@example.com", "SecurePass1!")
		mockUsers.On("GetByEmail", ctx, "asha@example.com").Return(existing, nil)

		user, err := svc.Register(ctx, "Asha Verma", "asha@example.com", "SecurePass1!")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrUserExists)
		mockUsers.AssertNotCalled(t, "Create")
	})

	t.Run("weak password rejected", func(t *testing.T) {
		mockUsers := mocks.NewMockUserRepository()
		mockTokens := mocks.NewMockTokenStore()
		svc := services.NewAuthService(mockUsers, mockTokens, testRefreshTTL)

		user, err := svc.Register(ctx, "Asha Verma", "asha@example.com", "short")

		assert.Nil(t, user)
		assert.Error(t, err)
		mockUsers.AssertNotCalled(t, "GetByEmail")
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mockUsers := mocks.NewMockUserRepository()
		mockTokens := mocks.NewMockTokenStore()
		svc := services.NewAuthService(mockUsers, mockTokens, testRefreshTTL)

		user := activeUser(t, "asha@example.com", "SecurePass1!")
		mockUsers.On("GetByEmail", ctx, "asha@example.com").Return(user, nil)

		got, err := svc.Login(ctx, "asha@example.com", "SecurePass1!")

		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockUsers := mocks.NewMockUserRepository()
		mockTokens := mocks.NewMockTokenStore()
		svc := services.NewAuthService(mockUsers, mockTokens, testRefreshTTL)

		user := activeUser(t, "asha@example.com", "SecurePass1!")
		mockUsers.On("GetByEmail", ctx, "asha@example.com").Return(user, nil)

		got, err := svc.Login(ctx, "asha@example.com", "WrongPass1!")

		assert.Nil(t, got)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("unknown email maps to invalid credentials", func(t *testing.T) {
		mockUsers := mocks.NewMockUserRepository()
		mockTokens := mocks.NewMockTokenStore()
		svc := services.NewAuthService(mockUsers, mockTokens, testRefreshTTL)

		mockUsers.On("GetByEmail", ctx, "ghost@example.com").Return(nil, apperrors.ErrUserNotFound)

		got, err := svc.Login(ctx, "ghost@example.com", "SecurePass1!")

		assert.Nil(t, got)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("inactive user forbidden", func(t *testing.T) {
		mockUsers := mocks.NewMockUserRepository()
		mockTokens := mocks.NewMockTokenStore()
		svc := services.NewAuthService(mockUsers, mockTokens, testRefreshTTL)

		user := activeUser(t, "asha@example.com", "SecurePass1!")
		user.IsActive = false
		mockUsers.On("GetByEmail", ctx, "asha@example.com").Return(user, nil)

		got, err := svc.Login(ctx, "asha@example.com", "SecurePass1!")

		assert.Nil(t, got)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("missing fields", func(t *testing.T) {
		mockUsers := mocks.NewMockUserRepository()
		mockTokens := mocks.NewMockTokenStore()
		svc := services.NewAuthService(mockUsers, mockTokens, testRefreshTTL)

		_, err := svc.Login(ctx, "", "SecurePass1!")
		assert.ErrorIs(t, err, apperrors.ErrEmailRequired)

		_, err = svc.Login(ctx, "asha@example.com", "")
		assert.ErrorIs(t, err, apperrors.ErrPasswordRequired)
	})
}

func TestAuthService_RefreshTokens(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("issue stores an opaque token with TTL", func(t *testing.T) {
		mockUsers := mocks.NewMockUserRepository()
		mockTokens := mocks.NewMockTokenStore()
		svc := services.NewAuthService(mockUsers, mockTokens, testRefreshTTL)

		var savedToken string
		mockTokens.On("Save", ctx, mock.AnythingOfType("string"), userID, mock.AnythingOfType("time.Time")).
			Run(func(args mock.Arguments) {
				savedToken = args.String(1)
				expiresAt := args.Get(3).(time.Time)
				assert.WithinDuration(t, time.Now().UTC().Add(testRefreshTTL), expiresAt, time.Minute)
			}).
			Return(nil)

		token, err := svc.IssueRefreshToken(ctx, userID)

		require.NoError(t, err)
		assert.Len(t, token, 64) // 32 random bytes hex encoded
		assert.Equal(t, savedToken, token)
	})

	t.Run("refresh rotates the token", func(t *testing.T) {
		mockUsers := mocks.NewMockUserRepository()
		mockTokens := mocks.NewMockTokenStore()
		svc := services.NewAuthService(mockUsers, mockTokens, testRefreshTTL)

		user := activeUser(t, "asha@example.com", "SecurePass1!")
		user.ID = userID

		mockTokens.On("Get", ctx, "old-token").Return(userID, nil)
		mockTokens.On("Delete", ctx, "old-token").Return(nil)
		mockUsers.On("GetByID", ctx, userID).Return(user, nil)

		got, err := svc.Refresh(ctx, "old-token")

		require.NoError(t, err)
		assert.Equal(t, userID, got.ID)
		mockTokens.AssertExpectations(t)
	})

	t.Run("unknown token unauthorized", func(t *testing.T) {
		mockUsers := mocks.NewMockUserRepository()
		mockTokens := mocks.NewMockTokenStore()
		svc := services.NewAuthService(mockUsers, mockTokens, testRefreshTTL)

		mockTokens.On("Get", ctx, "bogus").Return(uuid.Nil, apperrors.ErrTokenNotFound)

		got, err := svc.Refresh(ctx, "bogus")

		assert.Nil(t, got)
		assert.Error(t, err)
		mockTokens.AssertNotCalled(t, "Delete")
	})

	t.Run("inactive user cannot refresh", func(t *testing.T) {
		mockUsers := mocks.NewMockUserRepository()
		mockTokens := mocks.NewMockTokenStore()
		svc := services.NewAuthService(mockUsers, mockTokens, testRefreshTTL)

		user := activeUser(t, "asha@example.com", "SecurePass1!")
		user.ID = userID
		user.IsActive = false

		mockTokens.On("Get", ctx, "old-token").Return(userID, nil)
		mockTokens.On("Delete", ctx, "old-token").Return(nil)
		mockUsers.On("GetByID", ctx, userID).Return(user, nil)

		got, err := svc.Refresh(ctx, "old-token")

		assert.Nil(t, got)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("revoke deletes the token", func(t *testing.T) {
		mockUsers := mocks.NewMockUserRepository()
		mockTokens := mocks.NewMockTokenStore()
		svc := services.NewAuthService(mockUsers, mockTokens, testRefreshTTL)

		mockTokens.On("Delete", ctx, "session-token").Return(nil)

		require.NoError(t, svc.RevokeRefreshToken(ctx, "session-token"))
		mockTokens.AssertExpectations(t)
	})
}
