package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
	"github.com/civicgrid/civic-issues-backend/internal/core/ports"
)

// rolePermissions maps each role to the permissions it grants.
var rolePermissions = map[string][]string{
	domain.RoleCitizen: {
		"issues:create",
		"issues:read",
		"issues:list",
		"issues:upvote",
	},
	domain.RoleAdmin: {
		"issues:create",
		"issues:read",
		"issues:read:all",
		"issues:list",
		"issues:list:all",
		"issues:update:status",
		"issues:assign",
		"issues:upvote",
		"analytics:read",
	},
}

// AuthorizationService implements role-based permission checks.
type AuthorizationService struct {
	userRepo ports.UserRepository
}

var _ ports.AuthorizationService = (*AuthorizationService)(nil)

// NewAuthorizationService creates a new service for authorization logic.
func NewAuthorizationService(userRepo ports.UserRepository) ports.AuthorizationService {
	return &AuthorizationService{userRepo: userRepo}
}

// Can checks if a user has a specific permission.
func (s *AuthorizationService) Can(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		// If the user cannot be resolved (e.g., store down), deny access.
		return false, err
	}
	if !user.IsActive {
		return false, nil
	}

	for _, p := range rolePermissions[user.Role] {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}
