package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
)

// ListIssuesRepoParams holds the storage-level filter for listing issues.
type ListIssuesRepoParams struct {
	Status   *string
	Category *string
	Ward     *string
	Limit    int32
	Offset   int32
}

// IssueRepository is the port for issue persistence. ListAll returns the
// complete snapshot the analytics engine consumes; filtering for analytics
// is never pushed down to the store.
type IssueRepository interface {
	Create(ctx context.Context, issue *domain.Issue) (*domain.Issue, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Issue, error)
	Update(ctx context.Context, issue *domain.Issue) (*domain.Issue, error)
	ListPaginated(ctx context.Context, params ListIssuesRepoParams) ([]*domain.Issue, error)
	ListByReporterPaginated(ctx context.Context, reporterID uuid.UUID, params ListIssuesRepoParams) ([]*domain.Issue, error)
	ListAll(ctx context.Context) ([]*domain.Issue, error)
}

// UserRepository is the port for user persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	CountActive(ctx context.Context) (int, error)
}

// TokenStore is the port for ephemeral refresh-token state. Implementations
// own their expiry; Sweep removes entries expired as of now and returns how
// many were dropped. No ambient module-level registries - the store is
// injected wherever it is needed.
type TokenStore interface {
	Save(ctx context.Context, token string, userID uuid.UUID, expiresAt time.Time) error
	Get(ctx context.Context, token string) (uuid.UUID, error)
	Delete(ctx context.Context, token string) error
	Sweep(now time.Time) int
}
