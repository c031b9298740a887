package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
	apperrors "github.com/civicgrid/civic-issues-backend/internal/core/errors"
	"github.com/civicgrid/civic-issues-backend/internal/core/ports"
)

func newTestIssue(t *testing.T, ward string, category domain.IssueCategory) *domain.Issue {
	t.Helper()
	issue, err := domain.NewIssue(domain.IssueParams{
		Title:       "Test issue",
		Description: "Something broke",
		Category:    category,
		Coordinates: domain.Coordinates{Lat: 12.97, Lng: 77.59},
		Ward:        ward,
		ReporterID:  uuid.New(),
	})
	require.NoError(t, err)
	return issue
}

func TestIssueStore_CRUD(t *testing.T) {
	ctx := context.Background()
	store := NewIssueStore()

	issue := newTestIssue(t, "Ward 1", domain.CategoryPothole)

	created, err := store.Create(ctx, issue)
	require.NoError(t, err)
	assert.Equal(t, issue.ID, created.ID)

	got, err := store.GetByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, issue.Title, got.Title)

	// Mutating the returned copy must not leak into the store
	got.Title = "mutated"
	again, err := store.GetByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test issue", again.Title)

	got.Title = "updated title"
	updated, err := store.Update(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "updated title", updated.Title)

	_, err = store.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrIssueNotFound)

	_, err = store.Update(ctx, newTestIssue(t, "Ward 9", domain.CategoryOther))
	assert.ErrorIs(t, err, apperrors.ErrIssueNotFound)
}

func TestIssueStore_ListPaginated(t *testing.T) {
	ctx := context.Background()
	store := NewIssueStore()

	reporterID := uuid.New()
	for i := 0; i < 5; i++ {
		issue := newTestIssue(t, "Ward 1", domain.CategoryPothole)
		if i < 2 {
			issue.ReporterID = reporterID
		}
		if i == 4 {
			issue.Ward = "Ward 2"
			issue.Category = domain.CategoryGarbage
		}
		_, err := store.Create(ctx, issue)
		require.NoError(t, err)
	}

	all, err := store.ListPaginated(ctx, ports.ListIssuesRepoParams{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	ward := "Ward 2"
	filtered, err := store.ListPaginated(ctx, ports.ListIssuesRepoParams{Limit: 10, Ward: &ward})
	require.NoError(t, err)
	assert.Len(t, filtered, 1)

	category := "garbage"
	filtered, err = store.ListPaginated(ctx, ports.ListIssuesRepoParams{Limit: 10, Category: &category})
	require.NoError(t, err)
	assert.Len(t, filtered, 1)

	mine, err := store.ListByReporterPaginated(ctx, reporterID, ports.ListIssuesRepoParams{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	page, err := store.ListPaginated(ctx, ports.ListIssuesRepoParams{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, page, 1)

	empty, err := store.ListPaginated(ctx, ports.ListIssuesRepoParams{Limit: 2, Offset: 50})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUserStore(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()

	user, err := domain.NewUser(domain.UserRegistrationParams{
		FullName: "Ravi Kumar",
		Email:    "Ravi@Example.com",
		Password: "SecurePass1!",
	}, domain.RoleCitizen)
	require.NoError(t, err)

	_, err = store.Create(ctx, user)
	require.NoError(t, err)

	// Email lookup is case-insensitive
	got, err := store.GetByEmail(ctx, "ravi@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	// Duplicate email rejected
	dup, err := domain.NewUser(domain.UserRegistrationParams{
		FullName: "Other",
		Email:    "ravi@example.com",
		Password: "SecurePass1!",
	}, domain.RoleCitizen)
	require.NoError(t, err)
	_, err = store.Create(ctx, dup)
	assert.ErrorIs(t, err, apperrors.ErrUserExists)

	count, err := store.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = store.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestTokenStore(t *testing.T) {
	ctx := context.Background()
	store := NewTokenStore()
	userID := uuid.New()

	require.NoError(t, store.Save(ctx, "live-token", userID, time.Now().Add(time.Hour)))
	require.NoError(t, store.Save(ctx, "dead-token", userID, time.Now().Add(-time.Hour)))

	got, err := store.Get(ctx, "live-token")
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	// Expired token behaves as missing
	_, err = store.Get(ctx, "dead-token")
	assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)

	// Sweep reaps only the expired entry
	removed := store.Sweep(time.Now())
	assert.Equal(t, 1, removed)

	_, err = store.Get(ctx, "live-token")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "live-token"))
	_, err = store.Get(ctx, "live-token")
	assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)
}
