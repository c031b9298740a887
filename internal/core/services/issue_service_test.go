package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
	apperrors "github.com/civicgrid/civic-issues-backend/internal/core/errors"
	"github.com/civicgrid/civic-issues-backend/internal/core/mocks"
	"github.com/civicgrid/civic-issues-backend/internal/core/ports"
	"github.com/civicgrid/civic-issues-backend/internal/core/services"
)

type issueServiceMocks struct {
	repo        *mocks.MockIssueRepository
	authz       *mocks.MockAuthorizationService
	categorizer *mocks.MockCategorizer
	notifier    *mocks.MockNotifier
	broadcaster *mocks.MockEventBroadcaster
}

func newIssueService() (ports.IssueService, issueServiceMocks) {
	m := issueServiceMocks{
		repo:        mocks.NewMockIssueRepository(),
		authz:       mocks.NewMockAuthorizationService(),
		categorizer: mocks.NewMockCategorizer(),
		notifier:    mocks.NewMockNotifier(),
		broadcaster: mocks.NewMockEventBroadcaster(),
	}
	// Broadcasts run on their own goroutine and may land after the test
	// body finishes.
	m.broadcaster.On("Broadcast", mock.AnythingOfType("domain.Event")).Return(nil).Maybe()
	svc := services.NewIssueService(m.repo, m.authz, m.categorizer, m.notifier, m.broadcaster)
	return svc, m
}

func TestIssueService_CreateIssue(t *testing.T) {
	ctx := context.Background()
	reporterID := uuid.New()

	validParams := func() ports.CreateIssueParams {
		return ports.CreateIssueParams{
			Title:       "Large pothole near the bus stop",
			Description: "Deep pothole damaging vehicles",
			Category:    domain.CategoryPothole,
			Coordinates: domain.Coordinates{Lat: 12.9716, Lng: 77.5946},
			Location:    "MG Road",
			Ward:        "Ward 12",
			ReporterID:  reporterID,
		}
	}

	t.Run("success", func(t *testing.T) {
		svc, m := newIssueService()

		var created *domain.Issue
		m.authz.On("Can", ctx, reporterID, "issues:create").Return(true, nil)
		m.repo.On("Create", ctx, mock.AnythingOfType("*domain.Issue")).
			Run(func(args mock.Arguments) {
				created = args.Get(1).(*domain.Issue)
			}).
			Return(&domain.Issue{}, nil)

		_, err := svc.CreateIssue(ctx, validParams())

		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, domain.StatusOpen, created.Status)
		assert.Equal(t, domain.PriorityMedium, created.Priority)
		assert.Equal(t, domain.CategoryPothole, created.Category)
		assert.Equal(t, reporterID, created.ReporterID)

		m.authz.AssertExpectations(t)
		m.repo.AssertExpectations(t)
		m.categorizer.AssertNotCalled(t, "Categorize")
	})

	t.Run("categorizer fills blank category", func(t *testing.T) {
		svc, m := newIssueService()

		params := validParams()
		params.Category = ""

		m.authz.On("Can", ctx, reporterID, "issues:create").Return(true, nil)
		m.categorizer.On("Categorize", ctx, params.Title, params.Description).
			Return(domain.CategoryPothole)

		var created *domain.Issue
		m.repo.On("Create", ctx, mock.AnythingOfType("*domain.Issue")).
			Run(func(args mock.Arguments) {
				created = args.Get(1).(*domain.Issue)
			}).
			Return(&domain.Issue{}, nil)

		_, err := svc.CreateIssue(ctx, params)

		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, domain.CategoryPothole, created.Category)
		m.categorizer.AssertExpectations(t)
	})

	t.Run("forbidden when no permission", func(t *testing.T) {
		svc, m := newIssueService()

		m.authz.On("Can", ctx, reporterID, "issues:create").Return(false, nil)

		issue, err := svc.CreateIssue(ctx, validParams())

		assert.Nil(t, issue)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		m.repo.AssertNotCalled(t, "Create")
	})

	t.Run("validation error for empty title", func(t *testing.T) {
		svc, m := newIssueService()

		params := validParams()
		params.Title = ""

		m.authz.On("Can", ctx, reporterID, "issues:create").Return(true, nil)

		issue, err := svc.CreateIssue(ctx, params)

		assert.Nil(t, issue)
		assert.ErrorIs(t, err, domain.ErrTitleRequired)
		m.repo.AssertNotCalled(t, "Create")
	})

	t.Run("validation error for out-of-range coordinates", func(t *testing.T) {
		svc, m := newIssueService()

		params := validParams()
		params.Coordinates.Lat = 91

		m.authz.On("Can", ctx, reporterID, "issues:create").Return(true, nil)

		issue, err := svc.CreateIssue(ctx, params)

		assert.Nil(t, issue)
		assert.ErrorIs(t, err, domain.ErrInvalidCoordinates)
		m.repo.AssertNotCalled(t, "Create")
	})
}

func TestIssueService_GetIssue(t *testing.T) {
	ctx := context.Background()
	reporterID := uuid.New()
	otherID := uuid.New()
	issueID := uuid.New()

	storedIssue := func() *domain.Issue {
		return &domain.Issue{
			ID:         issueID,
			Title:      "Broken streetlight",
			Category:   domain.CategoryStreetlight,
			Status:     domain.StatusOpen,
			ReporterID: reporterID,
		}
	}

	t.Run("reporter can read own issue", func(t *testing.T) {
		svc, m := newIssueService()

		m.authz.On("Can", ctx, reporterID, "issues:read").Return(true, nil)
		m.repo.On("GetByID", ctx, issueID).Return(storedIssue(), nil)

		issue, err := svc.GetIssue(ctx, issueID, reporterID)

		require.NoError(t, err)
		assert.Equal(t, issueID, issue.ID)
		m.authz.AssertNotCalled(t, "Can", ctx, reporterID, "issues:read:all")
	})

	t.Run("stranger needs elevated read", func(t *testing.T) {
		svc, m := newIssueService()

		m.authz.On("Can", ctx, otherID, "issues:read").Return(true, nil)
		m.authz.On("Can", ctx, otherID, "issues:read:all").Return(false, nil)
		m.repo.On("GetByID", ctx, issueID).Return(storedIssue(), nil)

		issue, err := svc.GetIssue(ctx, issueID, otherID)

		assert.Nil(t, issue)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("admin reads any issue", func(t *testing.T) {
		svc, m := newIssueService()

		m.authz.On("Can", ctx, otherID, "issues:read").Return(true, nil)
		m.authz.On("Can", ctx, otherID, "issues:read:all").Return(true, nil)
		m.repo.On("GetByID", ctx, issueID).Return(storedIssue(), nil)

		issue, err := svc.GetIssue(ctx, issueID, otherID)

		require.NoError(t, err)
		assert.Equal(t, issueID, issue.ID)
	})

	t.Run("assignee reads assigned issue", func(t *testing.T) {
		svc, m := newIssueService()

		assigned := storedIssue()
		assigned.AssigneeID = &otherID

		m.authz.On("Can", ctx, otherID, "issues:read").Return(true, nil)
		m.repo.On("GetByID", ctx, issueID).Return(assigned, nil)

		issue, err := svc.GetIssue(ctx, issueID, otherID)

		require.NoError(t, err)
		assert.Equal(t, issueID, issue.ID)
		m.authz.AssertNotCalled(t, "Can", ctx, otherID, "issues:read:all")
	})
}

func TestIssueService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	adminID := uuid.New()
	reporterID := uuid.New()
	issueID := uuid.New()

	t.Run("valid transition notifies reporter", func(t *testing.T) {
		svc, m := newIssueService()

		issue := &domain.Issue{
			ID:         issueID,
			Title:      "Garbage pileup",
			Category:   domain.CategoryGarbage,
			Status:     domain.StatusOpen,
			ReporterID: reporterID,
		}

		m.authz.On("Can", ctx, adminID, "issues:update:status").Return(true, nil)
		m.repo.On("GetByID", ctx, issueID).Return(issue, nil)
		m.repo.On("Update", ctx, issue).Return(issue, nil)
		m.notifier.On("Notify", mock.Anything, mock.AnythingOfType("ports.NotificationParams")).Return()

		updated, err := svc.UpdateStatus(ctx, ports.UpdateStatusParams{
			IssueID: issueID,
			ActorID: adminID,
			Status:  domain.StatusInProgress,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusInProgress, updated.Status)

		// Notification runs on a background goroutine tracked by the
		// service's wait group.
		svc.Shutdown()
		m.notifier.AssertExpectations(t)
	})

	t.Run("resolving stamps resolved time", func(t *testing.T) {
		svc, m := newIssueService()

		issue := &domain.Issue{
			ID:         issueID,
			Title:      "Water leak",
			Category:   domain.CategoryWaterLeak,
			Status:     domain.StatusInProgress,
			ReporterID: adminID, // self-reported, no notification
		}

		m.authz.On("Can", ctx, adminID, "issues:update:status").Return(true, nil)
		m.repo.On("GetByID", ctx, issueID).Return(issue, nil)
		m.repo.On("Update", ctx, issue).Return(issue, nil)

		updated, err := svc.UpdateStatus(ctx, ports.UpdateStatusParams{
			IssueID: issueID,
			ActorID: adminID,
			Status:  domain.StatusResolved,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusResolved, updated.Status)
		require.NotNil(t, updated.ResolvedAt)
		m.notifier.AssertNotCalled(t, "Notify")
	})

	t.Run("invalid transition from closed", func(t *testing.T) {
		svc, m := newIssueService()

		issue := &domain.Issue{
			ID:         issueID,
			Title:      "Closed report",
			Category:   domain.CategoryOther,
			Status:     domain.StatusClosed,
			ReporterID: reporterID,
		}

		m.authz.On("Can", ctx, adminID, "issues:update:status").Return(true, nil)
		m.repo.On("GetByID", ctx, issueID).Return(issue, nil)

		updated, err := svc.UpdateStatus(ctx, ports.UpdateStatusParams{
			IssueID: issueID,
			ActorID: adminID,
			Status:  domain.StatusOpen,
		})

		assert.Nil(t, updated)
		assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)
		m.repo.AssertNotCalled(t, "Update")
	})

	t.Run("forbidden for citizens", func(t *testing.T) {
		svc, m := newIssueService()

		m.authz.On("Can", ctx, reporterID, "issues:update:status").Return(false, nil)

		updated, err := svc.UpdateStatus(ctx, ports.UpdateStatusParams{
			IssueID: issueID,
			ActorID: reporterID,
			Status:  domain.StatusResolved,
		})

		assert.Nil(t, updated)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		m.repo.AssertNotCalled(t, "GetByID")
	})
}

func TestIssueService_AssignIssue(t *testing.T) {
	ctx := context.Background()
	adminID := uuid.New()
	assigneeID := uuid.New()
	issueID := uuid.New()

	t.Run("success", func(t *testing.T) {
		svc, m := newIssueService()

		issue := &domain.Issue{
			ID:         issueID,
			Title:      "Drain overflow",
			Category:   domain.CategoryDrainage,
			Status:     domain.StatusOpen,
			ReporterID: uuid.New(),
		}

		m.authz.On("Can", ctx, adminID, "issues:assign").Return(true, nil)
		m.repo.On("GetByID", ctx, issueID).Return(issue, nil)
		m.repo.On("Update", ctx, issue).Return(issue, nil)

		updated, err := svc.AssignIssue(ctx, ports.AssignIssueParams{
			IssueID:    issueID,
			ActorID:    adminID,
			AssigneeID: assigneeID,
		})

		require.NoError(t, err)
		require.NotNil(t, updated.AssigneeID)
		assert.Equal(t, assigneeID, *updated.AssigneeID)
	})

	t.Run("cannot assign closed issue", func(t *testing.T) {
		svc, m := newIssueService()

		issue := &domain.Issue{
			ID:         issueID,
			Title:      "Old report",
			Category:   domain.CategoryOther,
			Status:     domain.StatusClosed,
			ReporterID: uuid.New(),
		}

		m.authz.On("Can", ctx, adminID, "issues:assign").Return(true, nil)
		m.repo.On("GetByID", ctx, issueID).Return(issue, nil)

		updated, err := svc.AssignIssue(ctx, ports.AssignIssueParams{
			IssueID:    issueID,
			ActorID:    adminID,
			AssigneeID: assigneeID,
		})

		assert.Nil(t, updated)
		assert.ErrorIs(t, err, domain.ErrCannotAssignClosed)
		m.repo.AssertNotCalled(t, "Update")
	})
}

func TestIssueService_UpvoteIssue(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	issueID := uuid.New()

	t.Run("increments counter", func(t *testing.T) {
		svc, m := newIssueService()

		issue := &domain.Issue{
			ID:         issueID,
			Title:      "Traffic signal stuck",
			Category:   domain.CategoryTraffic,
			Status:     domain.StatusOpen,
			ReporterID: uuid.New(),
			Upvotes:    4,
		}

		m.authz.On("Can", ctx, userID, "issues:upvote").Return(true, nil)
		m.repo.On("GetByID", ctx, issueID).Return(issue, nil)
		m.repo.On("Update", ctx, issue).Return(issue, nil)

		updated, err := svc.UpvoteIssue(ctx, issueID, userID)

		require.NoError(t, err)
		assert.Equal(t, 5, updated.Upvotes)
	})

	t.Run("forbidden without permission", func(t *testing.T) {
		svc, m := newIssueService()

		m.authz.On("Can", ctx, userID, "issues:upvote").Return(false, nil)

		updated, err := svc.UpvoteIssue(ctx, issueID, userID)

		assert.Nil(t, updated)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}

func TestIssueService_ListIssues(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("admin lists everything", func(t *testing.T) {
		svc, m := newIssueService()

		m.authz.On("Can", ctx, userID, "issues:list:all").Return(true, nil)
		m.repo.On("ListPaginated", ctx, mock.MatchedBy(func(p ports.ListIssuesRepoParams) bool {
			// One extra row for has-more detection.
			return p.Limit == 21 && p.Offset == 40
		})).Return([]*domain.Issue{}, nil)

		_, err := svc.ListIssues(ctx, ports.ListIssuesParams{
			ViewerID: userID,
			Limit:    20,
			Offset:   40,
		})

		require.NoError(t, err)
		m.repo.AssertExpectations(t)
		m.repo.AssertNotCalled(t, "ListByReporterPaginated")
	})

	t.Run("citizen scoped to own reports", func(t *testing.T) {
		svc, m := newIssueService()

		m.authz.On("Can", ctx, userID, "issues:list:all").Return(false, nil)
		m.repo.On("ListByReporterPaginated", ctx, userID, mock.AnythingOfType("ports.ListIssuesRepoParams")).
			Return([]*domain.Issue{}, nil)

		_, err := svc.ListIssues(ctx, ports.ListIssuesParams{
			ViewerID: userID,
			Limit:    20,
		})

		require.NoError(t, err)
		m.repo.AssertExpectations(t)
		m.repo.AssertNotCalled(t, "ListPaginated")
	})
}
