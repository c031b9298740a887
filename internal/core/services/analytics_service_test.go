package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
	apperrors "github.com/civicgrid/civic-issues-backend/internal/core/errors"
	"github.com/civicgrid/civic-issues-backend/internal/core/mocks"
	"github.com/civicgrid/civic-issues-backend/internal/core/services"
)

func TestAnalyticsService_WardAnalytics(t *testing.T) {
	ctx := context.Background()
	adminID := uuid.New()

	wardIssues := func() []*domain.Issue {
		resolvedAt := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
		return []*domain.Issue{
			{
				ID:          uuid.New(),
				Title:       "Pothole on main road",
				Category:    domain.CategoryPothole,
				Status:      domain.StatusResolved,
				Priority:    domain.PriorityHigh,
				Ward:        "Ward 12",
				ReporterID:  uuid.New(),
				CreatedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
				ResolvedAt:  &resolvedAt,
				Coordinates: domain.Coordinates{Lat: 12.97, Lng: 77.59},
			},
			{
				ID:         uuid.New(),
				Title:      "Streetlight out",
				Category:   domain.CategoryStreetlight,
				Status:     domain.StatusOpen,
				Priority:   domain.PriorityMedium,
				Ward:       "Ward 12",
				ReporterID: uuid.New(),
				CreatedAt:  time.Date(2026, 8, 5, 12, 0, 0, 0, time.UTC),
			},
			{
				ID:         uuid.New(),
				Title:      "Garbage elsewhere",
				Category:   domain.CategoryGarbage,
				Status:     domain.StatusOpen,
				Priority:   domain.PriorityLow,
				Ward:       "Ward 7",
				ReporterID: uuid.New(),
				CreatedAt:  time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC),
			},
		}
	}

	t.Run("admin gets ward rollup", func(t *testing.T) {
		mockRepo := mocks.NewMockIssueRepository()
		mockUsers := mocks.NewMockUserRepository()
		mockAuthz := mocks.NewMockAuthorizationService()
		svc := services.NewAnalyticsService(mockRepo, mockUsers, mockAuthz)

		mockAuthz.On("Can", ctx, adminID, "analytics:read").Return(true, nil)
		mockRepo.On("ListAll", ctx).Return(wardIssues(), nil)

		report, err := svc.WardAnalytics(ctx, adminID, "Ward 12")

		require.NoError(t, err)
		assert.Equal(t, "Ward 12", report.Ward)
		assert.Equal(t, 2, report.TotalIssues)
		assert.Equal(t, 1, report.ResolvedIssues)
		assert.Equal(t, 50, report.ResolutionRate)
	})

	t.Run("forbidden without analytics permission", func(t *testing.T) {
		mockRepo := mocks.NewMockIssueRepository()
		mockUsers := mocks.NewMockUserRepository()
		mockAuthz := mocks.NewMockAuthorizationService()
		svc := services.NewAnalyticsService(mockRepo, mockUsers, mockAuthz)

		citizenID := uuid.New()
		mockAuthz.On("Can", ctx, citizenID, "analytics:read").Return(false, nil)

		report, err := svc.WardAnalytics(ctx, citizenID, "Ward 12")

		assert.Nil(t, report)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		mockRepo.AssertNotCalled(t, "ListAll")
	})
}

func TestAnalyticsService_Hotspots(t *testing.T) {
	ctx := context.Background()
	adminID := uuid.New()

	t.Run("clusters nearby issues", func(t *testing.T) {
		mockRepo := mocks.NewMockIssueRepository()
		mockUsers := mocks.NewMockUserRepository()
		mockAuthz := mocks.NewMockAuthorizationService()
		svc := services.NewAnalyticsService(mockRepo, mockUsers, mockAuthz)

		issues := make([]*domain.Issue, 4)
		for i := range issues {
			issues[i] = &domain.Issue{
				ID:          uuid.New(),
				Title:       "Pothole",
				Category:    domain.CategoryPothole,
				Status:      domain.StatusOpen,
				Priority:    domain.PriorityMedium,
				Ward:        "Ward 3",
				ReporterID:  uuid.New(),
				CreatedAt:   time.Now().UTC(),
				Coordinates: domain.Coordinates{Lat: 12.97 + float64(i)*0.0005, Lng: 77.59},
			}
		}

		mockAuthz.On("Can", ctx, adminID, "analytics:read").Return(true, nil)
		mockRepo.On("ListAll", ctx).Return(issues, nil)

		hotspots, err := svc.Hotspots(ctx, adminID, 0.5)

		require.NoError(t, err)
		require.Len(t, hotspots, 1)
		assert.Equal(t, 4, hotspots[0].IssueCount)
	})

	t.Run("forbidden without analytics permission", func(t *testing.T) {
		mockRepo := mocks.NewMockIssueRepository()
		mockUsers := mocks.NewMockUserRepository()
		mockAuthz := mocks.NewMockAuthorizationService()
		svc := services.NewAnalyticsService(mockRepo, mockUsers, mockAuthz)

		citizenID := uuid.New()
		mockAuthz.On("Can", ctx, citizenID, "analytics:read").Return(false, nil)

		hotspots, err := svc.Hotspots(ctx, citizenID, 0.5)

		assert.Nil(t, hotspots)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}

func TestAnalyticsService_ImpactReport(t *testing.T) {
	ctx := context.Background()
	adminID := uuid.New()

	t.Run("composes the full report", func(t *testing.T) {
		mockRepo := mocks.NewMockIssueRepository()
		mockUsers := mocks.NewMockUserRepository()
		mockAuthz := mocks.NewMockAuthorizationService()
		svc := services.NewAnalyticsService(mockRepo, mockUsers, mockAuthz)

		issues := []*domain.Issue{
			{
				ID:         uuid.New(),
				Title:      "Water leak",
				Category:   domain.CategoryWaterLeak,
				Status:     domain.StatusOpen,
				Priority:   domain.PriorityHigh,
				Ward:       "Ward 12",
				ReporterID: uuid.New(),
				CreatedAt:  time.Now().UTC().Add(-48 * time.Hour),
			},
		}

		mockAuthz.On("Can", ctx, adminID, "analytics:read").Return(true, nil)
		mockRepo.On("ListAll", ctx).Return(issues, nil)

		report, err := svc.ImpactReport(ctx, adminID, []string{"Ward 12", "Ward 7"}, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, report.Summary.TotalIssues)
		assert.Len(t, report.Wards, 2)
		assert.Len(t, report.Categories, 1)
	})
}

func TestAnalyticsService_PublicStats(t *testing.T) {
	ctx := context.Background()

	t.Run("needs no authorization", func(t *testing.T) {
		mockRepo := mocks.NewMockIssueRepository()
		mockUsers := mocks.NewMockUserRepository()
		mockAuthz := mocks.NewMockAuthorizationService()
		svc := services.NewAnalyticsService(mockRepo, mockUsers, mockAuthz)

		mockRepo.On("ListAll", ctx).Return([]*domain.Issue{}, nil)
		mockUsers.On("CountActive", ctx).Return(37, nil)

		stats, err := svc.PublicStats(ctx)

		require.NoError(t, err)
		assert.Equal(t, 37, stats.ActiveUsers)
		assert.Equal(t, 0, stats.TotalIssues)
		mockAuthz.AssertNotCalled(t, "Can")
	})
}
