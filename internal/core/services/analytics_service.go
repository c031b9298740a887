package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/civicgrid/civic-issues-backend/internal/core/analytics"
	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
	apperrors "github.com/civicgrid/civic-issues-backend/internal/core/errors"
	"github.com/civicgrid/civic-issues-backend/internal/core/ports"
)

// AnalyticsService bridges the repositories and the pure analytics engine.
// It fetches the full issue snapshot and hands it to the engine; nothing is
// cached between calls, so every report reflects the current data.
type AnalyticsService struct {
	issueRepo ports.IssueRepository
	userRepo  ports.UserRepository
	authzSvc  ports.AuthorizationService
	now       func() time.Time
}

var _ ports.AnalyticsService = (*AnalyticsService)(nil)

// NewAnalyticsService creates a new analytics service.
func NewAnalyticsService(
	issueRepo ports.IssueRepository,
	userRepo ports.UserRepository,
	authzSvc ports.AuthorizationService,
) *AnalyticsService {
	return &AnalyticsService{
		issueRepo: issueRepo,
		userRepo:  userRepo,
		authzSvc:  authzSvc,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WardAnalytics computes the rollup for a single ward.
func (s *AnalyticsService) WardAnalytics(ctx context.Context, actorID uuid.UUID, ward string) (*domain.WardAnalytics, error) {
	if err := s.requireAnalyticsRead(ctx, actorID); err != nil {
		return nil, err
	}

	issues, err := s.issueRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	report := analytics.WardReport(issues, ward)
	return &report, nil
}

// Hotspots computes geographic clusters at the given radius (km).
func (s *AnalyticsService) Hotspots(ctx context.Context, actorID uuid.UUID, radiusKm float64) ([]domain.IssueHotspot, error) {
	if err := s.requireAnalyticsRead(ctx, actorID); err != nil {
		return nil, err
	}

	issues, err := s.issueRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	return analytics.Hotspots(issues, radiusKm), nil
}

// ImpactReport composes the full internal report for the supplied ward
// universe and optional date range.
func (s *AnalyticsService) ImpactReport(ctx context.Context, actorID uuid.UUID, wards []string, rng *domain.DateRange) (*domain.ImpactReport, error) {
	if err := s.requireAnalyticsRead(ctx, actorID); err != nil {
		return nil, err
	}

	issues, err := s.issueRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	report := analytics.ImpactReport(issues, wards, rng, s.now())
	return &report, nil
}

// PublicStats composes the anonymized public view. No authorization: this
// is the externally shareable surface.
func (s *AnalyticsService) PublicStats(ctx context.Context) (*domain.PublicStats, error) {
	issues, err := s.issueRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	activeUsers, err := s.userRepo.CountActive(ctx)
	if err != nil {
		return nil, err
	}

	stats := analytics.PublicStats(issues, activeUsers, s.now())
	return &stats, nil
}

func (s *AnalyticsService) requireAnalyticsRead(ctx context.Context, actorID uuid.UUID) error {
	canRead, err := s.authzSvc.Can(ctx, actorID, "analytics:read")
	if err != nil {
		return err
	}
	if !canRead {
		return apperrors.ErrForbidden
	}
	return nil
}
