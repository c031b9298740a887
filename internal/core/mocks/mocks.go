// Package mocks provides testify-based mocks for the core ports.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
	"github.com/civicgrid/civic-issues-backend/internal/core/ports"
)

// MockIssueRepository mocks ports.IssueRepository.
type MockIssueRepository struct {
	mock.Mock
}

var _ ports.IssueRepository = (*MockIssueRepository)(nil)

func NewMockIssueRepository() *MockIssueRepository {
	return &MockIssueRepository{}
}

func (m *MockIssueRepository) Create(ctx context.Context, issue *domain.Issue) (*domain.Issue, error) {
	args := m.Called(ctx, issue)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Issue), args.Error(1)
}

func (m *MockIssueRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Issue, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Issue), args.Error(1)
}

func (m *MockIssueRepository) Update(ctx context.Context, issue *domain.Issue) (*domain.Issue, error) {
	args := m.Called(ctx, issue)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Issue), args.Error(1)
}

func (m *MockIssueRepository) ListPaginated(ctx context.Context, params ports.ListIssuesRepoParams) ([]*domain.Issue, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Issue), args.Error(1)
}

func (m *MockIssueRepository) ListByReporterPaginated(ctx context.Context, reporterID uuid.UUID, params ports.ListIssuesRepoParams) ([]*domain.Issue, error) {
	args := m.Called(ctx, reporterID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Issue), args.Error(1)
}

func (m *MockIssueRepository) ListAll(ctx context.Context) ([]*domain.Issue, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Issue), args.Error(1)
}

// MockUserRepository mocks ports.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

var _ ports.UserRepository = (*MockUserRepository)(nil)

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) CountActive(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockAuthorizationService mocks ports.AuthorizationService.
type MockAuthorizationService struct {
	mock.Mock
}

var _ ports.AuthorizationService = (*MockAuthorizationService)(nil)

func NewMockAuthorizationService() *MockAuthorizationService {
	return &MockAuthorizationService{}
}

func (m *MockAuthorizationService) Can(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	args := m.Called(ctx, userID, permission)
	return args.Bool(0), args.Error(1)
}

// MockNotifier mocks ports.Notifier.
type MockNotifier struct {
	mock.Mock
}

var _ ports.Notifier = (*MockNotifier)(nil)

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	m.Called(ctx, params)
}

// MockEventBroadcaster mocks ports.EventBroadcaster.
type MockEventBroadcaster struct {
	mock.Mock
}

var _ ports.EventBroadcaster = (*MockEventBroadcaster)(nil)

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockAnalyticsService mocks ports.AnalyticsService.
type MockAnalyticsService struct {
	mock.Mock
}

var _ ports.AnalyticsService = (*MockAnalyticsService)(nil)

func NewMockAnalyticsService() *MockAnalyticsService {
	return &MockAnalyticsService{}
}

func (m *MockAnalyticsService) WardAnalytics(ctx context.Context, actorID uuid.UUID, ward string) (*domain.WardAnalytics, error) {
	args := m.Called(ctx, actorID, ward)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WardAnalytics), args.Error(1)
}

func (m *MockAnalyticsService) Hotspots(ctx context.Context, actorID uuid.UUID, radiusKm float64) ([]domain.IssueHotspot, error) {
	args := m.Called(ctx, actorID, radiusKm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.IssueHotspot), args.Error(1)
}

func (m *MockAnalyticsService) ImpactReport(ctx context.Context, actorID uuid.UUID, wards []string, rng *domain.DateRange) (*domain.ImpactReport, error) {
	args := m.Called(ctx, actorID, wards, rng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImpactReport), args.Error(1)
}

func (m *MockAnalyticsService) PublicStats(ctx context.Context) (*domain.PublicStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PublicStats), args.Error(1)
}

// MockCategorizer mocks ports.Categorizer.
type MockCategorizer struct {
	mock.Mock
}

var _ ports.Categorizer = (*MockCategorizer)(nil)

func NewMockCategorizer() *MockCategorizer {
	return &MockCategorizer{}
}

func (m *MockCategorizer) Categorize(ctx context.Context, title, description string) domain.IssueCategory {
	args := m.Called(ctx, title, description)
	return args.Get(0).(domain.IssueCategory)
}

// MockTokenStore mocks ports.TokenStore.
type MockTokenStore struct {
	mock.Mock
}

var _ ports.TokenStore = (*MockTokenStore)(nil)

func NewMockTokenStore() *MockTokenStore {
	return &MockTokenStore{}
}

func (m *MockTokenStore) Save(ctx context.Context, token string, userID uuid.UUID, expiresAt time.Time) error {
	args := m.Called(ctx, token, userID, expiresAt)
	return args.Error(0)
}

func (m *MockTokenStore) Get(ctx context.Context, token string) (uuid.UUID, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockTokenStore) Delete(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockTokenStore) Sweep(now time.Time) int {
	args := m.Called(now)
	return args.Int(0)
}
