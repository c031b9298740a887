package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
)

// AuthService defines the port for authentication business logic.
type AuthService interface {
	Register(ctx context.Context, fullName, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
	IssueRefreshToken(ctx context.Context, userID uuid.UUID) (string, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.User, error)
	RevokeRefreshToken(ctx context.Context, refreshToken string) error
}

// AuthorizationService defines the port for checking user permissions.
type AuthorizationService interface {
	Can(ctx context.Context, userID uuid.UUID, permission string) (bool, error)
}

// CreateIssueParams defines the required input for reporting a new issue.
// Category may be left empty; the service will ask the categorizer for a
// suggestion based on title and description.
type CreateIssueParams struct {
	Title       string
	Description string
	Category    domain.IssueCategory
	Priority    domain.IssuePriority
	Coordinates domain.Coordinates
	Location    string
	Ward        string
	ReporterID  uuid.UUID
}

// UpdateStatusParams defines the input for changing an issue's status.
type UpdateStatusParams struct {
	IssueID uuid.UUID
	Status  domain.IssueStatus
	ActorID uuid.UUID
}

// AssignIssueParams defines the input for assigning an issue.
type AssignIssueParams struct {
	IssueID    uuid.UUID
	AssigneeID uuid.UUID
	ActorID    uuid.UUID
}

// ListIssuesParams defines the input for listing issues.
type ListIssuesParams struct {
	ViewerID uuid.UUID
	Limit    int
	Offset   int
	Status   *string
	Category *string
	Ward     *string
}

// NotificationParams defines the input for sending a notification.
type NotificationParams struct {
	RecipientUserID uuid.UUID
	Subject         string
	Message         string
	IssueID         uuid.UUID
}

// IssueService defines the core business operations for managing issues.
type IssueService interface {
	CreateIssue(ctx context.Context, params CreateIssueParams) (*domain.Issue, error)
	GetIssue(ctx context.Context, issueID uuid.UUID, viewerID uuid.UUID) (*domain.Issue, error)
	UpdateStatus(ctx context.Context, params UpdateStatusParams) (*domain.Issue, error)
	AssignIssue(ctx context.Context, params AssignIssueParams) (*domain.Issue, error)
	UpvoteIssue(ctx context.Context, issueID uuid.UUID, actorID uuid.UUID) (*domain.Issue, error)
	ListIssues(ctx context.Context, params ListIssuesParams) ([]*domain.Issue, error)
	Shutdown()
}

// AnalyticsService defines the reporting operations built on the pure
// analytics engine. Every call recomputes from the current issue snapshot.
type AnalyticsService interface {
	WardAnalytics(ctx context.Context, actorID uuid.UUID, ward string) (*domain.WardAnalytics, error)
	Hotspots(ctx context.Context, actorID uuid.UUID, radiusKm float64) ([]domain.IssueHotspot, error)
	ImpactReport(ctx context.Context, actorID uuid.UUID, wards []string, rng *domain.DateRange) (*domain.ImpactReport, error)
	PublicStats(ctx context.Context) (*domain.PublicStats, error)
}

// Categorizer defines the port for suggesting an issue category from free
// text. Implementations must always return a usable category; transport or
// model failures fall back to a heuristic.
type Categorizer interface {
	Categorize(ctx context.Context, title, description string) domain.IssueCategory
}

// Notifier defines the port for sending asynchronous notifications.
type Notifier interface {
	Notify(ctx context.Context, params NotificationParams)
}

// EventBroadcaster defines the port for real-time event fan-out.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}
