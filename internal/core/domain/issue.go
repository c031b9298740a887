package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Pre-defined errors for domain-specific validation.
var (
	ErrTitleRequired           = errors.New("title is required")
	ErrInvalidCategory         = errors.New("invalid issue category")
	ErrInvalidCoordinates      = errors.New("coordinates out of range")
	ErrReporterRequired        = errors.New("reporter ID is required")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrCannotAssignClosed      = errors.New("cannot assign a closed issue")
)

// IssueCategory classifies the kind of civic problem being reported.
type IssueCategory string

const (
	CategoryPothole     IssueCategory = "pothole"
	CategoryStreetlight IssueCategory = "streetlight"
	CategoryGarbage     IssueCategory = "garbage"
	CategoryWaterLeak   IssueCategory = "water_leak"
	CategoryRoad        IssueCategory = "road"
	CategorySanitation  IssueCategory = "sanitation"
	CategoryDrainage    IssueCategory = "drainage"
	CategoryElectricity IssueCategory = "electricity"
	CategoryTraffic     IssueCategory = "traffic"
	CategoryOther       IssueCategory = "other"
)

// Categories lists every valid issue category.
var Categories = []IssueCategory{
	CategoryPothole,
	CategoryStreetlight,
	CategoryGarbage,
	CategoryWaterLeak,
	CategoryRoad,
	CategorySanitation,
	CategoryDrainage,
	CategoryElectricity,
	CategoryTraffic,
	CategoryOther,
}

// IsValidCategory reports whether s is a known issue category.
func IsValidCategory(s string) bool {
	for _, c := range Categories {
		if string(c) == s {
			return true
		}
	}
	return false
}

// IssueStatus represents the possible states of an issue.
type IssueStatus string

const (
	StatusOpen       IssueStatus = "open"
	StatusInProgress IssueStatus = "in-progress"
	StatusResolved   IssueStatus = "resolved"
	StatusClosed     IssueStatus = "closed"
)

// IssuePriority represents the urgency of an issue.
type IssuePriority string

const (
	PriorityLow      IssuePriority = "low"
	PriorityMedium   IssuePriority = "medium"
	PriorityHigh     IssuePriority = "high"
	PriorityCritical IssuePriority = "critical"
)

// Coordinates is a WGS84 latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Issue is the core domain entity: a citizen-reported civic problem.
type Issue struct {
	ID          uuid.UUID
	Title       string
	Description string
	Category    IssueCategory
	Status      IssueStatus
	Priority    IssuePriority
	Coordinates Coordinates
	Location    string
	Ward        string // empty = unassigned
	ReporterID  uuid.UUID
	AssigneeID  *uuid.UUID
	Upvotes     int
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	ResolvedAt  *time.Time
}

// IssueParams holds validated input for creating a new issue.
type IssueParams struct {
	Title       string
	Description string
	Category    IssueCategory
	Priority    IssuePriority
	Coordinates Coordinates
	Location    string
	Ward        string
	ReporterID  uuid.UUID
}

// NewIssue is a factory function to create a valid new issue.
func NewIssue(params IssueParams) (*Issue, error) {
	if params.Title == "" {
		return nil, ErrTitleRequired
	}
	if !IsValidCategory(string(params.Category)) {
		return nil, ErrInvalidCategory
	}
	if params.Coordinates.Lat < -90 || params.Coordinates.Lat > 90 ||
		params.Coordinates.Lng < -180 || params.Coordinates.Lng > 180 {
		return nil, ErrInvalidCoordinates
	}
	if params.ReporterID == uuid.Nil {
		return nil, ErrReporterRequired
	}

	priority := params.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	return &Issue{
		ID:          uuid.New(),
		Title:       params.Title,
		Description: params.Description,
		Category:    params.Category,
		Status:      StatusOpen, // Default status
		Priority:    priority,
		Coordinates: params.Coordinates,
		Location:    params.Location,
		Ward:        params.Ward,
		ReporterID:  params.ReporterID,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// UpdateStatus changes the issue's status, enforcing business rules.
// Entering the resolved state stamps ResolvedAt.
func (i *Issue) UpdateStatus(newStatus IssueStatus) error {
	// Defines the valid state transitions.
	validTransitions := map[IssueStatus][]IssueStatus{
		StatusOpen:       {StatusInProgress, StatusResolved, StatusClosed},
		StatusInProgress: {StatusOpen, StatusResolved, StatusClosed},
		StatusResolved:   {StatusInProgress, StatusClosed},
		StatusClosed:     {}, // Cannot transition from closed
	}

	allowed, ok := validTransitions[i.Status]
	if !ok {
		return ErrInvalidStatusTransition
	}

	for _, s := range allowed {
		if s == newStatus {
			i.Status = newStatus
			now := time.Now().UTC()
			i.UpdatedAt = &now
			if newStatus == StatusResolved {
				i.ResolvedAt = &now
			}
			return nil
		}
	}

	return ErrInvalidStatusTransition
}

// Assign sets or changes the assignee of the issue.
func (i *Issue) Assign(assigneeID uuid.UUID) error {
	// Business rule: you cannot assign a closed issue.
	if i.Status == StatusClosed {
		return ErrCannotAssignClosed
	}
	i.AssigneeID = &assigneeID
	now := time.Now().UTC()
	i.UpdatedAt = &now
	return nil
}

// Upvote increments the community upvote counter.
func (i *Issue) Upvote() {
	i.Upvotes++
}

// IsReportedBy reports whether the given user submitted this issue.
func (i *Issue) IsReportedBy(userID uuid.UUID) bool {
	return i.ReporterID == userID
}

// IsAssignedTo reports whether the issue is assigned to the given user.
func (i *Issue) IsAssignedTo(userID uuid.UUID) bool {
	return i.AssigneeID != nil && *i.AssigneeID == userID
}
