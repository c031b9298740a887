package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
	apperrors "github.com/civicgrid/civic-issues-backend/internal/core/errors"
	"github.com/civicgrid/civic-issues-backend/internal/core/ports"
)

// IssueService implements business logic for issue management
type IssueService struct {
	issueRepo   ports.IssueRepository
	authzSvc    ports.AuthorizationService
	categorizer ports.Categorizer
	notifier    ports.Notifier
	broadcaster ports.EventBroadcaster
	wg          sync.WaitGroup
}

var _ ports.IssueService = (*IssueService)(nil)

// NewIssueService creates a new issue service
func NewIssueService(
	issueRepo ports.IssueRepository,
	authzSvc ports.AuthorizationService,
	categorizer ports.Categorizer,
	notifier ports.Notifier,
	broadcaster ports.EventBroadcaster,
) ports.IssueService {
	return &IssueService{
		issueRepo:   issueRepo,
		authzSvc:    authzSvc,
		categorizer: categorizer,
		notifier:    notifier,
		broadcaster: broadcaster,
	}
}

// CreateIssue handles the use case for reporting a new issue
func (s *IssueService) CreateIssue(ctx context.Context, params ports.CreateIssueParams) (*domain.Issue, error) {
	// 1. Authorization check
	canCreate, err := s.authzSvc.Can(ctx, params.ReporterID, "issues:create")
	if err != nil {
		return nil, err
	}
	if !canCreate {
		return nil, apperrors.ErrForbidden
	}

	// 2. Ask the categorizer when the reporter left the category blank
	category := params.Category
	if category == "" {
		category = s.categorizer.Categorize(ctx, params.Title, params.Description)
	}

	// 3. Create domain entity with validation
	issueParams := domain.IssueParams{
		Title:       params.Title,
		Description: params.Description,
		Category:    category,
		Priority:    params.Priority,
		Coordinates: params.Coordinates,
		Location:    params.Location,
		Ward:        params.Ward,
		ReporterID:  params.ReporterID,
	}

	issue, err := domain.NewIssue(issueParams)
	if err != nil {
		return nil, err // Validation errors are returned here
	}

	// 4. Persist the issue
	created, err := s.issueRepo.Create(ctx, issue)
	if err != nil {
		return nil, err
	}

	// 5. Broadcast real-time event (async)
	go s.broadcastEvent(domain.EventIssueCreated, created)

	return created, nil
}

// GetIssue retrieves a specific issue with authorization
func (s *IssueService) GetIssue(ctx context.Context, issueID uuid.UUID, viewerID uuid.UUID) (*domain.Issue, error) {
	canRead, err := s.authzSvc.Can(ctx, viewerID, "issues:read")
	if err != nil {
		return nil, err
	}
	if !canRead {
		return nil, apperrors.ErrForbidden
	}

	issue, err := s.issueRepo.GetByID(ctx, issueID)
	if err != nil {
		return nil, err
	}

	// Reporters and assignees always see their own issues; everyone else
	// needs the elevated read permission.
	if !issue.IsReportedBy(viewerID) && !issue.IsAssignedTo(viewerID) {
		canReadAll, _ := s.authzSvc.Can(ctx, viewerID, "issues:read:all")
		if !canReadAll {
			return nil, apperrors.ErrForbidden
		}
	}

	return issue, nil
}

// UpdateStatus changes an issue's status with business rule enforcement
func (s *IssueService) UpdateStatus(ctx context.Context, params ports.UpdateStatusParams) (*domain.Issue, error) {
	// 1. Authorization check
	canUpdate, err := s.authzSvc.Can(ctx, params.ActorID, "issues:update:status")
	if err != nil {
		return nil, err
	}
	if !canUpdate {
		return nil, apperrors.ErrForbidden
	}

	// 2. Fetch and update domain entity
	issue, err := s.issueRepo.GetByID(ctx, params.IssueID)
	if err != nil {
		return nil, err
	}

	// 3. Apply status change (domain validates the transition)
	if err := issue.UpdateStatus(params.Status); err != nil {
		return nil, err
	}

	// 4. Persist changes
	updated, err := s.issueRepo.Update(ctx, issue)
	if err != nil {
		return nil, err
	}

	// 5. Notify the reporter (async, in background context)
	if issue.ReporterID != params.ActorID {
		s.notifyStatusUpdate(issue, params.Status)
	}

	// 6. Broadcast real-time event (async)
	go s.broadcastEvent(domain.EventStatusUpdated, updated)

	return updated, nil
}

// AssignIssue assigns an issue to a municipal worker
func (s *IssueService) AssignIssue(ctx context.Context, params ports.AssignIssueParams) (*domain.Issue, error) {
	canAssign, err := s.authzSvc.Can(ctx, params.ActorID, "issues:assign")
	if err != nil {
		return nil, err
	}
	if !canAssign {
		return nil, apperrors.ErrForbidden
	}

	issue, err := s.issueRepo.GetByID(ctx, params.IssueID)
	if err != nil {
		return nil, err
	}

	if err := issue.Assign(params.AssigneeID); err != nil {
		return nil, err
	}

	updated, err := s.issueRepo.Update(ctx, issue)
	if err != nil {
		return nil, err
	}

	go s.broadcastEvent(domain.EventIssueAssigned, updated)

	return updated, nil
}

// UpvoteIssue increments the community upvote counter.
func (s *IssueService) UpvoteIssue(ctx context.Context, issueID uuid.UUID, actorID uuid.UUID) (*domain.Issue, error) {
	canUpvote, err := s.authzSvc.Can(ctx, actorID, "issues:upvote")
	if err != nil {
		return nil, err
	}
	if !canUpvote {
		return nil, apperrors.ErrForbidden
	}

	issue, err := s.issueRepo.GetByID(ctx, issueID)
	if err != nil {
		return nil, err
	}

	issue.Upvote()

	return s.issueRepo.Update(ctx, issue)
}

// ListIssues retrieves issues based on user permissions
func (s *IssueService) ListIssues(ctx context.Context, params ports.ListIssuesParams) ([]*domain.Issue, error) {
	canListAll, err := s.authzSvc.Can(ctx, params.ViewerID, "issues:list:all")
	if err != nil {
		return nil, err
	}

	// Fetch one extra row so the handler can tell whether more pages exist.
	fetchLimit := params.Limit + 1

	repoParams := ports.ListIssuesRepoParams{
		Limit:    int32(fetchLimit),
		Offset:   int32(params.Offset),
		Status:   params.Status,
		Category: params.Category,
		Ward:     params.Ward,
	}

	if canListAll {
		return s.issueRepo.ListPaginated(ctx, repoParams)
	}

	// Default: scope the query to the requesting user's own reports
	return s.issueRepo.ListByReporterPaginated(ctx, params.ViewerID, repoParams)
}

// notifyStatusUpdate sends a notification to the reporter for status changes
func (s *IssueService) notifyStatusUpdate(issue *domain.Issue, status domain.IssueStatus) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Use background context since the HTTP request may be done
		ctx := context.Background()

		s.notifier.Notify(ctx, ports.NotificationParams{
			RecipientUserID: issue.ReporterID,
			Subject:         fmt.Sprintf("Your issue report was updated: %s", issue.Title),
			Message:         fmt.Sprintf("The status of your report '%s' changed to %s.", issue.Title, status),
			IssueID:         issue.ID,
		})
	}()
}

// broadcastEvent sends a real-time event to subscribers of the issue's ward
func (s *IssueService) broadcastEvent(eventType domain.EventType, issue *domain.Issue) {
	event := domain.Event{
		Type:    eventType,
		Payload: issue,
		IssueID: issue.ID,
		Ward:    issue.Ward,
	}
	_ = s.broadcaster.Broadcast(event)
}

func (s *IssueService) Shutdown() {
	s.wg.Wait()
}
