// Package memory provides in-memory implementations of the repository
// ports. They back the memory storage driver and the handler tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
	apperrors "github.com/civicgrid/civic-issues-backend/internal/core/errors"
	"github.com/civicgrid/civic-issues-backend/internal/core/ports"
)

// IssueStore is a thread-safe in-memory issue repository.
type IssueStore struct {
	mu     sync.RWMutex
	issues map[uuid.UUID]*domain.Issue
}

var _ ports.IssueRepository = (*IssueStore)(nil)

// NewIssueStore creates an empty issue store.
func NewIssueStore() *IssueStore {
	return &IssueStore{
		issues: make(map[uuid.UUID]*domain.Issue),
	}
}

// Ping reports readiness. The in-memory store is always ready; this
// exists so the health handler can treat both storage drivers alike.
func (s *IssueStore) Ping(ctx context.Context) error {
	return nil
}

// Create stores a new issue.
func (s *IssueStore) Create(ctx context.Context, issue *domain.Issue) (*domain.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := cloneIssue(issue)
	s.issues[cp.ID] = cp
	return cloneIssue(cp), nil
}

// GetByID fetches one issue.
func (s *IssueStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	issue, ok := s.issues[id]
	if !ok {
		return nil, apperrors.ErrIssueNotFound
	}
	return cloneIssue(issue), nil
}

// Update replaces a stored issue.
func (s *IssueStore) Update(ctx context.Context, issue *domain.Issue) (*domain.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.issues[issue.ID]; !ok {
		return nil, apperrors.ErrIssueNotFound
	}

	cp := cloneIssue(issue)
	s.issues[cp.ID] = cp
	return cloneIssue(cp), nil
}

// ListPaginated returns a filtered page of issues, newest first.
func (s *IssueStore) ListPaginated(ctx context.Context, params ports.ListIssuesRepoParams) ([]*domain.Issue, error) {
	return s.list(params, nil)
}

// ListByReporterPaginated scopes the page to one reporter.
func (s *IssueStore) ListByReporterPaginated(ctx context.Context, reporterID uuid.UUID, params ports.ListIssuesRepoParams) ([]*domain.Issue, error) {
	return s.list(params, &reporterID)
}

// ListAll returns every issue. The analytics engine works from this
// full snapshot.
func (s *IssueStore) ListAll(ctx context.Context) ([]*domain.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Issue, 0, len(s.issues))
	for _, issue := range s.issues {
		result = append(result, cloneIssue(issue))
	}

	// Stable order for deterministic reports
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (s *IssueStore) list(params ports.ListIssuesRepoParams, reporterID *uuid.UUID) ([]*domain.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.Issue, 0)
	for _, issue := range s.issues {
		if reporterID != nil && issue.ReporterID != *reporterID {
			continue
		}
		if params.Status != nil && string(issue.Status) != *params.Status {
			continue
		}
		if params.Category != nil && string(issue.Category) != *params.Category {
			continue
		}
		if params.Ward != nil && issue.Ward != *params.Ward {
			continue
		}
		matched = append(matched, issue)
	}

	// Newest first, matching the SQL ORDER BY
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	offset := int(params.Offset)
	if offset >= len(matched) {
		return []*domain.Issue{}, nil
	}
	matched = matched[offset:]

	limit := int(params.Limit)
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}

	result := make([]*domain.Issue, 0, len(matched))
	for _, issue := range matched {
		result = append(result, cloneIssue(issue))
	}
	return result, nil
}

func cloneIssue(issue *domain.Issue) *domain.Issue {
	cp := *issue
	if issue.AssigneeID != nil {
		id := *issue.AssigneeID
		cp.AssigneeID = &id
	}
	if issue.UpdatedAt != nil {
		t := *issue.UpdatedAt
		cp.UpdatedAt = &t
	}
	if issue.ResolvedAt != nil {
		t := *issue.ResolvedAt
		cp.ResolvedAt = &t
	}
	return &cp
}
