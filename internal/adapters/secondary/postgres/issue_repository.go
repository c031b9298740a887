// Package postgres implements the repository ports on a pgx connection
// pool. Queries are written directly against the schema in migrations/.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
	apperrors "github.com/civicgrid/civic-issues-backend/internal/core/errors"
	"github.com/civicgrid/civic-issues-backend/internal/core/ports"
)

const issueColumns = `
	id, title, description, category, status, priority,
	latitude, longitude, location, ward,
	reporter_id, assignee_id, upvotes,
	created_at, updated_at, resolved_at`

type IssueRepository struct {
	pool *pgxpool.Pool
}

var _ ports.IssueRepository = (*IssueRepository)(nil)

func NewIssueRepository(pool *pgxpool.Pool) ports.IssueRepository {
	return &IssueRepository{pool: pool}
}

func (r *IssueRepository) Create(ctx context.Context, issue *domain.Issue) (*domain.Issue, error) {
	query := `
INSERT INTO issues (
	id, title, description, category, status, priority,
	latitude, longitude, location, ward,
	reporter_id, assignee_id, upvotes,
	created_at, updated_at, resolved_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
RETURNING ` + issueColumns

	row := GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		pgtype.UUID{Bytes: issue.ID, Valid: true},
		issue.Title,
		issue.Description,
		string(issue.Category),
		string(issue.Status),
		string(issue.Priority),
		issue.Coordinates.Lat,
		issue.Coordinates.Lng,
		issue.Location,
		issue.Ward,
		pgtype.UUID{Bytes: issue.ReporterID, Valid: true},
		uuidPtrToPg(issue.AssigneeID),
		issue.Upvotes,
		issue.CreatedAt,
		timePtrToPg(issue.UpdatedAt),
		timePtrToPg(issue.ResolvedAt),
	)

	created, err := scanIssue(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}
	return created, nil
}

func (r *IssueRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues WHERE id = $1`

	row := GetDBTX(ctx, r.pool).QueryRow(ctx, query, pgtype.UUID{Bytes: id, Valid: true})
	issue, err := scanIssue(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrIssueNotFound
		}
		return nil, fmt.Errorf("failed to get issue: %w", err)
	}
	return issue, nil
}

func (r *IssueRepository) Update(ctx context.Context, issue *domain.Issue) (*domain.Issue, error) {
	query := `
UPDATE issues SET
	title = $2, description = $3, category = $4, status = $5, priority = $6,
	latitude = $7, longitude = $8, location = $9, ward = $10,
	assignee_id = $11, upvotes = $12, updated_at = $13, resolved_at = $14
WHERE id = $1
RETURNING ` + issueColumns

	row := GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		pgtype.UUID{Bytes: issue.ID, Valid: true},
		issue.Title,
		issue.Description,
		string(issue.Category),
		string(issue.Status),
		string(issue.Priority),
		issue.Coordinates.Lat,
		issue.Coordinates.Lng,
		issue.Location,
		issue.Ward,
		uuidPtrToPg(issue.AssigneeID),
		issue.Upvotes,
		timePtrToPg(issue.UpdatedAt),
		timePtrToPg(issue.ResolvedAt),
	)

	updated, err := scanIssue(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrIssueNotFound
		}
		return nil, fmt.Errorf("failed to update issue: %w", err)
	}
	return updated, nil
}

func (r *IssueRepository) ListPaginated(ctx context.Context, params ports.ListIssuesRepoParams) ([]*domain.Issue, error) {
	query := `
SELECT ` + issueColumns + `
FROM issues
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::text IS NULL OR category = $2)
  AND ($3::text IS NULL OR ward = $3)
ORDER BY created_at DESC, id
LIMIT $4 OFFSET $5`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query,
		params.Status, params.Category, params.Ward, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	defer rows.Close()

	return collectIssues(rows)
}

func (r *IssueRepository) ListByReporterPaginated(ctx context.Context, reporterID uuid.UUID, params ports.ListIssuesRepoParams) ([]*domain.Issue, error) {
	query := `
SELECT ` + issueColumns + `
FROM issues
WHERE reporter_id = $1
  AND ($2::text IS NULL OR status = $2)
  AND ($3::text IS NULL OR category = $3)
  AND ($4::text IS NULL OR ward = $4)
ORDER BY created_at DESC, id
LIMIT $5 OFFSET $6`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query,
		pgtype.UUID{Bytes: reporterID, Valid: true},
		params.Status, params.Category, params.Ward, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues by reporter: %w", err)
	}
	defer rows.Close()

	return collectIssues(rows)
}

func (r *IssueRepository) ListAll(ctx context.Context) ([]*domain.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues ORDER BY created_at, id`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list all issues: %w", err)
	}
	defer rows.Close()

	return collectIssues(rows)
}

func collectIssues(rows pgx.Rows) ([]*domain.Issue, error) {
	issues := make([]*domain.Issue, 0)
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue row: %w", err)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return issues, nil
}

func scanIssue(row pgx.Row) (*domain.Issue, error) {
	var (
		id         pgtype.UUID
		category   string
		status     string
		priority   string
		reporterID pgtype.UUID
		assigneeID pgtype.UUID
		updatedAt  pgtype.Timestamptz
		resolvedAt pgtype.Timestamptz
		issue      domain.Issue
	)

	err := row.Scan(
		&id,
		&issue.Title,
		&issue.Description,
		&category,
		&status,
		&priority,
		&issue.Coordinates.Lat,
		&issue.Coordinates.Lng,
		&issue.Location,
		&issue.Ward,
		&reporterID,
		&assigneeID,
		&issue.Upvotes,
		&issue.CreatedAt,
		&updatedAt,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	issue.ID = uuid.UUID(id.Bytes)
	issue.Category = domain.IssueCategory(category)
	issue.Status = domain.IssueStatus(status)
	issue.Priority = domain.IssuePriority(priority)
	issue.ReporterID = uuid.UUID(reporterID.Bytes)
	issue.AssigneeID = pgToUUIDPtr(assigneeID)
	issue.UpdatedAt = pgToTimePtr(updatedAt)
	issue.ResolvedAt = pgToTimePtr(resolvedAt)

	return &issue, nil
}
