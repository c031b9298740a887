package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
	apperrors "github.com/civicgrid/civic-issues-backend/internal/core/errors"
	"github.com/civicgrid/civic-issues-backend/internal/core/ports"
)

const userColumns = `
	id, full_name, email, hashed_password, role, is_active, created_at, last_active_at`

// uniqueViolation is the postgres error code for unique constraint failures.
const uniqueViolation = "23505"

type UserRepository struct {
	pool *pgxpool.Pool
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(pool *pgxpool.Pool) ports.UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
INSERT INTO users (id, full_name, email, hashed_password, role, is_active, created_at, last_active_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + userColumns

	row := GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		pgtype.UUID{Bytes: user.ID, Valid: true},
		user.FullName,
		user.Email,
		user.HashedPassword,
		user.Role,
		user.IsActive,
		user.CreatedAt,
		timePtrToPg(user.LastActiveAt),
	)

	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, apperrors.ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return created, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	row := GetDBTX(ctx, r.pool).QueryRow(ctx, query, pgtype.UUID{Bytes: id, Valid: true})
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`

	row := GetDBTX(ctx, r.pool).QueryRow(ctx, query, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

func (r *UserRepository) CountActive(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM users WHERE is_active`

	var count int
	if err := GetDBTX(ctx, r.pool).QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active users: %w", err)
	}
	return count, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		id           pgtype.UUID
		lastActiveAt pgtype.Timestamptz
		user         domain.User
	)

	err := row.Scan(
		&id,
		&user.FullName,
		&user.Email,
		&user.HashedPassword,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&lastActiveAt,
	)
	if err != nil {
		return nil, err
	}

	user.ID = uuid.UUID(id.Bytes)
	user.LastActiveAt = pgToTimePtr(lastActiveAt)

	return &user, nil
}
