package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mediapub/internal/common"
	"github.com/dmitrijs2005/mediapub/internal/dbx"
	"github.com/dmitrijs2005/mediapub/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db      dbx.DBTX
	timeout time.Duration
}

// NewPostgresRepository bounds every call by timeout, including the wait for
// a pooled connection. Zero leaves calls unbounded.
func NewPostgresRepository(db dbx.DBTX, timeout time.Duration) *PostgresRepository {
	return &PostgresRepository{db: db, timeout: timeout}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	ctx, cancel := dbx.Bound(ctx, r.timeout)
	defer cancel()

	query :=
		`INSERT INTO "user" (user_id, username, password_hash)
         VALUES ($1, $2, $3)
		 RETURNING is_active, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.UserName, user.PasswordHash).Scan(&user.IsActive, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	ctx, cancel := dbx.Bound(ctx, r.timeout)
	defer cancel()

	query :=
		`SELECT user_id, username, password_hash, is_active FROM "user"
		 WHERE username = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, userName).Scan(&user.ID, &user.UserName, &user.PasswordHash, &user.IsActive)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	ctx, cancel := dbx.Bound(ctx, r.timeout)
	defer cancel()

	query :=
		`SELECT user_id, username, password_hash, is_active FROM "user"
		 WHERE user_id = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.UserName, &user.PasswordHash, &user.IsActive)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) IsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, cancel := dbx.Bound(ctx, r.timeout)
	defer cancel()

	query :=
		`SELECT is_active FROM "user"
		 WHERE user_id = $1
		 `

	var active bool
	err := r.db.QueryRowContext(ctx, query, id).Scan(&active)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, common.ErrorNotFound
		}
		return false, fmt.Errorf("db error: %w", err)
	}

	return active, nil
}
