package sessions

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
)

type PostgresRepository struct {
	db      dbx.DBTX
	timeout time.Duration
}

// NewPostgresRepository bounds every call by timeout, including the wait for
// a pooled connection. Zero leaves calls unbounded.
func NewPostgresRepository(db dbx.DBTX, timeout time.Duration) *PostgresRepository {
	return &PostgresRepository{db: db, timeout: timeout}
}

const selectColumns = `token_id, user_id, session_token, refresh_token_hash, session_expires_at, refresh_expires_at, created_at, is_revoked`

func (r *PostgresRepository) Create(ctx context.Context, s *models.Session) error {
	ctx, cancel := dbx.Bound(ctx, r.timeout)
	defer cancel()

	query :=
		`INSERT INTO "session" (token_id, user_id, session_token, refresh_token_hash,
			session_expires_at, refresh_expires_at, created_at, ip_address, user_agent)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 `

	_, err := r.db.ExecContext(ctx, query,
		s.TokenID, s.UserID, s.SessionToken, s.RefreshTokenHash,
		s.SessionExpiresAt, s.RefreshExpiresAt, s.CreatedAt,
		nullString(s.IPAddress), nullString(s.UserAgent))

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) FindActiveByToken(ctx context.Context, sessionToken string) (*models.Session, error) {
	ctx, cancel := dbx.Bound(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + selectColumns + ` FROM "session"
		 WHERE session_token = $1 AND is_revoked = false
		 `
	return r.findOne(ctx, query, sessionToken)
}

func (r *PostgresRepository) FindActiveByRefreshHash(ctx context.Context, refreshHash string) (*models.Session, error) {
	ctx, cancel := dbx.Bound(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + selectColumns + ` FROM "session"
		 WHERE refresh_token_hash = $1 AND is_revoked = false
		 `
	return r.findOne(ctx, query, refreshHash)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (*models.Session, error) {
	s := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&s.TokenID, &s.UserID, &s.SessionToken, &s.RefreshTokenHash,
		&s.SessionExpiresAt, &s.RefreshExpiresAt, &s.CreatedAt, &s.IsRevoked)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return s, nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, tokenID uuid.UUID) error {
	ctx, cancel := dbx.Bound(ctx, r.timeout)
	defer cancel()

	query :=
		`UPDATE "session" SET is_revoked = true, updated_at = NOW()
		 WHERE token_id = $1 AND is_revoked = false
		 `

	res, err := r.db.ExecContext(ctx, query, tokenID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
