package devtokens

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

func (r *PostgresRepository) Create(ctx context.Context, t *models.DevToken) error {
	ctx, cancel := dbx.Bound(ctx, r.timeout)
	defer cancel()

	query :=
		`INSERT INTO "dev_token" (token_id, user_id, token_hash, name, scope, expires_at, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
		 `

	_, err := r.db.ExecContext(ctx, query,
		t.TokenID, t.UserID, t.TokenHash, t.Name, t.Scope, t.ExpiresAt, t.CreatedAt)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) FindActive(ctx context.Context, credential, credentialHash string) (*models.DevToken, error) {
	ctx, cancel := dbx.Bound(ctx, r.timeout)
	defer cancel()

	query :=
		`SELECT token_id, user_id, token_hash, name, scope, expires_at, created_at, is_revoked, last_used_at
		 FROM "dev_token"
		 WHERE (token_hash = $1 OR token_hash = $2) AND is_revoked = false
		 LIMIT 1
		 `

	t := &models.DevToken{}
	var lastUsed sql.NullTime
	err := r.db.QueryRowContext(ctx, query, credentialHash, credential).Scan(&t.TokenID, &t.UserID, &t.TokenHash,
		&t.Name, &t.Scope, &t.ExpiresAt, &t.CreatedAt, &t.IsRevoked, &lastUsed)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if lastUsed.Valid {
		t.LastUsedAt = &lastUsed.Time
	}

	return t, nil
}

func (r *PostgresRepository) TouchLastUsed(ctx context.Context, tokenID uuid.UUID, at time.Time) error {
	ctx, cancel := dbx.Bound(ctx, r.timeout)
	defer cancel()

	query :=
		`UPDATE "dev_token" SET last_used_at = $2
		 WHERE token_id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, tokenID, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RevokeByName(ctx context.Context, userID uuid.UUID, name string) (int64, error) {
	ctx, cancel := dbx.Bound(ctx, r.timeout)
	defer cancel()

	query :=
		`UPDATE "dev_token" SET is_revoked = true, updated_at = NOW()
		 WHERE user_id = $1 AND name = $2 AND is_revoked = false
		 `

	res, err := r.db.ExecContext(ctx, query, userID, name)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return n, nil
}
