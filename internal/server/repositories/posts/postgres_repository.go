package posts

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

type stmtInserter struct {
	stmt    *sql.Stmt
	timeout time.Duration
}

func (i *stmtInserter) Insert(ctx context.Context, post *models.Post) error {
	ctx, cancel := dbx.Bound(ctx, i.timeout)
	defer cancel()

	if _, err := i.stmt.ExecContext(ctx, post.ID, post.UserID, post.FileName); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (i *stmtInserter) Close() error {
	return i.stmt.Close()
}

func (r *PostgresRepository) PrepareInsert(ctx context.Context) (Inserter, error) {
	ctx, cancel := dbx.Bound(ctx, r.timeout)
	defer cancel()

	query :=
		`INSERT INTO "post" (post_id, user_id, file_name)
         VALUES ($1, $2, $3)
		 `

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &stmtInserter{stmt: stmt, timeout: r.timeout}, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	ctx, cancel := dbx.Bound(ctx, r.timeout)
	defer cancel()

	query :=
		`SELECT post_id, user_id, file_name, is_tagged, created_at FROM "post"
		 WHERE post_id = $1
		 `

	p := &models.Post{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.UserID, &p.FileName, &p.IsTagged, &p.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	ctx, cancel := dbx.Bound(ctx, r.timeout)
	defer cancel()

	query := `SELECT post_id FROM "post"`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return ids, nil
}
