// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/mediapub/internal/dbx"
	"github.com/dmitrijs2005/mediapub/internal/server/migrations"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/devtokens"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/posts"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct {
	callTimeout time.Duration
}

// Option configures a PostgresRepositoryManager.
type Option func(*PostgresRepositoryManager)

// WithCallTimeout bounds each repository call, and each transaction started
// by the services, including the wait for a free pooled connection.
func WithCallTimeout(d time.Duration) Option {
	return func(m *PostgresRepositoryManager) {
		m.callTimeout = d
	}
}

// CallTimeout reports the per-call bound; zero means unbounded.
func (m *PostgresRepositoryManager) CallTimeout() time.Duration {
	return m.callTimeout
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db, m.callTimeout)
}

// Sessions returns a sessions.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewPostgresRepository(db, m.callTimeout)
}

// DevTokens returns a devtokens.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) DevTokens(db dbx.DBTX) devtokens.Repository {
	return devtokens.NewPostgresRepository(db, m.callTimeout)
}

// Posts returns a posts.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Posts(db dbx.DBTX) posts.Repository {
	return posts.NewPostgresRepository(db, m.callTimeout)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager(opts ...Option) RepositoryManager {
	m := &PostgresRepositoryManager{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
