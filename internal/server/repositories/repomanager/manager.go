package repomanager

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/mediapub/internal/dbx"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/devtokens"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/posts"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/users"
)

// RepositoryManager vends relational repositories bound to a DBTX, so the
// same code runs on the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	DevTokens(db dbx.DBTX) devtokens.Repository
	Posts(db dbx.DBTX) posts.Repository

	// CallTimeout bounds one store call or transaction; zero means unbounded.
	CallTimeout() time.Duration
}
