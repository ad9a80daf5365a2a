// Package dbx is the relational plumbing the repositories share: the DBTX
// handle they run on, a per-call deadline, and the transaction runner the
// services use when several writes must land together.
package dbx

import (
	"context"
	"database/sql"
	"time"
)

// DBTX lets a repository run on the pool or inside a transaction.
// *sql.DB and *sql.Tx both satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Bound returns ctx limited to timeout. The limit covers the wait for a
// pooled connection as well as the statement itself, so an exhausted pool
// fails with context.DeadlineExceeded instead of blocking. A non-positive
// timeout returns ctx unchanged.
func Bound(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// WithTx runs fn on a transaction opened from db. fn's error, or a panic,
// rolls back; the panic is re-raised afterwards. Otherwise the transaction
// commits and the commit error is returned.
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    if _, err := m.DevTokens(tx).RevokeByName(ctx, userID, name); err != nil {
//	        return err
//	    }
//	    return m.DevTokens(tx).Create(ctx, token)
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(ctx, tx)
}
