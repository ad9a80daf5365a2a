package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/dmitrijs2005/mediapub/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"
)

// ValidationError carries a client-facing message for rejected input. It is
// wrapped inside a common.Error of kind MalformedInput.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(op, msg string) error {
	return common.E(common.KindMalformedInput, op, &ValidationError{Message: msg})
}

// storeErr tags a repository failure with its store and tells connection
// problems apart from failed queries.
func storeErr(store common.Store, op string, err error) error {
	kind := common.KindQueryFailed
	if isConnectionError(err) {
		kind = common.KindConnectionFailed
	}
	return common.DB(kind, store, op, err)
}

func isConnectionError(err error) bool {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
