// Package common defines shared constants and the error values used across
// the server layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"strings"
)

// Repository-level errors. Repositories return these (possibly wrapped) and
// services translate them into tagged *Error values.
var (
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
)

// Kind classifies an Error. The HTTP layer maps every kind to a status code
// and a stable message.
type Kind uint8

const (
	KindUnknown Kind = iota

	// auth
	KindInvalidCredential
	KindUserInactive
	KindAccountSuspended
	KindInvalidSessionToken
	KindSessionExpired
	KindInvalidRefreshToken
	KindRefreshTokenExpired
	KindSessionCreationFailed

	// database
	KindConnectionFailed
	KindQueryFailed

	// validation
	KindMalformedInput
	KindMissingExtension
	KindCountMismatch
	KindInvalidIdentifier

	// storage
	KindWriteFailed
	KindPathTraversalRejected

	KindNotFound
	KindMetadataMissing

	// ingestion
	KindRelationalInsertFailed
	KindDocumentInsertFailed

	KindConflict
	KindRateLimited
	KindInternal
)

var kindNames = map[Kind]string{
	KindUnknown:                "unknown",
	KindInvalidCredential:      "invalid credential",
	KindUserInactive:           "user inactive",
	KindAccountSuspended:       "account suspended",
	KindInvalidSessionToken:    "invalid session token",
	KindSessionExpired:         "session expired",
	KindInvalidRefreshToken:    "invalid refresh token",
	KindRefreshTokenExpired:    "refresh token expired",
	KindSessionCreationFailed:  "session creation failed",
	KindConnectionFailed:       "connection failed",
	KindQueryFailed:            "query failed",
	KindMalformedInput:         "malformed input",
	KindMissingExtension:       "missing extension",
	KindCountMismatch:          "count mismatch",
	KindInvalidIdentifier:      "invalid identifier",
	KindWriteFailed:            "write failed",
	KindPathTraversalRejected:  "path traversal rejected",
	KindNotFound:               "not found",
	KindMetadataMissing:        "metadata missing",
	KindRelationalInsertFailed: "relational insert failed",
	KindDocumentInsertFailed:   "document insert failed",
	KindConflict:               "conflict",
	KindRateLimited:            "rate limited",
	KindInternal:               "internal error",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindUnknown]
}

// Store names the backing store a database error came from.
type Store string

const (
	StoreRelational Store = "relational"
	StoreDocument   Store = "document"
)

// Error is the single tagged error type produced by the service layer.
//
// Op names the failing operation ("sessions.rotate", "ingest.document"), Err
// carries the underlying cause. Neither is ever shown to API clients.
type Error struct {
	Kind  Kind
	Store Store
	Op    string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Store != "" {
		b.WriteString(" (")
		b.WriteString(string(e.Store))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind. A target without
// a Store matches errors from any store.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Store == "" || t.Store == e.Store
}

// E builds a tagged error.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// DB builds a tagged database error for the given store.
func DB(kind Kind, store Store, op string, err error) *Error {
	return &Error{Kind: kind, Store: store, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsDatabaseError reports whether err is a store failure rather than a
// rejected credential or input.
func IsDatabaseError(err error) bool {
	switch KindOf(err) {
	case KindConnectionFailed, KindQueryFailed:
		return true
	}
	return false
}

// Sentinels for errors.Is matching.
var (
	ErrInvalidCredential      = &Error{Kind: KindInvalidCredential}
	ErrUserInactive           = &Error{Kind: KindUserInactive}
	ErrAccountSuspended       = &Error{Kind: KindAccountSuspended}
	ErrInvalidSessionToken    = &Error{Kind: KindInvalidSessionToken}
	ErrSessionExpired         = &Error{Kind: KindSessionExpired}
	ErrInvalidRefreshToken    = &Error{Kind: KindInvalidRefreshToken}
	ErrRefreshTokenExpired    = &Error{Kind: KindRefreshTokenExpired}
	ErrSessionCreationFailed  = &Error{Kind: KindSessionCreationFailed}
	ErrConnectionFailed       = &Error{Kind: KindConnectionFailed}
	ErrQueryFailed            = &Error{Kind: KindQueryFailed}
	ErrMalformedInput         = &Error{Kind: KindMalformedInput}
	ErrMissingExtension       = &Error{Kind: KindMissingExtension}
	ErrCountMismatch          = &Error{Kind: KindCountMismatch}
	ErrInvalidIdentifier      = &Error{Kind: KindInvalidIdentifier}
	ErrWriteFailed            = &Error{Kind: KindWriteFailed}
	ErrPathTraversalRejected  = &Error{Kind: KindPathTraversalRejected}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrMetadataMissing        = &Error{Kind: KindMetadataMissing}
	ErrRelationalInsertFailed = &Error{Kind: KindRelationalInsertFailed}
	ErrDocumentInsertFailed   = &Error{Kind: KindDocumentInsertFailed}
	ErrConflict               = &Error{Kind: KindConflict}
	ErrRateLimited            = &Error{Kind: KindRateLimited}
	ErrInternal               = &Error{Kind: KindInternal}
)
