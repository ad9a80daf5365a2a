// Package services contains server-side business logic: session and
// credential handling, account signup and login, developer tokens, and the
// upload and retrieval paths over the relational store, the document store
// and the blob store.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/mediapub/internal/common"
	"github.com/dmitrijs2005/mediapub/internal/cryptox"
	"github.com/dmitrijs2005/mediapub/internal/dbx"
	"github.com/dmitrijs2005/mediapub/internal/logging"
	"github.com/dmitrijs2005/mediapub/internal/server/models"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	DefaultSessionValidity = time.Hour
	DefaultRefreshValidity = 30 * 24 * time.Hour
)

// TokenPair is returned once to the client. Neither value can be read back
// later; only the refresh token's digest is stored.
type TokenPair struct {
	SessionToken     string
	RefreshToken     string
	SessionExpiresAt time.Time
	RefreshExpiresAt time.Time
}

// SessionManager issues, rotates, validates and revokes session/refresh
// pairs.
type SessionManager struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	logger          logging.Logger
	now             func() time.Time
	sessionValidity time.Duration
	refreshValidity time.Duration
	enforceExpiry   bool
	revokeOnRotate  bool
}

type SessionOption func(*SessionManager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithValidity overrides the session and refresh lifetimes. Non-positive
// values keep the defaults.
func WithValidity(session, refresh time.Duration) SessionOption {
	return func(m *SessionManager) {
		if session > 0 {
			m.sessionValidity = session
		}
		if refresh > 0 {
			m.refreshValidity = refresh
		}
	}
}

// WithEnforceExpiry makes expired sessions and dev tokens fail validation.
// When off, only the revocation flag is checked.
func WithEnforceExpiry(enforce bool) SessionOption {
	return func(m *SessionManager) { m.enforceExpiry = enforce }
}

// WithRevokeOnRotate revokes the session a refresh token belonged to in the
// same transaction that stores the new pair, so each refresh token rotates
// at most once.
func WithRevokeOnRotate(revoke bool) SessionOption {
	return func(m *SessionManager) { m.revokeOnRotate = revoke }
}

func NewSessionManager(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, opts ...SessionOption) *SessionManager {
	sm := &SessionManager{
		db:              db,
		repomanager:     m,
		logger:          logger.With("module", "sessions"),
		now:             time.Now,
		sessionValidity: DefaultSessionValidity,
		refreshValidity: DefaultRefreshValidity,
		enforceExpiry:   true,
	}
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

// Issue stores a new session for userID and returns its tokens in clear.
func (m *SessionManager) Issue(ctx context.Context, userID uuid.UUID, client models.ClientInfo) (*TokenPair, error) {
	return m.issue(ctx, m.db, userID, client)
}

func (m *SessionManager) issue(ctx context.Context, db dbx.DBTX, userID uuid.UUID, client models.ClientInfo) (*TokenPair, error) {
	const op = "sessions.issue"

	sessionToken, err := cryptox.GenerateToken(common.TokenBytes)
	if err != nil {
		return nil, common.E(common.KindSessionCreationFailed, op, err)
	}
	refreshToken, refreshHash, err := cryptox.GenerateHashedToken(common.TokenBytes)
	if err != nil {
		return nil, common.E(common.KindSessionCreationFailed, op, err)
	}

	now := m.now().UTC()
	s := &models.Session{
		TokenID:          uuid.New(),
		UserID:           userID,
		SessionToken:     sessionToken,
		RefreshTokenHash: refreshHash,
		SessionExpiresAt: now.Add(m.sessionValidity),
		RefreshExpiresAt: now.Add(m.refreshValidity),
		CreatedAt:        now,
		IPAddress:        client.IPAddress,
		UserAgent:        client.UserAgent,
	}

	if err := m.repomanager.Sessions(db).Create(ctx, s); err != nil {
		m.logger.Error(ctx, "session insert failed", "user_id", userID, "error", err)
		return nil, common.E(common.KindSessionCreationFailed, op, err)
	}

	return &TokenPair{
		SessionToken:     sessionToken,
		RefreshToken:     refreshToken,
		SessionExpiresAt: s.SessionExpiresAt,
		RefreshExpiresAt: s.RefreshExpiresAt,
	}, nil
}

// Rotate exchanges a refresh token for a new pair. A refresh token whose
// expiry lies before now is rejected; one expiring exactly now is accepted.
func (m *SessionManager) Rotate(ctx context.Context, refreshToken string, client models.ClientInfo) (*TokenPair, uuid.UUID, error) {
	const op = "sessions.rotate"

	hash, err := cryptox.HashToken(refreshToken)
	if err != nil {
		return nil, uuid.Nil, common.E(common.KindInvalidRefreshToken, op, err)
	}

	s, err := m.repomanager.Sessions(m.db).FindActiveByRefreshHash(ctx, hash)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, uuid.Nil, common.E(common.KindInvalidRefreshToken, op, err)
		}
		m.logger.Error(ctx, "refresh lookup failed", "error", err)
		return nil, uuid.Nil, storeErr(common.StoreRelational, op, err)
	}

	if s.RefreshExpired(m.now()) {
		return nil, uuid.Nil, common.E(common.KindRefreshTokenExpired, op, nil)
	}

	if !m.revokeOnRotate {
		pair, err := m.Issue(ctx, s.UserID, client)
		return pair, s.UserID, err
	}

	txCtx, cancel := dbx.Bound(ctx, m.repomanager.CallTimeout())
	defer cancel()

	var pair *TokenPair
	err = dbx.WithTx(txCtx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// The conditional revoke claims the refresh token; a concurrent
		// rotation that got there first leaves nothing to revoke.
		if err := m.repomanager.Sessions(tx).Revoke(ctx, s.TokenID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.E(common.KindInvalidRefreshToken, op, err)
			}
			m.logger.Error(ctx, "revoke on rotate failed", "token_id", s.TokenID, "error", err)
			return storeErr(common.StoreRelational, op, err)
		}
		var err error
		pair, err = m.issue(ctx, tx, s.UserID, client)
		return err
	})
	if err != nil {
		if common.KindOf(err) == common.KindUnknown {
			err = storeErr(common.StoreRelational, op, err)
		}
		return nil, uuid.Nil, err
	}
	return pair, s.UserID, nil
}

// ValidateSession returns the live session holding sessionToken.
func (m *SessionManager) ValidateSession(ctx context.Context, sessionToken string) (*models.Session, error) {
	const op = "sessions.validate"

	if sessionToken == "" {
		return nil, common.E(common.KindInvalidSessionToken, op, nil)
	}

	s, err := m.repomanager.Sessions(m.db).FindActiveByToken(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.E(common.KindInvalidSessionToken, op, err)
		}
		m.logger.Error(ctx, "session lookup failed", "error", err)
		return nil, storeErr(common.StoreRelational, op, err)
	}

	if m.enforceExpiry && s.SessionExpired(m.now()) {
		return nil, common.E(common.KindSessionExpired, op, nil)
	}

	return s, nil
}

// Revoke flips the session's revoked flag. Revoked is terminal.
func (m *SessionManager) Revoke(ctx context.Context, tokenID uuid.UUID) error {
	const op = "sessions.revoke"

	if err := m.repomanager.Sessions(m.db).Revoke(ctx, tokenID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.E(common.KindInvalidSessionToken, op, err)
		}
		m.logger.Error(ctx, "session revoke failed", "token_id", tokenID, "error", err)
		return storeErr(common.StoreRelational, op, err)
	}
	return nil
}
