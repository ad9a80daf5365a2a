package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/mediapub/internal/common"
	"github.com/dmitrijs2005/mediapub/internal/cryptox"
	"github.com/dmitrijs2005/mediapub/internal/logging"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// CredentialClass is decided by the endpoint a credential is presented to,
// never by the credential itself.
type CredentialClass uint8

const (
	SessionToken CredentialClass = iota
	DevToken
)

func (c CredentialClass) String() string {
	if c == DevToken {
		return "dev_token"
	}
	return "session_token"
}

// Identity is a resolved bearer credential. CredentialID is the session or
// dev token row id.
type Identity struct {
	UserID       uuid.UUID
	CredentialID uuid.UUID
	Class        CredentialClass
}

// CredentialValidator resolves bearer credentials to an active user.
type CredentialValidator struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sessions    *SessionManager
	logger      logging.Logger
}

// NewCredentialValidator shares the clock and expiry policy of sessions.
func NewCredentialValidator(db *sql.DB, m repomanager.RepositoryManager, sessions *SessionManager, logger logging.Logger) *CredentialValidator {
	return &CredentialValidator{
		db:          db,
		repomanager: m,
		sessions:    sessions,
		logger:      logger.With("module", "credentials"),
	}
}

// Resolve validates credential as class and then requires the owning user
// to be active, which fails with AccountSuspended for either class.
func (v *CredentialValidator) Resolve(ctx context.Context, credential string, class CredentialClass) (*Identity, error) {
	var (
		id  *Identity
		err error
	)
	switch class {
	case SessionToken:
		id, err = v.resolveSession(ctx, credential)
	case DevToken:
		id, err = v.resolveDevToken(ctx, credential)
	default:
		return nil, common.E(common.KindInvalidCredential, "credentials.resolve", nil)
	}
	if err != nil {
		return nil, err
	}

	if err := v.checkActive(ctx, id.UserID); err != nil {
		return nil, err
	}

	if class == DevToken {
		v.touch(ctx, id.CredentialID)
	}
	return id, nil
}

func (v *CredentialValidator) resolveSession(ctx context.Context, credential string) (*Identity, error) {
	s, err := v.sessions.ValidateSession(ctx, credential)
	if err != nil {
		return nil, err
	}
	return &Identity{UserID: s.UserID, CredentialID: s.TokenID, Class: SessionToken}, nil
}

func (v *CredentialValidator) resolveDevToken(ctx context.Context, credential string) (*Identity, error) {
	const op = "credentials.dev_token"

	hash, err := cryptox.HashToken(credential)
	if err != nil {
		return nil, common.E(common.KindInvalidCredential, op, err)
	}

	t, err := v.repomanager.DevTokens(v.db).FindActive(ctx, credential, hash)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.E(common.KindInvalidCredential, op, err)
		}
		v.logger.Error(ctx, "dev token lookup failed", "error", err)
		return nil, storeErr(common.StoreRelational, op, err)
	}

	if v.sessions.enforceExpiry && t.Expired(v.sessions.now()) {
		return nil, common.E(common.KindInvalidCredential, op, errors.New("dev token expired"))
	}

	return &Identity{UserID: t.UserID, CredentialID: t.TokenID, Class: DevToken}, nil
}

func (v *CredentialValidator) checkActive(ctx context.Context, userID uuid.UUID) error {
	const op = "credentials.active"

	active, err := v.repomanager.Users(v.db).IsActive(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.E(common.KindAccountSuspended, op, err)
		}
		v.logger.Error(ctx, "user status lookup failed", "user_id", userID, "error", err)
		return storeErr(common.StoreRelational, op, err)
	}
	if !active {
		return common.E(common.KindAccountSuspended, op, nil)
	}
	return nil
}

// touch records dev token use. Failures are logged and ignored.
func (v *CredentialValidator) touch(ctx context.Context, tokenID uuid.UUID) {
	if err := v.repomanager.DevTokens(v.db).TouchLastUsed(ctx, tokenID, v.sessions.now().UTC()); err != nil {
		v.logger.Warn(ctx, "dev token last_used_at update failed", "token_id", tokenID, "error", err)
	}
}
