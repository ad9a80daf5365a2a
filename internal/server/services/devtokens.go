package services

import (
	"context"
	"database/sql"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/mediapub/internal/common"
	"github.com/dmitrijs2005/mediapub/internal/cryptox"
	"github.com/dmitrijs2005/mediapub/internal/dbx"
	"github.com/dmitrijs2005/mediapub/internal/logging"
	"github.com/dmitrijs2005/mediapub/internal/server/models"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	DefaultDevTokenScope    = "upload"
	DefaultDevTokenValidity = 90 * 24 * time.Hour

	maxDevTokenNameLength = 255
)

// DevTokenRequest describes a developer token to issue. Replace revokes the
// owner's live tokens with the same name in the same transaction.
type DevTokenRequest struct {
	UserID   uuid.UUID
	Name     string
	Scope    string
	ValidFor time.Duration
	Replace  bool
}

// DevTokenService issues and revokes developer tokens.
type DevTokenService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

func NewDevTokenService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *DevTokenService {
	return &DevTokenService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "devtokens"),
		now:         time.Now,
	}
}

// Issue stores a new token and returns its clear value, which is never
// retrievable again.
func (s *DevTokenService) Issue(ctx context.Context, req DevTokenRequest) (string, *models.DevToken, error) {
	const op = "devtokens.issue"

	if n := utf8.RuneCountInString(req.Name); n < 1 || n > maxDevTokenNameLength {
		return "", nil, invalid(op, "token name must be between 1 and 255 characters")
	}
	if req.Scope == "" {
		req.Scope = DefaultDevTokenScope
	}
	if req.ValidFor <= 0 {
		req.ValidFor = DefaultDevTokenValidity
	}

	token, hash, err := cryptox.GenerateHashedToken(common.TokenBytes)
	if err != nil {
		return "", nil, common.E(common.KindInternal, op, err)
	}

	now := s.now().UTC()
	t := &models.DevToken{
		TokenID:   uuid.New(),
		UserID:    req.UserID,
		TokenHash: hash,
		Name:      req.Name,
		Scope:     req.Scope,
		ExpiresAt: now.Add(req.ValidFor),
		CreatedAt: now,
	}

	if !req.Replace {
		if err := s.repomanager.DevTokens(s.db).Create(ctx, t); err != nil {
			s.logger.Error(ctx, "dev token insert failed", "error", err)
			return "", nil, storeErr(common.StoreRelational, op, err)
		}
		return token, t, nil
	}

	txCtx, cancel := dbx.Bound(ctx, s.repomanager.CallTimeout())
	defer cancel()

	err = dbx.WithTx(txCtx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.DevTokens(tx)
		n, err := repo.RevokeByName(ctx, req.UserID, req.Name)
		if err != nil {
			return err
		}
		if n > 0 {
			s.logger.Info(ctx, "dev tokens replaced", "user_id", req.UserID, "name", req.Name, "revoked", n)
		}
		return repo.Create(ctx, t)
	})
	if err != nil {
		s.logger.Error(ctx, "dev token replace failed", "error", err)
		return "", nil, storeErr(common.StoreRelational, op, err)
	}
	return token, t, nil
}

// Revoke revokes the owner's live tokens called name. Nothing to revoke
// yields NotFound.
func (s *DevTokenService) Revoke(ctx context.Context, userID uuid.UUID, name string) (int64, error) {
	const op = "devtokens.revoke"

	n, err := s.repomanager.DevTokens(s.db).RevokeByName(ctx, userID, name)
	if err != nil {
		s.logger.Error(ctx, "dev token revoke failed", "error", err)
		return 0, storeErr(common.StoreRelational, op, err)
	}
	if n == 0 {
		return 0, common.E(common.KindNotFound, op, nil)
	}
	return n, nil
}
