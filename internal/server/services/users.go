package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/dmitrijs2005/mediapub/internal/common"
	"github.com/dmitrijs2005/mediapub/internal/cryptox"
	"github.com/dmitrijs2005/mediapub/internal/logging"
	"github.com/dmitrijs2005/mediapub/internal/server/models"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 255
	minPasswordLength = 8

	MsgEmptyCredentials  = "Username and password cannot be empty"
	MsgUsernameLength    = "Username must be between 3 and 255 characters"
	MsgPasswordLength    = "Password must be at least 8 characters long"
	MsgInvalidLoginInput = "username or password is invalid."
)

// UserService handles signup and password login.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sessions    *SessionManager
	logger      logging.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, sessions *SessionManager, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		sessions:    sessions,
		logger:      logger.With("module", "users"),
	}
}

// Signup validates and stores a new account.
func (s *UserService) Signup(ctx context.Context, username, password string) (*models.User, error) {
	const op = "users.signup"

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, invalid(op, MsgEmptyCredentials)
	}
	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return nil, invalid(op, MsgUsernameLength)
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, invalid(op, MsgPasswordLength)
	}

	hash, err := cryptox.HashPassword([]byte(password))
	if err != nil {
		return nil, common.E(common.KindInternal, op, err)
	}

	u, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		ID:           uuid.New(),
		UserName:     username,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.E(common.KindConflict, op, err)
		}
		s.logger.Error(ctx, "user insert failed", "error", err)
		return nil, storeErr(common.StoreRelational, op, err)
	}

	s.logger.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// Login checks the password and issues a new session.
func (s *UserService) Login(ctx context.Context, username, password string, client models.ClientInfo) (*models.User, *TokenPair, error) {
	const op = "users.login"

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, nil, invalid(op, MsgInvalidLoginInput)
	}

	u, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// same bcrypt cost as a real check
			cryptox.CheckPassword(s.dummy(), []byte(password))
			return nil, nil, common.E(common.KindInvalidCredential, op, err)
		}
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return nil, nil, storeErr(common.StoreRelational, op, err)
	}

	if !cryptox.CheckPassword(u.PasswordHash, []byte(password)) {
		return nil, nil, common.E(common.KindInvalidCredential, op, nil)
	}
	if !u.IsActive {
		return nil, nil, common.E(common.KindUserInactive, op, nil)
	}

	pair, err := s.sessions.Issue(ctx, u.ID, client)
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

// UserName returns the username for id.
func (s *UserService) UserName(ctx context.Context, id uuid.UUID) (string, error) {
	const op = "users.get"

	u, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.E(common.KindAccountSuspended, op, err)
		}
		s.logger.Error(ctx, "user lookup failed", "user_id", id, "error", err)
		return "", storeErr(common.StoreRelational, op, err)
	}
	return u.UserName, nil
}

// Authenticate checks a username and password without issuing a session.
// It backs the developer token tool.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	const op = "users.authenticate"

	u, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.E(common.KindInvalidCredential, op, err)
		}
		return nil, storeErr(common.StoreRelational, op, err)
	}
	if !cryptox.CheckPassword(u.PasswordHash, []byte(password)) {
		return nil, common.E(common.KindInvalidCredential, op, nil)
	}
	if !u.IsActive {
		return nil, common.E(common.KindUserInactive, op, nil)
	}
	return u, nil
}

func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := cryptox.HashPassword([]byte("mediapub-dummy-password"))
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}
