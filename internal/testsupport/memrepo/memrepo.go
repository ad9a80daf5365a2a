// Package memrepo provides in-memory repositories for service and HTTP
// tests. Every repository ignores the DBTX it is bound to, so transactions
// opened by callers commit or roll back nothing here.
package memrepo

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/dmitrijs2005/mediapub/internal/common"
	"github.com/dmitrijs2005/mediapub/internal/dbx"
	"github.com/dmitrijs2005/mediapub/internal/server/models"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/devtokens"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/posts"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/users"
	"github.com/google/uuid"
)

// Manager is an in-memory repomanager.RepositoryManager. The exported error
// fields inject failures into the matching operation.
type Manager struct {
	mu sync.Mutex

	users     map[uuid.UUID]*models.User
	sessions  map[uuid.UUID]*models.Session
	devTokens map[uuid.UUID]*models.DevToken
	posts     []*models.Post

	UsersErr      error
	SessionsErr   error
	DevTokensErr  error
	PrepareErr    error
	PostInsertErr error
	PostsErr      error

	// Prepared counts PrepareInsert calls.
	Prepared int
}

var _ repomanager.RepositoryManager = (*Manager)(nil)

func New() *Manager {
	return &Manager{
		users:     map[uuid.UUID]*models.User{},
		sessions:  map[uuid.UUID]*models.Session{},
		devTokens: map[uuid.UUID]*models.DevToken{},
	}
}

func (m *Manager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *Manager) CallTimeout() time.Duration { return 0 }

func (m *Manager) Users(dbx.DBTX) users.Repository         { return userRepo{m} }
func (m *Manager) Sessions(dbx.DBTX) sessions.Repository   { return sessionRepo{m} }
func (m *Manager) DevTokens(dbx.DBTX) devtokens.Repository { return devTokenRepo{m} }
func (m *Manager) Posts(dbx.DBTX) posts.Repository         { return postRepo{m} }

// AddUser stores u directly, filling in an id when missing.
func (m *Manager) AddUser(u *models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	m.users[u.ID] = &cp
	return u
}

// SetActive flips a user's active flag.
func (m *Manager) SetActive(id uuid.UUID, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.IsActive = active
	}
}

// AddSession stores s as is.
func (m *Manager) AddSession(s *models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.TokenID] = &cp
}

// AddDevToken stores t as is.
func (m *Manager) AddDevToken(t *models.DevToken) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.devTokens[t.TokenID] = &cp
}

// SessionList returns copies of every stored session.
func (m *Manager) SessionList() []models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	return out
}

// DevToken returns a copy of the stored dev token.
func (m *Manager) DevToken(id uuid.UUID) (models.DevToken, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.devTokens[id]
	if !ok {
		return models.DevToken{}, false
	}
	return *t, true
}

// DevTokenList returns copies of every stored dev token.
func (m *Manager) DevTokenList() []models.DevToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.DevToken, 0, len(m.devTokens))
	for _, t := range m.devTokens {
		out = append(out, *t)
	}
	return out
}

// PostList returns copies of the stored posts in insert order.
func (m *Manager) PostList() []models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Post, 0, len(m.posts))
	for _, p := range m.posts {
		out = append(out, *p)
	}
	return out
}

type userRepo struct{ m *Manager }

func (r userRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.UsersErr != nil {
		return nil, r.m.UsersErr
	}
	for _, existing := range r.m.users {
		if existing.UserName == u.UserName {
			return nil, common.ErrorAlreadyExists
		}
	}
	now := time.Now()
	u.IsActive = true
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	r.m.users[u.ID] = &cp
	return u, nil
}

func (r userRepo) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.UsersErr != nil {
		return nil, r.m.UsersErr
	}
	for _, u := range r.m.users {
		if u.UserName == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r userRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.UsersErr != nil {
		return nil, r.m.UsersErr
	}
	u, ok := r.m.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r userRepo) IsActive(_ context.Context, id uuid.UUID) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.UsersErr != nil {
		return false, r.m.UsersErr
	}
	u, ok := r.m.users[id]
	if !ok {
		return false, common.ErrorNotFound
	}
	return u.IsActive, nil
}

type sessionRepo struct{ m *Manager }

func (r sessionRepo) Create(_ context.Context, s *models.Session) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.SessionsErr != nil {
		return r.m.SessionsErr
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	cp := *s
	r.m.sessions[s.TokenID] = &cp
	return nil
}

func (r sessionRepo) find(match func(*models.Session) bool) (*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.SessionsErr != nil {
		return nil, r.m.SessionsErr
	}
	for _, s := range r.m.sessions {
		if !s.IsRevoked && match(s) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r sessionRepo) FindActiveByToken(_ context.Context, token string) (*models.Session, error) {
	return r.find(func(s *models.Session) bool { return s.SessionToken == token })
}

func (r sessionRepo) FindActiveByRefreshHash(_ context.Context, hash string) (*models.Session, error) {
	return r.find(func(s *models.Session) bool { return s.RefreshTokenHash == hash })
}

func (r sessionRepo) Revoke(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.SessionsErr != nil {
		return r.m.SessionsErr
	}
	s, ok := r.m.sessions[id]
	if !ok || s.IsRevoked {
		return common.ErrorNotFound
	}
	s.IsRevoked = true
	return nil
}

type devTokenRepo struct{ m *Manager }

func (r devTokenRepo) Create(_ context.Context, t *models.DevToken) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.DevTokensErr != nil {
		return r.m.DevTokensErr
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	cp := *t
	r.m.devTokens[t.TokenID] = &cp
	return nil
}

func (r devTokenRepo) FindActive(_ context.Context, credential, credentialHash string) (*models.DevToken, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.DevTokensErr != nil {
		return nil, r.m.DevTokensErr
	}
	for _, t := range r.m.devTokens {
		if !t.IsRevoked && (t.TokenHash == credentialHash || t.TokenHash == credential) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r devTokenRepo) TouchLastUsed(_ context.Context, id uuid.UUID, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.DevTokensErr != nil {
		return r.m.DevTokensErr
	}
	t, ok := r.m.devTokens[id]
	if !ok {
		return common.ErrorNotFound
	}
	t.LastUsedAt = &at
	return nil
}

func (r devTokenRepo) RevokeByName(_ context.Context, userID uuid.UUID, name string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.DevTokensErr != nil {
		return 0, r.m.DevTokensErr
	}
	var n int64
	for _, t := range r.m.devTokens {
		if t.UserID == userID && t.Name == name && !t.IsRevoked {
			t.IsRevoked = true
			n++
		}
	}
	return n, nil
}

type postRepo struct{ m *Manager }

type postInserter struct {
	m      *Manager
	closed bool
}

func (i *postInserter) Insert(_ context.Context, p *models.Post) error {
	i.m.mu.Lock()
	defer i.m.mu.Unlock()
	if i.closed {
		return sql.ErrConnDone
	}
	if i.m.PostInsertErr != nil {
		return i.m.PostInsertErr
	}
	cp := *p
	cp.CreatedAt = time.Now()
	i.m.posts = append(i.m.posts, &cp)
	return nil
}

func (i *postInserter) Close() error {
	i.closed = true
	return nil
}

func (r postRepo) PrepareInsert(context.Context) (posts.Inserter, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.PrepareErr != nil {
		return nil, r.m.PrepareErr
	}
	r.m.Prepared++
	return &postInserter{m: r.m}, nil
}

func (r postRepo) Get(_ context.Context, id uuid.UUID) (*models.Post, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.PostsErr != nil {
		return nil, r.m.PostsErr
	}
	for _, p := range r.m.posts {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r postRepo) ListIDs(context.Context) ([]uuid.UUID, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.PostsErr != nil {
		return nil, r.m.PostsErr
	}
	ids := make([]uuid.UUID, 0, len(r.m.posts))
	for _, p := range r.m.posts {
		ids = append(ids, p.ID)
	}
	return ids, nil
}
