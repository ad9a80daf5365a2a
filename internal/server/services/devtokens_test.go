package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/mediapub/internal/common"
	"github.com/dmitrijs2005/mediapub/internal/logging"
	"github.com/dmitrijs2005/mediapub/internal/testsupport/memrepo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDevTokenService(t *testing.T, m *memrepo.Manager) (*DevTokenService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := NewDevTokenService(db, m, logging.Discard())
	s.now = fixedClock
	return s, mock
}

func TestDevTokenService_Issue(t *testing.T) {
	m := memrepo.New()
	u := addActiveUser(m)
	s, _ := newDevTokenService(t, m)

	token, dt, err := s.Issue(context.Background(), DevTokenRequest{UserID: u.ID, Name: "ci"})
	require.NoError(t, err)

	assert.Len(t, token, 64)
	assert.Equal(t, hashOf(t, token), dt.TokenHash)
	assert.Equal(t, DefaultDevTokenScope, dt.Scope)
	assert.Equal(t, testNow.Add(DefaultDevTokenValidity), dt.ExpiresAt)

	stored, ok := m.DevToken(dt.TokenID)
	require.True(t, ok)
	assert.NotEqual(t, token, stored.TokenHash, "clear token must not be stored")

	v := NewCredentialValidator(nil, m, newSessions(t, m), logging.Discard())
	id, err := v.Resolve(context.Background(), token, DevToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)
}

func TestDevTokenService_IssueValidatesName(t *testing.T) {
	m := memrepo.New()
	s, _ := newDevTokenService(t, m)

	for _, name := range []string{"", strings.Repeat("n", 256)} {
		_, _, err := s.Issue(context.Background(), DevTokenRequest{UserID: uuid.New(), Name: name})
		requireKind(t, err, common.KindMalformedInput)
	}
	assert.Empty(t, m.DevTokenList())
}

func TestDevTokenService_IssueReplace(t *testing.T) {
	m := memrepo.New()
	u := addActiveUser(m)
	s, mock := newDevTokenService(t, m)
	ctx := context.Background()

	_, first, err := s.Issue(ctx, DevTokenRequest{UserID: u.ID, Name: "ci"})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	_, second, err := s.Issue(ctx, DevTokenRequest{UserID: u.ID, Name: "ci", Scope: "read", ValidFor: time.Hour, Replace: true})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	old, _ := m.DevToken(first.TokenID)
	assert.True(t, old.IsRevoked)

	cur, _ := m.DevToken(second.TokenID)
	assert.False(t, cur.IsRevoked)
	assert.Equal(t, "read", cur.Scope)
	assert.Equal(t, testNow.Add(time.Hour), cur.ExpiresAt)
}

func TestDevTokenService_IssueReplaceRollsBack(t *testing.T) {
	m := memrepo.New()
	m.DevTokensErr = errors.New("db error: boom")
	s, mock := newDevTokenService(t, m)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, _, err := s.Issue(context.Background(), DevTokenRequest{UserID: uuid.New(), Name: "ci", Replace: true})
	assert.True(t, common.IsDatabaseError(err), "got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDevTokenService_Revoke(t *testing.T) {
	m := memrepo.New()
	u := addActiveUser(m)
	s, _ := newDevTokenService(t, m)
	ctx := context.Background()

	_, dt, err := s.Issue(ctx, DevTokenRequest{UserID: u.ID, Name: "ci"})
	require.NoError(t, err)

	n, err := s.Revoke(ctx, u.ID, "ci")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stored, _ := m.DevToken(dt.TokenID)
	assert.True(t, stored.IsRevoked)

	_, err = s.Revoke(ctx, u.ID, "ci")
	requireKind(t, err, common.KindNotFound)
}
