package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/mediapub/internal/common"
	"github.com/dmitrijs2005/mediapub/internal/cryptox"
	"github.com/dmitrijs2005/mediapub/internal/logging"
	"github.com/dmitrijs2005/mediapub/internal/server/models"
	"github.com/dmitrijs2005/mediapub/internal/testsupport/memrepo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newSessions(t *testing.T, m *memrepo.Manager, opts ...SessionOption) *SessionManager {
	t.Helper()
	opts = append([]SessionOption{WithClock(fixedClock)}, opts...)
	return NewSessionManager(nil, m, logging.Discard(), opts...)
}

func addActiveUser(m *memrepo.Manager) *models.User {
	return m.AddUser(&models.User{UserName: "alice", PasswordHash: "x", IsActive: true})
}

func requireKind(t *testing.T, err error, kind common.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, common.KindOf(err), "error: %v", err)
}

func findSession(t *testing.T, m *memrepo.Manager, token string) models.Session {
	t.Helper()
	for _, s := range m.SessionList() {
		if s.SessionToken == token {
			return s
		}
	}
	t.Fatalf("session %q not stored", token)
	return models.Session{}
}

func hashOf(t *testing.T, token string) string {
	t.Helper()
	h, err := cryptox.HashToken(token)
	require.NoError(t, err)
	return h
}

func issue(t *testing.T, sm *SessionManager, userID uuid.UUID) *TokenPair {
	t.Helper()
	pair, err := sm.Issue(context.Background(), userID, models.ClientInfo{IPAddress: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	return pair
}
