package server

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/mediapub/internal/logging"
	"github.com/dmitrijs2005/mediapub/internal/server/blobstore"
	"github.com/dmitrijs2005/mediapub/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.StorageRoot = filepath.Join(t.TempDir(), "files")
	c.LogLevel = "error"
	return c
}

func TestOpenBlobStore_LocalByDefault(t *testing.T) {
	c := testConfig(t)

	s, err := openBlobStore(context.Background(), c)
	require.NoError(t, err)

	local, ok := s.(*blobstore.LocalStore)
	require.True(t, ok, "expected *blobstore.LocalStore, got %T", s)
	assert.Equal(t, c.StorageRoot, local.Root())
	assert.DirExists(t, c.StorageRoot)
}

func TestNewLoginLimiter_DisabledWithoutRedis(t *testing.T) {
	c := testConfig(t)
	c.RedisAddr = ""

	client, limiter := newLoginLimiter(context.Background(), c, logging.Discard())
	assert.Nil(t, client)
	assert.Nil(t, limiter)
}

func TestNewApp_InvalidDSN(t *testing.T) {
	c := testConfig(t)
	c.DatabaseDSN = "postgres://%zz"

	app, err := NewApp(context.Background(), c)
	require.Error(t, err)
	assert.Nil(t, app)
	assert.Contains(t, err.Error(), "db init error")
}
