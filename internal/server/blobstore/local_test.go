package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/dmitrijs2005/mediapub/internal/common"
	"github.com/dmitrijs2005/mediapub/internal/filex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(filepath.Join(t.TempDir(), "media"))
	require.NoError(t, err)
	return s
}

func TestLocalStore_PutOpen(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a.png", strings.NewReader("png-bytes")))

	obj, err := s.Open(ctx, "a.png")
	require.NoError(t, err)
	defer obj.Body.Close()

	b, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(b))
	assert.Equal(t, int64(9), obj.Size)
	assert.Equal(t, "image/png", obj.ContentType)
}

func TestLocalStore_PutTwiceFails(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a.png", strings.NewReader("1")))
	err := s.Put(ctx, "a.png", strings.NewReader("2"))
	require.ErrorIs(t, err, ErrExists)

	b, err := os.ReadFile(filepath.Join(s.Root(), "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "1", string(b))
}

func TestLocalStore_PutRejectsTraversal(t *testing.T) {
	s := newLocal(t)
	err := s.Put(context.Background(), "../x.png", strings.NewReader("x"))
	require.ErrorIs(t, err, filex.ErrOutsideRoot)
}

func TestLocalStore_OpenMissing(t *testing.T) {
	s := newLocal(t)
	_, err := s.Open(context.Background(), "nope.png")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestLocalStore_OpenRejectsTraversal(t *testing.T) {
	s := newLocal(t)
	for _, p := range []string{"../../etc/passwd", "/etc/passwd", `..\..\secret`, "a/../../b"} {
		_, err := s.Open(context.Background(), p)
		if !errors.Is(err, filex.ErrOutsideRoot) {
			t.Fatalf("Open(%q): want ErrOutsideRoot, got %v", p, err)
		}
	}
}

func TestLocalStore_OpenDirectoryIsNotFound(t *testing.T) {
	s := newLocal(t)
	require.NoError(t, os.Mkdir(filepath.Join(s.Root(), "sub"), 0o700))

	_, err := s.Open(context.Background(), "sub")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestLocalStore_OpenSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	s := newLocal(t)
	secret := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("s"), 0o600))
	require.NoError(t, os.Symlink(secret, filepath.Join(s.Root(), "link.txt")))

	_, err := s.Open(context.Background(), "link.txt")
	require.ErrorIs(t, err, filex.ErrOutsideRoot)
}
