package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/mediapub/internal/common"
	"github.com/dmitrijs2005/mediapub/internal/filex"
)

// LocalStore keeps blobs as plain files under one directory.
type LocalStore struct {
	root string
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates root if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	dir, err := filex.EnsureDir(root)
	if err != nil {
		return nil, err
	}
	return &LocalStore{root: dir}, nil
}

// Root returns the absolute storage directory.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) Put(_ context.Context, name string, r io.Reader) error {
	rel, err := filex.CleanRelative(name)
	if err != nil {
		return err
	}
	path := filepath.Join(s.root, rel)
	if !filex.Within(s.root, path) {
		return filex.ErrOutsideRoot
	}

	if _, err := filex.CreateExclusive(path, r); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", name, ErrExists)
		}
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (s *LocalStore) Open(_ context.Context, name string) (*Object, error) {
	path, err := filex.Contain(s.root, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if fi.IsDir() {
		_ = f.Close()
		return nil, common.ErrorNotFound
	}

	return &Object{Body: f, Size: fi.Size(), ContentType: contentType(path)}, nil
}
