// Package blobstore persists uploaded file bytes. Names are always
// server-generated ("<content-id>.<ext>"), and reads are confined to the
// store's root whatever the caller asks for.
package blobstore

import (
	"context"
	"errors"
	"io"
	"mime"
	"path/filepath"
)

// ErrExists is returned by Put when the name is already taken.
var ErrExists = errors.New("blob already exists")

// Object is an open blob. Body must be closed by the caller.
type Object struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

// Store is implemented by LocalStore and S3Store.
//
// Open rejects names escaping the root with filex.ErrOutsideRoot and
// reports missing blobs as common.ErrorNotFound.
type Store interface {
	Put(ctx context.Context, name string, r io.Reader) error
	Open(ctx context.Context, name string) (*Object, error)
}

func contentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
