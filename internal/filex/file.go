// Package filex contains helpers for the on-disk storage root: creating it,
// writing new files into it, and resolving client-supplied paths without
// escaping it.
package filex

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a requested path is absolute, contains a
// parent-directory segment, or resolves outside the root.
var ErrOutsideRoot = errors.New("path escapes storage root")

// EnsureDir creates dir (relative paths are taken from the working
// directory) and returns its absolute path.
func EnsureDir(dir string) (string, error) {
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dir)
	}

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// CleanRelative validates a client-supplied relative path. Absolute paths,
// volume names and any ".." segment are rejected before any filesystem
// access happens.
func CleanRelative(requested string) (string, error) {
	if requested == "" {
		return "", ErrOutsideRoot
	}
	if filepath.IsAbs(requested) || strings.HasPrefix(requested, "/") || strings.HasPrefix(requested, `\`) ||
		filepath.VolumeName(requested) != "" {
		return "", ErrOutsideRoot
	}
	for _, seg := range strings.FieldsFunc(requested, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return "", ErrOutsideRoot
		}
	}
	cleaned := filepath.Clean(filepath.FromSlash(requested))
	if cleaned == "." {
		return "", ErrOutsideRoot
	}
	return cleaned, nil
}

// Contain resolves requested under root and returns the canonical absolute
// path. Symlinks are followed; the target must still live inside root.
// A missing file yields an error matching os.ErrNotExist.
func Contain(root, requested string) (string, error) {
	rel, err := CleanRelative(requested)
	if err != nil {
		return "", err
	}

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	realRoot, err = filepath.Abs(realRoot)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}

	resolved, err := filepath.EvalSymlinks(filepath.Join(realRoot, rel))
	if err != nil {
		return "", err
	}

	if !Within(realRoot, resolved) {
		return "", ErrOutsideRoot
	}
	return resolved, nil
}

// Within reports whether path is root or lies beneath it. Both must be
// absolute and clean.
func Within(root, path string) bool {
	r, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator))
}

// CreateExclusive writes r into a new file at path. It fails if the file
// already exists. A failed copy removes the partial file.
func CreateExclusive(path string, r io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return n, err
	}
	return n, nil
}
