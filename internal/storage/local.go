package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes payloads to a directory on the local filesystem. It is
// the fallback backend: writes go to a temp file in the target directory
// first and are renamed into place, so a crash mid-write never leaves a
// partial file at the final path and an existing file is never overwritten.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates a LocalStore rooted at baseDir, creating the
// directory if needed.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory %s: %w", baseDir, err)
	}
	return &LocalStore{baseDir: filepath.Clean(baseDir)}, nil
}

// BaseDir returns the root directory of the store.
func (s *LocalStore) BaseDir() string {
	return s.baseDir
}

// Write persists body under baseDir/name and returns the written location
// (slash-separated, relative to the working directory). Failures are
// reported as StorageError with code local_write_error.
func (s *LocalStore) Write(ctx context.Context, name string, body io.Reader) (string, error) {
	dest, err := s.resolve(name)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", NewStorageError(ErrCodeLocalWrite, "failed to create directory", err)
	}

	if _, err := os.Stat(dest); err == nil {
		return "", NewStorageError(ErrCodeLocalWrite, fmt.Sprintf("file already exists at %s", dest), os.ErrExist)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return "", NewStorageError(ErrCodeLocalWrite, "failed to create temp file", err)
	}

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", NewStorageError(ErrCodeLocalWrite, "failed to write payload", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", NewStorageError(ErrCodeLocalWrite, "failed to flush payload", err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", NewStorageError(ErrCodeLocalWrite, "failed to move file into place", err)
	}

	return filepath.ToSlash(dest), nil
}

// Open opens a previously written location for reading. The location must
// resolve to a path under baseDir.
func (s *LocalStore) Open(location string) (*os.File, error) {
	dest, err := s.resolveLocation(location)
	if err != nil {
		return nil, err
	}
	return os.Open(dest)
}

// Delete removes the file at location. A missing file is not an error.
func (s *LocalStore) Delete(location string) error {
	dest, err := s.resolveLocation(location)
	if err != nil {
		return err
	}
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file %s: %w", dest, err)
	}
	return nil
}

// resolve maps a relative file name to its destination path, rejecting
// names that would escape baseDir.
func (s *LocalStore) resolve(name string) (string, error) {
	dest := filepath.Join(s.baseDir, filepath.FromSlash(name))
	if !s.contains(dest) {
		return "", NewStorageError(ErrCodeLocalWrite, fmt.Sprintf("name %q escapes storage directory", name), os.ErrPermission)
	}
	return dest, nil
}

// resolveLocation validates a stored location (as returned by Write).
func (s *LocalStore) resolveLocation(location string) (string, error) {
	dest := filepath.Clean(filepath.FromSlash(location))
	if !s.contains(dest) {
		return "", fmt.Errorf("location %q is outside storage directory", location)
	}
	return dest, nil
}

func (s *LocalStore) contains(p string) bool {
	rel, err := filepath.Rel(s.baseDir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
