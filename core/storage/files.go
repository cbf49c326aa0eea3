// Package storage keeps named byte blobs under a single base directory.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound is returned by Read when no file exists under the name
	ErrNotFound = errors.New("storage: file not found")

	// ErrInvalidName is returned for empty names and names that resolve
	// outside the base directory
	ErrInvalidName = errors.New("storage: invalid file name")

	// ErrStorageFailure wraps every filesystem error other than not-found
	ErrStorageFailure = errors.New("storage: filesystem failure")
)

const (
	filePerm = 0o644
	dirPerm  = 0o755
)

// Store reads and writes files confined to a base directory.
// It holds no mutable state and is safe for concurrent use; concurrent
// writers to one name resolve last-writer-wins.
type Store struct {
	base string
}

// New creates a Store rooted at dir, creating dir if needed
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty base directory", ErrStorageFailure)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return &Store{base: abs}, nil
}

// Base returns the absolute base directory
func (s *Store) Base() string {
	return s.base
}

// Resolve maps a slash separated name to a path inside the base directory
func (s *Store) Resolve(name string) (string, error) {
	if name == "" || strings.IndexByte(name, 0) >= 0 {
		return "", ErrInvalidName
	}
	p := filepath.Join(s.base, filepath.FromSlash(name))
	rel, err := filepath.Rel(s.base, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidName
	}
	return p, nil
}

// Read returns the exact bytes stored under name
func (s *Store) Read(name string) ([]byte, error) {
	p, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if !info.Mode().IsRegular() {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return data, nil
}

// Write replaces the file under name with data. Missing parent
// directories are created, and the content lands through a temp file
// and rename so readers never observe a partial file.
func (s *Store) Write(name string, data []byte) error {
	p, err := s.Resolve(name)
	if err != nil {
		return err
	}

	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return nil
}
