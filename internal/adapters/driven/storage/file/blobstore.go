// Package file provides a filesystem-backed blob store. Each blob is
// one file under the state directory, named by its key.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/lorekeep/lorekeep-cli/internal/core/domain"
	"github.com/lorekeep/lorekeep-cli/internal/core/ports/driven"
)

// Ensure BlobStore implements the interface.
var _ driven.BlobStore = (*BlobStore)(nil)

// BlobStore stores blobs as files under a directory.
type BlobStore struct {
	dir string
}

// NewBlobStore creates a blob store rooted at dataDir.
// If dataDir is empty, defaults to ~/.lorekeep/data.
func NewBlobStore(dataDir string) (*BlobStore, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".lorekeep", "data")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &BlobStore{dir: dataDir}, nil
}

// Read returns the blob stored under key.
func (s *BlobStore) Read(_ context.Context, key string) ([]byte, error) {
	path, err := s.blobPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: blob %q", domain.ErrNotFound, key)
		}
		return nil, fmt.Errorf("reading blob %q: %w", key, err)
	}
	return data, nil
}

// Write stores data under key, replacing any existing blob. The blob
// is written to a temporary file and renamed so readers never observe
// a partial write.
func (s *BlobStore) Write(_ context.Context, key string, data []byte) error {
	path, err := s.blobPath(key)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing blob %q: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("writing blob %q: %w", key, err)
	}
	return nil
}

// Delete removes the blob under key. Missing blobs are ignored.
func (s *BlobStore) Delete(_ context.Context, key string) error {
	path, err := s.blobPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting blob %q: %w", key, err)
	}
	return nil
}

// Close releases resources. A file store holds none.
func (s *BlobStore) Close() error {
	return nil
}

// Dir returns the state directory.
func (s *BlobStore) Dir() string {
	return s.dir
}

// blobPath maps a key to a file path, refusing keys that would
// escape the state directory.
func (s *BlobStore) blobPath(key string) (string, error) {
	if key == "" || strings.Contains(key, "/") || strings.Contains(key, "\\") || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: invalid blob key %q", domain.ErrInvalidInput, key)
	}
	return filepath.Join(s.dir, key), nil
}
