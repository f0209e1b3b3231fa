package services

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lorekeep/lorekeep-cli/internal/core/domain"
	"github.com/lorekeep/lorekeep-cli/internal/logger"
)

// Scanner discovers supported source files in the knowledge directory.
type Scanner struct {
	extensions map[string]struct{}
}

// NewScanner creates a scanner accepting the given extensions,
// lowercase with leading dot.
func NewScanner(extensions []string) *Scanner {
	exts := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = struct{}{}
	}
	return &Scanner{extensions: exts}
}

// Scan walks dir recursively and returns every supported file with
// its content checksum, sorted by path for deterministic build
// order. A missing directory yields an empty result, not an error.
func (s *Scanner) Scan(ctx context.Context, dir string) ([]domain.SourceFile, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Warn("Knowledge directory %s not found", dir)
		return nil, nil
	}

	var files []domain.SourceFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := s.extensions[ext]; !ok {
			return nil
		}

		checksum, err := FingerprintFile(path)
		if err != nil {
			// Keep unreadable files in the scan with an empty
			// checksum. The detector will queue them for processing
			// and the load step skips them, so a tracked file that
			// is briefly unreadable is never mistaken for deleted.
			logger.Warn("Cannot fingerprint %s: %v", path, err)
			checksum = ""
		}

		fileType, _ := domain.FileTypeForExtension(ext)
		files = append(files, domain.SourceFile{
			Path:     path,
			Name:     filepath.Base(path),
			Type:     fileType,
			Checksum: checksum,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
