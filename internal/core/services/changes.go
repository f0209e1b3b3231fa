package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/lorekeep/lorekeep-cli/internal/core/domain"
)

// Fingerprint returns the hex-encoded SHA-256 of data. This is the
// checksum stored in tracking records.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FingerprintFile returns the hex-encoded SHA-256 of the file at
// path, streamed rather than read whole.
func FingerprintFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ChangeDetector classifies scanned files against tracking state.
// It is purely a classification function with no side effects;
// callers apply the resulting deletions and reprocessing.
type ChangeDetector struct{}

// NewChangeDetector creates a change detector.
func NewChangeDetector() *ChangeDetector {
	return &ChangeDetector{}
}

// Detect partitions files into to-process and unchanged sets and
// lists tracked paths that are no longer present. With force set,
// every present file lands in ToProcess. Every file in files appears
// in exactly one of ToProcess or Unchanged.
func (d *ChangeDetector) Detect(
	tracked map[string]domain.TrackingRecord,
	files []domain.SourceFile,
	force bool,
) domain.ChangeSet {
	var cs domain.ChangeSet

	present := make(map[string]struct{}, len(files))
	for _, f := range files {
		present[f.Path] = struct{}{}

		rec, ok := tracked[f.Path]
		if force || !ok || rec.Checksum != f.Checksum {
			cs.ToProcess = append(cs.ToProcess, f)
		} else {
			cs.Unchanged = append(cs.Unchanged, f)
		}
	}

	for path := range tracked {
		if _, ok := present[path]; !ok {
			cs.Deleted = append(cs.Deleted, path)
		}
	}

	return cs
}
