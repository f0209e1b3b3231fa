package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep-cli/internal/core/domain"
)

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint([]byte("same content"))
	b := Fingerprint([]byte("same content"))
	c := Fingerprint([]byte("other content"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	// Hex-encoded SHA-256.
	assert.Len(t, a, 64)
}

func TestFingerprintFile_MatchesInMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.md")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0600))

	sum, err := FingerprintFile(path)

	require.NoError(t, err)
	assert.Equal(t, Fingerprint([]byte("content")), sum)
}

func TestFingerprintFile_Missing(t *testing.T) {
	_, err := FingerprintFile(filepath.Join(t.TempDir(), "absent"))

	assert.Error(t, err)
}

func srcFile(path, checksum string) domain.SourceFile {
	return domain.SourceFile{Path: path, Name: filepath.Base(path), Checksum: checksum}
}

func tracked(files ...domain.SourceFile) map[string]domain.TrackingRecord {
	out := make(map[string]domain.TrackingRecord, len(files))
	for _, f := range files {
		out[f.Path] = domain.TrackingRecord{Path: f.Path, Checksum: f.Checksum}
	}
	return out
}

func TestDetect_NewFiles(t *testing.T) {
	d := NewChangeDetector()
	files := []domain.SourceFile{srcFile("/kb/a.md", "c1")}

	cs := d.Detect(nil, files, false)

	assert.Equal(t, files, cs.ToProcess)
	assert.Empty(t, cs.Unchanged)
	assert.Empty(t, cs.Deleted)
}

func TestDetect_UnchangedFiles(t *testing.T) {
	d := NewChangeDetector()
	a := srcFile("/kb/a.md", "c1")

	cs := d.Detect(tracked(a), []domain.SourceFile{a}, false)

	assert.Empty(t, cs.ToProcess)
	assert.Equal(t, []domain.SourceFile{a}, cs.Unchanged)
}

func TestDetect_ModifiedFiles(t *testing.T) {
	d := NewChangeDetector()
	old := srcFile("/kb/a.md", "old")
	modified := srcFile("/kb/a.md", "new")

	cs := d.Detect(tracked(old), []domain.SourceFile{modified}, false)

	assert.Equal(t, []domain.SourceFile{modified}, cs.ToProcess)
	assert.Empty(t, cs.Unchanged)
}

func TestDetect_DeletedFiles(t *testing.T) {
	d := NewChangeDetector()
	gone := srcFile("/kb/gone.md", "c1")
	present := srcFile("/kb/here.md", "c2")

	cs := d.Detect(tracked(gone, present), []domain.SourceFile{present}, false)

	assert.Equal(t, []string{"/kb/gone.md"}, cs.Deleted)
	assert.Equal(t, []domain.SourceFile{present}, cs.Unchanged)
}

func TestDetect_ForceProcessesEverything(t *testing.T) {
	d := NewChangeDetector()
	a := srcFile("/kb/a.md", "c1")
	b := srcFile("/kb/b.md", "c2")

	cs := d.Detect(tracked(a, b), []domain.SourceFile{a, b}, true)

	assert.ElementsMatch(t, []domain.SourceFile{a, b}, cs.ToProcess)
	assert.Empty(t, cs.Unchanged)
}

func TestDetect_DuplicateChecksumsIndependent(t *testing.T) {
	d := NewChangeDetector()
	// Two paths with identical content are tracked separately.
	a := srcFile("/kb/a.md", "same")
	b := srcFile("/kb/b.md", "same")

	cs := d.Detect(tracked(a), []domain.SourceFile{a, b}, false)

	assert.Equal(t, []domain.SourceFile{b}, cs.ToProcess)
	assert.Equal(t, []domain.SourceFile{a}, cs.Unchanged)
}
