// Package markdown provides a loader for Markdown files.
package markdown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lorekeep/lorekeep-cli/internal/core/domain"
	"github.com/lorekeep/lorekeep-cli/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// Loader reads Markdown files as raw UTF-8 text. Formatting is kept
// intact, headings and emphasis markers carry meaning worth indexing.
type Loader struct{}

// New creates a new Markdown loader.
func New() *Loader {
	return &Loader{}
}

// Extensions returns the file extensions this loader handles.
func (l *Loader) Extensions() []string {
	return []string{".md", ".markdown"}
}

// Load reads the file content verbatim. A file with only whitespace
// returns domain.ErrNoExtractableText.
func (l *Loader) Load(_ context.Context, path string) (*domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read markdown %s: %w", path, err)
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrNoExtractableText)
	}

	return &domain.Document{
		Source:   path,
		Filename: filepath.Base(path),
		Text:     text,
		Type:     domain.FileTypeMarkdown,
	}, nil
}
