// Package pdf provides a loader for PDF files.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/lorekeep/lorekeep-cli/internal/core/domain"
	"github.com/lorekeep/lorekeep-cli/internal/core/ports/driven"
	"github.com/lorekeep/lorekeep-cli/internal/logger"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// Loader extracts text from PDF files page by page.
type Loader struct{}

// New creates a new PDF loader.
func New() *Loader {
	return &Loader{}
}

// Extensions returns the file extensions this loader handles.
func (l *Loader) Extensions() []string {
	return []string{".pdf"}
}

// Load extracts the text of every page and concatenates non-empty
// pages with a blank line. A document without any extractable text
// returns domain.ErrNoExtractableText.
func (l *Loader) Load(ctx context.Context, path string) (*domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pdf %s: %w", path, err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf %s: %w", path, err)
	}

	pages := reader.NumPage()
	texts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single broken page does not fail the document.
			logger.Debug("Skipping page %d of %s: %v", i, path, err)
			continue
		}
		if strings.TrimSpace(text) != "" {
			texts = append(texts, text)
		}
	}

	if len(texts) == 0 {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrNoExtractableText)
	}

	return &domain.Document{
		Source:   path,
		Filename: filepath.Base(path),
		Text:     strings.Join(texts, "\n\n"),
		Type:     domain.FileTypePDF,
		Pages:    pages,
	}, nil
}
