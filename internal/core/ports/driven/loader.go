package driven

import (
	"context"

	"github.com/lorekeep/lorekeep-cli/internal/core/domain"
)

// Loader extracts text from one source file format.
type Loader interface {
	// Extensions returns the file extensions this loader handles,
	// lowercase with leading dot (e.g. ".pdf").
	Extensions() []string

	// Load reads the file at path and returns its extracted text.
	// Returns domain.ErrNoExtractableText when the file is readable
	// but yields no content.
	Load(ctx context.Context, path string) (*domain.Document, error)
}

// LoaderRegistry dispatches files to the loader registered for
// their extension.
type LoaderRegistry interface {
	// Register adds a loader to the registry.
	Register(loader Loader)

	// Load extracts text from the file at path using the matching
	// loader. Returns domain.ErrUnsupportedType when no loader
	// claims the extension.
	Load(ctx context.Context, path string) (*domain.Document, error)

	// Extensions returns all extensions that can be loaded.
	Extensions() []string
}
