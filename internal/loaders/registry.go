package loaders

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lorekeep/lorekeep-cli/internal/core/domain"
	"github.com/lorekeep/lorekeep-cli/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.LoaderRegistry = (*Registry)(nil)

// Registry dispatches files to the loader registered for their
// extension.
type Registry struct {
	mu      sync.RWMutex
	byExt   map[string]driven.Loader
	ordered []string
}

// NewRegistry creates an empty loader registry.
func NewRegistry() *Registry {
	return &Registry{
		byExt: make(map[string]driven.Loader),
	}
}

// Register adds a loader. A loader claiming an already registered
// extension replaces the previous one.
func (r *Registry) Register(loader driven.Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ext := range loader.Extensions() {
		ext = strings.ToLower(ext)
		if _, exists := r.byExt[ext]; !exists {
			r.ordered = append(r.ordered, ext)
		}
		r.byExt[ext] = loader
	}
	sort.Strings(r.ordered)
}

// Load extracts text from the file at path using the loader
// registered for its extension.
func (r *Registry) Load(ctx context.Context, path string) (*domain.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))

	r.mu.RLock()
	loader, ok := r.byExt[ext]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, ext)
	}
	return loader.Load(ctx, path)
}

// Extensions returns all registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.ordered))
	copy(out, r.ordered)
	return out
}
