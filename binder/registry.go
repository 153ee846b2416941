package binder

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/multierr"

	"github.com/wippyai/ffi-runtime/descriptor"
)

// Registry caches binders by cleaned library path so each library is
// loaded once. Thread-safe.
type Registry struct {
	binders map[string]*Binder
	opts    Options
	mu      sync.Mutex
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	return &Registry{binders: make(map[string]*Binder), opts: opts}
}

// CleanPath normalizes a library path. Paths with a separator become
// absolute; bare names are left for the loader's search path.
func CleanPath(path string) string {
	if !strings.ContainsRune(path, os.PathSeparator) {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Binder returns the binder for path, creating it if needed. A closed
// binder is replaced by a fresh one.
func (r *Registry) Binder(path string) *Binder {
	key := CleanPath(path)

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.binders[key]; ok && b.State() != Closed {
		return b
	}
	b := New(key, r.opts)
	r.binders[key] = b
	return b
}

// Bind opens the library at path and binds d against it.
func (r *Registry) Bind(path string, d *descriptor.Descriptor) (*Table, error) {
	b := r.Binder(path)
	if err := b.Open(); err != nil {
		return nil, err
	}
	return b.BindAll(d)
}

// Paths returns the cleaned paths of live binders.
func (r *Registry) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]string, 0, len(r.binders))
	for p, b := range r.binders {
		if b.State() != Closed {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}

// Close closes every binder and reports all close errors.
func (r *Registry) Close() error {
	r.mu.Lock()
	binders := r.binders
	r.binders = make(map[string]*Binder)
	r.mu.Unlock()

	var err error
	for _, b := range binders {
		err = multierr.Append(err, b.Close())
	}
	return err
}
