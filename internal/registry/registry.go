package registry

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"casebook/internal/assets"
)

// Diff is the outcome of a full reconciliation.
type Diff struct {
	Added   []assets.Descriptor `json:"added"`
	Removed []Removal           `json:"removed"`
}

// Removal names an asset that disappeared and the path it was bound to.
type Removal struct {
	ID           string `json:"id"`
	RelativePath string `json:"relative_path"`
}

// Empty reports whether the diff carries no change.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Binding is a persisted path to id association from an earlier session.
type Binding struct {
	RelativePath string
	ID           string
}

// Registry is the authoritative map from asset identity to descriptor. All
// methods are safe for concurrent use; mutations are serialized and readers
// receive copies.
type Registry struct {
	mu        sync.RWMutex
	byPath    map[string]assets.Descriptor
	byID      map[string]string
	overrides map[string]assets.Override
	retained  map[string]string
	retired   map[string]struct{}
	newID     func() string
}

// Option customizes a Registry.
type Option func(*Registry)

// WithIDGenerator replaces the random UUID generator. Tests use it for
// readable ids.
func WithIDGenerator(gen func() string) Option {
	return func(r *Registry) {
		if gen != nil {
			r.newID = gen
		}
	}
}

// New constructs an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		byPath:    make(map[string]assets.Descriptor),
		byID:      make(map[string]string),
		overrides: make(map[string]assets.Override),
		retained:  make(map[string]string),
		retired:   make(map[string]struct{}),
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadOverrides replaces the stored user metadata keyed by relative path.
// Already tracked descriptors are rebuilt so the overrides apply immediately.
func (r *Registry) LoadOverrides(overrides map[string]assets.Override) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides = make(map[string]assets.Override, len(overrides))
	for path, o := range overrides {
		if o.IsZero() {
			continue
		}
		r.overrides[assets.NormalizePath(path)] = o
	}
	for path, d := range r.byPath {
		r.byPath[path] = r.rebuildLocked(d)
	}
}

// SetOverride merges o into the stored override for path and returns the
// updated descriptor when the path is tracked.
func (r *Registry) SetOverride(path string, o assets.Override) (assets.Descriptor, bool) {
	path = assets.NormalizePath(path)
	r.mu.Lock()
	defer r.mu.Unlock()
	merged := r.overrides[path].Merge(o)
	if merged.IsZero() {
		delete(r.overrides, path)
	} else {
		r.overrides[path] = merged
	}
	d, ok := r.byPath[path]
	if !ok {
		return assets.Descriptor{}, false
	}
	d = r.rebuildLocked(d)
	r.byPath[path] = d
	return d.Clone(), true
}

// Override returns the stored override for path.
func (r *Registry) Override(path string) (assets.Override, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.overrides[assets.NormalizePath(path)]
	return o, ok
}

// Retain seeds identities remembered from an earlier session. A retained id
// is reused when its path is observed again; the next full reconcile drops
// retained ids whose path is gone.
func (r *Registry) Retain(bindings []Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range bindings {
		path := assets.NormalizePath(b.RelativePath)
		if path == "" || b.ID == "" {
			continue
		}
		if _, tracked := r.byPath[path]; tracked {
			continue
		}
		if _, retired := r.retired[b.ID]; retired {
			continue
		}
		r.retained[path] = b.ID
	}
}

// Upsert records an observation of path. A known path keeps its id and has its
// classified fields refreshed; a new path gets a fresh or retained id.
// created reports whether the path was previously unknown.
func (r *Registry) Upsert(path string, c assets.Candidate) (assets.Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, created := r.upsertLocked(path, c)
	return d.Clone(), created
}

// Remove forgets path and retires its id. ok is false when the path was not tracked.
func (r *Registry) Remove(path string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(assets.NormalizePath(path))
}

// RemovePrefix removes every tracked path under dir, used when a whole folder
// disappears. Removals are returned in path order.
func (r *Registry) RemovePrefix(dir string) []Removal {
	dir = assets.NormalizePath(dir)
	r.mu.Lock()
	defer r.mu.Unlock()
	var paths []string
	for path := range r.byPath {
		if dir == "" || underDir(path, dir) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	out := make([]Removal, 0, len(paths))
	for _, path := range paths {
		if id, ok := r.removeLocked(path); ok {
			out = append(out, Removal{ID: id, RelativePath: path})
		}
	}
	return out
}

// ReconcileOption adjusts a full reconciliation.
type ReconcileOption func(*reconcileConfig)

type reconcileConfig struct {
	preserve map[string]struct{}
	prefixes []string
}

func (cfg *reconcileConfig) preserved(path string) bool {
	if _, ok := cfg.preserve[path]; ok {
		return true
	}
	for _, dir := range cfg.prefixes {
		if underDir(path, dir) {
			return true
		}
	}
	return false
}

// Preserve exempts paths from the snapshot: they are neither added nor
// removed. The watch session uses it for files with writes still settling.
func Preserve(paths ...string) ReconcileOption {
	return func(cfg *reconcileConfig) {
		for _, p := range paths {
			cfg.preserve[assets.NormalizePath(p)] = struct{}{}
		}
	}
}

// PreservePrefix exempts every path under each directory, and the directory
// path itself. The watch session uses it for folders a scan could not read.
func PreservePrefix(dirs ...string) ReconcileOption {
	return func(cfg *reconcileConfig) {
		for _, d := range dirs {
			if d = assets.NormalizePath(d); d != "" {
				cfg.prefixes = append(cfg.prefixes, d)
			}
		}
	}
}

// Reconcile applies a complete snapshot. New paths are added, tracked paths
// missing from the snapshot are removed, and the rest are merged as by Upsert.
// The whole update happens under one lock so readers never see a partial
// state. Added and removed entries are sorted by path.
func (r *Registry) Reconcile(candidates []assets.Candidate, opts ...ReconcileOption) Diff {
	cfg := reconcileConfig{preserve: map[string]struct{}{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(candidates))
	var diff Diff
	for _, c := range candidates {
		path := assets.NormalizePath(c.RelativePath)
		if path == "" {
			continue
		}
		if cfg.preserved(path) {
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		if d, created := r.upsertLocked(path, c); created {
			diff.Added = append(diff.Added, d.Clone())
		}
	}

	var gone []string
	for path := range r.byPath {
		if _, ok := seen[path]; ok {
			continue
		}
		if cfg.preserved(path) {
			continue
		}
		gone = append(gone, path)
	}
	sort.Strings(gone)
	for _, path := range gone {
		if id, ok := r.removeLocked(path); ok {
			diff.Removed = append(diff.Removed, Removal{ID: id, RelativePath: path})
		}
	}

	// Retained ids that were not re-observed belong to files deleted while no
	// session was watching.
	for path, id := range r.retained {
		if cfg.preserved(path) {
			continue
		}
		delete(r.retained, path)
		r.retired[id] = struct{}{}
	}

	sort.Slice(diff.Added, func(i, j int) bool {
		return diff.Added[i].RelativePath < diff.Added[j].RelativePath
	})
	return diff
}

// Get returns the descriptor tracked at path.
func (r *Registry) Get(path string) (assets.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byPath[assets.NormalizePath(path)]
	return d.Clone(), ok
}

// GetByID returns the descriptor with the given id.
func (r *Registry) GetByID(id string) (assets.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	path, ok := r.byID[id]
	if !ok {
		return assets.Descriptor{}, false
	}
	d := r.byPath[path]
	return d.Clone(), true
}

// Snapshot returns an immutable copy of every tracked descriptor, sorted by path.
func (r *Registry) Snapshot() []assets.Descriptor {
	r.mu.RLock()
	out := make([]assets.Descriptor, 0, len(r.byPath))
	for _, d := range r.byPath {
		out = append(out, d.Clone())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].RelativePath < out[j].RelativePath })
	return out
}

// Bindings returns the current path to id associations, sorted by path.
func (r *Registry) Bindings() []Binding {
	r.mu.RLock()
	out := make([]Binding, 0, len(r.byPath))
	for path, d := range r.byPath {
		out = append(out, Binding{RelativePath: path, ID: d.ID})
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].RelativePath < out[j].RelativePath })
	return out
}

// Len reports how many assets are tracked.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPath)
}

// underDir reports whether path is dir or lies beneath it.
func underDir(path, dir string) bool {
	return path == dir || (len(path) > len(dir) && path[:len(dir)] == dir && path[len(dir)] == '/')
}

func (r *Registry) upsertLocked(path string, c assets.Candidate) (assets.Descriptor, bool) {
	path = assets.NormalizePath(path)
	c.RelativePath = path
	if existing, ok := r.byPath[path]; ok {
		d := assets.Build(existing.ID, c, r.overrides[path])
		r.byPath[path] = d
		return d, false
	}
	id, ok := r.retained[path]
	delete(r.retained, path)
	if _, live := r.byID[id]; !ok || live {
		id = r.freshIDLocked()
	}
	d := assets.Build(id, c, r.overrides[path])
	r.byPath[path] = d
	r.byID[id] = path
	return d, true
}

func (r *Registry) removeLocked(path string) (string, bool) {
	d, ok := r.byPath[path]
	if !ok {
		return "", false
	}
	delete(r.byPath, path)
	delete(r.byID, d.ID)
	r.retired[d.ID] = struct{}{}
	return d.ID, true
}

func (r *Registry) rebuildLocked(d assets.Descriptor) assets.Descriptor {
	c := assets.Candidate{
		RelativePath: d.RelativePath,
		LogicalType:  d.LogicalType,
		Category:     d.Category,
		MimeType:     d.MimeType,
	}
	return assets.Build(d.ID, c, r.overrides[d.RelativePath])
}

// freshIDLocked never hands out an id that is live, retained, or retired.
func (r *Registry) freshIDLocked() string {
	for {
		id := r.newID()
		if _, live := r.byID[id]; live {
			continue
		}
		if _, retired := r.retired[id]; retired {
			continue
		}
		if r.isRetainedLocked(id) {
			continue
		}
		return id
	}
}

func (r *Registry) isRetainedLocked(id string) bool {
	for _, retained := range r.retained {
		if retained == id {
			return true
		}
	}
	return false
}
