// Package loaders implements the driven.Loader port for every file format
// Context Cache ingests locally: Markdown, plain text and source code,
// PDF, individual email (.eml) and mailbox (.mbox) archives, and flattened
// Notion HTML exports. Dispatch is by file suffix first, MIME sniff second.
package loaders

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/context-cache/ctxc/internal/core/ports/driven"
)

// Registry resolves a path/MIME pair to the Loader responsible for it.
type Registry struct {
	mu        sync.RWMutex
	bySuffix  map[string][]driven.Loader
	byMIME    map[string][]driven.Loader
}

var _ driven.LoaderRegistry = (*Registry)(nil)

// New returns an empty registry. Callers register the built-in loaders via
// RegisterDefaults or hand-pick a subset.
func New() *Registry {
	return &Registry{
		bySuffix: make(map[string][]driven.Loader),
		byMIME:   make(map[string][]driven.Loader),
	}
}

func (r *Registry) Register(l driven.Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range l.SupportedMIME() {
		r.byMIME[m] = append(r.byMIME[m], l)
	}
}

// RegisterSuffix additionally indexes a loader by file extension (without
// the dot), since local files are most often resolved by suffix rather
// than a trustworthy MIME type.
func (r *Registry) RegisterSuffix(suffix string, l driven.Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bySuffix[suffix] = append(r.bySuffix[suffix], l)
}

func (r *Registry) Resolve(path string, mime string) (driven.Loader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	suffix := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if cands, ok := r.bySuffix[suffix]; ok && len(cands) > 0 {
		return highestPriority(cands), true
	}
	if cands, ok := r.byMIME[mime]; ok && len(cands) > 0 {
		return highestPriority(cands), true
	}
	return nil, false
}

func highestPriority(cands []driven.Loader) driven.Loader {
	best := cands[0]
	for _, c := range cands[1:] {
		if c.Priority() > best.Priority() {
			best = c
		}
	}
	return best
}
