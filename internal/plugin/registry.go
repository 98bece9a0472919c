// Package plugin implements the invocation plugin registry (spec.md
// §6): a (holder, name, arg-types) lookup to a handler invoked during
// graph building or inlining, which may replace an invoke with a
// value-producing subgraph spliced directly into the caller graph.
package plugin

import (
	deadlock "github.com/sasha-s/go-deadlock"

	"jitcore/internal/graph"
)

// Handler inspects invoke's already-built argument nodes and either
// builds a replacement subgraph in g and returns its result value with
// ok=true, or returns ok=false to leave invoke to ordinary processing.
type Handler func(g *graph.Graph, invoke graph.ID, args []graph.ID) (result graph.ID, ok bool)

type key struct{ holder, name, sig string }

// Registry maps (holder, name, arg-types) to a Handler. Signature-
// polymorphic entries are registered against a holder+name with no
// signature and accept any arity; an exact (holder, name, sig) entry is
// always preferred when both exist.
//
// Guarded by a deadlock-checked lock (spec.md §5 "Shared resources" —
// oracle caches and the plugin registry are exactly this kind of
// cross-compilation shared map) rather than a plain sync.RWMutex,
// matching this module's choice of github.com/sasha-s/go-deadlock for
// every lock of this shape.
type Registry struct {
	mu           deadlock.RWMutex
	exact        map[key]Handler
	polymorphic  map[[2]string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		exact:       map[key]Handler{},
		polymorphic: map[[2]string]Handler{},
	}
}

// Register binds an exact (holder, name, sig) call to h.
func (r *Registry) Register(holder, name, sig string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exact[key{holder, name, sig}] = h
}

// RegisterPolymorphic binds every call to (holder, name) regardless of
// signature to h — for intrinsics whose arity or argument types vary
// (e.g. varargs builders, generic array factories).
func (r *Registry) RegisterPolymorphic(holder, name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.polymorphic[[2]string{holder, name}] = h
}

// Lookup returns the handler for (holder, name, sig), preferring an
// exact match over a signature-polymorphic one.
func (r *Registry) Lookup(holder, name, sig string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.exact[key{holder, name, sig}]; ok {
		return h, true
	}
	h, ok := r.polymorphic[[2]string{holder, name}]
	return h, ok
}
