package hierarchy

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// Hierarchy records the derivation and direct-capability relations the
// implementation resolver consults. One instance is owned by each
// dispatch runtime; it is not ambient global state.
//
// Two sources feed the ancestor chain of a type: relations declared
// explicitly via Derive, and the structure of the Go type itself
// (embedded anonymous fields, and the element type for pointers).
type Hierarchy struct {
	mu      sync.RWMutex
	parents map[*Tag][]*Tag
	direct  map[uuid.UUID]map[*Tag]struct{}
}

func New() *Hierarchy {
	return &Hierarchy{
		parents: make(map[*Tag][]*Tag),
		direct:  make(map[uuid.UUID]map[*Tag]struct{}),
	}
}

// Derive declares parent as a supertype of child for resolution
// purposes. Rejects self-derivation, deriving the root, and cycles.
func (h *Hierarchy) Derive(child, parent *Tag) error {
	if child == parent {
		return fmt.Errorf("derive: %s cannot derive from itself", child)
	}
	if child == AnyTag {
		return fmt.Errorf("derive: the root type cannot derive from %s", parent)
	}
	if parent == NilTag {
		return fmt.Errorf("derive: %s cannot derive from nil", child)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.reachable(parent, child) {
		return fmt.Errorf("derive: %s -> %s would create a cycle", child, parent)
	}
	for _, p := range h.parents[child] {
		if p == parent {
			return nil
		}
	}
	h.parents[child] = append(h.parents[child], parent)
	return nil
}

// reachable reports whether to is in from's ancestor closure.
// Caller holds h.mu.
func (h *Hierarchy) reachable(from, to *Tag) bool {
	for _, p := range h.step(from) {
		if p == to || h.reachable(p, to) {
			return true
		}
	}
	return false
}

// Ancestors returns t's ancestor chain, most specific first,
// terminating with AnyTag. t itself is excluded. The chain is a
// breadth-first walk over declared parents (in declaration order)
// followed by the type's own structural supertypes, deduplicated, so
// it is deterministic for a fixed set of Derive calls.
func (h *Hierarchy) Ancestors(t *Tag) []*Tag {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := map[*Tag]bool{t: true, AnyTag: true}
	var out []*Tag
	queue := h.step(t)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
		queue = append(queue, h.step(n)...)
	}
	return append(out, AnyTag)
}

// step returns t's immediate supertypes: declared parents first, then
// the pointed-to type for pointer tags, then embedded anonymous fields
// in field order. Caller holds h.mu (read or write).
func (h *Hierarchy) step(t *Tag) []*Tag {
	next := append([]*Tag(nil), h.parents[t]...)

	rt := t.RType
	if rt == nil {
		return next
	}
	if rt.Kind() == reflect.Pointer {
		// A *T receiver falls back to implementations registered
		// for T before anything else structural.
		return append(next, TagFor(rt.Elem()))
	}
	if rt.Kind() != reflect.Struct {
		return next
	}
	for i := 0; i < rt.NumField(); i++ {
		if f := rt.Field(i); f.Anonymous {
			next = append(next, TagFor(f.Type))
		}
	}
	return next
}

// DeclareDirect records that t directly satisfies the capability id.
// This is the entry point for the external type-generation collaborator;
// types built with first-class protocol support call it (or implement
// the protocol's Go interface, which needs no declaration at all).
func (h *Hierarchy) DeclareDirect(cap uuid.UUID, t *Tag) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.direct[cap]
	if set == nil {
		set = make(map[*Tag]struct{})
		h.direct[cap] = set
	}
	set[t] = struct{}{}
}

// Direct reports whether t was explicitly declared to satisfy cap.
func (h *Hierarchy) Direct(cap uuid.UUID, t *Tag) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.direct[cap][t]
	return ok
}

// Capabilities returns the capability ids directly declared for t
// (ancestors excluded). Order is unspecified.
func (h *Hierarchy) Capabilities(t *Tag) []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []uuid.UUID
	for id, set := range h.direct {
		if _, ok := set[t]; ok {
			out = append(out, id)
		}
	}
	return out
}
