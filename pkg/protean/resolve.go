package protean

import (
	"sort"

	"github.com/getprotean/protean/internal/hierarchy"
)

// resolveOp is the pure resolution function; the method caches only
// memoize it. For a fixed snapshot and hierarchy state it always
// returns the same answer, performs no I/O and never blocks, so it is
// safe to execute redundantly when dispatches race.
func (rt *Runtime) resolveOp(snap *snapshot, p *Protocol, op *Operation, t *hierarchy.Tag) (Callable, error) {
	if p.directlySatisfies(t) {
		return nativeCallable(p.name, op), nil
	}
	m, _ := rt.findImpl(snap, p, op.Name, t)
	if m != nil {
		if c := m[op.Name]; c != nil {
			return c, nil
		}
	}
	return nil, &NoImplementationError{Protocol: p.name, Operation: op.Name, Type: t.Name}
}

// findImpl locates the implementation map applicable to t, in order:
//
//  1. the exact type,
//  2. the ancestor chain, root excluded, first match wins (more
//     specific ancestors shadow less specific ones),
//  3. registered interface keys the type implements, reduced pairwise
//     by the preference rule,
//  4. the universal root.
//
// opName is only used for diagnostics and may be empty (Satisfies).
// Returns the winning map and its key, or (nil, nil).
func (rt *Runtime) findImpl(snap *snapshot, p *Protocol, opName string, t *hierarchy.Tag) (map[string]Callable, *hierarchy.Tag) {
	impl := func(k *hierarchy.Tag) map[string]Callable {
		return snap.impls[implKey{protocol: p.name, tag: k}]
	}

	if m := impl(t); m != nil {
		return m, t
	}

	for _, a := range rt.hier.Ancestors(t) {
		if a == hierarchy.AnyTag {
			continue // root fallback comes after the interface pass
		}
		if m := impl(a); m != nil {
			return m, a
		}
	}

	if best := rt.bestInterface(snap, p, opName, t); best != nil {
		return impl(best), best
	}

	if m := impl(hierarchy.AnyTag); m != nil {
		return m, hierarchy.AnyTag
	}
	return nil, nil
}

// bestInterface collects every registered interface key t implements
// and reduces them with the preference rule: between two candidates the
// one assignable to the other is more specific and wins. Candidates are
// visited in name order, so the pick is deterministic for a fixed
// registry state; a pick between mutually unrelated candidates is
// implementation-defined and reported as an ambiguous preference.
func (rt *Runtime) bestInterface(snap *snapshot, p *Protocol, opName string, t *hierarchy.Tag) *hierarchy.Tag {
	if t.RType == nil {
		return nil
	}
	var cands []*hierarchy.Tag
	for key := range snap.impls {
		if key.protocol != p.name {
			continue
		}
		k := key.tag
		if k == t || k == hierarchy.AnyTag || !k.IsInterface() {
			continue
		}
		if t.RType.Implements(k.RType) {
			cands = append(cands, k)
		}
	}
	if len(cands) == 0 {
		return nil
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].Name < cands[j].Name })

	best := cands[0]
	for _, c := range cands[1:] {
		best = rt.pref(p, opName, t, best, c)
	}
	return best
}

// pref keeps the more specific of two candidate interfaces. When
// neither is assignable to the other the first is kept and the tie is
// logged, never escalated to a dispatch failure.
func (rt *Runtime) pref(p *Protocol, opName string, t, a, b *hierarchy.Tag) *hierarchy.Tag {
	if a.RType.Implements(b.RType) {
		return a
	}
	if b.RType.Implements(a.RType) {
		return b
	}
	rt.stats.ambiguous(p.name)
	rt.log.Warn("ambiguous implementation preference",
		"protocol", p.name,
		"operation", opName,
		"type", t.Name,
		"picked", a.Name,
		"rejected", b.Name)
	return a
}
