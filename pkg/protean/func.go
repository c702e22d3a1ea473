package protean

import (
	"fmt"
	"sync/atomic"

	"github.com/getprotean/protean/internal/hierarchy"
	"github.com/getprotean/protean/internal/mcache"
)

// Func is the dispatch trampoline for one operation: the callable end
// users invoke. It owns the operation's method cache and replaces it
// through compare-and-swap on resolution, so a racing insert that loses
// to a concurrent insert or to an Extend-triggered rebuild is simply
// dropped and redone on the next miss.
type Func struct {
	proto *Protocol
	op    *Operation
	cache atomic.Pointer[mcache.Cache[Callable]]
}

func newFunc(p *Protocol, op *Operation) *Func {
	f := &Func{proto: p, op: op}
	f.cache.Store(mcache.Empty[Callable]())
	return f
}

// Name returns "Protocol.operation".
func (f *Func) Name() string { return f.proto.name + "." + f.op.Name }

// Invoke dispatches on the runtime type of recv.
//
// A receiver whose type directly satisfies the capability goes straight
// to its own method with no cache interaction; that is the designed
// common case for first-class implementers. Everything else consults
// the cache, falling back to full resolution on a miss.
func (f *Func) Invoke(recv any, args ...any) (any, error) {
	if !f.op.acceptsArity(len(args) + 1) {
		return nil, fmt.Errorf("%s: called with %d arguments, declared arities are %v", f.Name(), len(args)+1, f.op.Arities)
	}

	t := hierarchy.TagOf(recv)
	if f.proto.directlySatisfies(t) {
		return nativeCall(f.proto.name, f.op, recv, args)
	}

	rt := f.proto.rt
	c := f.cache.Load()
	if fn, ok := c.Lookup(t); ok {
		rt.stats.hit(f.proto.name)
		return fn(recv, args...)
	}
	rt.stats.miss(f.proto.name)

	snap := rt.snap.Load()
	live := snap.protocols[f.proto.name]
	if live == nil {
		return nil, &UnknownProtocolError{Protocol: f.proto.name}
	}
	op := live.ops[f.op.Name]
	if op == nil {
		return nil, &UnknownOperationError{Protocol: f.proto.name, Operation: f.op.Name}
	}
	fn, err := rt.resolveOp(snap, live, op, t)
	if err != nil {
		return nil, err
	}
	rt.stats.resolution(f.proto.name)

	next := c.Insert(t, fn)
	if f.cache.CompareAndSwap(c, next) && next.Packed() && !c.Packed() {
		rt.stats.promotion(f.proto.name)
	}
	return fn(recv, args...)
}

// cached returns the cache entry for t, for introspection and tests.
func (f *Func) cached(t *hierarchy.Tag) (Callable, bool) {
	return f.cache.Load().Lookup(t)
}

// CacheLen returns the number of memoized resolutions.
func (f *Func) CacheLen() int { return f.cache.Load().Len() }

// CachePacked reports whether the cache was promoted to its packed
// representation.
func (f *Func) CachePacked() bool { return f.cache.Load().Packed() }
