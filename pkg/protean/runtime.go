package protean

import (
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/getprotean/protean/internal/hierarchy"
	"github.com/getprotean/protean/internal/mcache"
)

// Runtime owns all dispatch state: the protocol registry, the type
// hierarchy and the per-operation method caches. Reads go through an
// atomic immutable snapshot; Declare, Register and Extend serialize on
// a mutex and publish a fresh snapshot, so no lock is ever held across
// a resolution or a user callable. Protocols must be declared before
// any Register, Extend or dispatch referencing them.
type Runtime struct {
	mu    sync.Mutex // guards the write path only
	snap  atomic.Pointer[snapshot]
	hier  *hierarchy.Hierarchy
	log   *slog.Logger
	stats stats
}

// snapshot is the immutable registry state the read path consults.
// Writers clone, modify the clone and publish it with a single store.
type snapshot struct {
	protocols map[string]*Protocol
	owners    map[string]*Protocol // operation name -> owning protocol
	impls     map[implKey]map[string]Callable
}

type implKey struct {
	protocol string
	tag      *hierarchy.Tag
}

func (s *snapshot) clone() *snapshot {
	return &snapshot{
		protocols: maps.Clone(s.protocols),
		owners:    maps.Clone(s.owners),
		impls:     maps.Clone(s.impls),
	}
}

// live reports whether p is the current generation of its protocol.
// Declaring a protocol name again replaces the previous generation;
// stale generations no longer own their operation names.
func (s *snapshot) live(p *Protocol) bool {
	return s.protocols[p.name] == p
}

type Option func(*Runtime)

// WithLogger sets the logger used for non-fatal diagnostics
// (stale-owner takeovers, ambiguous preference picks).
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) { rt.log = l }
}

// New creates an empty dispatch runtime.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		hier: hierarchy.New(),
		log:  slog.Default(),
	}
	rt.snap.Store(&snapshot{
		protocols: make(map[string]*Protocol),
		owners:    make(map[string]*Protocol),
		impls:     make(map[implKey]map[string]Callable),
	})
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Hierarchy exposes the runtime's ancestor resolver so callers can
// derive supertype relations and declare direct capabilities.
func (rt *Runtime) Hierarchy() *hierarchy.Hierarchy { return rt.hier }

type declareCfg struct {
	capID uuid.UUID
	iface reflect.Type
}

type DeclareOption func(*declareCfg)

// WithInterface binds a Go interface as the protocol's native
// capability: any receiver whose type implements it dispatches straight
// to its own methods, bypassing the registry and the caches.
func WithInterface(iface reflect.Type) DeclareOption {
	return func(c *declareCfg) { c.iface = iface }
}

// WithCapabilityID fixes the capability id instead of generating one.
// Used when the declaration collaborator already assigned an id.
func WithCapabilityID(id uuid.UUID) DeclareOption {
	return func(c *declareCfg) { c.capID = id }
}

// Declare registers a protocol and creates one dispatch trampoline per
// operation. Redeclaring an existing protocol with the same operation
// signatures replaces it wholesale (the previous generation becomes
// stale); changing an operation's signature is rejected with
// DuplicateOperationError. An operation name owned by a different live
// protocol is rejected with ConflictingOwnerError; a stale owner is
// logged and taken over.
func (rt *Runtime) Declare(name string, ops []OpSpec, opts ...DeclareOption) (*Protocol, error) {
	if err := validateOps(name, ops); err != nil {
		return nil, err
	}
	var cfg declareCfg
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.iface != nil && cfg.iface.Kind() != reflect.Interface {
		return nil, fmt.Errorf("declare %s: capability type %s is not an interface", name, cfg.iface)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	snap := rt.snap.Load()

	if prev := snap.protocols[name]; prev != nil {
		for _, s := range ops {
			if op := prev.ops[s.Name]; op != nil && !op.sameSignature(s) {
				return nil, &DuplicateOperationError{Protocol: name, Operation: s.Name}
			}
		}
	}
	for _, s := range ops {
		owner := snap.owners[s.Name]
		if owner == nil || owner.name == name {
			continue
		}
		if snap.live(owner) {
			return nil, &ConflictingOwnerError{Protocol: name, Operation: s.Name, Owner: owner.name}
		}
		rt.log.Warn("operation owner is stale, taking over",
			"operation", s.Name,
			"protocol", name,
			"prior_owner", owner.name)
	}

	p := &Protocol{
		name:  name,
		capID: cfg.capID,
		iface: cfg.iface,
		ops:   make(map[string]*Operation, len(ops)),
		order: make([]string, 0, len(ops)),
		rt:    rt,
	}
	if p.capID == uuid.Nil {
		p.capID = uuid.New()
	}
	for _, s := range ops {
		method := s.Method
		if method == "" {
			method = exportName(s.Name)
		}
		op := &Operation{
			Name:    s.Name,
			Arities: append([]int(nil), s.Arities...),
			Method:  method,
		}
		op.fn = newFunc(p, op)
		p.ops[s.Name] = op
		p.order = append(p.order, s.Name)
	}

	ns := snap.clone()
	ns.protocols[name] = p
	for _, s := range ops {
		ns.owners[s.Name] = p
	}
	rt.snap.Store(ns)
	return p, nil
}

// Register adds (or replaces) a single implementation for one operation
// of a protocol on the given type, then invalidates the protocol's
// caches. Fails without mutating anything on an unknown protocol or
// operation, or when the type already directly satisfies the
// capability.
func (rt *Runtime) Register(p *Protocol, t *hierarchy.Tag, op string, fn any) error {
	return rt.Extend(p, t, map[string]any{op: fn})
}

// Extend merges an implementation map for (protocol, type) into the
// registry and rebuilds every trampoline cache of the protocol, so no
// call site can keep serving a pre-extension resolution. Entries
// previously registered for the pair are kept unless named again, in
// which case they are replaced. The whole call either fully applies or
// leaves the registry unchanged.
func (rt *Runtime) Extend(p *Protocol, t *hierarchy.Tag, impls map[string]any) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	snap := rt.snap.Load()

	cur := snap.protocols[p.name]
	if cur == nil || cur != p {
		return &UnknownProtocolError{Protocol: p.name}
	}
	if len(impls) == 0 {
		return nil
	}
	if cur.directlySatisfies(t) {
		return &AlreadyDirectError{Protocol: cur.name, Type: t.Name}
	}

	// Validate everything before touching the snapshot.
	normalized := make(map[string]Callable, len(impls))
	for name, fn := range impls {
		op := cur.ops[name]
		if op == nil {
			return &UnknownOperationError{Protocol: cur.name, Operation: name}
		}
		c, err := asCallable(cur.name, op, fn)
		if err != nil {
			return err
		}
		normalized[name] = c
	}

	ns := snap.clone()
	key := implKey{protocol: cur.name, tag: t}
	merged := maps.Clone(ns.impls[key])
	if merged == nil {
		merged = make(map[string]Callable, len(normalized))
	}
	maps.Copy(merged, normalized)
	ns.impls[key] = merged
	rt.snap.Store(ns)

	rt.rebuildCaches(cur)
	rt.stats.rebuild(cur.name)
	return nil
}

// rebuildCaches replaces every trampoline cache of p with a fresh empty
// cache. Caller holds rt.mu; the stores are wholesale replacements, so
// a dispatch racing this loses any concurrent insert (its CAS fails)
// and re-resolves against the new snapshot.
func (rt *Runtime) rebuildCaches(p *Protocol) {
	for _, name := range p.order {
		p.ops[name].fn.cache.Store(mcache.Empty[Callable]())
	}
}

// Protocol returns the live protocol declared under name.
func (rt *Runtime) Protocol(name string) (*Protocol, bool) {
	p, ok := rt.snap.Load().protocols[name]
	return p, ok
}

// Protocols returns all live protocols. Order is unspecified.
func (rt *Runtime) Protocols() []*Protocol {
	snap := rt.snap.Load()
	out := make([]*Protocol, 0, len(snap.protocols))
	for _, p := range snap.protocols {
		out = append(out, p)
	}
	return out
}

// Lookup returns the implementation map explicitly registered for the
// exact (protocol, type) pair. O(1) by type identity; ancestor and
// interface fallbacks are not consulted.
func (rt *Runtime) Lookup(p *Protocol, t *hierarchy.Tag) (map[string]Callable, bool) {
	m, ok := rt.snap.Load().impls[implKey{protocol: p.name, tag: t}]
	if !ok {
		return nil, false
	}
	return maps.Clone(m), true
}

// Satisfies reports whether dispatching any operation of p on value
// would find an implementation, through the native, exact, ancestor,
// interface or root path.
func (rt *Runtime) Satisfies(p *Protocol, value any) bool {
	snap := rt.snap.Load()
	if !snap.live(p) {
		return false
	}
	t := hierarchy.TagOf(value)
	if p.directlySatisfies(t) {
		return true
	}
	m, _ := rt.findImpl(snap, p, "", t)
	return m != nil
}
