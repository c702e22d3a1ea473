package hierarchy

import (
	"hash/fnv"
	"reflect"
	"sync"
)

// Tag identifies the concrete runtime type of a value. Tags are
// interned: every value of the same type yields the same *Tag, so
// identity comparison is sufficient. The packed method cache relies on
// that, and on Hash being stable for the lifetime of the process.
type Tag struct {
	// RType is the Go type behind the tag. Nil for pseudo-tags
	// (NilTag, AnyTag and abstract tags created via AbstractTag).
	RType reflect.Type

	// Name is the canonical, human-readable type name used in
	// diagnostics and as the hash input.
	Name string

	hash uint32
}

func (t *Tag) Hash() uint32 { return t.hash }

func (t *Tag) String() string { return t.Name }

// IsInterface reports whether the tag names a Go interface type.
func (t *Tag) IsInterface() bool {
	return t.RType != nil && t.RType.Kind() == reflect.Interface
}

var (
	// NilTag stands in for the absent receiver: TagOf(nil).
	NilTag = &Tag{Name: "nil", hash: hashName("nil")}

	// AnyTag is the universal root type every ancestor chain
	// terminates at. Implementations registered for AnyTag act as the
	// last-resort fallback during resolution.
	AnyTag = &Tag{Name: "any", hash: hashName("any")}
)

// tags is the process-wide intern table. Interning a new type is rare
// relative to lookup, which happens on every dispatch cache miss.
var tags = struct {
	mu     sync.RWMutex
	byType map[reflect.Type]*Tag
	byName map[string]*Tag
}{
	byType: make(map[reflect.Type]*Tag),
	byName: map[string]*Tag{NilTag.Name: NilTag, AnyTag.Name: AnyTag},
}

// TagOf returns the interned tag for the concrete type of v.
// A nil value maps to NilTag.
func TagOf(v any) *Tag {
	if v == nil {
		return NilTag
	}
	return TagFor(reflect.TypeOf(v))
}

// TagFor returns the interned tag for a reflect type.
func TagFor(rt reflect.Type) *Tag {
	if rt == nil {
		return NilTag
	}
	tags.mu.RLock()
	t := tags.byType[rt]
	tags.mu.RUnlock()
	if t != nil {
		return t
	}

	tags.mu.Lock()
	defer tags.mu.Unlock()
	if t := tags.byType[rt]; t != nil {
		return t
	}
	t = &Tag{RType: rt, Name: typeName(rt), hash: hashName(typeName(rt))}
	tags.byType[rt] = t
	return t
}

// AbstractTag interns a named tag with no Go type behind it. Abstract
// tags serve as derivation targets grouping otherwise unrelated types
// (see Hierarchy.Derive) and as registrable implementation keys.
func AbstractTag(name string) *Tag {
	tags.mu.Lock()
	defer tags.mu.Unlock()
	if t := tags.byName[name]; t != nil {
		return t
	}
	t := &Tag{Name: name, hash: hashName(name)}
	tags.byName[name] = t
	return t
}

func typeName(rt reflect.Type) string {
	if pkg := rt.PkgPath(); pkg != "" {
		return pkg + "." + rt.Name()
	}
	return rt.String()
}

func hashName(name string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(name))
	return h.Sum32()
}
