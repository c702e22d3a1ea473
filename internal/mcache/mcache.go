// Package mcache implements the per-operation method cache: a
// persistent map from interned type tags to resolved implementations.
//
// A cache value is never mutated in place. Insert returns a new cache
// and the caller publishes it with a single atomic store, so concurrent
// readers always observe a complete structure. The cache is pure
// memoization: dispatch stays correct with a permanently empty cache.
package mcache

import (
	"github.com/getprotean/protean/internal/config"
	"github.com/getprotean/protean/internal/hierarchy"
)

// Cache has two representations. The sparse form is a flat entry slice
// scanned linearly, used while small. Once it holds more than
// config.CachePromoteThreshold entries, Insert searches for a
// (shift, mask) pair making (hash>>shift)&mask collision-free over the
// current keys; when one exists the cache is rebuilt as a packed slot
// array with O(1) lookup. When none exists the cache stays sparse and
// the search is retried on the next insert.
type Cache[V any] struct {
	shift  uint32
	mask   uint32
	packed []entry[V] // len mask+1 when non-nil
	sparse []entry[V]
}

type entry[V any] struct {
	key *hierarchy.Tag // nil marks an empty packed slot
	val V
}

// Empty returns the empty cache.
func Empty[V any]() *Cache[V] { return &Cache[V]{} }

// Lookup returns the value cached for t. A packed slot holding a
// different tag is a miss, not an error: the hash pair is only
// collision-free for the keys present when it was computed, so keys
// inserted on a later cache version may alias older slots.
func (c *Cache[V]) Lookup(t *hierarchy.Tag) (V, bool) {
	if c.packed != nil {
		if e := &c.packed[(t.Hash()>>c.shift)&c.mask]; e.key == t {
			return e.val, true
		}
		var zero V
		return zero, false
	}
	for i := range c.sparse {
		if c.sparse[i].key == t {
			return c.sparse[i].val, true
		}
	}
	var zero V
	return zero, false
}

// Insert returns a new cache holding every prior entry plus (t, v).
// A previous entry for t is superseded. The receiver is unchanged.
func (c *Cache[V]) Insert(t *hierarchy.Tag, v V) *Cache[V] {
	entries := c.entries()
	replaced := false
	for i := range entries {
		if entries[i].key == t {
			entries[i].val = v
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, entry[V]{key: t, val: v})
	}

	if len(entries) > config.CachePromoteThreshold {
		hashes := make([]uint32, len(entries))
		for i := range entries {
			hashes[i] = entries[i].key.Hash()
		}
		if shift, mask, ok := minHash(hashes); ok {
			packed := make([]entry[V], mask+1)
			for _, e := range entries {
				packed[(e.key.Hash()>>shift)&mask] = e
			}
			return &Cache[V]{shift: shift, mask: mask, packed: packed}
		}
	}
	return &Cache[V]{sparse: entries}
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	if c.packed == nil {
		return len(c.sparse)
	}
	n := 0
	for i := range c.packed {
		if c.packed[i].key != nil {
			n++
		}
	}
	return n
}

// Packed reports whether the cache uses the packed representation.
func (c *Cache[V]) Packed() bool { return c.packed != nil }

// entries returns a fresh slice of the occupied entries.
func (c *Cache[V]) entries() []entry[V] {
	if c.packed == nil {
		return append([]entry[V](nil), c.sparse...)
	}
	out := make([]entry[V], 0, len(c.packed))
	for _, e := range c.packed {
		if e.key != nil {
			out = append(out, e)
		}
	}
	return out
}
