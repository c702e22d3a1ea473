// Package protean provides ad-hoc polymorphic dispatch for Go values:
// declare a named protocol (a set of operations dispatched on the
// receiver type), supply implementations for arbitrary pre-existing
// types after the fact, and invoke operations with performance close to
// a direct call thanks to a self-optimizing per-operation method cache.
//
// Three paths can satisfy a dispatch, checked in order:
//
//  1. Native: the receiver's type implements the protocol's Go
//     interface (or was declared directly capable). The call goes
//     straight to the type's own method, bypassing all tables.
//  2. Extension: an implementation registered via Register or Extend
//     for the exact type, an ancestor, or an implemented interface.
//  3. Root fallback: an implementation registered for the universal
//     root type.
//
// All dispatch state is owned by a Runtime. Dispatch is safe for
// concurrent use; Declare, Register and Extend serialize on a mutex
// and publish immutable snapshots, so no lock is ever held across a
// resolution or a user callable.
package protean
