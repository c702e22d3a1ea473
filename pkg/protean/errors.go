package protean

import "fmt"

// DuplicateOperationError is returned by Declare when an operation name
// is redefined with a different signature.
type DuplicateOperationError struct {
	Protocol  string
	Operation string
}

func (e *DuplicateOperationError) Error() string {
	return fmt.Sprintf("protocol %s: operation %s is already declared with a different signature", e.Protocol, e.Operation)
}

// ConflictingOwnerError is returned by Declare when an operation name is
// already owned by a different live protocol. When the prior owner is a
// stale generation this is downgraded to a warning and the declaration
// proceeds.
type ConflictingOwnerError struct {
	Protocol  string
	Operation string
	Owner     string
}

func (e *ConflictingOwnerError) Error() string {
	return fmt.Sprintf("operation %s cannot be declared by protocol %s: already owned by protocol %s", e.Operation, e.Protocol, e.Owner)
}

// UnknownProtocolError is returned when a protocol was never declared
// on the runtime (or only a stale generation of it was).
type UnknownProtocolError struct {
	Protocol string
}

func (e *UnknownProtocolError) Error() string {
	return fmt.Sprintf("unknown protocol %s", e.Protocol)
}

// UnknownOperationError is returned when an operation name is not part
// of the protocol's declaration.
type UnknownOperationError struct {
	Protocol  string
	Operation string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("protocol %s has no operation %s", e.Protocol, e.Operation)
}

// AlreadyDirectError is returned by Register and Extend when the target
// type already directly satisfies the protocol's capability. A type
// owning the native capability may not also be given a table-based
// override; that would create an ambiguous dual implementation.
type AlreadyDirectError struct {
	Protocol string
	Type     string
}

func (e *AlreadyDirectError) Error() string {
	return fmt.Sprintf("type %s already directly satisfies protocol %s", e.Type, e.Protocol)
}

// NoImplementationError is returned by dispatch when resolution finds
// no applicable implementation. Type is a human-readable description of
// the receiver's runtime type, or "nil" for an absent receiver.
type NoImplementationError struct {
	Protocol  string
	Operation string
	Type      string
}

func (e *NoImplementationError) Error() string {
	return fmt.Sprintf("no implementation of %s.%s for type %s", e.Protocol, e.Operation, e.Type)
}
