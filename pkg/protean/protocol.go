package protean

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/google/uuid"

	"github.com/getprotean/protean/internal/hierarchy"
)

// OpSpec declares one operation of a protocol.
type OpSpec struct {
	// Name is the operation name, unique within the protocol.
	Name string

	// Arities lists the argument counts the operation accepts,
	// receiver included. Every arity is at least 1: an operation
	// always takes the receiver.
	Arities []int

	// Method is the Go method name invoked on the native path.
	// Defaults to the operation name with its first rune exported.
	Method string
}

// Operation is a declared operation together with its dispatch
// trampoline.
type Operation struct {
	Name    string
	Arities []int
	Method  string

	fn *Func
}

// Func returns the operation's dispatch trampoline.
func (o *Operation) Func() *Func { return o.fn }

func (o *Operation) acceptsArity(n int) bool {
	return slices.Contains(o.Arities, n)
}

// sameSignature reports whether a redeclaration matches the original.
func (o *Operation) sameSignature(s OpSpec) bool {
	arities := append([]int(nil), s.Arities...)
	slices.Sort(arities)
	declared := append([]int(nil), o.Arities...)
	slices.Sort(declared)
	return slices.Equal(arities, declared)
}

// Protocol is a named set of operations dispatched on the receiver
// type. A Protocol value is immutable after Declare; implementations
// come and go in the owning Runtime's registry.
type Protocol struct {
	name  string
	capID uuid.UUID
	iface reflect.Type // optional native capability interface
	ops   map[string]*Operation
	order []string
	rt    *Runtime
}

func (p *Protocol) Name() string { return p.name }

// CapabilityID returns the capability id generated (or supplied) at
// declaration time. The type-generation collaborator uses it to mark
// types as directly capable via Hierarchy.DeclareDirect.
func (p *Protocol) CapabilityID() uuid.UUID { return p.capID }

// Interface returns the Go interface bound as the native capability,
// or nil when the protocol is extension-only.
func (p *Protocol) Interface() reflect.Type { return p.iface }

// Operations returns the operations in declaration order.
func (p *Protocol) Operations() []*Operation {
	out := make([]*Operation, len(p.order))
	for i, name := range p.order {
		out[i] = p.ops[name]
	}
	return out
}

// Func returns the dispatch trampoline for an operation.
func (p *Protocol) Func(op string) (*Func, error) {
	o := p.ops[op]
	if o == nil {
		return nil, &UnknownOperationError{Protocol: p.name, Operation: op}
	}
	return o.fn, nil
}

// Invoke dispatches an operation by name. Shorthand for Func + Invoke.
func (p *Protocol) Invoke(op string, recv any, args ...any) (any, error) {
	o := p.ops[op]
	if o == nil {
		return nil, &UnknownOperationError{Protocol: p.name, Operation: op}
	}
	return o.fn.Invoke(recv, args...)
}

// directlySatisfies reports whether t holds the protocol's capability
// natively: its Go type implements the bound interface, or the
// collaborator declared it directly capable.
func (p *Protocol) directlySatisfies(t *hierarchy.Tag) bool {
	if p.iface != nil && t.RType != nil && t.RType.Implements(p.iface) {
		return true
	}
	return p.rt.hier.Direct(p.capID, t)
}

func validateOps(name string, ops []OpSpec) error {
	if name == "" {
		return fmt.Errorf("declare: protocol name must not be empty")
	}
	if len(ops) == 0 {
		return fmt.Errorf("declare %s: a protocol needs at least one operation", name)
	}
	seen := make(map[string]bool, len(ops))
	for _, s := range ops {
		if s.Name == "" {
			return fmt.Errorf("declare %s: operation name must not be empty", name)
		}
		if seen[s.Name] {
			return &DuplicateOperationError{Protocol: name, Operation: s.Name}
		}
		seen[s.Name] = true
		if len(s.Arities) == 0 {
			return fmt.Errorf("declare %s: operation %s needs at least one arity", name, s.Name)
		}
		for _, a := range s.Arities {
			if a < 1 {
				return fmt.Errorf("declare %s: operation %s: arity %d is below 1, every operation takes the receiver", name, s.Name, a)
			}
		}
	}
	return nil
}
