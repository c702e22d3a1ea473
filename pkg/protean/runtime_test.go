package protean

import (
	"errors"
	"testing"
)

func TestDeclareValidation(t *testing.T) {
	rt := quietRuntime()

	if _, err := rt.Declare("", []OpSpec{{Name: "op", Arities: []int{1}}}); err == nil {
		t.Errorf("empty protocol name accepted")
	}
	if _, err := rt.Declare("P", nil); err == nil {
		t.Errorf("protocol without operations accepted")
	}
	if _, err := rt.Declare("P", []OpSpec{{Name: "op"}}); err == nil {
		t.Errorf("operation without arities accepted")
	}
	if _, err := rt.Declare("P", []OpSpec{{Name: "op", Arities: []int{0}}}); err == nil {
		t.Errorf("receiver-less arity accepted")
	}

	var dup *DuplicateOperationError
	_, err := rt.Declare("P", []OpSpec{
		{Name: "op", Arities: []int{1}},
		{Name: "op", Arities: []int{2}},
	})
	if !errors.As(err, &dup) {
		t.Errorf("duplicate operation in one declaration: got %v", err)
	}
}

func TestRedeclare(t *testing.T) {
	rt := quietRuntime()
	ops := []OpSpec{{Name: "ping", Arities: []int{1}}}

	p1, err := rt.Declare("Pinger", ops)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	p2, err := rt.Declare("Pinger", ops)
	if err != nil {
		t.Fatalf("redeclare with same signature: %v", err)
	}
	if p1 == p2 {
		t.Fatalf("redeclaration did not produce a new generation")
	}
	if live, _ := rt.Protocol("Pinger"); live != p2 {
		t.Fatalf("live protocol is not the newest generation")
	}

	var dup *DuplicateOperationError
	_, err = rt.Declare("Pinger", []OpSpec{{Name: "ping", Arities: []int{2}}})
	if !errors.As(err, &dup) {
		t.Fatalf("signature change accepted: %v", err)
	}
}

func TestConflictingOwner(t *testing.T) {
	rt := quietRuntime()
	if _, err := rt.Declare("A", []OpSpec{{Name: "run", Arities: []int{1}}}); err != nil {
		t.Fatalf("declare A: %v", err)
	}

	var conflict *ConflictingOwnerError
	_, err := rt.Declare("B", []OpSpec{{Name: "run", Arities: []int{1}}})
	if !errors.As(err, &conflict) {
		t.Fatalf("live-owner conflict not detected: %v", err)
	}
	if conflict.Owner != "A" || conflict.Operation != "run" {
		t.Errorf("conflict = %+v", conflict)
	}
}

func TestStaleOwnerTakeover(t *testing.T) {
	rt := quietRuntime()
	ops := []OpSpec{
		{Name: "walk", Arities: []int{1}},
		{Name: "run", Arities: []int{1}},
	}
	if _, err := rt.Declare("Mover", ops); err != nil {
		t.Fatalf("declare Mover: %v", err)
	}
	// Redeclare Mover without "run": the owner entry for "run" now
	// points at a stale generation.
	if _, err := rt.Declare("Mover", ops[:1]); err != nil {
		t.Fatalf("redeclare Mover: %v", err)
	}
	if _, err := rt.Declare("Runner", []OpSpec{{Name: "run", Arities: []int{1}}}); err != nil {
		t.Fatalf("stale owner should only warn: %v", err)
	}
}

func TestRegisterErrors(t *testing.T) {
	rt := quietRuntime()
	p := declareShape(t, rt)

	var unknownOp *UnknownOperationError
	err := rt.Register(p, tagOf(Circle{}), "volume", func(c Circle) float64 { return 0 })
	if !errors.As(err, &unknownOp) {
		t.Errorf("unknown operation: got %v", err)
	}

	var unknownProto *UnknownProtocolError
	other := quietRuntime()
	err = other.Register(p, tagOf(Circle{}), "area", func(c Circle) float64 { return 0 })
	if !errors.As(err, &unknownProto) {
		t.Errorf("foreign runtime: got %v", err)
	}

	// NativeRect implements Shape: a table override would be ambiguous.
	var direct *AlreadyDirectError
	err = rt.Register(p, tagOf(NativeRect{}), "area", func(r NativeRect) float64 { return 0 })
	if !errors.As(err, &direct) {
		t.Errorf("AlreadyDirect: got %v", err)
	}
}

func TestRegisterCallableValidation(t *testing.T) {
	rt := quietRuntime()
	p := declareShape(t, rt)
	circle := tagOf(Circle{})

	if err := rt.Register(p, circle, "area", 42); err == nil {
		t.Errorf("non-func implementation accepted")
	}
	if err := rt.Register(p, circle, "area", nil); err == nil {
		t.Errorf("nil implementation accepted")
	}
	if err := rt.Register(p, circle, "area", func(c Circle, extra int) float64 { return 0 }); err == nil {
		t.Errorf("arity-2 func accepted for an arity-1 operation")
	}
	if err := rt.Register(p, circle, "area", func(c Circle) (int, string) { return 0, "" }); err == nil {
		t.Errorf("func with non-error second result accepted")
	}
}

func TestLookupExactOnly(t *testing.T) {
	rt := quietRuntime()
	p := declareShape(t, rt)
	if err := rt.Register(p, tagOf(Polygon{}), "area", func(any) float64 { return 0 }); err != nil {
		t.Fatalf("register: %v", err)
	}

	if m, ok := rt.Lookup(p, tagOf(Polygon{})); !ok || m["area"] == nil {
		t.Errorf("exact lookup missed a registered entry")
	}
	// Square reaches Polygon only through the ancestor walk, which
	// Lookup does not perform.
	if _, ok := rt.Lookup(p, tagOf(Square{})); ok {
		t.Errorf("Lookup consulted the ancestor chain")
	}
}

func TestProtocolAccessors(t *testing.T) {
	rt := quietRuntime()
	p, err := rt.Declare("Render", []OpSpec{
		{Name: "draw", Arities: []int{1, 2}},
		{Name: "erase", Arities: []int{1}, Method: "Wipe"},
	})
	if err != nil {
		t.Fatalf("declare: %v", err)
	}

	ops := p.Operations()
	if len(ops) != 2 || ops[0].Name != "draw" || ops[1].Name != "erase" {
		t.Fatalf("Operations() = %v", ops)
	}
	if ops[0].Method != "Draw" {
		t.Errorf("default method name = %q, want Draw", ops[0].Method)
	}
	if ops[1].Method != "Wipe" {
		t.Errorf("explicit method name = %q, want Wipe", ops[1].Method)
	}
	if p.CapabilityID().String() == "00000000-0000-0000-0000-000000000000" {
		t.Errorf("no capability id generated")
	}

	if _, err := p.Func("draw"); err != nil {
		t.Errorf("Func(draw): %v", err)
	}
	if _, err := p.Func("missing"); err == nil {
		t.Errorf("Func(missing) succeeded")
	}

	if got := len(rt.Protocols()); got != 1 {
		t.Errorf("Protocols() = %d entries, want 1", got)
	}
}
