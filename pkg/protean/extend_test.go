package protean

import (
	"errors"
	"math"
	"testing"
)

// After extend, the very next dispatch must see the new implementation,
// even when a stale cache entry existed under an ancestor's entry.
func TestExtendInvalidatesStaleResolutions(t *testing.T) {
	rt := quietRuntime()
	p := declareShape(t, rt)

	if err := rt.Register(p, tagOf(Polygon{}), "area", func(any) string { return "generic" }); err != nil {
		t.Fatalf("register Polygon: %v", err)
	}

	f, _ := p.Func("area")
	// Prime the cache: Square resolves to the Polygon entry.
	if got := mustInvoke(t, f, Square{Side: 3}); got != "generic" {
		t.Fatalf("pre-extend dispatch = %v", got)
	}
	if _, ok := f.cached(tagOf(Square{})); !ok {
		t.Fatalf("cache not primed")
	}

	if err := rt.Extend(p, tagOf(Square{}), map[string]any{
		"area": func(s Square) float64 { return s.Side * s.Side },
	}); err != nil {
		t.Fatalf("extend: %v", err)
	}

	if _, ok := f.cached(tagOf(Square{})); ok {
		t.Fatalf("cache survived the extend")
	}
	if got := mustInvoke(t, f, Square{Side: 3}); got != 9.0 {
		t.Fatalf("post-extend dispatch = %v, want 9", got)
	}
}

// Extending a type adds to previously registered operations for the
// same (protocol, type) pair; it never silently drops them.
func TestExtendMergesImplementationMaps(t *testing.T) {
	rt := quietRuntime()
	p, err := rt.Declare("Geometry", []OpSpec{
		{Name: "area", Arities: []int{1}},
		{Name: "perimeter", Arities: []int{1}},
	})
	if err != nil {
		t.Fatalf("declare: %v", err)
	}

	circle := tagOf(Circle{})
	if err := rt.Extend(p, circle, map[string]any{
		"area": func(c Circle) float64 { return math.Pi * c.Radius * c.Radius },
	}); err != nil {
		t.Fatalf("extend area: %v", err)
	}
	if err := rt.Extend(p, circle, map[string]any{
		"perimeter": func(c Circle) float64 { return 2 * math.Pi * c.Radius },
	}); err != nil {
		t.Fatalf("extend perimeter: %v", err)
	}

	m, ok := rt.Lookup(p, circle)
	if !ok || m["area"] == nil || m["perimeter"] == nil {
		t.Fatalf("implementation map lost an entry: %v", m)
	}

	if got, _ := p.Invoke("area", Circle{Radius: 1}); got != math.Pi {
		t.Errorf("area = %v, want π", got)
	}
	if got, _ := p.Invoke("perimeter", Circle{Radius: 1}); got != 2*math.Pi {
		t.Errorf("perimeter = %v, want 2π", got)
	}
}

func TestExtendReplacesNamedEntries(t *testing.T) {
	rt := quietRuntime()
	p := declareShape(t, rt)
	circle := tagOf(Circle{})

	if err := rt.Register(p, circle, "area", func(Circle) string { return "v1" }); err != nil {
		t.Fatalf("register v1: %v", err)
	}
	f, _ := p.Func("area")
	mustInvoke(t, f, Circle{})

	if err := rt.Register(p, circle, "area", func(Circle) string { return "v2" }); err != nil {
		t.Fatalf("register v2: %v", err)
	}
	if got := mustInvoke(t, f, Circle{}); got != "v2" {
		t.Fatalf("dispatch after replace = %v, want v2", got)
	}
}

// A failing extend leaves the registry and the caches untouched.
func TestExtendIsAtomic(t *testing.T) {
	rt := quietRuntime()
	p := declareShape(t, rt)
	circle := tagOf(Circle{})

	if err := rt.Register(p, circle, "area", func(Circle) string { return "keep" }); err != nil {
		t.Fatalf("register: %v", err)
	}

	var unknownOp *UnknownOperationError
	err := rt.Extend(p, circle, map[string]any{
		"area":   func(Circle) string { return "dropme" },
		"volume": func(Circle) float64 { return 0 },
	})
	if !errors.As(err, &unknownOp) {
		t.Fatalf("bad extend: got %v", err)
	}

	m, _ := rt.Lookup(p, circle)
	f, _ := p.Func("area")
	if got := mustInvoke(t, f, Circle{}); got != "keep" || m["volume"] != nil {
		t.Fatalf("failed extend mutated state: dispatch=%v map=%v", got, m)
	}
}

func TestExtendStaleGeneration(t *testing.T) {
	rt := quietRuntime()
	ops := []OpSpec{{Name: "ping", Arities: []int{1}}}
	p1, err := rt.Declare("Pinger", ops)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	if _, err := rt.Declare("Pinger", ops); err != nil {
		t.Fatalf("redeclare: %v", err)
	}

	var unknown *UnknownProtocolError
	err = rt.Extend(p1, tagOf(Circle{}), map[string]any{"ping": func(any) string { return "pong" }})
	if !errors.As(err, &unknown) {
		t.Fatalf("extend through a stale generation: got %v", err)
	}
}
