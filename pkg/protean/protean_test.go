package protean

import (
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/getprotean/protean/internal/hierarchy"
)

// Shared fixtures. Polygon is an ancestor of Square and Triangle via
// embedding; NativeRect satisfies the Shape capability natively.

type Polygon struct{}

type Circle struct{ Radius float64 }

type Square struct {
	Polygon
	Side float64
}

type Triangle struct {
	Polygon
	Base, Height float64
}

type Shape interface{ Area() float64 }

type NativeRect struct{ W, H float64 }

func (r NativeRect) Area() float64 { return r.W * r.H }

var shapeIface = reflect.TypeOf((*Shape)(nil)).Elem()

type Walker interface{ Walk() string }
type Swimmer interface{ Swim() string }

type duck struct{}

func (duck) Walk() string { return "walk" }
func (duck) Swim() string { return "swim" }

type Animal interface{ Kind() string }

type Dog interface {
	Animal
	Bark() string
}

type beagle struct{}

func (beagle) Kind() string { return "dog" }
func (beagle) Bark() string { return "woof" }

func quietRuntime() *Runtime {
	return New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func declareShape(t *testing.T, rt *Runtime) *Protocol {
	t.Helper()
	p, err := rt.Declare("Shape",
		[]OpSpec{{Name: "area", Arities: []int{1}}},
		WithInterface(shapeIface))
	if err != nil {
		t.Fatalf("declare Shape: %v", err)
	}
	return p
}

func tagOf(v any) *hierarchy.Tag { return hierarchy.TagOf(v) }

func ifaceTag(p any) *hierarchy.Tag {
	return hierarchy.TagFor(reflect.TypeOf(p).Elem())
}

func mustInvoke(t *testing.T, f *Func, recv any, args ...any) any {
	t.Helper()
	got, err := f.Invoke(recv, args...)
	if err != nil {
		t.Fatalf("%s: %v", f.Name(), err)
	}
	return got
}
