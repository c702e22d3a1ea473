package protean

import (
	"fmt"
	"reflect"
	"unicode"
	"unicode/utf8"
)

// Callable is the uniform implementation signature stored in the
// registry and the method caches. args excludes the receiver.
type Callable func(recv any, args ...any) (any, error)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// asCallable normalizes a registered implementation. A Callable passes
// through unchecked (its arity is enforced at call time); any other Go
// func is validated against the operation's declared arities and
// wrapped via reflection.
func asCallable(protocol string, op *Operation, fn any) (Callable, error) {
	if fn == nil {
		return nil, fmt.Errorf("register %s.%s: nil implementation", protocol, op.Name)
	}
	switch c := fn.(type) {
	case Callable:
		return c, nil
	case func(any, ...any) (any, error):
		return Callable(c), nil
	}

	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	if ft.Kind() != reflect.Func {
		return nil, fmt.Errorf("register %s.%s: implementation must be a func, got %T", protocol, op.Name, fn)
	}
	if !ft.IsVariadic() && !op.acceptsArity(ft.NumIn()) {
		return nil, fmt.Errorf("register %s.%s: func takes %d arguments, declared arities are %v", protocol, op.Name, ft.NumIn(), op.Arities)
	}
	if err := checkResults(ft); err != nil {
		return nil, fmt.Errorf("register %s.%s: %w", protocol, op.Name, err)
	}

	return func(recv any, args ...any) (any, error) {
		if !ft.IsVariadic() && ft.NumIn() != len(args)+1 {
			return nil, fmt.Errorf("%s.%s: implementation takes %d arguments, called with %d", protocol, op.Name, ft.NumIn(), len(args)+1)
		}
		in := make([]reflect.Value, 0, len(args)+1)
		in = append(in, argValue(recv, paramType(ft, 0)))
		for i, a := range args {
			in = append(in, argValue(a, paramType(ft, i+1)))
		}
		return callResults(ft, fv.Call(in))
	}, nil
}

// checkResults accepts (), (T), (error) and (T, error) shapes.
func checkResults(ft reflect.Type) error {
	switch ft.NumOut() {
	case 0, 1:
		return nil
	case 2:
		if ft.Out(1) != errType {
			return fmt.Errorf("second result must be error, got %s", ft.Out(1))
		}
		return nil
	default:
		return fmt.Errorf("func must return at most (value, error), got %d results", ft.NumOut())
	}
}

// callResults maps a reflect.Call result onto the Callable contract.
func callResults(ft reflect.Type, out []reflect.Value) (any, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if ft.Out(0) == errType {
			return nil, asErr(out[0])
		}
		return out[0].Interface(), nil
	default:
		return out[0].Interface(), asErr(out[1])
	}
}

func asErr(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

// argValue converts a dispatch argument for reflective invocation.
// A nil argument becomes the zero value of the parameter type, which
// keeps nil receivers and nil interface arguments callable.
func argValue(a any, t reflect.Type) reflect.Value {
	if a == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(a)
}

// paramType returns the static type of parameter i, unrolling the
// variadic tail.
func paramType(ft reflect.Type, i int) reflect.Type {
	if ft.IsVariadic() && i >= ft.NumIn()-1 {
		return ft.In(ft.NumIn() - 1).Elem()
	}
	return ft.In(i)
}

// nativeCall invokes the receiver's own method for an operation. This
// is the fast path for types that directly satisfy the capability: the
// table and cache are bypassed entirely.
func nativeCall(protocol string, op *Operation, recv any, args []any) (any, error) {
	rv := reflect.ValueOf(recv)
	m := rv.MethodByName(op.Method)
	if !m.IsValid() {
		return nil, fmt.Errorf("protocol %s: type %T declares direct capability but has no method %s", protocol, recv, op.Method)
	}
	mt := m.Type()
	if !mt.IsVariadic() && mt.NumIn() != len(args) {
		return nil, fmt.Errorf("%s.%s: method %T.%s takes %d arguments, called with %d", protocol, op.Name, recv, op.Method, mt.NumIn(), len(args))
	}
	in := make([]reflect.Value, 0, len(args))
	for i, a := range args {
		in = append(in, argValue(a, paramType(mt, i)))
	}
	return callResults(mt, m.Call(in))
}

// nativeCallable wraps the native path as a Callable. Used by the pure
// resolver so Satisfies and direct resolve calls see the same result
// the trampoline fast path produces.
func nativeCallable(protocol string, op *Operation) Callable {
	return func(recv any, args ...any) (any, error) {
		return nativeCall(protocol, op, recv, args)
	}
}

// exportName maps an operation name onto the exported Go method name
// used by the native path: "area" -> "Area".
func exportName(op string) string {
	r, size := utf8.DecodeRuneInString(op)
	if r == utf8.RuneError {
		return op
	}
	return string(unicode.ToUpper(r)) + op[size:]
}
