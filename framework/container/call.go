package container

import (
	"fmt"
	"reflect"
	"runtime"

	"github.com/muir/reflectutils"
)

// errorType is the reflect.Type of the error interface, used to spot a
// trailing error result.
var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Arg is one raw named argument for Call, typically a route parameter. Args
// are consumed positionally: the i-th scalar parameter of the target takes
// the i-th remaining Arg, whatever its Name. The Name only improves error
// messages when coercion fails.
type Arg struct {
	Name  string
	Value string
}

// callConfig collects the per-call inputs assembled by CallOption.
type callConfig struct {
	args   []Arg
	values []any
}

// CallOption configures a single Call invocation.
type CallOption func(*callConfig)

// WithArgs supplies raw named arguments, in order. Scalar parameters of the
// target consume them positionally and coerce each one to the declared type.
func WithArgs(args ...Arg) CallOption {
	return func(cfg *callConfig) {
		cfg.args = append(cfg.args, args...)
	}
}

// WithArg supplies a single raw named argument.
func WithArg(name, value string) CallOption {
	return func(cfg *callConfig) {
		cfg.args = append(cfg.args, Arg{Name: name, Value: value})
	}
}

// WithValues seeds already-constructed values. A parameter whose type the
// seed is assignable to takes the seed instead of hitting the container —
// how a request object reaches handler parameters without being bound.
func WithValues(values ...any) CallOption {
	return func(cfg *callConfig) {
		cfg.values = append(cfg.values, values...)
	}
}

// ── Call ──────────────────────────────────────────────────────────────────────

// Call invokes target, filling each parameter in declaration order:
//
//  1. scalar parameters (string, bool, int/uint/float kinds, slices of
//     those) consume the next raw Arg and coerce it, failing the whole call
//     with a *CoercionError when the cast is impossible;
//  2. dependency parameters (pointers, interfaces, structs) take the first
//     assignable seed from WithValues, else resolve from the container via
//     the type index, failing with a *BindingResolutionError when nothing
//     satisfies the type;
//  3. a variadic tail consumes all remaining Args, or is omitted entirely
//     when none remain.
//
// The call is all-or-nothing: target never executes unless every parameter
// was satisfied. Targets return at most one value plus an optional trailing
// error; Call returns that value and the error.
//
//	// Laravel: $app->call([$controller, 'show'], ['id' => '42'])
//	out, err := c.Call(controller.Show, container.WithArg("id", "42"))
func (c *Container) Call(target any, opts ...CallOption) (any, error) {
	cfg := &callConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	fn := reflect.ValueOf(target)
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, unresolvable(fmt.Sprintf("%T", target), "call target is not a function")
	}
	if fn.IsNil() {
		return nil, unresolvable(funcName(fn), "call target is a nil function")
	}

	t := fn.Type()
	if err := validateResults(t); err != nil {
		return nil, err
	}

	numIn := t.NumIn()
	in := make([]reflect.Value, 0, numIn)
	argIdx := 0

	for i := 0; i < numIn; i++ {
		pt := t.In(i)

		if t.IsVariadic() && i == numIn-1 {
			tail, err := c.fillVariadic(fn, pt.Elem(), cfg, &argIdx)
			if err != nil {
				return nil, err
			}
			in = append(in, tail...)
			break
		}

		v, err := c.fillParam(fn, i, pt, cfg, &argIdx)
		if err != nil {
			return nil, err
		}
		in = append(in, v)
	}

	return splitResults(t, fn.Call(in))
}

// MustCall is Call with a panic on failure, for bootstrap code.
func (c *Container) MustCall(target any, opts ...CallOption) any {
	out, err := c.Call(target, opts...)
	if err != nil {
		panic(err)
	}
	return out
}

// fillParam produces the value for the i-th parameter of fn.
func (c *Container) fillParam(fn reflect.Value, i int, pt reflect.Type, cfg *callConfig, argIdx *int) (reflect.Value, error) {
	// Scalars and empty interfaces feed from the raw args, positionally. An
	// empty interface receives the raw string untouched.
	if coercible(pt) || emptyInterface(pt) {
		if *argIdx < len(cfg.args) {
			arg := cfg.args[*argIdx]
			*argIdx++
			v, err := Coerce(arg.Value, pt)
			if err != nil {
				if ce, ok := err.(*CoercionError); ok && ce.Param == "" {
					ce.Param = arg.Name
				}
				return reflect.Value{}, err
			}
			return v, nil
		}
		if !emptyInterface(pt) {
			return reflect.Value{}, unresolvable(funcName(fn), fmt.Sprintf(
				"no argument supplied for parameter #%d (%s)", i, reflectutils.TypeName(pt)))
		}
		// An empty interface with no args left falls through to the seeds.
	}

	// Seeds: already-built values supplied for this call.
	for _, seed := range cfg.values {
		if seed == nil {
			continue
		}
		if reflect.TypeOf(seed).AssignableTo(pt) {
			return reflect.ValueOf(seed), nil
		}
	}

	// Container, by registered type.
	instance, ok, err := c.makeByType(pt)
	if err != nil {
		return reflect.Value{}, err
	}
	if ok {
		if instance == nil {
			return reflect.Zero(pt), nil
		}
		return reflect.ValueOf(instance), nil
	}

	return reflect.Value{}, unresolvable(funcName(fn), fmt.Sprintf(
		"cannot satisfy parameter #%d (%s)", i, reflectutils.TypeName(pt)))
}

// fillVariadic coerces every remaining raw arg to the variadic element type.
// With no args left the tail is simply omitted.
func (c *Container) fillVariadic(fn reflect.Value, elem reflect.Type, cfg *callConfig, argIdx *int) ([]reflect.Value, error) {
	if *argIdx >= len(cfg.args) {
		return nil, nil
	}
	if !coercible(elem) && !emptyInterface(elem) {
		return nil, unresolvable(funcName(fn), fmt.Sprintf(
			"variadic parameter (%s) cannot take raw arguments", reflectutils.TypeName(elem)))
	}
	out := make([]reflect.Value, 0, len(cfg.args)-*argIdx)
	for *argIdx < len(cfg.args) {
		arg := cfg.args[*argIdx]
		*argIdx++
		v, err := Coerce(arg.Value, elem)
		if err != nil {
			if ce, ok := err.(*CoercionError); ok && ce.Param == "" {
				ce.Param = arg.Name
			}
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// validateResults enforces the supported target shape: zero results, one
// result, or one result plus a trailing error.
func validateResults(t reflect.Type) error {
	switch t.NumOut() {
	case 0, 1:
		return nil
	case 2:
		if t.Out(1) == errorType {
			return nil
		}
	}
	return unresolvable(t.String(), "unsupported signature: targets return at most one value plus a trailing error")
}

// splitResults separates a trailing error from the call results.
func splitResults(t reflect.Type, outs []reflect.Value) (any, error) {
	if len(outs) == 0 {
		return nil, nil
	}

	var err error
	last := outs[len(outs)-1]
	if t.Out(len(outs)-1) == errorType {
		if !last.IsNil() {
			err = last.Interface().(error)
		}
		outs = outs[:len(outs)-1]
	}

	if len(outs) == 0 {
		return nil, err
	}
	return outs[0].Interface(), err
}

func emptyInterface(t reflect.Type) bool {
	return t.Kind() == reflect.Interface && t.NumMethod() == 0
}

// funcName names a function value for error messages, falling back to the
// type signature when the runtime has no symbol for it.
func funcName(fn reflect.Value) string {
	if f := runtime.FuncForPC(fn.Pointer()); f != nil {
		return f.Name()
	}
	return fn.Type().String()
}
