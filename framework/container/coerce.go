package container

import (
	"errors"
	"reflect"
	"strconv"

	"github.com/spf13/cast"
)

// Truthy and falsy sets accepted when coercing a raw string into a bool
// parameter. Matching is exact; "TRUE", "on" or "y" are rejected so that a
// malformed route value never silently flips a flag.
var (
	truthyStrings = map[string]bool{"1": true, "true": true, "yes": true}
	falsyStrings  = map[string]bool{"0": true, "false": true, "no": true}
)

// Coerce casts a raw string (typically a route parameter) into a value of the
// target type. It is the single place argument casting happens so the
// all-or-nothing contract of Call stays easy to verify:
//
//   - int/uint kinds require a base-10 numeric string ("010" is ten, "0x1A"
//     is rejected); float kinds require a decimal float string;
//   - bool accepts exactly {"1","true","yes"} and {"0","false","no"};
//   - string passes through unchanged;
//   - a slice target wraps the coerced scalar in a one-element slice
//     (an already-typed slice argument passes through Call untouched);
//   - any/interface{} receives the raw string.
//
// Failures are reported as *CoercionError and are never retried.
func Coerce(raw string, target reflect.Type) (reflect.Value, error) {
	switch target.Kind() {
	case reflect.String:
		return reflect.ValueOf(raw).Convert(target), nil

	case reflect.Bool:
		if truthyStrings[raw] {
			return reflect.ValueOf(true).Convert(target), nil
		}
		if falsyStrings[raw] {
			return reflect.ValueOf(false).Convert(target), nil
		}
		return reflect.Value{}, &CoercionError{Value: raw, Target: target.String(), Reason: "not a recognised boolean"}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// Base 10 only: route parameters such as "010" must mean ten, never
		// octal eight, and hex prefixes are not numeric strings here.
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return reflect.Value{}, &CoercionError{Value: raw, Target: target.String(), Reason: intErrReason(err)}
		}
		if reflect.Zero(target).OverflowInt(n) {
			return reflect.Value{}, &CoercionError{Value: raw, Target: target.String(), Reason: "value overflows target"}
		}
		return reflect.ValueOf(n).Convert(target), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return reflect.Value{}, &CoercionError{Value: raw, Target: target.String(), Reason: intErrReason(err)}
		}
		if reflect.Zero(target).OverflowUint(n) {
			return reflect.Value{}, &CoercionError{Value: raw, Target: target.String(), Reason: "value overflows target"}
		}
		return reflect.ValueOf(n).Convert(target), nil

	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return reflect.Value{}, &CoercionError{Value: raw, Target: target.String(), Reason: "non-numeric value"}
		}
		return reflect.ValueOf(f).Convert(target), nil

	case reflect.Slice:
		elem, err := Coerce(raw, target.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.MakeSlice(target, 0, 1)
		return reflect.Append(out, elem), nil

	case reflect.Interface:
		if target.NumMethod() == 0 {
			return reflect.ValueOf(raw), nil
		}
	}

	return reflect.Value{}, &CoercionError{Value: raw, Target: target.String(), Reason: "unsupported target kind"}
}

func intErrReason(err error) string {
	if errors.Is(err, strconv.ErrRange) {
		return "value overflows target"
	}
	return "non-numeric value"
}

// coercible reports whether a parameter of the given type is filled from raw
// named arguments (as opposed to being resolved from the container).
func coercible(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice:
		return coercible(t.Elem())
	default:
		return false
	}
}
