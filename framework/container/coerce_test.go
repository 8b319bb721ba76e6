package container_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/km-arc/arc/framework/container"
)

func TestCoerce_SupportedTargets(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		target reflect.Type
		want   any
	}{
		{"string passthrough", "abc", reflect.TypeOf(""), "abc"},
		{"int", "42", reflect.TypeOf(0), 42},
		{"negative int", "-7", reflect.TypeOf(0), -7},
		{"int64", "9000000000", reflect.TypeOf(int64(0)), int64(9000000000)},
		{"leading zero is decimal", "010", reflect.TypeOf(0), 10},
		{"leading zero with eight", "08", reflect.TypeOf(0), 8},
		{"uint", "42", reflect.TypeOf(uint(0)), uint(42)},
		{"leading zero uint", "0755", reflect.TypeOf(uint(0)), uint(755)},
		{"float64", "3.14", reflect.TypeOf(0.0), 3.14},
		{"float32", "0.5", reflect.TypeOf(float32(0)), float32(0.5)},
		{"bool 1", "1", reflect.TypeOf(false), true},
		{"bool true", "true", reflect.TypeOf(false), true},
		{"bool yes", "yes", reflect.TypeOf(false), true},
		{"bool 0", "0", reflect.TypeOf(false), false},
		{"bool false", "false", reflect.TypeOf(false), false},
		{"bool no", "no", reflect.TypeOf(false), false},
		{"slice of string", "a", reflect.TypeOf([]string{}), []string{"a"}},
		{"slice of int", "3", reflect.TypeOf([]int{}), []int{3}},
		{"any gets raw string", "raw", reflect.TypeOf((*any)(nil)).Elem(), "raw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := container.Coerce(tt.raw, tt.target)
			if err != nil {
				t.Fatalf("Coerce(%q, %s): %v", tt.raw, tt.target, err)
			}
			if !reflect.DeepEqual(got.Interface(), tt.want) {
				t.Errorf("Coerce(%q, %s): got %#v, want %#v", tt.raw, tt.target, got.Interface(), tt.want)
			}
		})
	}
}

func TestCoerce_Failures(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		target reflect.Type
	}{
		{"non-numeric int", "abc", reflect.TypeOf(0)},
		{"hex prefix int", "0x1A", reflect.TypeOf(0)},
		{"hex prefix uint", "0x1A", reflect.TypeOf(uint(0))},
		{"binary prefix int", "0b101", reflect.TypeOf(0)},
		{"underscored digits", "1_000", reflect.TypeOf(0)},
		{"float into int", "1.5", reflect.TypeOf(0)},
		{"negative into uint", "-1", reflect.TypeOf(uint(0))},
		{"int8 overflow", "300", reflect.TypeOf(int8(0))},
		{"uint8 overflow", "300", reflect.TypeOf(uint8(0))},
		{"non-numeric float", "x.y", reflect.TypeOf(0.0)},
		{"uppercase TRUE", "TRUE", reflect.TypeOf(false)},
		{"bool on", "on", reflect.TypeOf(false)},
		{"bool empty", "", reflect.TypeOf(false)},
		{"slice of bad ints", "z", reflect.TypeOf([]int{})},
		{"struct target", "x", reflect.TypeOf(struct{}{})},
		{"non-empty interface", "x", reflect.TypeOf((*error)(nil)).Elem()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := container.Coerce(tt.raw, tt.target)
			var ce *container.CoercionError
			if !errors.As(err, &ce) {
				t.Fatalf("Coerce(%q, %s): want *CoercionError, got %v", tt.raw, tt.target, err)
			}
			if ce.Value != tt.raw {
				t.Errorf("CoercionError.Value: got %q, want %q", ce.Value, tt.raw)
			}
		})
	}
}

func TestCoerce_ErrorMessageShape(t *testing.T) {
	_, err := container.Coerce("abc", reflect.TypeOf(0))
	want := `container: cannot cast "abc" to int: non-numeric value`
	if err.Error() != want {
		t.Errorf("got %q\nwant %q", err.Error(), want)
	}
}
