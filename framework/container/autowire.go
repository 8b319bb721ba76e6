package container

import (
	"fmt"
	"reflect"

	"github.com/muir/reflectutils"
)

// AutoFactory returns a Factory that constructs the struct type named by
// proto via reflection, resolving every exported dependency-typed field from
// the container. It backs BindType/SingletonType when no factory is given.
//
// Dependency-typed means pointer or non-empty interface; scalar fields,
// maps, funcs, channels and embedded value structs keep their zero values. A
// field tagged `inject:"-"` is skipped even when its type is registered. A
// dependency field with no registration that satisfies it fails the build —
// auto-wiring never hands out a half-constructed service.
//
//	type PhotoService struct {
//	    Store  BlobStore         // resolved: interface registered via BindType
//	    Log    *slog.Logger      // resolved: *slog.Logger registered via Instance
//	    Local  *bytes.Buffer `inject:"-"` // skipped
//	    Quota  int               // scalar, stays zero
//	}
//	c.SingletonType(&PhotoService{}, nil)
func AutoFactory(proto any) Factory {
	t := reflect.TypeOf(proto)
	if t == nil {
		panic("container: cannot auto-build untyped nil")
	}
	wantPtr := t.Kind() == reflect.Ptr
	if wantPtr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("container: cannot auto-build %s: not a struct type, provide a factory",
			reflectutils.TypeName(t)))
	}

	return func(c *Container) (any, error) {
		pv := reflect.New(t)
		if err := c.fillStruct(pv.Elem()); err != nil {
			return nil, err
		}
		if wantPtr {
			return pv.Interface(), nil
		}
		return pv.Elem().Interface(), nil
	}
}

// fillStruct resolves the dependency-typed exported fields of v in place.
func (c *Container) fillStruct(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Tag.Get("inject") == "-" {
			continue
		}

		ft := f.Type
		switch ft.Kind() {
		case reflect.Ptr, reflect.Interface:
		default:
			continue
		}
		if emptyInterface(ft) {
			continue
		}

		instance, ok, err := c.makeByType(ft)
		if err != nil {
			return err
		}
		if !ok {
			return unresolvable(reflectutils.TypeName(t), fmt.Sprintf(
				"no binding satisfies field %s (%s)", f.Name, reflectutils.TypeName(ft)))
		}
		if instance != nil {
			v.Field(i).Set(reflect.ValueOf(instance))
		}
	}
	return nil
}
