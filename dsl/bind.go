package dsl

import (
	"context"
	"reflect"

	"github.com/reoring/postq"
	js "github.com/reoring/postq/jsonschema"
)

// Bind builds an object schema and binds it to struct type T.
func Bind[T any](b *objectBuilder) (postq.Schema[T], error) {
	s, err := b.Build()
	if err != nil {
		return nil, err
	}
	os, ok := s.(*objectSchema)
	if !ok {
		return nil, postq.Issues{{Path: "/", Code: postq.CodeParseError, Message: "unexpected schema type for Bind"}}
	}
	return newTypedObjectSchema[T](os)
}

// MustBind is like Bind but panics on error.
func MustBind[T any](b *objectBuilder) postq.Schema[T] {
	s, err := Bind[T](b)
	if err != nil {
		panic(err)
	}
	return s
}

// ObjectOf adapts a bound struct schema to a field of a parent object.
func ObjectOf[T any](s postq.Schema[T]) AnyAdapter { return anyAdapterFromSchema[T](s) }

// typedObjectSchema adapts an objectSchema to a typed struct T using key resolution.
type typedObjectSchema[T any] struct {
	inner      *objectSchema
	t          reflect.Type
	fieldByKey map[string]int // DSL key -> struct field index
}

func newTypedObjectSchema[T any](os *objectSchema) (postq.Schema[T], error) {
	rt := reflect.TypeFor[T]()
	if rt.Kind() != reflect.Struct {
		return nil, postq.Issues{{Path: "/", Code: postq.CodeParseError, Message: "Bind[T] requires struct T"}}
	}
	idxByName := make(map[string]int)
	for i := range rt.NumField() {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := postq.ResolveStructKey(sf)
		if name == "-" || name == "" {
			continue
		}
		idxByName[name] = i
	}
	fm := make(map[string]int)
	for k := range os.fields {
		i, ok := idxByName[k]
		if !ok {
			return nil, postq.Issues{{Path: "/" + k, Code: postq.CodeParseError, Message: "no struct field for key", Hint: "add a json tag for " + k + " on " + rt.Name()}}
		}
		fm[k] = i
	}
	return &typedObjectSchema[T]{inner: os, t: rt, fieldByKey: fm}, nil
}

// Parse maps wire -> map via inner, then into struct fields by mapping.
func (s *typedObjectSchema[T]) Parse(ctx context.Context, v any) (T, error) {
	var zero T
	if tv, ok := v.(T); ok {
		if err := s.ValidateValue(ctx, tv); err != nil {
			return zero, err
		}
		return tv, nil
	}
	if p, ok := v.(*T); ok && p != nil {
		return s.Parse(ctx, *p)
	}
	m, err := s.inner.Parse(ctx, v)
	if err != nil {
		return zero, err
	}
	rv := reflect.New(s.t).Elem()
	for key, idx := range s.fieldByKey {
		val, ok := m[key]
		if !ok || val == nil {
			continue
		}
		if !assign(rv.Field(idx), reflect.ValueOf(val)) {
			return zero, postq.Issues{{Path: "/" + key, Code: postq.CodeInvalidType, Message: "field type mismatch"}}
		}
	}
	return rv.Interface().(T), nil
}

// assign stores vv into fv, allocating when fv is a pointer to vv's type.
func assign(fv, vv reflect.Value) bool {
	if !fv.CanSet() {
		return true
	}
	ft := fv.Type()
	switch {
	case vv.Type().AssignableTo(ft):
		fv.Set(vv)
	case vv.Type().ConvertibleTo(ft) && vv.Kind() == ft.Kind():
		fv.Set(vv.Convert(ft))
	case ft.Kind() == reflect.Pointer:
		p := reflect.New(ft.Elem())
		if !assign(p.Elem(), vv) {
			return false
		}
		fv.Set(p)
	default:
		return false
	}
	return true
}

func (s *typedObjectSchema[T]) TypeCheck(ctx context.Context, v any) error {
	return s.inner.TypeCheck(ctx, v)
}
func (s *typedObjectSchema[T]) RuleCheck(ctx context.Context, v any) error {
	return s.inner.RuleCheck(ctx, v)
}
func (s *typedObjectSchema[T]) Validate(ctx context.Context, v any) error {
	return s.inner.Validate(ctx, v)
}

// ValidateValue checks a typed value. Nil pointer fields count as absent.
func (s *typedObjectSchema[T]) ValidateValue(ctx context.Context, v T) error {
	rv := reflect.ValueOf(v)
	m := make(map[string]any, len(s.fieldByKey))
	for key, idx := range s.fieldByKey {
		fv := rv.Field(idx)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				continue
			}
			// field adapters operate on the element type
			fv = fv.Elem()
		}
		m[key] = fv.Interface()
	}
	return s.inner.ValidateValue(ctx, m)
}

func (s *typedObjectSchema[T]) JSONSchema() (*js.Schema, error) { return s.inner.JSONSchema() }
