package dsl

import (
	"context"
	"maps"
	"slices"

	"github.com/reoring/postq"
	js "github.com/reoring/postq/jsonschema"
)

type objectBuilder struct {
	fields        map[string]AnyAdapter
	required      map[string]string // field -> custom missing message ("" means default)
	unknownPolicy postq.UnknownPolicy
	refines       []objRefine
}

type fieldStep struct {
	b    *objectBuilder
	name string
}

// Object creates a new object builder with safe defaults (UnknownStrict).
func Object() *objectBuilder {
	return &objectBuilder{
		fields:        map[string]AnyAdapter{},
		required:      map[string]string{},
		unknownPolicy: postq.UnknownStrict,
	}
}

// Field registers a field with its adapter.
func (b *objectBuilder) Field(name string, ad AnyAdapter) *fieldStep {
	b.fields[name] = ad
	return &fieldStep{b: b, name: name}
}

// Required marks the field as required and returns the builder. An optional
// message replaces the default "required" message for this field.
func (f *fieldStep) Required(msg ...string) *objectBuilder {
	f.b.required[f.name] = first(msg)
	return f.b
}

// Optional marks the field as optional (default) and returns the builder.
func (f *fieldStep) Optional() *objectBuilder {
	delete(f.b.required, f.name)
	return f.b
}

// Default sets a default for the current field and exports it to JSON Schema.
func (f *fieldStep) Default(v any) *objectBuilder {
	ad := f.b.fields[f.name]
	// Apply default by parsing via the field schema to leverage Normalize/Validate/Refine
	parse := ad.parse
	ad.applyDefault = func(ctx context.Context) (any, error) { return parse(ctx, v) }
	prev := ad.jsonSchema
	ad.jsonSchema = func() (*js.Schema, error) {
		if prev == nil {
			return &js.Schema{Default: v}, nil
		}
		s, err := prev()
		if err != nil {
			return nil, err
		}
		s = s.Clone()
		if s == nil {
			s = &js.Schema{}
		}
		s.Default = v
		return s, nil
	}
	f.b.fields[f.name] = ad
	return f.b
}

func (f *fieldStep) Refine(name string, fn func(context.Context, map[string]any) error) *objectBuilder {
	return f.b.Refine(name, fn)
}
func (f *fieldStep) Field(name string, ad AnyAdapter) *fieldStep     { return f.b.Field(name, ad) }
func (f *fieldStep) Require(names ...string) *objectBuilder          { return f.b.Require(names...) }
func (f *fieldStep) UnknownStrict() *objectBuilder                   { return f.b.UnknownStrict() }
func (f *fieldStep) UnknownStrip() *objectBuilder                    { return f.b.UnknownStrip() }
func (f *fieldStep) UnknownPassthrough() *objectBuilder              { return f.b.UnknownPassthrough() }
func (f *fieldStep) Build() (postq.Schema[map[string]any], error)    { return f.b.Build() }
func (f *fieldStep) MustBuild() postq.Schema[map[string]any]         { return f.b.MustBuild() }
func (f *fieldStep) Builder() *objectBuilder                         { return f.b }

// Require marks one or more fields as required.
func (b *objectBuilder) Require(names ...string) *objectBuilder {
	for _, n := range names {
		if _, ok := b.required[n]; !ok {
			b.required[n] = ""
		}
	}
	return b
}

// UnknownStrict sets unknown policy to Strict.
func (b *objectBuilder) UnknownStrict() *objectBuilder {
	b.unknownPolicy = postq.UnknownStrict
	return b
}

// UnknownStrip sets unknown policy to Strip.
func (b *objectBuilder) UnknownStrip() *objectBuilder {
	b.unknownPolicy = postq.UnknownStrip
	return b
}

// UnknownPassthrough keeps unknown keys in the parsed output unchanged.
func (b *objectBuilder) UnknownPassthrough() *objectBuilder {
	b.unknownPolicy = postq.UnknownPassthrough
	return b
}

// Refine adds an object-level refine function. It is executed after the
// fields parsed successfully.
func (b *objectBuilder) Refine(name string, fn func(context.Context, map[string]any) error) *objectBuilder {
	if fn == nil {
		return b
	}
	b.refines = append(b.refines, objRefine{name: name, fn: fn})
	return b
}

// Clone returns an independent copy of the builder.
func (b *objectBuilder) Clone() *objectBuilder {
	return &objectBuilder{
		fields:        maps.Clone(b.fields),
		required:      maps.Clone(b.required),
		unknownPolicy: b.unknownPolicy,
		refines:       slices.Clone(b.refines),
	}
}

// Partial returns a copy of the builder where every field is optional.
func (b *objectBuilder) Partial() *objectBuilder {
	c := b.Clone()
	c.required = map[string]string{}
	return c
}

// Omit returns a copy of the builder without the named fields.
func (b *objectBuilder) Omit(names ...string) *objectBuilder {
	c := b.Clone()
	for _, n := range names {
		delete(c.fields, n)
		delete(c.required, n)
	}
	return c
}

// Build validates the builder and returns a Schema.
func (b *objectBuilder) Build() (postq.Schema[map[string]any], error) {
	for k := range b.required {
		if _, ok := b.fields[k]; !ok {
			return nil, postq.Issues{{Path: "/" + k, Code: postq.CodeParseError, Message: "required field is not declared", Hint: "add Field(" + k + ") before Require"}}
		}
	}
	// cache sorted keys for deterministic order without per-parse sorting
	kfs := slices.Sorted(maps.Keys(b.fields))
	c := b.Clone()
	return &objectSchema{fields: c.fields, required: c.required, unknownPolicy: c.unknownPolicy, refines: c.refines, sortedKeys: kfs}, nil
}

// MustBuild is like Build but panics on error.
func (b *objectBuilder) MustBuild() postq.Schema[map[string]any] {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
