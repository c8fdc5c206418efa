package dsl

import (
	"context"

	"github.com/reoring/postq"
	js "github.com/reoring/postq/jsonschema"
)

// Codec adapts a Codec[A,B] into a Schema[B] that accepts wire A and produces domain B.
// Parse: In.Parse -> Decode -> Out.Normalize -> Out.ValidateValue -> Out.Refine
// Type/Rule/Validate (wire input): delegate to In().
// ValidateValue (domain value): delegate to Out().
// JSONSchema: In() describes the wire form, so it wins over Out().
func Codec[A, B any](c postq.Codec[A, B]) postq.Schema[B] { return codecSchema[A, B]{c: c} }

// CodecOf adapts a Codec to AnyAdapter for use in Field.
func CodecOf[A, B any](c postq.Codec[A, B]) AnyAdapter { return anyAdapterFromSchema[B](Codec(c)) }

type codecSchema[A, B any] struct{ c postq.Codec[A, B] }

func (s codecSchema[A, B]) Parse(ctx context.Context, v any) (B, error) {
	var zero B
	a, err := s.c.In().Parse(ctx, v)
	if err != nil {
		return zero, postq.ToIssues(err)
	}
	b, err := s.c.Decode(ctx, a)
	if err != nil {
		return zero, postq.ToIssues(err)
	}
	b2, err := postq.ApplyNormalize[B](ctx, b, s.c.Out())
	if err != nil {
		return zero, postq.ToIssues(err)
	}
	if err := s.c.Out().ValidateValue(ctx, b2); err != nil {
		return zero, err
	}
	if err := postq.ApplyRefine[B](ctx, b2, s.c.Out()); err != nil {
		return zero, postq.ToIssues(err)
	}
	return b2, nil
}

func (s codecSchema[A, B]) TypeCheck(ctx context.Context, v any) error {
	return s.c.In().TypeCheck(ctx, v)
}
func (s codecSchema[A, B]) RuleCheck(ctx context.Context, v any) error {
	return s.c.In().RuleCheck(ctx, v)
}
func (s codecSchema[A, B]) Validate(ctx context.Context, v any) error {
	return s.c.In().Validate(ctx, v)
}
func (s codecSchema[A, B]) ValidateValue(ctx context.Context, v B) error {
	return s.c.Out().ValidateValue(ctx, v)
}
func (s codecSchema[A, B]) JSONSchema() (*js.Schema, error) { return s.c.In().JSONSchema() }
