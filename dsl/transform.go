package dsl

import (
	"context"

	"github.com/reoring/postq"
	js "github.com/reoring/postq/jsonschema"
)

// Transform parses with in and then maps the result through fn. The output
// side carries no rules of its own: wire checks and JSON Schema come from in.
func Transform[A, B any](in postq.Schema[A], fn func(context.Context, A) (B, error)) postq.Schema[B] {
	return transformSchema[A, B]{in: in, fn: fn}
}

// TransformOf adapts Transform to AnyAdapter for use in Field.
func TransformOf[A, B any](in postq.Schema[A], fn func(context.Context, A) (B, error)) AnyAdapter {
	return anyAdapterFromSchema[B](Transform(in, fn))
}

type transformSchema[A, B any] struct {
	in postq.Schema[A]
	fn func(context.Context, A) (B, error)
}

func (s transformSchema[A, B]) Parse(ctx context.Context, v any) (B, error) {
	var zero B
	a, err := s.in.Parse(ctx, v)
	if err != nil {
		return zero, err
	}
	b, err := s.fn(ctx, a)
	if err != nil {
		return zero, postq.ToIssues(err)
	}
	return b, nil
}

func (s transformSchema[A, B]) TypeCheck(ctx context.Context, v any) error {
	return s.in.TypeCheck(ctx, v)
}
func (s transformSchema[A, B]) RuleCheck(ctx context.Context, v any) error {
	return s.in.RuleCheck(ctx, v)
}
func (s transformSchema[A, B]) Validate(ctx context.Context, v any) error {
	return s.in.Validate(ctx, v)
}
func (s transformSchema[A, B]) ValidateValue(context.Context, B) error { return nil }
func (s transformSchema[A, B]) JSONSchema() (*js.Schema, error)        { return s.in.JSONSchema() }
