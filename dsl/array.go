package dsl

import (
	"context"
	"strconv"

	"github.com/reoring/postq"
	"github.com/reoring/postq/i18n"
	js "github.com/reoring/postq/jsonschema"
)

// ArrayBuilder exposes chaining methods for array schemas while implementing Schema[[]E].
type ArrayBuilder[E any] interface {
	postq.Schema[[]E]
	Min(n int) ArrayBuilder[E]
	Max(n int) ArrayBuilder[E]
}

// Array returns an array schema with the given element schema.
func Array[E any](elem postq.Schema[E]) ArrayBuilder[E] {
	return &ArraySchema[E]{elem: elem, minLen: -1, maxLen: -1}
}

type ArraySchema[E any] struct {
	elem   postq.Schema[E]
	minLen int
	maxLen int
}

// ArrayOf adapts Array[E] to AnyAdapter for use in object builders.
func ArrayOf[E any](elem postq.Schema[E]) AnyAdapter {
	return anyAdapterFromSchema[[]E](Array[E](elem))
}

// ArrayOfSchema converts a constrained ArrayBuilder[E] into an AnyAdapter.
func ArrayOfSchema[E any](ab ArrayBuilder[E]) AnyAdapter { return anyAdapterFromSchema[[]E](ab) }

// Min sets the minimum length.
func (a *ArraySchema[E]) Min(n int) ArrayBuilder[E] {
	c := *a
	c.minLen = n
	return &c
}

// Max sets the maximum length.
func (a *ArraySchema[E]) Max(n int) ArrayBuilder[E] {
	c := *a
	c.maxLen = n
	return &c
}

func arrayTypeIssue() postq.Issues {
	return postq.Issues{{Path: "/", Code: postq.CodeInvalidType, Message: i18n.T(postq.CodeInvalidType, map[string]string{"expected": "array"}), Hint: "expected array"}}
}

// Parse parses every element, collecting element issues under their index
// unless the context is fail-fast.
func (a *ArraySchema[E]) Parse(ctx context.Context, v any) ([]E, error) {
	switch src := v.(type) {
	case []E:
		if err := a.ValidateValue(ctx, src); err != nil {
			return nil, err
		}
		return src, nil
	case []any:
		res := make([]E, 0, len(src))
		var iss postq.Issues
		for i := range src {
			ev, err := a.elem.Parse(ctx, src[i])
			if err != nil {
				base := "/" + strconv.Itoa(i)
				iss = postq.AppendIssues(iss, postq.RebaseIssues(base, issuesFromErr("/", err))...)
				if postq.IsFailFast(ctx) {
					return nil, iss
				}
				continue
			}
			res = append(res, ev)
		}
		if err := a.checkLen(len(src)); err != nil {
			iss = postq.AppendIssues(iss, err...)
		}
		if len(iss) > 0 {
			return nil, iss
		}
		return res, nil
	default:
		return nil, arrayTypeIssue()
	}
}

func (a *ArraySchema[E]) checkLen(n int) postq.Issues {
	var iss postq.Issues
	if a.minLen >= 0 && n < a.minLen {
		iss = postq.AppendIssues(iss, postq.Root().Issue(postq.CodeTooSmall, i18n.T(postq.CodeTooSmall, map[string]string{"min": strconv.Itoa(a.minLen)}), "min", a.minLen, "got", n))
	}
	if a.maxLen >= 0 && n > a.maxLen {
		iss = postq.AppendIssues(iss, postq.Root().Issue(postq.CodeTooBig, i18n.T(postq.CodeTooBig, map[string]string{"max": strconv.Itoa(a.maxLen)}), "max", a.maxLen, "got", n))
	}
	return iss
}

func (a *ArraySchema[E]) TypeCheck(_ context.Context, v any) error {
	switch v.(type) {
	case []E, []any:
		return nil
	default:
		return arrayTypeIssue()
	}
}

func (a *ArraySchema[E]) RuleCheck(_ context.Context, v any) error {
	var n int
	switch t := v.(type) {
	case []E:
		n = len(t)
	case []any:
		n = len(t)
	default:
		return nil
	}
	if iss := a.checkLen(n); len(iss) > 0 {
		return iss
	}
	return nil
}

func (a *ArraySchema[E]) Validate(ctx context.Context, v any) error {
	if err := a.TypeCheck(ctx, v); err != nil {
		return err
	}
	return a.RuleCheck(ctx, v)
}

func (a *ArraySchema[E]) ValidateValue(ctx context.Context, v []E) error {
	if iss := a.checkLen(len(v)); len(iss) > 0 {
		return iss
	}
	for i := range v {
		if err := a.elem.ValidateValue(ctx, v[i]); err != nil {
			return postq.RebaseIssues("/"+strconv.Itoa(i), postq.ToIssues(err))
		}
	}
	return nil
}

func (a *ArraySchema[E]) JSONSchema() (*js.Schema, error) {
	es, err := a.elem.JSONSchema()
	if err != nil {
		return nil, err
	}
	s := &js.Schema{Type: "array", Items: es}
	if a.minLen >= 0 {
		n := a.minLen
		s.MinItems = &n
	}
	if a.maxLen >= 0 {
		n := a.maxLen
		s.MaxItems = &n
	}
	return s, nil
}
