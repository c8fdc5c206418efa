package dsl

import (
	"context"
	"maps"
	"slices"

	"github.com/reoring/postq"
	"github.com/reoring/postq/i18n"
	js "github.com/reoring/postq/jsonschema"
)

type objectSchema struct {
	fields        map[string]AnyAdapter
	required      map[string]string
	unknownPolicy postq.UnknownPolicy
	refines       []objRefine
	sortedKeys    []string
}

var _ postq.Schema[map[string]any] = (*objectSchema)(nil)

type objRefine struct {
	name string
	fn   func(context.Context, map[string]any) error
}

func objectTypeIssue() postq.Issues {
	return postq.Issues{{Path: "/", Code: postq.CodeInvalidType, Message: i18n.T(postq.CodeInvalidType, map[string]string{"expected": "object"}), Hint: "expected object"}}
}

func (o *objectSchema) requiredIssue(k string) postq.Issue {
	msg := o.required[k]
	if msg == "" {
		msg = i18n.T(postq.CodeRequired, nil)
	}
	return postq.Issue{Path: "/" + k, Code: postq.CodeRequired, Message: msg, Hint: "required property missing"}
}

// issuesFromErr converts an error into Issues, wrapping non-Issues with CodeParseError.
func issuesFromErr(path string, err error) postq.Issues {
	if err == nil {
		return nil
	}
	if i2, ok := postq.AsIssues(err); ok {
		return i2
	}
	return postq.Issues{{Path: path, Code: postq.CodeParseError, Message: err.Error(), Cause: err}}
}

// collectKnown parses declared fields in key order, applying defaults and
// enforcing required keys.
func (o *objectSchema) collectKnown(ctx context.Context, src map[string]any) (map[string]any, postq.Issues) {
	out := make(map[string]any, len(src))
	var iss postq.Issues
	for _, k := range o.sortedKeys {
		ad := o.fields[k]
		base := "/" + k
		if val, exists := src[k]; exists {
			parsed, err := ad.parse(ctx, val)
			if err != nil {
				if child, ok := postq.AsIssues(err); ok {
					iss = postq.AppendIssues(iss, postq.RebaseIssues(base, child)...)
				} else {
					iss = postq.AppendIssues(iss, issuesFromErr(base, err)...)
				}
				if postq.IsFailFast(ctx) {
					return out, iss
				}
				continue
			}
			out[k] = parsed
			continue
		}
		if ad.applyDefault != nil {
			dv, err := ad.applyDefault(ctx)
			if err != nil {
				iss = postq.AppendIssues(iss, postq.RebaseIssues(base, postq.ToIssues(err))...)
				if postq.IsFailFast(ctx) {
					return out, iss
				}
				continue
			}
			out[k] = dv
			continue
		}
		if _, req := o.required[k]; req {
			iss = postq.AppendIssues(iss, o.requiredIssue(k))
			if postq.IsFailFast(ctx) {
				return out, iss
			}
		}
	}
	return out, iss
}

// collectUnknown processes unknown keys according to unknownPolicy. Passthrough
// copies them into out unchanged.
func (o *objectSchema) collectUnknown(src map[string]any, out map[string]any) postq.Issues {
	var iss postq.Issues
	uks := make([]string, 0, len(src))
	for k := range src {
		if _, known := o.fields[k]; !known {
			uks = append(uks, k)
		}
	}
	slices.Sort(uks)
	for _, k := range uks {
		switch o.unknownPolicy {
		case postq.UnknownStrict:
			iss = postq.AppendIssues(iss, postq.IssueAt(postq.Root().Field(k), postq.CodeUnknownKey, i18n.T(postq.CodeUnknownKey, nil), nil))
		case postq.UnknownStrip:
		case postq.UnknownPassthrough:
			out[k] = src[k]
		}
	}
	return iss
}

func (o *objectSchema) Parse(ctx context.Context, v any) (map[string]any, error) {
	src, ok := v.(map[string]any)
	if !ok {
		return nil, objectTypeIssue()
	}
	out, iss := o.collectKnown(ctx, src)
	if postq.IsFailFast(ctx) && len(iss) > 0 {
		return nil, iss
	}
	if more := o.collectUnknown(src, out); len(more) > 0 {
		iss = postq.AppendIssues(iss, more...)
	}
	if len(iss) > 0 {
		return nil, iss
	}
	if err := postq.ApplyRefine[map[string]any](ctx, out, o); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *objectSchema) TypeCheck(_ context.Context, v any) error {
	if _, ok := v.(map[string]any); !ok {
		return objectTypeIssue()
	}
	return nil
}

func (o *objectSchema) RuleCheck(ctx context.Context, v any) error {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	var iss postq.Issues
	for _, k := range slices.Sorted(maps.Keys(o.required)) {
		if _, ok := m[k]; !ok {
			iss = postq.AppendIssues(iss, o.requiredIssue(k))
			if postq.IsFailFast(ctx) {
				return iss
			}
		}
	}
	if len(iss) > 0 {
		return iss
	}
	return nil
}

func (o *objectSchema) Validate(ctx context.Context, v any) error {
	if err := o.TypeCheck(ctx, v); err != nil {
		return err
	}
	return o.RuleCheck(ctx, v)
}

func (o *objectSchema) ValidateValue(ctx context.Context, v map[string]any) error {
	for _, k := range o.sortedKeys {
		val, ok := v[k]
		if !ok {
			if _, req := o.required[k]; req {
				return postq.Issues{o.requiredIssue(k)}
			}
			continue
		}
		if err := o.fields[k].validateValue(ctx, val); err != nil {
			return postq.RebaseIssues("/"+k, postq.ToIssues(err))
		}
	}
	return nil
}

func (o *objectSchema) JSONSchema() (*js.Schema, error) {
	props := make(map[string]*js.Schema, len(o.fields))
	for k, ad := range o.fields {
		if ad.jsonSchema != nil {
			if ps, err := ad.jsonSchema(); err == nil && ps != nil {
				props[k] = ps
				continue
			}
		}
		props[k] = &js.Schema{}
	}
	req := slices.Sorted(maps.Keys(o.required))
	var additional any
	switch o.unknownPolicy {
	case postq.UnknownStrict:
		additional = false
	case postq.UnknownStrip, postq.UnknownPassthrough:
		// accepted at runtime either way
		additional = true
	}
	return &js.Schema{Type: "object", Properties: props, Required: req, AdditionalProperties: additional}, nil
}

// Refine implements postq.Refiner[map[string]any] using builder-registered hooks.
func (o *objectSchema) Refine(ctx context.Context, v map[string]any) error {
	var iss postq.Issues
	for _, r := range o.refines {
		if err := r.fn(ctx, v); err != nil {
			if i2, ok := postq.AsIssues(err); ok {
				iss = postq.AppendIssues(iss, i2...)
			} else {
				iss = postq.AppendIssues(iss, postq.Issue{Path: "/", Code: postq.CodeCustom, Message: err.Error(), Cause: err, Rule: r.name})
			}
			if postq.IsFailFast(ctx) {
				return iss
			}
		}
	}
	if len(iss) > 0 {
		return iss
	}
	return nil
}
