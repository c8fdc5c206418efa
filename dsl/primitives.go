package dsl

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/reoring/postq"
	"github.com/reoring/postq/i18n"
	js "github.com/reoring/postq/jsonschema"
)

// StringBuilder exposes chaining options for string schemas while implementing Schema[string].
// Every chaining call returns a new builder; the receiver is left untouched.
type StringBuilder interface {
	postq.Schema[string]
	// Min requires at least n characters (runes). msg overrides the default message.
	Min(n int, msg ...string) StringBuilder
	// Max allows at most n characters (runes).
	Max(n int, msg ...string) StringBuilder
	// UppercaseFirst requires the first character to be an uppercase letter.
	UppercaseFirst(msg ...string) StringBuilder
	// Pattern requires a regular expression match.
	Pattern(re *regexp.Regexp, msg ...string) StringBuilder
	// Trim strips surrounding whitespace during the Normalize phase.
	Trim() StringBuilder
	// TypeMessage overrides the message reported for a non-string input.
	TypeMessage(msg string) StringBuilder
	// Refine appends a custom rule run after the built-in ones.
	Refine(name string, fn func(context.Context, string) error) StringBuilder
}

// String returns a string schema with no rules.
func String() StringBuilder { return &stringSchema{minLen: -1, maxLen: -1} }

// StringOf returns an AnyAdapter for a string wire schema projected to domain type T.
func StringOf[T ~string]() AnyAdapter {
	return anyAdapterFromSchema[T](stringAsSchema[T]{s: String()})
}

// StringWith projects a configured StringBuilder to domain type T for Field.
func StringWith[T ~string](s StringBuilder) AnyAdapter {
	return anyAdapterFromSchema[T](stringAsSchema[T]{s: s})
}

type stringRefine struct {
	name string
	fn   func(context.Context, string) error
}

type stringSchema struct {
	minLen, maxLen int
	minMsg, maxMsg string
	upperFirst     bool
	upperMsg       string
	pattern        *regexp.Regexp
	patternMsg     string
	trim           bool
	typeMsg        string
	refines        []stringRefine
}

func (s *stringSchema) clone() *stringSchema {
	c := *s
	c.refines = append([]stringRefine(nil), s.refines...)
	return &c
}

func first(msg []string) string {
	if len(msg) > 0 {
		return msg[0]
	}
	return ""
}

func (s *stringSchema) Min(n int, msg ...string) StringBuilder {
	c := s.clone()
	c.minLen, c.minMsg = n, first(msg)
	return c
}

func (s *stringSchema) Max(n int, msg ...string) StringBuilder {
	c := s.clone()
	c.maxLen, c.maxMsg = n, first(msg)
	return c
}

func (s *stringSchema) UppercaseFirst(msg ...string) StringBuilder {
	c := s.clone()
	c.upperFirst, c.upperMsg = true, first(msg)
	return c
}

func (s *stringSchema) Pattern(re *regexp.Regexp, msg ...string) StringBuilder {
	c := s.clone()
	c.pattern, c.patternMsg = re, first(msg)
	return c
}

func (s *stringSchema) Trim() StringBuilder {
	c := s.clone()
	c.trim = true
	return c
}

func (s *stringSchema) TypeMessage(msg string) StringBuilder {
	c := s.clone()
	c.typeMsg = msg
	return c
}

func (s *stringSchema) Refine(name string, fn func(context.Context, string) error) StringBuilder {
	if fn == nil {
		return s
	}
	c := s.clone()
	c.refines = append(c.refines, stringRefine{name: name, fn: fn})
	return c
}

func (s *stringSchema) typeIssue() postq.Issues {
	msg := s.typeMsg
	if msg == "" {
		msg = i18n.T(postq.CodeInvalidType, map[string]string{"expected": "string"})
	}
	return postq.Issues{{Path: "/", Code: postq.CodeInvalidType, Message: msg, Hint: "expected string"}}
}

func (s *stringSchema) Parse(ctx context.Context, v any) (string, error) {
	str, ok := v.(string)
	if !ok {
		return "", s.typeIssue()
	}
	// Normalize -> ValidateValue -> Refine
	ns, err := postq.ApplyNormalize[string](ctx, str, s)
	if err != nil {
		return "", err
	}
	if err := s.ValidateValue(ctx, ns); err != nil {
		return "", err
	}
	if err := s.runRefines(ctx, ns); err != nil {
		return "", err
	}
	return ns, nil
}

// Normalize implements postq.Normalizer.
func (s *stringSchema) Normalize(_ context.Context, v string) (string, error) {
	if s.trim {
		return strings.TrimSpace(v), nil
	}
	return v, nil
}

// runRefines executes builder-registered hooks in registration order.
func (s *stringSchema) runRefines(ctx context.Context, v string) error {
	var iss postq.Issues
	for _, r := range s.refines {
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

func (s *stringSchema) TypeCheck(_ context.Context, v any) error {
	if _, ok := v.(string); !ok {
		return s.typeIssue()
	}
	return nil
}

func (s *stringSchema) RuleCheck(ctx context.Context, v any) error {
	str, ok := v.(string)
	if !ok {
		return nil
	}
	return s.ValidateValue(ctx, str)
}

func (s *stringSchema) Validate(ctx context.Context, v any) error {
	if err := s.TypeCheck(ctx, v); err != nil {
		return err
	}
	return s.RuleCheck(ctx, v)
}

// ValidateValue runs the length, casing and pattern rules, collecting every
// violation unless the context is fail-fast.
func (s *stringSchema) ValidateValue(ctx context.Context, v string) error {
	var iss postq.Issues
	add := func(it postq.Issue) bool {
		iss = postq.AppendIssues(iss, it)
		return postq.IsFailFast(ctx)
	}
	n := utf8.RuneCountInString(v)
	if s.minLen >= 0 && n < s.minLen {
		msg := s.minMsg
		if msg == "" {
			msg = i18n.T(postq.CodeTooShort, map[string]string{"min": strconv.Itoa(s.minLen)})
		}
		if add(postq.Root().Issue(postq.CodeTooShort, msg, "min", s.minLen, "got", n)) {
			return iss
		}
	}
	if s.maxLen >= 0 && n > s.maxLen {
		msg := s.maxMsg
		if msg == "" {
			msg = i18n.T(postq.CodeTooLong, map[string]string{"max": strconv.Itoa(s.maxLen)})
		}
		if add(postq.Root().Issue(postq.CodeTooLong, msg, "max", s.maxLen, "got", n)) {
			return iss
		}
	}
	if s.upperFirst && v != "" {
		r, _ := utf8.DecodeRuneInString(v)
		if !unicode.IsUpper(r) {
			msg := s.upperMsg
			if msg == "" {
				msg = i18n.T("uppercase", nil)
			}
			it := postq.Issue{Path: "/", Code: postq.CodePattern, Message: msg, Rule: "uppercase_first"}
			if add(it) {
				return iss
			}
		}
	}
	if s.pattern != nil && !s.pattern.MatchString(v) {
		msg := s.patternMsg
		if msg == "" {
			msg = i18n.T(postq.CodePattern, nil)
		}
		if add(postq.Root().Issue(postq.CodePattern, msg, "pattern", s.pattern.String())) {
			return iss
		}
	}
	if len(iss) > 0 {
		return iss
	}
	return nil
}

func (s *stringSchema) JSONSchema() (*js.Schema, error) {
	out := &js.Schema{Type: "string"}
	if s.minLen >= 0 {
		n := s.minLen
		out.MinLength = &n
	}
	if s.maxLen >= 0 {
		n := s.maxLen
		out.MaxLength = &n
	}
	switch {
	case s.pattern != nil:
		out.Pattern = s.pattern.String()
	case s.upperFirst:
		out.Pattern = `^\p{Lu}`
	}
	return out, nil
}

// stringAsSchema wraps a string schema and projects to a domain type T with underlying string.
type stringAsSchema[T ~string] struct{ s StringBuilder }

func (a stringAsSchema[T]) Parse(ctx context.Context, v any) (T, error) {
	if tv, ok := v.(T); ok {
		v = string(tv)
	}
	s, err := a.s.Parse(ctx, v)
	if err != nil {
		var zero T
		return zero, err
	}
	return T(s), nil
}
func (a stringAsSchema[T]) TypeCheck(ctx context.Context, v any) error { return a.s.TypeCheck(ctx, v) }
func (a stringAsSchema[T]) RuleCheck(ctx context.Context, v any) error { return a.s.RuleCheck(ctx, v) }
func (a stringAsSchema[T]) Validate(ctx context.Context, v any) error  { return a.s.Validate(ctx, v) }
func (a stringAsSchema[T]) ValidateValue(ctx context.Context, v T) error {
	return a.s.ValidateValue(ctx, string(v))
}
func (a stringAsSchema[T]) JSONSchema() (*js.Schema, error) { return a.s.JSONSchema() }

// Bool returns the minimal bool schema implementation.
func Bool() postq.Schema[bool] { return boolSchema{} }

// BoolOf returns an AnyAdapter for a bool wire schema projected to domain type T.
func BoolOf[T ~bool]() AnyAdapter { return anyAdapterFromSchema[T](boolAsSchema[T]{}) }

type boolSchema struct{}

func (boolSchema) Parse(ctx context.Context, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, postq.Issues{{Path: "/", Code: postq.CodeInvalidType, Message: i18n.T(postq.CodeInvalidType, nil), Hint: "expected boolean"}}
	}
	return b, nil
}

func (boolSchema) TypeCheck(ctx context.Context, v any) error {
	if _, ok := v.(bool); !ok {
		return postq.Issues{{Path: "/", Code: postq.CodeInvalidType, Message: i18n.T(postq.CodeInvalidType, nil), Hint: "expected boolean"}}
	}
	return nil
}
func (boolSchema) RuleCheck(ctx context.Context, v any) error { return nil }
func (b boolSchema) Validate(ctx context.Context, v any) error {
	return b.TypeCheck(ctx, v)
}
func (boolSchema) ValidateValue(ctx context.Context, v bool) error { return nil }
func (boolSchema) JSONSchema() (*js.Schema, error)                 { return &js.Schema{Type: "boolean"}, nil }

type boolAsSchema[T ~bool] struct{}

func (boolAsSchema[T]) Parse(ctx context.Context, v any) (T, error) {
	if tv, ok := v.(T); ok {
		return tv, nil
	}
	b, err := (boolSchema{}).Parse(ctx, v)
	return T(b), err
}
func (boolAsSchema[T]) TypeCheck(ctx context.Context, v any) error  { return (boolSchema{}).TypeCheck(ctx, v) }
func (boolAsSchema[T]) RuleCheck(ctx context.Context, v any) error  { return nil }
func (boolAsSchema[T]) Validate(ctx context.Context, v any) error   { return (boolSchema{}).Validate(ctx, v) }
func (boolAsSchema[T]) ValidateValue(ctx context.Context, v T) error { return nil }
func (boolAsSchema[T]) JSONSchema() (*js.Schema, error)             { return (boolSchema{}).JSONSchema() }
