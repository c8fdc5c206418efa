package codec

import (
	"context"
	"time"

	"github.com/reoring/postq"
	"github.com/reoring/postq/i18n"
	js "github.com/reoring/postq/jsonschema"
)

// TimeRFC3339 returns a Codec that converts between RFC3339 strings and time.Time.
func TimeRFC3339() postq.Codec[string, time.Time] {
	return &rfc3339Codec{
		in:  wireString{format: "date-time"},
		out: timeSchema{},
	}
}

type rfc3339Codec struct {
	in  postq.Schema[string]
	out postq.Schema[time.Time]
}

func (c *rfc3339Codec) In() postq.Schema[string]     { return c.in }
func (c *rfc3339Codec) Out() postq.Schema[time.Time] { return c.out }

func (c *rfc3339Codec) Decode(ctx context.Context, a string) (time.Time, error) {
	// wire(string) -> domain(time.Time) -> Out.ValidateValue
	t, err := parseRFC3339(a)
	if err != nil {
		return time.Time{}, invalidFormat("RFC3339 time", err)
	}
	if err := c.out.ValidateValue(ctx, t); err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func (c *rfc3339Codec) Encode(ctx context.Context, b time.Time) (string, error) {
	// Validate using Out, convert to wire(string), then re-validate via In.Parse
	if err := c.out.ValidateValue(ctx, b); err != nil {
		return "", err
	}
	s := FormatRFC3339(b)
	if _, err := c.in.Parse(ctx, s); err != nil {
		return "", err
	}
	return s, nil
}

// ---- helpers ----

func invalidFormat(format string, cause error) postq.Issues {
	return postq.Issues{{
		Path:    "/",
		Code:    postq.CodeInvalidFormat,
		Message: i18n.T(postq.CodeInvalidFormat, map[string]string{"format": format}),
		Cause:   cause,
		Params:  map[string]any{"format": format},
	}}
}

// wireString accepts any string; format is only exported to JSON Schema.
type wireString struct{ format string }

func (w wireString) Parse(ctx context.Context, v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", w.TypeCheck(ctx, v)
}

func (wireString) TypeCheck(_ context.Context, v any) error {
	if _, ok := v.(string); ok {
		return nil
	}
	return postq.Issues{{Path: "/", Code: postq.CodeInvalidType, Message: i18n.T(postq.CodeInvalidType, nil), Hint: "expected string"}}
}
func (wireString) RuleCheck(context.Context, any) error { return nil }
func (w wireString) Validate(ctx context.Context, v any) error {
	return w.TypeCheck(ctx, v)
}
func (wireString) ValidateValue(context.Context, string) error { return nil }
func (w wireString) JSONSchema() (*js.Schema, error) {
	return &js.Schema{Type: "string", Format: w.format}, nil
}

type timeSchema struct{}

func (timeSchema) Parse(_ context.Context, v any) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	return time.Time{}, postq.Issues{{Path: "/", Code: postq.CodeInvalidType, Message: i18n.T(postq.CodeInvalidType, nil), Hint: "expected time.Time"}}
}
func (timeSchema) TypeCheck(context.Context, any) error          { return nil }
func (timeSchema) RuleCheck(context.Context, any) error          { return nil }
func (timeSchema) Validate(context.Context, any) error           { return nil }
func (timeSchema) ValidateValue(context.Context, time.Time) error { return nil }
func (timeSchema) JSONSchema() (*js.Schema, error) {
	return &js.Schema{Type: "string", Format: "date-time"}, nil
}

func parseRFC3339(s string) (time.Time, error) {
	// Accept RFC3339Nano (trailing zeros optional)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		if t2, err2 := time.Parse(time.RFC3339, s); err2 == nil {
			return t2, nil
		}
		return time.Time{}, err
	}
	return t, nil
}

// FormatRFC3339 renders t in UTC using RFC3339Nano (trailing zeros trimmed).
func FormatRFC3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
