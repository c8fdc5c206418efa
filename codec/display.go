package codec

import (
	"context"
	"time"

	"github.com/reoring/postq"
	js "github.com/reoring/postq/jsonschema"
)

// DisplayLayout is the layout used for human readable post dates.
const DisplayLayout = "Jan 2, 2006"

// DisplayDate returns a Codec that renders an RFC3339 wire timestamp as a
// display string in layout (DisplayLayout when empty). The display string is
// rendered in UTC; Encode parses it back and emits RFC3339, losing any time
// of day the layout does not carry.
func DisplayDate(layout string) postq.Codec[string, string] {
	if layout == "" {
		layout = DisplayLayout
	}
	return &displayCodec{layout: layout, in: wireString{format: "date-time"}}
}

type displayCodec struct {
	layout string
	in     postq.Schema[string]
}

func (c *displayCodec) In() postq.Schema[string]  { return c.in }
func (c *displayCodec) Out() postq.Schema[string] { return displaySchema{layout: c.layout} }

func (c *displayCodec) Decode(_ context.Context, a string) (string, error) {
	t, err := parseRFC3339(a)
	if err != nil {
		return "", invalidFormat("RFC3339 time", err)
	}
	return t.UTC().Format(c.layout), nil
}

func (c *displayCodec) Encode(ctx context.Context, b string) (string, error) {
	if err := c.Out().ValidateValue(ctx, b); err != nil {
		return "", err
	}
	t, err := time.Parse(c.layout, b)
	if err != nil {
		return "", invalidFormat("display date", err)
	}
	return FormatRFC3339(t), nil
}

type displaySchema struct{ layout string }

func (d displaySchema) Parse(ctx context.Context, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", wireString{}.TypeCheck(ctx, v)
	}
	return s, d.ValidateValue(ctx, s)
}
func (displaySchema) TypeCheck(ctx context.Context, v any) error { return wireString{}.TypeCheck(ctx, v) }
func (displaySchema) RuleCheck(context.Context, any) error       { return nil }
func (d displaySchema) Validate(ctx context.Context, v any) error {
	if err := d.TypeCheck(ctx, v); err != nil {
		return err
	}
	return d.ValidateValue(ctx, v.(string))
}
func (d displaySchema) ValidateValue(_ context.Context, v string) error {
	if _, err := time.Parse(d.layout, v); err != nil {
		return invalidFormat("display date", err)
	}
	return nil
}
func (d displaySchema) JSONSchema() (*js.Schema, error) {
	return &js.Schema{Type: "string", Description: "date formatted as " + d.layout}, nil
}
