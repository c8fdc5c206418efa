package postq

import (
	"bytes"
	"context"
	"io"

	json "github.com/goccy/go-json"
)

// ParseJSON decodes data into a generic value (numbers as json.Number) and
// delegates validation to the Schema.
func ParseJSON[T any](ctx context.Context, s Schema[T], data []byte, opts ...ParseOpt) (T, error) {
	var zero T
	if s == nil {
		return zero, singleIssue(CodeParseError, "nil schema")
	}
	var opt ParseOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	if opt.MaxBytes > 0 && int64(len(data)) > opt.MaxBytes {
		return zero, singleIssue(CodeTruncated, "max bytes exceeded")
	}
	if opt.FailFast {
		ctx = WithFailFast(ctx, true)
	}
	if opt.RejectDuplicateKeys {
		if iss := DuplicateKeys(data); len(iss) > 0 {
			return zero, iss
		}
	}
	v, err := DecodeAny(data)
	if err != nil {
		return zero, ToIssues(err)
	}
	return s.Parse(ctx, v)
}

// ParseReader reads r fully (bounded by MaxBytes when set) and calls ParseJSON.
func ParseReader[T any](ctx context.Context, s Schema[T], r io.Reader, opts ...ParseOpt) (T, error) {
	var zero T
	var opt ParseOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	if opt.MaxBytes > 0 {
		r = io.LimitReader(r, opt.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return zero, singleIssue(CodeParseError, err.Error())
	}
	return ParseJSON(ctx, s, data, opts...)
}

// DecodeAny decodes a single JSON document into map[string]any / []any /
// string / bool / json.Number / nil.
func DecodeAny(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, singleIssue(CodeParseError, "unexpected data after top-level value")
	}
	return v, nil
}

// Normalize round-trips a Go value through JSON so that structs become
// map[string]any and numbers become json.Number, matching what a schema sees
// for wire input.
func Normalize(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, map[string]any, []any:
		return v, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return DecodeAny(b)
}

func singleIssue(code, msg string) Issues { return AppendIssues(nil, Issue{Path: "/", Code: code, Message: msg}) }
