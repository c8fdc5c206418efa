package query

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/reoring/postq"
)

// BaseQuery performs one request. It never returns a Go error separately:
// failures travel in Result.Err.
type BaseQuery func(ctx context.Context, args Args) Result

// Args describes a request. URL is relative to the transport's base URL.
type Args struct {
	Method  string
	URL     string
	Body    any
	Params  url.Values
	Options Options
}

// Options carries the optional schemas checked around the transport.
type Options struct {
	// ArgsSchema validates Body before the request is sent.
	ArgsSchema Validator
	// DataSchema validates and transforms a successful payload.
	DataSchema Validator
}

// Result is the outcome of a BaseQuery. Exactly one of Data and Err describes
// the outcome, except for validation failures where Data keeps the offending
// body for inspection.
type Result struct {
	Data any
	Err  *APIError
	Meta Meta
}

// Meta records response details from the transport.
type Meta struct {
	Status   int
	Header   http.Header
	Duration time.Duration
}

// Key renders a stable cache key for the request.
func (a Args) Key() string {
	m := a.Method
	if m == "" {
		m = http.MethodGet
	}
	k := m + " " + a.URL
	if len(a.Params) > 0 {
		k += "?" + a.Params.Encode()
	}
	return k
}

// Validator is the schema contract the wrapper needs.
type Validator interface {
	Parse(ctx context.Context, v any) (any, error)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, v any) (any, error)

func (f ValidatorFunc) Parse(ctx context.Context, v any) (any, error) { return f(ctx, v) }

// SchemaOf adapts a typed schema to Validator.
func SchemaOf[T any](s postq.Schema[T]) Validator {
	return ValidatorFunc(func(ctx context.Context, v any) (any, error) { return s.Parse(ctx, v) })
}

// Typed converts Result.Data to T, failing with a PARSING_ERROR transport
// error when the payload has another type.
func Typed[T any](r Result) (T, *APIError) {
	var zero T
	if r.Err != nil {
		return zero, r.Err
	}
	if r.Data == nil {
		return zero, nil
	}
	v, ok := r.Data.(T)
	if !ok {
		return zero, &APIError{Kind: KindTransport, Code: CodeParsingError, Status: r.Meta.Status, Message: fmt.Sprintf("unexpected payload type %T", r.Data), Data: r.Data}
	}
	return v, nil
}
