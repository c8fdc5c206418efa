package query_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/reoring/postq"
	g "github.com/reoring/postq/dsl"
	"github.com/reoring/postq/query"
)

type post struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var nameSchema = g.MustBind[post](g.Object().
	Field("id", g.StringOf[string]()).Required().
	Field("name", g.StringWith[string](g.String().Min(10, "Post title have to be 10 or more characters long."))).Required("One of posts is missing title").
	UnknownStrip())

// recorder is a BaseQuery that records the args it saw and answers with res.
type recorder struct {
	calls []query.Args
	res   query.Result
}

func (r *recorder) base(_ context.Context, args query.Args) query.Result {
	r.calls = append(r.calls, args)
	return r.res
}

var ignoreCause = cmpopts.IgnoreFields(postq.Issue{}, "Cause")

func TestWrap_ValidBody_ForwardedUnchanged(t *testing.T) {
	rec := &recorder{res: query.Result{Data: map[string]any{"id": "1", "name": "A valid long title"}, Meta: query.Meta{Status: http.StatusOK}}}
	q := query.WithSchemaValidation(rec.base)

	body := post{ID: "1", Name: "A valid long title"}
	res := q(context.Background(), query.Args{Method: http.MethodPost, URL: "posts", Body: body, Options: query.Options{ArgsSchema: query.SchemaOf(nameSchema)}})
	if res.Err != nil {
		t.Fatalf("unexpected err: %v", res.Err)
	}
	if len(rec.calls) != 1 {
		t.Fatalf("transport called %d times", len(rec.calls))
	}
	if diff := cmp.Diff(body, rec.calls[0].Body); diff != "" {
		t.Fatalf("body changed (-want +got):\n%s", diff)
	}
}

func TestWrap_InvalidBody_NeverReachesTransport(t *testing.T) {
	rec := &recorder{}
	q := query.WithSchemaValidation(rec.base)

	body := map[string]any{"id": "1", "name": "hi"}
	res := q(context.Background(), query.Args{Method: http.MethodPut, URL: "posts/1", Body: body, Options: query.Options{ArgsSchema: query.SchemaOf(nameSchema)}})
	if len(rec.calls) != 0 {
		t.Fatalf("transport must not be called")
	}
	if res.Err == nil || res.Err.Kind != query.KindValidation {
		t.Fatalf("expected validation error, got %+v", res.Err)
	}
	_, direct := nameSchema.Parse(context.Background(), body)
	want, _ := postq.AsIssues(direct)
	if diff := cmp.Diff(want, res.Err.Issues, ignoreCause); diff != "" {
		t.Fatalf("issues differ from schema (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(any(body), res.Err.Data); diff != "" {
		t.Fatalf("error data should be the body:\n%s", diff)
	}
	if diff := cmp.Diff(any(body), res.Data); diff != "" {
		t.Fatalf("result data should be the body:\n%s", diff)
	}
	if got := res.Err.Messages(); len(got) != 1 || got[0] != "Post title have to be 10 or more characters long." {
		t.Fatalf("messages = %v", got)
	}
}

func TestWrap_NilBody_SkipsArgsSchema(t *testing.T) {
	rec := &recorder{res: query.Result{Data: "ok"}}
	q := query.WithSchemaValidation(rec.base)
	res := q(context.Background(), query.Args{URL: "posts/1", Options: query.Options{ArgsSchema: query.SchemaOf(nameSchema)}})
	if res.Err != nil || len(rec.calls) != 1 {
		t.Fatalf("err=%v calls=%d", res.Err, len(rec.calls))
	}
}

func TestWrap_ValidResponse_ParsedData(t *testing.T) {
	rec := &recorder{res: query.Result{Data: []any{
		map[string]any{"id": "1", "name": "First long title", "extra": true},
	}}}
	q := query.WithSchemaValidation(rec.base)
	res := q(context.Background(), query.Args{URL: "posts", Options: query.Options{DataSchema: query.SchemaOf(g.Array(nameSchema))}})
	got, err := query.Typed[[]post](res)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if diff := cmp.Diff([]post{{ID: "1", Name: "First long title"}}, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestWrap_InvalidResponse_RawPayloadKept(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	raw := []any{map[string]any{"id": "1"}, map[string]any{"id": "2", "name": "short"}}
	rec := &recorder{res: query.Result{Data: raw, Meta: query.Meta{Status: http.StatusOK}}}
	q := query.WithSchemaValidation(rec.base, query.WithLogger(zap.New(core)))

	res := q(context.Background(), query.Args{URL: "posts", Options: query.Options{DataSchema: query.SchemaOf(g.Array(nameSchema))}})
	if !query.IsValidation(res.Err) {
		t.Fatalf("expected validation error, got %v", res.Err)
	}
	if diff := cmp.Diff(any(raw), res.Err.Data); diff != "" {
		t.Fatalf("raw payload lost:\n%s", diff)
	}
	if diff := cmp.Diff(any(raw), res.Data); diff != "" {
		t.Fatalf("result data should be the raw payload:\n%s", diff)
	}
	want := []string{"One of posts is missing title", "Post title have to be 10 or more characters long."}
	if diff := cmp.Diff(want, res.Err.Messages()); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if res.Err.Issues[0].Path != "/0/name" || res.Err.Issues[1].Path != "/1/name" {
		t.Fatalf("paths = %s, %s", res.Err.Issues[0].Path, res.Err.Issues[1].Path)
	}
	if logs.FilterMessage("response payload rejected").Len() != 1 {
		t.Fatalf("expected a debug log entry, got %v", logs.All())
	}
}

func TestWrap_TransportError_PassesThroughUnchanged(t *testing.T) {
	te := query.TransportError(http.StatusInternalServerError, "Server timeout", map[string]any{"error": "Server timeout"})
	rec := &recorder{res: query.Result{Err: te, Meta: query.Meta{Status: 500}}}
	q := query.WithSchemaValidation(rec.base)
	res := q(context.Background(), query.Args{Method: http.MethodPut, URL: "posts/1", Body: map[string]any{"name": "A valid long title", "id": "1"}, Options: query.Options{
		ArgsSchema: query.SchemaOf(nameSchema),
		DataSchema: query.SchemaOf(nameSchema),
	}})
	if res.Err != te {
		t.Fatalf("transport error must be returned as is, got %v", res.Err)
	}
	if !query.IsTransport(res.Err) || query.IsValidation(res.Err) {
		t.Fatalf("kind helpers disagree")
	}
	if got := res.Err.Messages(); len(got) != 1 || got[0] != "Server timeout" {
		t.Fatalf("messages = %v", got)
	}
}

func TestWrap_SchemaPanic_BecomesParseError(t *testing.T) {
	rec := &recorder{res: query.Result{Data: map[string]any{}}}
	q := query.WithSchemaValidation(rec.base)
	boom := query.ValidatorFunc(func(context.Context, any) (any, error) { panic("kaboom") })
	res := q(context.Background(), query.Args{URL: "x", Options: query.Options{DataSchema: boom}})
	if !query.IsValidation(res.Err) || len(res.Err.Issues) != 1 || res.Err.Issues[0].Code != postq.CodeParseError {
		t.Fatalf("unexpected: %+v", res.Err)
	}
}

func TestWrap_PlainError_BecomesParseError(t *testing.T) {
	rec := &recorder{}
	q := query.WithSchemaValidation(rec.base)
	bad := query.ValidatorFunc(func(context.Context, any) (any, error) { return nil, errors.New("nope") })
	res := q(context.Background(), query.Args{Body: "x", Options: query.Options{ArgsSchema: bad}})
	if !query.IsValidation(res.Err) || res.Err.Issues[0].Message != "nope" {
		t.Fatalf("unexpected: %+v", res.Err)
	}
}

func TestWrap_IssueLimit(t *testing.T) {
	rec := &recorder{res: query.Result{Data: []any{map[string]any{}, map[string]any{}, map[string]any{}}}}
	q := query.WithSchemaValidation(rec.base, query.WithIssueLimit(2))
	res := q(context.Background(), query.Args{URL: "posts", Options: query.Options{DataSchema: query.SchemaOf(g.Array(nameSchema))}})
	if res.Err == nil || len(res.Err.Issues) != 2 {
		t.Fatalf("expected 2 issues, got %+v", res.Err)
	}
}
