package dsl_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/reoring/postq"
	"github.com/reoring/postq/codec"
	g "github.com/reoring/postq/dsl"
)

type article struct {
	ID      string     `json:"id"`
	Title   string     `postq:"name=name" json:"title"`
	Body    *string    `json:"body,omitempty"`
	Created *time.Time `json:"created,omitempty"`
}

func articleSchema() postq.Schema[article] {
	return g.MustBind[article](g.Object().
		Field("id", g.StringOf[string]()).Required().
		Field("name", g.StringWith[string](g.String().Min(3))).Required().
		Field("body", g.StringOf[string]()).
		Field("created", g.CodecOf(codec.TimeRFC3339())).
		UnknownStrip())
}

func TestBind_Parse_PointersAndCodec(t *testing.T) {
	s := articleSchema()
	got, err := postq.ParseJSON(context.Background(), s, []byte(`{"id":"1","name":"Hello","body":"b","created":"2025-01-02T03:04:05Z","x":1}`))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	body := "b"
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	want := article{ID: "1", Title: "Hello", Body: &body, Created: &created}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestBind_Parse_OptionalAbsentStaysNil(t *testing.T) {
	got, err := articleSchema().Parse(context.Background(), map[string]any{"id": "1", "name": "Hello"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Body != nil || got.Created != nil {
		t.Fatalf("expected nil optionals, got %+v", got)
	}
}

func TestBind_ValidateValue_NilPointerIsAbsent(t *testing.T) {
	s := articleSchema()
	ctx := context.Background()
	if err := s.ValidateValue(ctx, article{ID: "1", Title: "Hello"}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	err := s.ValidateValue(ctx, article{ID: "1", Title: "Hi"})
	iss, _ := postq.AsIssues(err)
	if len(iss) != 1 || iss[0].Path != "/name" {
		t.Fatalf("unexpected issues: %#v", iss)
	}
}

func TestBind_Parse_AcceptsTypedValue(t *testing.T) {
	in := article{ID: "1", Title: "Hello"}
	got, err := articleSchema().Parse(context.Background(), in)
	if err != nil || got.ID != "1" {
		t.Fatalf("got=%+v err=%v", got, err)
	}
}

func TestBind_MissingStructField(t *testing.T) {
	_, err := g.Bind[article](g.Object().Field("ghost", g.StringOf[string]()).Builder())
	if err == nil || !strings.Contains(err.Error(), "/ghost") {
		t.Fatalf("expected bind error for ghost, got %v", err)
	}
}

func TestTransform_Excerpt(t *testing.T) {
	s := g.Transform(g.String(), func(_ context.Context, v string) (string, error) {
		return codec.Excerpt(v, 5), nil
	})
	got, err := s.Parse(context.Background(), "abcdefgh")
	if err != nil || got != "abcde..." {
		t.Fatalf("got=%q err=%v", got, err)
	}
	if _, err := s.Parse(context.Background(), 1); err == nil {
		t.Fatalf("expected wire type error")
	}
}

func TestCodec_DisplayDate_AsField(t *testing.T) {
	s := g.Object().Field("created", g.CodecOf(codec.DisplayDate(""))).MustBuild()
	v, err := s.Parse(context.Background(), map[string]any{"created": "2024-03-07T15:04:05Z"})
	if err != nil || v["created"] != "Mar 7, 2024" {
		t.Fatalf("v=%v err=%v", v, err)
	}
	_, err = s.Parse(context.Background(), map[string]any{"created": "soon"})
	if diff := cmp.Diff([]string{"invalid_format /created"}, issuePaths(err)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestNullable(t *testing.T) {
	s := g.Object().Field("body", g.StringOf[string]().Nullable()).MustBuild()
	if _, err := s.Parse(context.Background(), map[string]any{"body": nil}); err != nil {
		t.Fatalf("null should pass: %v", err)
	}
}
