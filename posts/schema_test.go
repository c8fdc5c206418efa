package posts_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/reoring/postq"
	"github.com/reoring/postq/posts"
)

func messages(err error) []string {
	iss, _ := postq.AsIssues(err)
	return iss.Messages()
}

func TestPostSchema(t *testing.T) {
	s := posts.NewSchemas(false)
	ctx := context.Background()

	got, err := s.Post.Parse(ctx, map[string]any{
		"id":      "1",
		"name":    "A valid title",
		"created": "2024-03-01T12:00:00Z",
		"likes":   "ignored",
	})
	if err != nil {
		t.Fatal(err)
	}
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	want := posts.Post{ID: "1", Name: "A valid title", Created: &created}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	_, err = s.Post.Parse(ctx, map[string]any{"id": "1"})
	if diff := cmp.Diff([]string{posts.MsgTitleMissing}, messages(err)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	_, err = s.Post.Parse(ctx, map[string]any{"id": "1", "name": "Short"})
	if diff := cmp.Diff([]string{posts.MsgTitleTooShort}, messages(err)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestPostsSchema_MissingTitleInList(t *testing.T) {
	s := posts.NewSchemas(false)
	_, err := s.Posts.Parse(context.Background(), []any{
		map[string]any{"id": "1", "name": "First valid title"},
		map[string]any{"id": "2"},
	})
	iss, ok := postq.AsIssues(err)
	if !ok || len(iss) != 1 {
		t.Fatalf("want one issue, got %v", err)
	}
	if iss[0].Path != "/1/name" || iss[0].Message != posts.MsgTitleMissing {
		t.Fatalf("issue = %+v", iss[0])
	}
}

func TestNameRules_StrictAndBase(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		strict bool
		name   string
		want   int
	}{
		{true, "hi", 2},
		{false, "hi", 1},
		{true, "Valid Title Text", 0},
		{false, "valid title text", 0},
		{true, "valid title text", 1},
	}
	for _, tc := range cases {
		s := posts.NewSchemas(tc.strict)
		_, err := s.Draft.Parse(ctx, map[string]any{"name": tc.name})
		if got := len(messages(err)); got != tc.want {
			t.Errorf("strict=%v name=%q: %d issues (%v), want %d", tc.strict, tc.name, got, err, tc.want)
		}
	}
}

func TestDraftAndPatchRejectUnknownKeys(t *testing.T) {
	s := posts.NewSchemas(false)
	ctx := context.Background()
	if _, err := s.Draft.Parse(ctx, map[string]any{"name": "A valid title", "extra": 1}); err == nil {
		t.Fatalf("draft accepted unknown key")
	}
	if _, err := s.Patch.Parse(ctx, map[string]any{"id": "1"}); err == nil {
		t.Fatalf("patch accepted id")
	}
	p, err := s.Patch.Parse(ctx, map[string]any{"content": "only content"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != nil || p.Content == nil || *p.Content != "only content" {
		t.Fatalf("patch = %+v", p)
	}
}

func TestListSchema_ExcerptAndDate(t *testing.T) {
	s := posts.NewSchemas(false)
	long := strings.Repeat("a", 150)
	got, err := s.List.Parse(context.Background(), []any{
		map[string]any{"id": "1", "name": "A valid title", "content": long, "created": "2024-03-01T12:00:00Z"},
		map[string]any{"id": "2", "name": "Another title", "content": "short"},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []posts.PostListItem{
		{ID: "1", Name: "A valid title", Excerpt: strings.Repeat("a", 100) + "...", Created: "Mar 1, 2024"},
		{ID: "2", Name: "Another title", Excerpt: "short"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestSchemas_JSONSchema(t *testing.T) {
	s := posts.NewSchemas(false)
	for _, name := range posts.SchemaNames {
		js, err := s.JSONSchema(name)
		if err != nil || js == nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
	if _, err := s.JSONSchema("comment"); err == nil {
		t.Fatalf("expected error for unknown name")
	}
	draft, _ := s.JSONSchema("draft")
	if draft.AdditionalProperties != false {
		t.Fatalf("draft should forbid extra properties")
	}
}
