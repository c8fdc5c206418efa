package dsl_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/reoring/postq"
	g "github.com/reoring/postq/dsl"
)

func TestString_Basics(t *testing.T) {
	ctx := context.Background()
	if v, err := g.String().Parse(ctx, "hello"); err != nil || v != "hello" {
		t.Fatalf("string parse ok expected, got v=%v err=%v", v, err)
	}
	_, err := g.String().Parse(ctx, 1)
	iss, ok := postq.AsIssues(err)
	if !ok || iss[0].Code != postq.CodeInvalidType {
		t.Fatalf("expected invalid_type for non-string, got %v", err)
	}
	if v, err := g.Bool().Parse(ctx, true); err != nil || v != true {
		t.Fatalf("bool parse ok expected, got v=%v err=%v", v, err)
	}
	if _, err := g.Bool().Parse(ctx, "nope"); err == nil {
		t.Fatalf("expected invalid_type for non-bool")
	}
}

func TestString_Min_CustomMessage_CountsRunes(t *testing.T) {
	ctx := context.Background()
	s := g.String().Min(3, "too short!")
	if _, err := s.Parse(ctx, "日本語"); err != nil {
		t.Fatalf("3 runes should pass: %v", err)
	}
	_, err := s.Parse(ctx, "ab")
	iss, _ := postq.AsIssues(err)
	if len(iss) != 1 || iss[0].Message != "too short!" || iss[0].Code != postq.CodeTooShort {
		t.Fatalf("unexpected issues: %#v", iss)
	}
	if iss[0].Params["min"] != 3 || iss[0].Params["got"] != 2 {
		t.Fatalf("unexpected params: %#v", iss[0].Params)
	}
}

func TestString_DefaultMessage_FromTranslator(t *testing.T) {
	_, err := g.String().Max(2).Parse(context.Background(), "abc")
	iss, _ := postq.AsIssues(err)
	if len(iss) != 1 || iss[0].Message != "must be at most 2 characters long" {
		t.Fatalf("unexpected issues: %#v", iss)
	}
}

func TestString_Builders_AreImmutable(t *testing.T) {
	ctx := context.Background()
	base := g.String()
	_ = base.Min(5)
	if _, err := base.Parse(ctx, "ab"); err != nil {
		t.Fatalf("base schema must not inherit Min: %v", err)
	}
}

func TestString_UppercaseFirst(t *testing.T) {
	ctx := context.Background()
	s := g.String().UppercaseFirst()
	if _, err := s.Parse(ctx, "Émile"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	_, err := s.Parse(ctx, "lower")
	iss, _ := postq.AsIssues(err)
	if len(iss) != 1 || iss[0].Rule != "uppercase_first" {
		t.Fatalf("unexpected issues: %#v", iss)
	}
	// empty input is left to Min
	if _, err := s.Parse(ctx, ""); err != nil {
		t.Fatalf("empty string should not trip casing: %v", err)
	}
}

func TestString_FailFast_StopsAtFirst(t *testing.T) {
	s := g.String().Min(10).UppercaseFirst()
	_, err := s.Parse(postq.WithFailFast(context.Background(), true), "hi")
	iss, _ := postq.AsIssues(err)
	if len(iss) != 1 || iss[0].Code != postq.CodeTooShort {
		t.Fatalf("expected single too_short, got %#v", iss)
	}
}

func TestString_Trim_Pattern_Refine(t *testing.T) {
	ctx := context.Background()
	s := g.String().Trim().Pattern(regexp.MustCompile(`^[a-z]+$`)).
		Refine("not_admin", func(_ context.Context, v string) error {
			if v == "admin" {
				return errors.New("reserved")
			}
			return nil
		})
	if v, err := s.Parse(ctx, "  bob "); err != nil || v != "bob" {
		t.Fatalf("v=%q err=%v", v, err)
	}
	_, err := s.Parse(ctx, "admin")
	iss, _ := postq.AsIssues(err)
	if len(iss) != 1 || iss[0].Code != postq.CodeCustom || iss[0].Rule != "not_admin" || iss[0].Message != "reserved" {
		t.Fatalf("unexpected issues: %#v", iss)
	}
	if _, err := s.Parse(ctx, "Bob"); err == nil {
		t.Fatalf("expected pattern failure")
	}
}

func TestString_JSONSchema(t *testing.T) {
	js, err := g.String().Min(10).UppercaseFirst().JSONSchema()
	if err != nil {
		t.Fatal(err)
	}
	if js.Type != "string" || js.MinLength == nil || *js.MinLength != 10 || js.Pattern != `^\p{Lu}` {
		t.Fatalf("unexpected schema: %#v", js)
	}
}
