package codec

import (
	"context"
	"testing"

	"github.com/reoring/postq"
)

func TestDisplayDate_Decode(t *testing.T) {
	c := DisplayDate("")
	got, err := c.Decode(context.Background(), "2024-03-07T15:04:05Z")
	if err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if got != "Mar 7, 2024" {
		t.Fatalf("got %q", got)
	}
}

func TestDisplayDate_CustomLayout_Encode(t *testing.T) {
	c := DisplayDate("2006-01-02")
	ctx := context.Background()
	d, err := c.Decode(ctx, "2024-12-31T23:59:59+09:00")
	if err != nil {
		t.Fatalf("decode err: %v", err)
	}
	// rendered in UTC
	if d != "2024-12-31" {
		t.Fatalf("got %q", d)
	}
	w, err := c.Encode(ctx, d)
	if err != nil {
		t.Fatalf("encode err: %v", err)
	}
	if w != "2024-12-31T00:00:00Z" {
		t.Fatalf("got %q", w)
	}
}

func TestDisplayDate_Encode_RejectsGarbage(t *testing.T) {
	_, err := DisplayDate("").Encode(context.Background(), "not a date")
	if iss, ok := postq.AsIssues(err); !ok || iss[0].Code != postq.CodeInvalidFormat {
		t.Fatalf("expected invalid_format, got %v", err)
	}
}
