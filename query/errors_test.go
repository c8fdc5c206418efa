package query_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/reoring/postq"
	"github.com/reoring/postq/query"
)

func TestAPIError_ErrorAndMessages(t *testing.T) {
	cases := []struct {
		name     string
		err      *query.APIError
		wantErr  string
		wantMsgs []string
	}{
		{
			name:     "validation",
			err:      query.ValidationError(postq.Issues{{Path: "/name", Code: postq.CodeTooShort, Message: "short"}}, nil),
			wantErr:  "validation failed: too_short at /name",
			wantMsgs: []string{"short"},
		},
		{
			name:     "http status without message",
			err:      query.TransportError(http.StatusNotFound, "", nil),
			wantErr:  "http 404: ",
			wantMsgs: []string{"Not Found"},
		},
		{
			name:     "fetch error",
			err:      &query.APIError{Kind: query.KindTransport, Code: query.CodeFetchError, Message: "connection refused"},
			wantErr:  "FETCH_ERROR: connection refused",
			wantMsgs: []string{"connection refused"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.err.Error(); got != tc.wantErr {
				t.Fatalf("Error() = %q", got)
			}
			got := tc.err.Messages()
			if fmt.Sprint(got) != fmt.Sprint(tc.wantMsgs) {
				t.Fatalf("Messages() = %v", got)
			}
		})
	}
}

func TestAsAPIError_Wrapped(t *testing.T) {
	err := fmt.Errorf("update post: %w", query.TransportError(500, "Server timeout", nil))
	ae, ok := query.AsAPIError(err)
	if !ok || ae.Status != 500 {
		t.Fatalf("expected wrapped APIError, got %v", err)
	}
	if !query.IsTransport(err) {
		t.Fatalf("IsTransport should see through wrapping")
	}
}

func TestArgs_Key(t *testing.T) {
	a := query.Args{URL: "posts", Params: map[string][]string{"_limit": {"2"}}}
	if got := a.Key(); got != "GET posts?_limit=2" {
		t.Fatalf("key = %q", got)
	}
}
