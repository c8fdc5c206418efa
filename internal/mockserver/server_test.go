package mockserver_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/postq/internal/mockserver"
	"github.com/reoring/postq/internal/store"
	"github.com/reoring/postq/internal/store/filestore"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newServer(t *testing.T, opts ...mockserver.Option) (*httptest.Server, store.Store) {
	t.Helper()
	st, err := filestore.Open(filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	opts = append([]mockserver.Option{
		mockserver.WithClock(func() time.Time { return fixedNow }),
		mockserver.WithIDGenerator(func() string { return "gen-1" }),
	}, opts...)
	srv := httptest.NewServer(mockserver.New(st, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv, st
}

func do(t *testing.T, method, url, body string) (int, map[string]any, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var obj map[string]any
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		require.NoError(t, json.Unmarshal(raw, &obj))
	}
	return resp.StatusCode, obj, raw
}

func TestCRUD(t *testing.T) {
	srv, _ := newServer(t)

	code, created, _ := do(t, http.MethodPost, srv.URL+"/posts", `{"name":"A long enough title","content":"body"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "gen-1", created["id"])
	assert.Equal(t, "2024-03-01T12:00:00Z", created["created"])

	code, got, _ := do(t, http.MethodGet, srv.URL+"/posts/gen-1", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, created, got)

	code, updated, _ := do(t, http.MethodPut, srv.URL+"/posts/gen-1", `{"name":"Another long title"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Another long title", updated["name"])
	assert.Equal(t, "body", updated["content"])

	code, patched, _ := do(t, http.MethodPatch, srv.URL+"/posts/gen-1", `{"content":"changed"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Another long title", patched["name"])
	assert.Equal(t, "changed", patched["content"])

	code, del, _ := do(t, http.MethodDelete, srv.URL+"/posts/gen-1", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"success": true, "id": "gen-1"}, del)

	code, nf, _ := do(t, http.MethodGet, srv.URL+"/posts/gen-1", "")
	require.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, map[string]any{"error": "Not Found"}, nf)
}

func TestList_Limit(t *testing.T) {
	srv, st := newServer(t)
	for _, id := range []string{"1", "2", "3"} {
		_, err := st.Create(t.Context(), store.Record{"id": id, "name": "Some post " + id})
		require.NoError(t, err)
	}
	code, _, raw := do(t, http.MethodGet, srv.URL+"/posts?_limit=2", "")
	require.Equal(t, http.StatusOK, code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(raw, &items))
	require.Len(t, items, 2)
	assert.Equal(t, "1", items[0]["id"])

	code, _, _ = do(t, http.MethodGet, srv.URL+"/posts?_limit=x", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCreate_Conflict(t *testing.T) {
	srv, _ := newServer(t)
	body := `{"id":"1","name":"A long enough title"}`
	code, _, _ := do(t, http.MethodPost, srv.URL+"/posts", body)
	require.Equal(t, http.StatusCreated, code)
	code, payload, _ := do(t, http.MethodPost, srv.URL+"/posts", body)
	require.Equal(t, http.StatusConflict, code)
	assert.Contains(t, payload, "error")
}

func TestMalformedBody(t *testing.T) {
	srv, _ := newServer(t)
	code, payload, _ := do(t, http.MethodPost, srv.URL+"/posts", `{"name":`)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "malformed JSON", payload["error"])

	code, _, _ = do(t, http.MethodPost, srv.URL+"/posts", `[1,2]`)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestDuplicateKeysRejected(t *testing.T) {
	srv, _ := newServer(t)
	code, payload, _ := do(t, http.MethodPost, srv.URL+"/posts", `{"name":"A long enough title","name":"x"}`)
	require.Equal(t, http.StatusBadRequest, code)
	issues := payload["issues"].([]any)
	require.Len(t, issues, 1)
	assert.Equal(t, "/name", issues[0].(map[string]any)["path"])
	assert.Equal(t, "duplicate_key", issues[0].(map[string]any)["code"])
}

func TestStoresInvalidPostsWithoutValidation(t *testing.T) {
	srv, _ := newServer(t)
	code, created, _ := do(t, http.MethodPost, srv.URL+"/posts", `{"id":"x","name":"hi"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "hi", created["name"])
}

func TestRequestValidation(t *testing.T) {
	srv, _ := newServer(t, mockserver.WithRequestValidation(false))

	code, payload, _ := do(t, http.MethodPost, srv.URL+"/posts", `{"name":"hi"}`)
	require.Equal(t, http.StatusBadRequest, code)
	issues, ok := payload["issues"].([]any)
	require.True(t, ok, "payload: %v", payload)
	require.Len(t, issues, 1)
	first := issues[0].(map[string]any)
	assert.Equal(t, "/name", first["path"])
	assert.Equal(t, "Post title have to be 10 or more characters long.", first["message"])

	code, _, _ = do(t, http.MethodPost, srv.URL+"/posts", `{"content":"no title"}`)
	require.Equal(t, http.StatusBadRequest, code)

	code, _, _ = do(t, http.MethodPost, srv.URL+"/posts", `{"name":"A long enough title"}`)
	require.Equal(t, http.StatusCreated, code)

	code, _, _ = do(t, http.MethodPut, srv.URL+"/posts/gen-1", `{"bogus":1}`)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestFailureInjection(t *testing.T) {
	srv, st := newServer(t, mockserver.WithFailures(mockserver.AlwaysFail("PUT")))
	_, err := st.Create(t.Context(), store.Record{"id": "1", "name": "Old"})
	require.NoError(t, err)

	code, payload, _ := do(t, http.MethodPut, srv.URL+"/posts/1", `{"name":"New"}`)
	require.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, map[string]any{"error": "Server timeout"}, payload)

	got, err := st.Get(t.Context(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Old", got["name"])

	// bodies without a name are never picked
	code, _, _ = do(t, http.MethodPut, srv.URL+"/posts/1", `{"content":"c"}`)
	assert.Equal(t, http.StatusOK, code)
	// other methods are not subject to injection
	code, _, _ = do(t, http.MethodPatch, srv.URL+"/posts/1", `{"name":"Patched"}`)
	assert.Equal(t, http.StatusOK, code)
}

func TestDelay(t *testing.T) {
	srv, _ := newServer(t, mockserver.WithDelay(50*time.Millisecond))
	start := time.Now()
	code, _, _ := do(t, http.MethodGet, srv.URL+"/healthz", "")
	require.Equal(t, http.StatusOK, code)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestSchemaEndpoint(t *testing.T) {
	srv, _ := newServer(t)
	code, payload, _ := do(t, http.MethodGet, srv.URL+"/_schema/posts", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "object", payload["type"])
	props, ok := payload["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "name")

	code, _, _ = do(t, http.MethodGet, srv.URL+"/_schema/posts?name=nope", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := newServer(t)
	code, payload, _ := do(t, http.MethodGet, srv.URL+"/comments", "")
	require.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, map[string]any{"error": "Not Found"}, payload)
}
