package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/postq/internal/mockserver"
	"github.com/reoring/postq/internal/store"
	"github.com/reoring/postq/internal/store/filestore"
)

func backend(t *testing.T, opts ...mockserver.Option) (string, store.Store) {
	t.Helper()
	db, err := filestore.Open(filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	srv := httptest.NewServer(mockserver.New(db, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv.URL, db
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	if err != nil {
		renderError(&errOut, err)
	}
	return out.String(), errOut.String(), err
}

func TestPostsCommands(t *testing.T) {
	url, db := backend(t)
	_, err := db.Create(context.Background(), store.Record{"id": "1", "name": "Old post title", "content": "body"})
	require.NoError(t, err)

	out, _, err := run(t, "--base-url", url, "posts", "list")
	require.NoError(t, err)
	var list []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Old post title", list[0]["name"])

	out, _, err = run(t, "--base-url", url, "posts", "update", "1", "--name", "New post title")
	require.NoError(t, err)
	assert.Contains(t, out, `"New post title"`)

	out, _, err = run(t, "--base-url", url, "posts", "add", "--id", "2", "--name", "Second post title")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "2"`)

	out, _, err = run(t, "--base-url", url, "posts", "delete", "2")
	require.NoError(t, err)
	assert.Contains(t, out, `"success": true`)
}

func TestPostsCommands_RenderValidationErrors(t *testing.T) {
	url, _ := backend(t)
	_, errOut, err := run(t, "--base-url", url, "posts", "add", "--name", "hi")
	require.Error(t, err)
	assert.Equal(t, "Post title have to be 10 or more characters long.\n", errOut)
}

func TestPostsCommands_RenderTransportErrors(t *testing.T) {
	url, db := backend(t, mockserver.WithFailures(mockserver.AlwaysFail()))
	_, err := db.Create(context.Background(), store.Record{"id": "1", "name": "Old post title"})
	require.NoError(t, err)

	_, errOut, err := run(t, "--base-url", url, "posts", "update", "1", "--name", "New post title")
	require.Error(t, err)
	assert.Equal(t, "Server timeout\n", errOut)
}

func TestUpdate_EmptyPatch(t *testing.T) {
	_, _, err := run(t, "posts", "update", "1")
	require.ErrorIs(t, err, errEmptyPatch)
}

func TestSchemaCommand(t *testing.T) {
	out, _, err := run(t, "schema", "draft")
	require.NoError(t, err)
	var js map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &js))
	assert.Equal(t, "object", js["type"])
	assert.Equal(t, false, js["additionalProperties"])

	_, _, err = run(t, "schema", "comment")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid argument"), err.Error())
}
