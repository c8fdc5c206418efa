// Package storetest holds the behavior every store.Store must share.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/reoring/postq/internal/store"
)

// Run exercises s. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("CreateGetList", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, id := range []string{"1", "2", "3"} {
			_, err := s.Create(ctx, store.Record{"id": id, "name": "Post number " + id})
			require.NoError(t, err)
		}
		got, err := s.Get(ctx, "2")
		require.NoError(t, err)
		if diff := cmp.Diff(store.Record{"id": "2", "name": "Post number 2"}, got); diff != "" {
			t.Fatalf("get (-want +got):\n%s", diff)
		}
		all, err := s.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		require.Equal(t, []string{"1", "2", "3"}, ids(all))
		two, err := s.List(ctx, 2)
		require.NoError(t, err)
		require.Equal(t, []string{"1", "2"}, ids(two))
	})

	t.Run("CreateConflict", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.Create(ctx, store.Record{"id": "1", "name": "first"})
		require.NoError(t, err)
		_, err = s.Create(ctx, store.Record{"id": "1", "name": "second"})
		require.True(t, errors.Is(err, store.ErrConflict), "got %v", err)
	})

	t.Run("UpdateMerges", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.Create(ctx, store.Record{"id": "1", "name": "Old", "content": "body"})
		require.NoError(t, err)
		got, err := s.Update(ctx, "1", store.Record{"name": "New", "id": "9"})
		require.NoError(t, err)
		if diff := cmp.Diff(store.Record{"id": "1", "name": "New", "content": "body"}, got); diff != "" {
			t.Fatalf("update (-want +got):\n%s", diff)
		}
		again, err := s.Get(ctx, "1")
		require.NoError(t, err)
		require.Equal(t, got, again)
	})

	t.Run("NotFound", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.Get(ctx, "nope")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.Update(ctx, "nope", store.Record{"name": "x"})
		require.ErrorIs(t, err, store.ErrNotFound)
		require.ErrorIs(t, s.Delete(ctx, "nope"), store.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, id := range []string{"1", "2"} {
			_, err := s.Create(ctx, store.Record{"id": id, "name": "n"})
			require.NoError(t, err)
		}
		require.NoError(t, s.Delete(ctx, "1"))
		all, err := s.List(ctx, 0)
		require.NoError(t, err)
		require.Equal(t, []string{"2"}, ids(all))
	})

	t.Run("ReturnedRecordsAreCopies", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec, err := s.Create(ctx, store.Record{"id": "1", "name": "keep"})
		require.NoError(t, err)
		rec["name"] = "mutated"
		got, err := s.Get(ctx, "1")
		require.NoError(t, err)
		require.Equal(t, "keep", got["name"])
	})
}

func ids(recs []store.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID())
	}
	return out
}
