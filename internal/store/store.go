// Package store defines the storage port of the mock backend.
package store

import (
	"context"
	"errors"
	"maps"
)

var (
	// ErrNotFound is returned when no post has the requested id.
	ErrNotFound = errors.New("store: post not found")
	// ErrConflict is returned when creating a post whose id is taken.
	ErrConflict = errors.New("store: post already exists")
)

// Record is a stored post in wire form. The backend stores whatever clients
// send, valid or not, so records are not typed.
type Record map[string]any

// ID returns the record id, or "" when it is missing or not a string.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Clone returns a shallow copy.
func (r Record) Clone() Record { return maps.Clone(r) }

// Merge returns a copy of r with patch applied. The id never changes.
func (r Record) Merge(patch Record) Record {
	out := r.Clone()
	if out == nil {
		out = Record{}
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		out[k] = v
	}
	return out
}

// Store persists posts. Implementations are safe for concurrent use.
type Store interface {
	// List returns posts in insertion order. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Record, error)
	Get(ctx context.Context, id string) (Record, error)
	// Create inserts rec, which must carry an id.
	Create(ctx context.Context, rec Record) (Record, error)
	// Update merges patch into the post and returns the result.
	Update(ctx context.Context, id string, patch Record) (Record, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
