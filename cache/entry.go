package cache

import (
	"context"
	"time"

	"github.com/reoring/postq/query"
)

// Status is the lifecycle of a cache entry.
type Status int

const (
	StatusUninitialized Status = iota
	StatusPending
	StatusFulfilled
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFulfilled:
		return "fulfilled"
	case StatusRejected:
		return "rejected"
	default:
		return "uninitialized"
	}
}

// Key identifies a cached query: endpoint name plus canonical argument.
type Key struct {
	Endpoint string
	Arg      string
}

func (k Key) String() string { return k.Endpoint + "(" + k.Arg + ")" }

// ListID is the tag id that stands for "the collection".
const ListID = "LIST"

// Tag labels cached data so mutations can invalidate it.
type Tag struct {
	Type string
	ID   string
}

func (t Tag) String() string {
	if t.ID == "" {
		return t.Type
	}
	return t.Type + ":" + t.ID
}

// matches reports whether invalidating t hits provided tag p. A tag without
// id hits every tag of its type.
func (t Tag) matches(p Tag) bool {
	return t.Type == p.Type && (t.ID == "" || t.ID == p.ID)
}

// Entry is an immutable snapshot of one cached query.
type Entry struct {
	Key    Key
	Status Status
	// Data is the last successful result; it survives later failures.
	Data any
	Err  *query.APIError
	Tags []Tag
	// IsLoading is true while the first fetch runs and no data exists yet.
	IsLoading  bool
	IsFetching bool
	// Stale is set by invalidation until the next successful fetch.
	Stale       bool
	Subscribers int
	// Version increases on every data change, optimistic patches included.
	Version   uint64
	UpdatedAt time.Time
}

// Fetcher loads fresh data for an entry and reports the tags it provides.
// err is nil on success.
type Fetcher func(ctx context.Context) (data any, err *query.APIError, tags []Tag)
