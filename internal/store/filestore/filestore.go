// Package filestore keeps posts in a json-server style db.json file.
//
// The file holds one object. Its "posts" member is the collection; any other
// members are preserved as-is across writes. Writes go to a temp file that is
// renamed over the original, and an optional watcher reloads the file when
// something else edits it.
package filestore

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/reoring/postq"
	"github.com/reoring/postq/internal/store"
)

const collection = "posts"

// Store is a store.Store backed by a JSON file.
type Store struct {
	mu    sync.RWMutex
	path  string
	posts []store.Record
	other map[string]any
	// last holds the bytes of our latest write so the watcher can skip it.
	last []byte

	log   *zap.Logger
	watch bool
	w     *watcher
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithWatch reloads the file when it changes on disk.
func WithWatch() Option { return func(s *Store) { s.watch = true } }

// Open loads path, creating an empty database when it does not exist.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{path: path, log: zap.NewNop(), other: map[string]any{}}
	for _, o := range opts {
		o(s)
	}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if err := s.flushLocked(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("filestore: read %s: %w", path, err)
	default:
		if err := s.load(data); err != nil {
			return nil, err
		}
	}
	if s.watch {
		w, err := newWatcher(path, s.reload, s.log)
		if err != nil {
			return nil, err
		}
		s.w = w
	}
	return s, nil
}

// load replaces the in-memory state with data. Callers hold mu or own s.
func (s *Store) load(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		s.posts, s.other = nil, map[string]any{}
		return nil
	}
	v, err := postq.DecodeAny(data)
	if err != nil {
		return fmt.Errorf("filestore: decode %s: %w", s.path, err)
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("filestore: %s: top-level value must be an object", s.path)
	}
	var posts []store.Record
	if raw, ok := doc[collection]; ok {
		items, ok := raw.([]any)
		if !ok {
			return fmt.Errorf("filestore: %s: %q must be an array", s.path, collection)
		}
		for i, it := range items {
			m, ok := it.(map[string]any)
			if !ok {
				return fmt.Errorf("filestore: %s: %s[%d] is not an object", s.path, collection, i)
			}
			posts = append(posts, store.Record(m))
		}
	}
	delete(doc, collection)
	s.posts, s.other = posts, doc
	return nil
}

func (s *Store) reload() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.log.Warn("reload failed", zap.String("path", s.path), zap.Error(err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if bytes.Equal(data, s.last) {
		return
	}
	if err := s.load(data); err != nil {
		s.log.Warn("reload failed", zap.String("path", s.path), zap.Error(err))
		return
	}
	s.last = data
	s.log.Info("database reloaded", zap.String("path", s.path), zap.Int("posts", len(s.posts)))
}

// flushLocked writes the database atomically. Callers hold mu.
func (s *Store) flushLocked() error {
	doc := make(map[string]any, len(s.other)+1)
	for k, v := range s.other {
		doc[k] = v
	}
	posts := s.posts
	if posts == nil {
		posts = []store.Record{}
	}
	doc[collection] = posts
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: encode: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".db-*.json")
	if err != nil {
		return fmt.Errorf("filestore: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("filestore: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("filestore: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filestore: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("filestore: replace %s: %w", s.path, err)
	}
	s.last = data
	return nil
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.posts, func(r store.Record) bool { return r.ID() == id })
}

// List implements store.Store.
func (s *Store) List(_ context.Context, limit int) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.posts)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]store.Record, n)
	for i := range n {
		out[i] = s.posts[i].Clone()
	}
	return out, nil
}

// Get implements store.Store.
func (s *Store) Get(_ context.Context, id string) (store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, store.ErrNotFound
	}
	return s.posts[i].Clone(), nil
}

// Create implements store.Store.
func (s *Store) Create(_ context.Context, rec store.Record) (store.Record, error) {
	id := rec.ID()
	if id == "" {
		return nil, fmt.Errorf("filestore: create: missing id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) >= 0 {
		return nil, store.ErrConflict
	}
	rec = rec.Clone()
	s.posts = append(s.posts, rec)
	if err := s.flushLocked(); err != nil {
		s.posts = s.posts[:len(s.posts)-1]
		return nil, err
	}
	return rec.Clone(), nil
}

// Update implements store.Store.
func (s *Store) Update(_ context.Context, id string, patch store.Record) (store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, store.ErrNotFound
	}
	prev := s.posts[i]
	s.posts[i] = prev.Merge(patch)
	if err := s.flushLocked(); err != nil {
		s.posts[i] = prev
		return nil, err
	}
	return s.posts[i].Clone(), nil
}

// Delete implements store.Store.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return store.ErrNotFound
	}
	prev := s.posts
	s.posts = slices.Delete(slices.Clone(s.posts), i, i+1)
	if err := s.flushLocked(); err != nil {
		s.posts = prev
		return err
	}
	return nil
}

// Close stops the watcher, if any.
func (s *Store) Close() error {
	if s.w != nil {
		return s.w.stop()
	}
	return nil
}
