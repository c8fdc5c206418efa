package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Store owns every cache entry. It is safe for concurrent use; one mutex
// guards all entry state and subscriber notification happens under it.
type Store struct {
	mu      sync.Mutex
	entries map[Key]*entry
	closed  bool

	group singleflight.Group
	wg    sync.WaitGroup
	log   *zap.Logger
	now   func() time.Time
}

type entry struct {
	snap  Entry
	fetch Fetcher
	subs  map[*Subscription]struct{}
	// gen counts invalidations; a fetch that started under an older gen
	// cannot clear Stale.
	gen uint64
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for refetch diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides time.Now for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		entries: map[Key]*entry{},
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ensure returns the entry for key, creating it. Callers hold s.mu.
func (s *Store) ensure(key Key) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{snap: Entry{Key: key}, subs: map[*Subscription]struct{}{}}
		s.entries[key] = e
	}
	return e
}

// snapshot copies e's public state. Callers hold s.mu.
func (e *entry) snapshot() Entry {
	out := e.snap
	out.Tags = slices.Clone(e.snap.Tags)
	out.Subscribers = len(e.subs)
	return out
}

// notify pushes the current snapshot to every subscriber. Callers hold s.mu.
func (e *entry) notify() {
	if len(e.subs) == 0 {
		return
	}
	snap := e.snapshot()
	for sub := range e.subs {
		sub.deliver(snap)
	}
}

// Get returns the current snapshot of key.
func (s *Store) Get(key Key) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return Entry{Key: key}, false
	}
	return e.snapshot(), true
}

// Query returns the cached entry when it is fulfilled and fresh, and fetches
// otherwise. Concurrent fetches of one key share a single call. Cancelling
// ctx stops the wait, not the fetch.
func (s *Store) Query(ctx context.Context, key Key, fetch Fetcher) Entry {
	s.mu.Lock()
	e := s.ensure(key)
	e.fetch = fetch
	if e.snap.Status == StatusFulfilled && !e.snap.Stale {
		snap := e.snapshot()
		s.mu.Unlock()
		return snap
	}
	s.mu.Unlock()
	return s.wait(ctx, key, fetch)
}

// Refetch fetches key unconditionally.
func (s *Store) Refetch(ctx context.Context, key Key, fetch Fetcher) Entry {
	s.mu.Lock()
	s.ensure(key).fetch = fetch
	s.mu.Unlock()
	return s.wait(ctx, key, fetch)
}

func (s *Store) wait(ctx context.Context, key Key, fetch Fetcher) Entry {
	s.wg.Add(1)
	ch := s.group.DoChan(key.String(), func() (any, error) {
		return s.run(context.WithoutCancel(ctx), key, fetch), nil
	})
	select {
	case r := <-ch:
		s.wg.Done()
		return r.Val.(Entry)
	case <-ctx.Done():
		go func() {
			<-ch
			s.wg.Done()
		}()
		snap, _ := s.Get(key)
		return snap
	}
}

// run performs one fetch and records its outcome. An invalidation that
// arrives while the fetch is in flight keeps the entry stale and, when it is
// subscribed, schedules a fresh fetch once this one has left the group.
func (s *Store) run(ctx context.Context, key Key, fetch Fetcher) Entry {
	s.mu.Lock()
	e := s.ensure(key)
	gen := e.gen
	e.snap.IsFetching = true
	e.snap.IsLoading = e.snap.Data == nil
	if e.snap.Status == StatusUninitialized {
		e.snap.Status = StatusPending
	}
	e.notify()
	s.mu.Unlock()

	data, apiErr, tags := fetch(ctx)

	s.mu.Lock()
	if s.entries[key] != e {
		// removed while in flight
		s.mu.Unlock()
		return Entry{Key: key}
	}
	e.snap.IsFetching = false
	e.snap.IsLoading = false
	e.snap.Tags = tags
	e.snap.UpdatedAt = s.now()
	if apiErr != nil {
		e.snap.Status = StatusRejected
		e.snap.Err = apiErr
		s.log.Debug("query failed", zap.Stringer("key", key), zap.Error(apiErr))
	} else {
		e.snap.Status = StatusFulfilled
		e.snap.Err = nil
		e.snap.Data = data
		e.snap.Stale = e.gen != gen
		e.snap.Version++
	}
	again := e.gen != gen && len(e.subs) > 0 && e.fetch != nil && !s.closed
	next := e.fetch
	e.notify()
	snap := e.snapshot()
	s.mu.Unlock()

	if again {
		s.log.Debug("invalidated while fetching, refetching", zap.Stringer("key", key))
		// a new call must not join the one still returning
		s.group.Forget(key.String())
		s.background(key, next)
	}
	return snap
}

// Invalidate marks every entry providing one of tags stale. Subscribed
// entries refetch in the background; unsubscribed ones refetch on their next
// Query.
func (s *Store) Invalidate(tags ...Tag) {
	if len(tags) == 0 {
		return
	}
	type job struct {
		key   Key
		fetch Fetcher
	}
	var jobs []job
	s.mu.Lock()
	for key, e := range s.entries {
		if !providesAny(e.snap.Tags, tags) {
			continue
		}
		e.snap.Stale = true
		e.gen++
		e.notify()
		if len(e.subs) > 0 && e.fetch != nil && !s.closed && !e.snap.IsFetching {
			jobs = append(jobs, job{key, e.fetch})
		}
	}
	s.mu.Unlock()
	for _, j := range jobs {
		s.log.Debug("refetching invalidated entry", zap.Stringer("key", j.key))
		s.background(j.key, j.fetch)
	}
}

func providesAny(provided, invalidated []Tag) bool {
	for _, t := range invalidated {
		for _, p := range provided {
			if t.matches(p) {
				return true
			}
		}
	}
	return false
}

// background refetches key on a tracked goroutine.
func (s *Store) background(key Key, fetch Fetcher) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.wait(context.Background(), key, fetch)
	}()
}

// Remove drops key. Subscribers are closed; an in-flight fetch for it is
// discarded when it lands.
func (s *Store) Remove(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return
	}
	for sub := range e.subs {
		sub.close()
	}
	delete(s.entries, key)
}

// Close stops background refetches from being scheduled and waits for the
// running ones.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}
