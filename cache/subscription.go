package cache

import "context"

// Subscription streams snapshots of one entry. The channel holds at most one
// pending snapshot: a slow reader only sees the latest state.
type Subscription struct {
	key   Key
	store *Store
	ch    chan Entry
	stop  func() bool

	// guarded by store.mu
	closed bool
}

// Subscribe registers interest in key. The current snapshot is delivered
// immediately and a fetch starts unless the entry is fulfilled and fresh.
// The subscription ends on Unsubscribe or when ctx is done; neither aborts a
// fetch already in flight.
func (s *Store) Subscribe(ctx context.Context, key Key, fetch Fetcher) *Subscription {
	sub := &Subscription{key: key, store: s, ch: make(chan Entry, 1)}
	stop := context.AfterFunc(ctx, sub.Unsubscribe)

	s.mu.Lock()
	sub.stop = stop
	if sub.closed {
		s.mu.Unlock()
		return sub
	}
	e := s.ensure(key)
	e.fetch = fetch
	e.subs[sub] = struct{}{}
	sub.deliver(e.snapshot())
	needFetch := !(e.snap.Status == StatusFulfilled && !e.snap.Stale) && !e.snap.IsFetching && !s.closed
	s.mu.Unlock()

	if needFetch {
		s.background(key, fetch)
	}
	return sub
}

// Key returns the subscribed key.
func (sub *Subscription) Key() Key { return sub.key }

// Updates delivers entry snapshots. It is closed after Unsubscribe.
func (sub *Subscription) Updates() <-chan Entry { return sub.ch }

// Unsubscribe releases the subscription. It is safe to call more than once.
func (sub *Subscription) Unsubscribe() {
	s := sub.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[sub.key]; ok {
		if _, mine := e.subs[sub]; mine {
			delete(e.subs, sub)
			e.notify()
		}
	}
	sub.close()
}

// deliver replaces any unread snapshot with snap. Callers hold store.mu.
func (sub *Subscription) deliver(snap Entry) {
	if sub.closed {
		return
	}
	select {
	case sub.ch <- snap:
		return
	default:
	}
	select {
	case <-sub.ch:
	default:
	}
	select {
	case sub.ch <- snap:
	default:
	}
}

// close closes the channel once. Callers hold store.mu.
func (sub *Subscription) close() {
	if sub.closed {
		return
	}
	sub.closed = true
	if sub.stop != nil {
		sub.stop()
	}
	close(sub.ch)
}
