package cache

// TxState is the outcome of an optimistic patch.
type TxState int

const (
	TxPending TxState = iota
	TxCommitted
	TxRolledBack
)

func (s TxState) String() string {
	switch s {
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled_back"
	default:
		return "pending"
	}
}

// Tx is a reversible optimistic change to one entry's data.
type Tx struct {
	store    *Store
	key      Key
	snapshot any
	// version is the entry version written by the patch; zero when the
	// patch had nothing to apply.
	version uint64
	state   TxState
}

// Patch applies fn to the cached data of key right away and returns a Tx
// that can undo it. fn must return a new value rather than mutate its
// argument. An entry without data is left alone and its Tx is a no-op.
func (s *Store) Patch(key Key, fn func(data any) any) *Tx {
	tx := &Tx{store: s, key: key}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.snap.Data == nil {
		return tx
	}
	tx.snapshot = e.snap.Data
	e.snap.Data = fn(e.snap.Data)
	e.snap.Version++
	e.snap.UpdatedAt = s.now()
	tx.version = e.snap.Version
	e.notify()
	return tx
}

// Applied reports whether the patch changed any data.
func (tx *Tx) Applied() bool { return tx.version != 0 }

// State returns the transaction state.
func (tx *Tx) State() TxState {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	return tx.state
}

// Commit keeps the optimistic data. When data is non-nil it replaces the
// entry data, provided nothing else wrote the entry since the patch.
func (tx *Tx) Commit(data any) {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.state != TxPending {
		return
	}
	tx.state = TxCommitted
	if data == nil || !tx.Applied() {
		return
	}
	if e, ok := s.entries[tx.key]; ok && e.snap.Version == tx.version {
		e.snap.Data = data
		e.snap.Version++
		e.snap.UpdatedAt = s.now()
		e.notify()
	}
}

// Rollback restores the pre-patch data. It only does so while the entry
// still holds the optimistic version; a newer write wins. It reports
// whether data was restored.
func (tx *Tx) Rollback() bool {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.state != TxPending {
		return false
	}
	tx.state = TxRolledBack
	if !tx.Applied() {
		return false
	}
	e, ok := s.entries[tx.key]
	if !ok || e.snap.Version != tx.version {
		return false
	}
	e.snap.Data = tx.snapshot
	e.snap.Version++
	e.snap.UpdatedAt = s.now()
	e.notify()
	return true
}
