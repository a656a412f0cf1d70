package store

import "github.com/tillsync/tillsync/internal/pos"

// ChangeKind distinguishes store change notifications.
type ChangeKind int

const (
	// ChangeAdded fires for each newly inserted record.
	ChangeAdded ChangeKind = iota + 1
	// ChangeUpdated fires for field merges and bulk upserts.
	ChangeUpdated
	// ChangeReplaced fires once when a whole collection is replaced
	// (catalog refresh); ID is empty.
	ChangeReplaced
)

// Event describes one committed change.
type Event struct {
	Collection pos.Collection
	ID         string
	Kind       ChangeKind
}

type subscription struct {
	col pos.Collection // empty matches every collection
	fn  func(Event)
}

// Subscribe registers a callback for committed changes to a
// collection. Pass an empty collection to observe every collection.
// Returns a cancel function.
//
// Callbacks run synchronously on the writer's goroutine after the
// write (or transaction) commits; they must return quickly and must
// not write back into the store. UI layers adapt this to their own
// reactivity model.
func (s *Store) Subscribe(col pos.Collection, fn func(Event)) (cancel func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = subscription{col: col, fn: fn}

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify(ev Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.col == "" || sub.col == ev.Collection {
			fns = append(fns, sub.fn)
		}
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
