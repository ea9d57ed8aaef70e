package store

import (
	"context"
	"sync"

	"github.com/roach88/fieldsync/internal/record"
)

// registry is a set of listeners that can be removed individually.
type registry[L any] struct {
	mu      sync.Mutex
	nextID  int
	entries []registered[L]
}

type registered[L any] struct {
	id int
	fn L
}

func (r *registry[L]) add(fn L) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.entries = append(r.entries, registered[L]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(id) })
	}
}

func (r *registry[L]) remove(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.id == id {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return
		}
	}
}

// snapshot returns the listeners registered at call time so a listener
// may unsubscribe while being notified.
func (r *registry[L]) snapshot() []L {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]L, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.fn
	}
	return out
}

func (r *registry[L]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// SubscribeFields registers a listener for profile field writes and returns
// a function that removes it.
func (s *Store) SubscribeFields(l record.FieldListener) func() {
	return s.fieldListeners.add(l)
}

// SubscribeChanges registers a listener for address and phone writes and
// returns a function that removes it.
func (s *Store) SubscribeChanges(l record.ChangeListener) func() {
	return s.changeListeners.add(l)
}

func (s *Store) notifyField(ctx context.Context, fc record.FieldChange) {
	for _, l := range s.fieldListeners.snapshot() {
		l(ctx, fc)
	}
}

func (s *Store) notifyChange(ctx context.Context, c record.Change) {
	for _, l := range s.changeListeners.snapshot() {
		l(ctx, record.Change{Op: c.Op, Type: c.Type, ID: c.ID, Payload: c.Payload.Clone()})
	}
}
