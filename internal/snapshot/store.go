// Package snapshot owns the in-memory order collection behind a single
// view session (kitchen display, waiter dashboard). Each mounted view gets
// its own store; only the push-channel connection is shared between views.
package snapshot

import (
	"sync"

	"expo/internal/domain"
	"expo/internal/reconcile"
)

// Store holds the current ordered snapshot. It has no business logic of its
// own: every mutation is delegated to the reconcile functions, the store
// just guards the sequence and tells subscribers when it changed.
type Store struct {
	mu      sync.RWMutex
	orders  []domain.Order
	version uint64
	closed  bool

	subMu   sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

func New() *Store {
	return &Store{subs: make(map[int]chan struct{})}
}

// Orders returns a copy of the current snapshot. Callers may not observe
// later mutations through it.
func (s *Store) Orders() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// Get looks up a single order by identifier.
func (s *Store) Get(id string) (domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if o.ID == id {
			return o, true
		}
	}
	return domain.Order{}, false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// Version increments on every applied mutation. Useful for cheap change
// detection in polling consumers.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// ReplaceAll swaps in a freshly fetched list.
func (s *Store) ReplaceAll(fetched []domain.Order) {
	s.apply(func(current []domain.Order) []domain.Order {
		return reconcile.ReplaceAll(current, fetched)
	})
}

// Upsert merges a single pushed order.
func (s *Store) Upsert(o domain.Order) {
	s.apply(func(current []domain.Order) []domain.Order {
		return reconcile.Upsert(current, o)
	})
}

// Remove drops an order after a cancellation event.
func (s *Store) Remove(id string) {
	s.apply(func(current []domain.Order) []domain.Order {
		return reconcile.Remove(current, id)
	})
}

func (s *Store) apply(merge func([]domain.Order) []domain.Order) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.orders = merge(s.orders)
	s.version++
	s.mu.Unlock()
	s.notify()
}

// Subscribe returns a channel that receives a tick after each mutation, and
// a cancel func. The channel is buffered; a slow consumer coalesces ticks
// instead of blocking the event path.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch
	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close ends the view session. Every mutation afterwards is a no-op, so a
// broadcast that races an unmount can never resurrect state.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
