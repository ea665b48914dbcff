// Package cell defines the reactive value holder a container wraps and
// provides a mutex-guarded in-memory implementation.
package cell

import "sync"

// Cell holds one value and notifies subscribers after each write.
// Implementations must be safe for concurrent use.
type Cell[T any] interface {
	// Read returns the current value.
	Read() T
	// Write replaces the current value and notifies subscribers.
	Write(value T)
	// Subscribe registers fn to run after every write. The returned
	// function removes the subscription and is safe to call more than once.
	Subscribe(fn func(T)) (unsubscribe func())
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

type signal[T any] struct {
	value T
	subs  []subscriber[T]
	next  uint64
	mu    sync.RWMutex
}

// New creates an in-memory Cell holding initial. Subscribers run
// synchronously on the writer's goroutine, in subscription order, after the
// lock is released so they may read or write the cell themselves.
func New[T any](initial T) Cell[T] {
	return &signal[T]{value: initial}
}

func (s *signal[T]) Read() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

func (s *signal[T]) Write(value T) {
	s.mu.Lock()
	s.value = value
	subs := make([]subscriber[T], len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(value)
	}
}

func (s *signal[T]) Subscribe(fn func(T)) func() {
	s.mu.Lock()
	s.next++
	id := s.next
	s.subs = append(s.subs, subscriber[T]{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}
