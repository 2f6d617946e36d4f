package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store hands out per-conversation values keyed by session id. A leased value
// is held exclusively until Release, so one conversation never runs two turns
// at once. Values idle for longer than the idle timeout are dropped by Sweep.
type Store[T any] struct {
	mu          sync.Mutex
	entries     map[string]*entry[T]
	newValue    func() T
	idleTimeout time.Duration
	onResize    func(int)
	now         func() time.Time
}

type entry[T any] struct {
	mu       sync.Mutex
	value    T
	lastUsed time.Time
}

type Lease[T any] struct {
	ID    string
	entry *entry[T]
	store *Store[T]
}

// NewStore creates an empty store. onResize, when set, is called with the new
// number of sessions after every change.
func NewStore[T any](newValue func() T, idleTimeout time.Duration, onResize func(int)) *Store[T] {
	return &Store[T]{
		entries:     map[string]*entry[T]{},
		newValue:    newValue,
		idleTimeout: idleTimeout,
		onResize:    onResize,
		now:         time.Now,
	}
}

// Acquire leases the session named id, creating it when missing. An empty or
// malformed id gets a freshly generated one.
func (s *Store[T]) Acquire(id string) *Lease[T] {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	s.mu.Lock()
	current, ok := s.entries[id]
	if !ok {
		current = &entry[T]{value: s.newValue(), lastUsed: s.now()}
		s.entries[id] = current
	}
	current.lastUsed = s.now()
	size := len(s.entries)
	s.mu.Unlock()
	if !ok {
		s.resized(size)
	}

	current.mu.Lock()
	return &Lease[T]{ID: id, entry: current, store: s}
}

func (l *Lease[T]) Value() T {
	return l.entry.value
}

// Replace swaps the leased value, for example when a conversation moves to a
// different dataset.
func (l *Lease[T]) Replace(value T) {
	l.entry.value = value
}

func (l *Lease[T]) Release() {
	l.store.mu.Lock()
	l.entry.lastUsed = l.store.now()
	l.store.mu.Unlock()
	l.entry.mu.Unlock()
}

func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops idle sessions and reports how many were removed. Sessions that
// are currently leased are kept.
func (s *Store[T]) Sweep() int {
	if s.idleTimeout <= 0 {
		return 0
	}
	s.mu.Lock()
	cutoff := s.now().Add(-s.idleTimeout)
	removed := 0
	for id, current := range s.entries {
		if !current.lastUsed.Before(cutoff) {
			continue
		}
		if !current.mu.TryLock() {
			continue
		}
		delete(s.entries, id)
		current.mu.Unlock()
		removed++
	}
	size := len(s.entries)
	s.mu.Unlock()

	if removed > 0 {
		s.resized(size)
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *Store[T]) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Store[T]) resized(size int) {
	if s.onResize != nil {
		s.onResize(size)
	}
}
