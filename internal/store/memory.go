package store

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no entries are available for a given key.
	ErrNotFound = errors.New("no entries for key")
)

// Timestamped is implemented by anything kept in a MemoryStore.
type Timestamped interface {
	Time() time.Time
}

// History holds a time-ordered list of entries for a key.
type History[T Timestamped] struct {
	Entries []T
}

// MemoryStore is a concurrency-safe in-memory history keyed by string.
// Entries are expected to be saved in chronological order.
type MemoryStore[T Timestamped] struct {
	mu sync.RWMutex

	data map[string]*History[T]

	// retention configuration
	maxHistory int           // max number of entries per key
	maxAge     time.Duration // optional max age for entries
	now        func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore[T Timestamped](maxHistory int, maxAge time.Duration) *MemoryStore[T] {
	return &MemoryStore[T]{
		data:       make(map[string]*History[T]),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Save appends a new entry for key and enforces retention.
func (s *MemoryStore[T]) Save(key string, entry T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &History[T]{}
		s.data[key] = history
	}

	history.Entries = append(history.Entries, entry)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Entries) > s.maxHistory {
		over := len(history.Entries) - s.maxHistory
		history.Entries = history.Entries[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Entries); i++ {
			if !history.Entries[i].Time().Before(cutoff) {
				break
			}
		}
		if i > 0 {
			history.Entries = history.Entries[i:]
		}
	}
}

// Latest returns the most recent entry for key.
func (s *MemoryStore[T]) Latest(key string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero T
	history, ok := s.data[key]
	if !ok || len(history.Entries) == 0 {
		return zero, ErrNotFound
	}
	return history.Entries[len(history.Entries)-1], nil
}

// Range returns all entries for key between from and to (inclusive).
func (s *MemoryStore[T]) Range(key string, from, to time.Time) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.Entries) == 0 {
		return nil, ErrNotFound
	}

	var result []T
	for _, entry := range history.Entries {
		ts := entry.Time()
		if !ts.Before(from) && !ts.After(to) {
			result = append(result, entry)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}
