package draft

import (
	"errors"
	"sync"
	"time"

	"github.com/plaenen/bidibip/pkg/module"
	"github.com/plaenen/bidibip/pkg/platform"
)

var (
	// ErrKeyInUse is returned when a pending entry already exists for a key.
	ErrKeyInUse = errors.New("correlation key already pending")

	// ErrEmptyKey is returned for an empty correlation key.
	ErrEmptyKey = errors.New("empty correlation key")
)

// Entry is a draft waiting for its author to confirm or cancel.
type Entry struct {
	Key        string
	Draft      Draft
	Invocation *module.Invocation
	Preview    platform.MessageRef
	CreatedAt  time.Time
}

// Store maps correlation keys to pending entries. It is the only state shared
// between concurrent workflows; lookups and removals happen in one step.
type Store struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string]Entry)}
}

// Put records an entry. A key can hold at most one entry.
func (s *Store) Put(key string, entry Entry) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[key]; exists {
		return ErrKeyInUse
	}
	entry.Key = key
	s.entries[key] = entry
	return nil
}

// Take removes and returns the entry for key. Only one caller ever receives a
// given entry; every later call reports false.
func (s *Store) Take(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
	}
	return entry, ok
}

// Len returns the number of pending entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
