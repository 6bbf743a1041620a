package live

import (
	"sync"
)

// Store is the live state table. Keys are fixed at construction; after that
// entries can only be replaced or updated.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	keys    []string
}

// NewStore creates a store holding exactly the given entries. Key order is
// taken from keys; keys missing from entries get a zero Entry.
func NewStore(keys []string, entries map[string]Entry) *Store {
	s := &Store{
		entries: make(map[string]*Entry, len(keys)),
		keys:    make([]string, 0, len(keys)),
	}
	for _, k := range keys {
		if _, dup := s.entries[k]; dup {
			continue
		}
		e := entries[k]
		s.entries[k] = &e
		s.keys = append(s.keys, k)
	}
	return s
}

// Get returns a copy of the entry for id.
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Set replaces the entry for an existing id. Unknown ids are ignored and
// reported with false.
func (s *Store) Set(id string, e Entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.entries[id]
	if !ok {
		return false
	}
	*cur = e
	return true
}

// Update applies fn to a copy of the entry for id under the write lock and
// commits the copy only if fn returns nil. A failing or panicking fn leaves
// the stored entry untouched. found is false for unknown ids.
func (s *Store) Update(id string, fn func(*Entry) error) (found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.entries[id]
	if !ok {
		return false, nil
	}
	next := *cur
	if err := fn(&next); err != nil {
		return true, err
	}
	*cur = next
	return true, nil
}

// Snapshot copies the current entries for ids. Unknown ids are absent.
func (s *Store) Snapshot(ids []string) map[string]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Entry, len(ids))
	for _, id := range ids {
		if e, ok := s.entries[id]; ok {
			out[id] = *e
		}
	}
	return out
}

// Filter keeps the known ids, dropping duplicates and preserving the order
// of first occurrence. The result is never nil.
func (s *Store) Filter(ids []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		if _, ok := s.entries[id]; ok {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Keys returns the key set in seed order.
func (s *Store) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of keys.
func (s *Store) Len() int {
	return len(s.keys)
}
