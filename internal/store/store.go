package store

import "sync"

// Store is a thread-safe in-memory map from record name to branch.
// Writers take the exclusive lock for a single map operation; Snapshot and
// Len share the read lock so concurrent readers never block each other.
type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

// New creates an empty Store.
func New() *Store {
	return &Store{data: make(map[string]string)}
}

// Put stores branch under name, replacing any previous value.
// Name validation is the caller's job.
func (s *Store) Put(name, branch string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = branch
}

// Delete removes name from the store. Deleting an absent name is a no-op.
func (s *Store) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, name)
}

// Snapshot returns a copy of every record as of the moment the read lock was
// held. The returned map is owned by the caller and never changes afterwards.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.data))
	for name, branch := range s.data {
		out[name] = branch
	}
	return out
}

// Len returns the number of records currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
