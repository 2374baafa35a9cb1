package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps entities in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	kinds map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{kinds: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, kind, id string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.kinds[kind][id]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (s *MemoryStore) Save(_ context.Context, kind, id string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveLocked(kind, id, data)
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.kinds[kind], id)
	return nil
}

// List returns the ids of kind in lexical order.
func (s *MemoryStore) List(_ context.Context, kind string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.kinds[kind]))
	for id := range s.kinds[kind] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Apply writes all changes under one lock.
func (s *MemoryStore) Apply(_ context.Context, changes []Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range changes {
		if c.Deleted {
			delete(s.kinds[c.Kind], c.ID)
			continue
		}
		s.saveLocked(c.Kind, c.ID, c.Data)
	}
	return nil
}

// Kinds returns every kind holding at least one entity.
func (s *MemoryStore) Kinds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kinds := make([]string, 0, len(s.kinds))
	for kind, ids := range s.kinds {
		if len(ids) > 0 {
			kinds = append(kinds, kind)
		}
	}
	sort.Strings(kinds)
	return kinds
}

func (s *MemoryStore) saveLocked(kind, id string, data []byte) {
	ids, ok := s.kinds[kind]
	if !ok {
		ids = make(map[string][]byte)
		s.kinds[kind] = ids
	}
	ids[id] = append([]byte(nil), data...)
}
