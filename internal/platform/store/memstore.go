package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MemStore implements Store on a process-local map. It exists as the
// explicit injectable fallback when no database is configured (dev, tests);
// it offers the same per-document transactional semantics within a single
// process.
type MemStore struct {
	mu   sync.Mutex
	data map[string]map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{data: map[string]map[string][]byte{}}
}

func (s *MemStore) Get(_ context.Context, collection, key string, out any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.data[collection][key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode document %s/%s: %w", collection, key, err)
	}
	return true, nil
}

func (s *MemStore) Set(_ context.Context, collection, key string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %s/%s: %w", collection, key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.col(collection)[key] = data
	return nil
}

func (s *MemStore) Mutate(_ context.Context, collection, key string, fn MutateFunc) error {
	// One lock for the whole read-modify-write: mutations serialize exactly
	// like the database-backed implementation, just process-wide only.
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, exists := s.col(collection)[key]
	var current json.RawMessage
	if exists {
		current = json.RawMessage(raw)
	}
	updated, err := fn(current, exists)
	if err != nil {
		return err
	}
	data, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("failed to encode document %s/%s: %w", collection, key, err)
	}
	s.col(collection)[key] = data
	return nil
}

func (s *MemStore) List(_ context.Context, collection string, page Page) ([]Document, string, error) {
	if page.Size <= 0 {
		page.Size = 100
	}
	s.mu.Lock()
	keys := make([]string, 0, len(s.data[collection]))
	for key := range s.data[collection] {
		if key > page.Cursor {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	if len(keys) > page.Size {
		keys = keys[:page.Size]
	}
	docs := make([]Document, 0, len(keys))
	for _, key := range keys {
		raw := make([]byte, len(s.data[collection][key]))
		copy(raw, s.data[collection][key])
		docs = append(docs, Document{Key: key, Data: raw})
	}
	s.mu.Unlock()

	next := ""
	if len(docs) == page.Size {
		next = docs[len(docs)-1].Key
	}
	return docs, next, nil
}

func (s *MemStore) col(collection string) map[string][]byte {
	c, ok := s.data[collection]
	if !ok {
		c = map[string][]byte{}
		s.data[collection] = c
	}
	return c
}
