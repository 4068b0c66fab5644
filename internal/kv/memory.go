package kv

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps everything in a map. It backs tests and the default
// single-process deployment; data does not survive a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *MemoryStore) Put(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// List orders keys lexically; the cursor is the last key of the previous page.
func (s *MemoryStore) List(_ context.Context, prefix, cursor string, limit int) (Page, error) {
	s.mu.RLock()
	matching := make([]string, 0)
	for key := range s.data {
		if strings.HasPrefix(key, prefix) && key > cursor {
			matching = append(matching, key)
		}
	}
	s.mu.RUnlock()

	sort.Strings(matching)
	if limit <= 0 || len(matching) <= limit {
		return Page{Keys: matching, Complete: true}, nil
	}
	keys := matching[:limit]
	return Page{Keys: keys, Cursor: keys[len(keys)-1]}, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
