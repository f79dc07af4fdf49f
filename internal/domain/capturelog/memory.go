package capturelog

import (
	"context"
	"fmt"
	"sync"
)

type memoryStore struct {
	mutex    sync.RWMutex
	entries  []Entry // ring buffer, next write at head
	head     int
	size     int
	byStatus map[string]int64
	total    int64
}

// NewMemory builds an in-memory store holding at most cfg.MaxEntries entries.
func NewMemory(cfg Config) Store {
	return &memoryStore{
		entries:  make([]Entry, cfg.maxEntries()),
		byStatus: make(map[string]int64),
	}
}

func (s *memoryStore) Record(_ context.Context, entry Entry) error {
	if entry.ID == "" {
		return fmt.Errorf("entry id required")
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.entries[s.head] = entry
	s.head = (s.head + 1) % len(s.entries)
	if s.size < len(s.entries) {
		s.size++
	}
	s.byStatus[entry.Status]++
	s.total++
	return nil
}

func (s *memoryStore) Recent(_ context.Context, limit int) ([]Entry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	limit = clampLimit(limit, s.size)
	out := make([]Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.head - i + len(s.entries)) % len(s.entries)
		out = append(out, s.entries[idx])
	}
	return out, nil
}

func (s *memoryStore) Stats(_ context.Context) (map[string]any, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	byStatus := make(map[string]int64, len(s.byStatus))
	for k, v := range s.byStatus {
		byStatus[k] = v
	}
	return map[string]any{
		"type":      DriverMemory,
		"total":     s.total,
		"retained":  s.size,
		"capacity":  len(s.entries),
		"by_status": byStatus,
	}, nil
}

func (s *memoryStore) Close(context.Context) error {
	return nil
}
