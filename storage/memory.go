package storage

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data    []byte
	created time.Time
	seq     uint64
}

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	seq     uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Put(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.entries[name] = memoryEntry{
		data:    append([]byte(nil), data...),
		created: time.Now(),
		seq:     s.seq,
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.data...), nil
}

func (s *MemoryStore) Latest(_ context.Context) (string, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		name string
		best memoryEntry
	)
	for n, e := range s.entries {
		if e.seq > best.seq {
			name, best = n, e
		}
	}
	if best.seq == 0 {
		return "", nil, ErrNotFound
	}
	return name, append([]byte(nil), best.data...), nil
}

func (s *MemoryStore) List(_ context.Context) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Snapshot, 0, len(s.entries))
	for n, e := range s.entries {
		out = append(out, Snapshot{Name: n, Size: len(e.data), Created: e.created})
	}
	sortSnapshots(out)
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
