package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/solvine-ai/solvine/internal/model"
)

// MemoryStore is a process-local Store. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]model.AgentRecord
	seq     map[string]uint64
	next    uint64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]model.AgentRecord),
		seq:     make(map[string]uint64),
	}
}

func (m *MemoryStore) SaveAgent(_ context.Context, rec model.AgentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.Name]; !ok {
		m.next++
		m.seq[rec.Name] = m.next
	}
	m.records[rec.Name] = rec.Clone()
	return nil
}

func (m *MemoryStore) DeleteAgent(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[name]; !ok {
		return ErrNotFound
	}
	delete(m.records, name)
	delete(m.seq, name)
	return nil
}

// ListAgents returns records ordered by created_at, breaking ties by
// insertion order.
func (m *MemoryStore) ListAgents(_ context.Context) ([]model.AgentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.AgentRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].CreatedAt, out[j].CreatedAt
		if ti != nil && tj != nil && !ti.Equal(*tj) {
			return ti.Before(*tj)
		}
		return m.seq[out[i].Name] < m.seq[out[j].Name]
	})
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error  { return nil }
func (m *MemoryStore) Close(context.Context) error { return nil }
func (m *MemoryStore) Kind() string                { return "memory" }
