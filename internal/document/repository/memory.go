package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nexabuild/go-services/internal/document"
)

type memoryEntry struct {
	data      []byte
	createdAt time.Time
	seq       uint64
}

// MemoryRepo is an in-memory repository used by tests and as the fallback
// when no durable store is reachable.
type MemoryRepo struct {
	mu    sync.RWMutex
	seq   uint64
	store map[string]map[string]*memoryEntry // collection -> id -> entry
	now   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]map[string]*memoryEntry), now: time.Now}
}

func (m *MemoryRepo) Upsert(_ context.Context, rec *document.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.store[rec.Collection]
	if !ok {
		col = make(map[string]*memoryEntry)
		m.store[rec.Collection] = col
	}
	data := append([]byte(nil), rec.Data...)
	if e, ok := col[rec.ID]; ok {
		e.data = data
		rec.CreatedAt = e.createdAt
		return nil
	}
	m.seq++
	e := &memoryEntry{data: data, createdAt: m.now().UTC(), seq: m.seq}
	col[rec.ID] = e
	rec.CreatedAt = e.createdAt
	return nil
}

func (m *MemoryRepo) List(_ context.Context, collection string) ([]*document.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	col := m.store[collection]
	type row struct {
		id string
		e  *memoryEntry
	}
	rows := make([]row, 0, len(col))
	for id, e := range col {
		rows = append(rows, row{id: id, e: e})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].e.seq > rows[j].e.seq })
	out := make([]*document.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, &document.Record{
			ID:         r.id,
			Collection: collection,
			Data:       append([]byte(nil), r.e.data...),
			CreatedAt:  r.e.createdAt,
		})
	}
	return out, nil
}

func (m *MemoryRepo) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if col, ok := m.store[collection]; ok {
		delete(col, id)
	}
	return nil
}

func (m *MemoryRepo) Ping(context.Context) error { return nil }
