package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps JSON-encoded records in process memory. Used for local
// runs (STORE_DRIVER=memory) and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]map[Key][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]map[Key][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, t Table, k Key, out any) error {
	m.mu.RLock()
	raw, ok := m.tables[t.Name][k]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s record: %w", t.Name, err)
	}
	return nil
}

func (m *MemoryStore) Put(_ context.Context, t Table, k Key, item any) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", t.Name, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.tables[t.Name]
	if !ok {
		rows = make(map[Key][]byte)
		m.tables[t.Name] = rows
	}
	rows[k] = raw
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, t Table, k Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[t.Name][k]; !ok {
		return ErrNotFound
	}
	delete(m.tables[t.Name], k)
	return nil
}

func (m *MemoryStore) Query(_ context.Context, t Table, partition string, out any) error {
	m.mu.RLock()
	var keys []Key
	for k := range m.tables[t.Name] {
		if k.Partition == partition {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Sort < keys[j].Sort })
	raws := make([][]byte, 0, len(keys))
	for _, k := range keys {
		raws = append(raws, m.tables[t.Name][k])
	}
	m.mu.RUnlock()
	return decodeList(t, raws, out)
}

func (m *MemoryStore) Scan(_ context.Context, t Table, out any) error {
	m.mu.RLock()
	keys := make([]Key, 0, len(m.tables[t.Name]))
	for k := range m.tables[t.Name] {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Partition != keys[j].Partition {
			return keys[i].Partition < keys[j].Partition
		}
		return keys[i].Sort < keys[j].Sort
	})
	raws := make([][]byte, 0, len(keys))
	for _, k := range keys {
		raws = append(raws, m.tables[t.Name][k])
	}
	m.mu.RUnlock()
	return decodeList(t, raws, out)
}

// decodeList decodes JSON records into out (*[]T) as one JSON array.
func decodeList(t Table, raws [][]byte, out any) error {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, raw := range raws {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(raw)
	}
	buf.WriteByte(']')
	if err := json.Unmarshal(buf.Bytes(), out); err != nil {
		return fmt.Errorf("decode %s records: %w", t.Name, err)
	}
	return nil
}
