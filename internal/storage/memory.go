package storage

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/baaskit/internal/logging"
)

// Memory keeps items in process memory only.
type Memory struct {
	mu       sync.RWMutex
	items    map[string]string
	size     int64
	capacity int64
	logger   logging.Logger
}

func NewMemory(opts ...Option) *Memory {
	o := buildOptions(opts)
	return &Memory{items: make(map[string]string), capacity: o.capacity, logger: o.logger}
}

func (m *Memory) GetItem(_ context.Context, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok
}

func (m *Memory) SetItem(ctx context.Context, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.size + itemSize(key, value)
	if old, ok := m.items[key]; ok {
		next -= itemSize(key, old)
	}
	if next > m.capacity {
		m.logger.Warn(ctx, "storage capacity exceeded, write dropped", "key", key, "capacity", m.capacity)
		return
	}
	m.items[key] = value
	m.size = next
}

func (m *Memory) RemoveItem(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.items[key]; ok {
		m.size -= itemSize(key, old)
		delete(m.items, key)
	}
}

func (m *Memory) Clear(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]string)
	m.size = 0
}

// Size returns the number of bytes currently accounted for.
func (m *Memory) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}
