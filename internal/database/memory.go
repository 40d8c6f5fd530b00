package database

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, slot string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.slots[slot]
	if !ok {
		return "", ErrSlotEmpty
	}
	return value, nil
}

func (m *MemoryStore) Set(_ context.Context, slot, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slot] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, slots ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, slot := range slots {
		delete(m.slots, slot)
	}
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
