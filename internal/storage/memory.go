package storage

import (
	"context"
	"sync"

	"github.com/Numzn/NUMZSCAN-APP/internal/entity"
)

// MemoryBackend is the last-resort backend. State survives for the lifetime
// of the process only. Also used as a fake in tests.
type MemoryBackend struct {
	mu      sync.RWMutex
	tickets []entity.Ticket
	blobs   map[string][]byte

	// FailWrites makes every write fail, for exercising fallback paths.
	FailWrites bool
	// FailReads makes every read fail.
	FailReads bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{blobs: make(map[string][]byte)}
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) LoadTickets(ctx context.Context) ([]entity.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailReads {
		return nil, entity.ErrStorageUnavailable
	}
	out := make([]entity.Ticket, len(m.tickets))
	copy(out, m.tickets)
	return out, nil
}

func (m *MemoryBackend) SaveTickets(ctx context.Context, tickets []entity.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return entity.ErrStorageUnavailable
	}
	m.tickets = make([]entity.Ticket, len(tickets))
	copy(m.tickets, tickets)
	return nil
}

func (m *MemoryBackend) LoadBlob(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailReads {
		return nil, entity.ErrStorageUnavailable
	}
	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrBlobNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryBackend) SaveBlob(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return entity.ErrStorageUnavailable
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	m.blobs[key] = stored
	return nil
}
