// Package storage provides the durable local ticket store. Backends are tried
// in order, so a redis-backed deployment falls back to the flat-file snapshot
// and finally to process memory, mirroring the layered browser-storage design
// this service replaces.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Numzn/NUMZSCAN-APP/internal/entity"
)

// Well-known blob keys for the small persisted values that live beside the
// ticket collection.
const (
	BlobSettings    = "settings"
	BlobDeviceID    = "device_id"
	BlobSyncQueue   = "sync_queue"
	BlobLastSync    = "last_sync"
	BlobFundraising = "fundraising"
)

// ErrBlobNotFound is returned when a blob key has never been written.
var ErrBlobNotFound = errors.New("blob not found")

// Backend is one storage medium. Implementations must make SaveTickets
// atomic: a concurrent LoadTickets never observes a partially written
// collection.
type Backend interface {
	Name() string
	LoadTickets(ctx context.Context) ([]entity.Ticket, error)
	SaveTickets(ctx context.Context, tickets []entity.Ticket) error
	LoadBlob(ctx context.Context, key string) ([]byte, error)
	SaveBlob(ctx context.Context, key string, data []byte) error
}

// TicketStore is the durable keyed ticket collection with fallback semantics.
type TicketStore struct {
	backends []Backend
}

func NewTicketStore(backends ...Backend) *TicketStore {
	return &TicketStore{backends: backends}
}

// LoadAll returns all persisted tickets normalized to the full shape. It tries
// each backend in order and degrades to an empty collection rather than
// failing when every backend is unavailable.
func (s *TicketStore) LoadAll(ctx context.Context) []entity.Ticket {
	for _, b := range s.backends {
		tickets, err := b.LoadTickets(ctx)
		if err != nil {
			logrus.Warnf("ticket load from %s failed, trying next backend: %v", b.Name(), err)
			continue
		}
		return entity.NormalizeTickets(tickets)
	}
	logrus.Error("all storage backends failed to load tickets, starting empty")
	return []entity.Ticket{}
}

// SaveAll atomically replaces the persisted collection. The first backend that
// accepts the write is the checkpoint; later backends are best-effort mirrors.
// Only a failure of every backend is surfaced, because at that point tickets
// may genuinely be lost and the user must be told.
func (s *TicketStore) SaveAll(ctx context.Context, tickets []entity.Ticket) error {
	saved := false
	for _, b := range s.backends {
		if err := b.SaveTickets(ctx, tickets); err != nil {
			logrus.Warnf("ticket save to %s failed: %v", b.Name(), err)
			continue
		}
		saved = true
	}
	if !saved {
		return fmt.Errorf("%w: saving %d tickets", entity.ErrStorageUnavailable, len(tickets))
	}
	return nil
}

// LoadBlob reads a small persisted value, trying each backend in order.
func (s *TicketStore) LoadBlob(ctx context.Context, key string) ([]byte, error) {
	var lastErr error = ErrBlobNotFound
	for _, b := range s.backends {
		data, err := b.LoadBlob(ctx, key)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrBlobNotFound) {
			logrus.Warnf("blob %q load from %s failed: %v", key, b.Name(), err)
		}
		lastErr = err
	}
	return nil, lastErr
}

// SaveBlob writes a small persisted value to every reachable backend.
func (s *TicketStore) SaveBlob(ctx context.Context, key string, data []byte) error {
	saved := false
	for _, b := range s.backends {
		if err := b.SaveBlob(ctx, key, data); err != nil {
			logrus.Warnf("blob %q save to %s failed: %v", key, b.Name(), err)
			continue
		}
		saved = true
	}
	if !saved {
		return fmt.Errorf("%w: saving blob %q", entity.ErrStorageUnavailable, key)
	}
	return nil
}
