package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Numzn/NUMZSCAN-APP/internal/entity"
)

// QueuePersister stores the sync queue and the last-sync marker as blobs in
// the ticket store, so pending mutations survive restarts alongside tickets.
type QueuePersister struct {
	store *TicketStore
}

func NewQueuePersister(store *TicketStore) *QueuePersister {
	return &QueuePersister{store: store}
}

func (p *QueuePersister) LoadQueue(ctx context.Context) ([]entity.QueueItem, error) {
	data, err := p.store.LoadBlob(ctx, BlobSyncQueue)
	if errors.Is(err, ErrBlobNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var items []entity.QueueItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("corrupt sync queue snapshot: %w", err)
	}
	return items, nil
}

func (p *QueuePersister) SaveQueue(ctx context.Context, items []entity.QueueItem) error {
	if items == nil {
		items = []entity.QueueItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal sync queue: %w", err)
	}
	return p.store.SaveBlob(ctx, BlobSyncQueue, data)
}

func (p *QueuePersister) LoadLastSync(ctx context.Context) (*time.Time, error) {
	data, err := p.store.LoadBlob(ctx, BlobLastSync)
	if errors.Is(err, ErrBlobNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, string(data))
	if err != nil {
		return nil, fmt.Errorf("corrupt last sync marker: %w", err)
	}
	return &t, nil
}

func (p *QueuePersister) SaveLastSync(ctx context.Context, t time.Time) error {
	return p.store.SaveBlob(ctx, BlobLastSync, []byte(t.UTC().Format(time.RFC3339Nano)))
}

// LoadSettings reads the persisted settings blob, returning defaults when it
// has never been written.
func LoadSettings(ctx context.Context, store *TicketStore) entity.Settings {
	data, err := store.LoadBlob(ctx, BlobSettings)
	if err != nil {
		return entity.Settings{}
	}
	var settings entity.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return entity.Settings{}
	}
	return settings
}

// SaveSettings persists the settings blob.
func SaveSettings(ctx context.Context, store *TicketStore, settings entity.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	return store.SaveBlob(ctx, BlobSettings, data)
}

// DeviceID returns the persisted device identity, creating one on first use.
func DeviceID(ctx context.Context, store *TicketStore, generate func() string) string {
	if data, err := store.LoadBlob(ctx, BlobDeviceID); err == nil && len(data) > 0 {
		return string(data)
	}
	id := generate()
	if err := store.SaveBlob(ctx, BlobDeviceID, []byte(id)); err != nil {
		// Not fatal: the id stays stable for this process lifetime only.
		return id
	}
	return id
}
