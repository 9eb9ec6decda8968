package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Numzn/NUMZSCAN-APP/internal/entity"
)

// FileBackend persists the ticket collection and side blobs as JSON files in
// one directory. Writes go through a temp file and rename so readers never
// see a half-written snapshot.
type FileBackend struct {
	dir string
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (f *FileBackend) Name() string { return "file" }

func (f *FileBackend) ticketsPath() string {
	return filepath.Join(f.dir, "tickets.json")
}

func (f *FileBackend) blobPath(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *FileBackend) LoadTickets(ctx context.Context) ([]entity.Ticket, error) {
	data, err := os.ReadFile(f.ticketsPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []entity.Ticket{}, nil
		}
		return nil, err
	}
	var tickets []entity.Ticket
	if err := json.Unmarshal(data, &tickets); err != nil {
		return nil, fmt.Errorf("corrupt ticket snapshot: %w", err)
	}
	return tickets, nil
}

func (f *FileBackend) SaveTickets(ctx context.Context, tickets []entity.Ticket) error {
	data, err := json.Marshal(tickets)
	if err != nil {
		return fmt.Errorf("failed to marshal tickets: %w", err)
	}
	return f.writeAtomic(f.ticketsPath(), data)
}

func (f *FileBackend) LoadBlob(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.blobPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}
	return data, nil
}

func (f *FileBackend) SaveBlob(ctx context.Context, key string, data []byte) error {
	return f.writeAtomic(f.blobPath(key), data)
}

func (f *FileBackend) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(f.dir, ".write-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
