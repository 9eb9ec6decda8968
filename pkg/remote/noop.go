package remote

import (
	"context"
	"time"

	"github.com/Numzn/NUMZSCAN-APP/internal/entity"
)

// NoopGateway is the offline-only stand-in. It is selected at construction
// time when no remote store is configured, so callers never test for cloud
// availability at runtime.
type NoopGateway struct{}

func NewNoopGateway() *NoopGateway { return &NoopGateway{} }

func (NoopGateway) CreateTicket(context.Context, entity.RemoteTicket) error { return nil }

func (NoopGateway) UpdateTicket(context.Context, string, map[string]interface{}) error { return nil }

func (NoopGateway) RecordScan(context.Context, entity.ScanEvent) error { return nil }

func (NoopGateway) ResetTicket(context.Context, string) error { return nil }

func (NoopGateway) FetchAllTickets(context.Context) ([]entity.RemoteTicket, error) {
	return []entity.RemoteTicket{}, nil
}

func (NoopGateway) FetchScansSince(context.Context, *time.Time) ([]entity.ScanEvent, error) {
	return []entity.ScanEvent{}, nil
}
