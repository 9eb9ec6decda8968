// Package remote is the thin client for the cloud ticket store. It speaks a
// PostgREST-style dialect: resource paths per table, query-string predicates
// (id=eq.X, scan_at=gte.T) and bearer-token auth. The gateway never retries;
// retry is the sync queue's responsibility.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/Numzn/NUMZSCAN-APP/internal/entity"
)

// Gateway is the remote ticket/scan store contract.
type Gateway interface {
	CreateTicket(ctx context.Context, ticket entity.RemoteTicket) error
	UpdateTicket(ctx context.Context, id string, fields map[string]interface{}) error
	RecordScan(ctx context.Context, scan entity.ScanEvent) error
	ResetTicket(ctx context.Context, id string) error
	FetchAllTickets(ctx context.Context) ([]entity.RemoteTicket, error)
	FetchScansSince(ctx context.Context, since *time.Time) ([]entity.ScanEvent, error)
}

// Config holds the remote store connection settings.
type Config struct {
	BaseURL      string
	ServiceKey   string
	TicketsTable string
	ScansTable   string
	Timeout      time.Duration
}

// RESTGateway implements Gateway over HTTP.
type RESTGateway struct {
	cfg    Config
	client *http.Client

	// online tracks whether the last request reached the remote at all.
	// Transport-level failures flip it false; any HTTP response, success or
	// error, flips it back.
	online atomic.Bool
}

func NewRESTGateway(cfg Config) *RESTGateway {
	if cfg.TicketsTable == "" {
		cfg.TicketsTable = "tickets"
	}
	if cfg.ScansTable == "" {
		cfg.ScansTable = "ticket_scans"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	g := &RESTGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
	g.online.Store(true)
	return g
}

// Online reports remote reachability based on the last attempted request.
// Optimistic before the first request.
func (g *RESTGateway) Online() bool {
	return g.online.Load()
}

// CreateTicket upserts a ticket by id. Duplicate-id submissions merge instead
// of failing, so a retry after a timeout cannot double-create.
func (g *RESTGateway) CreateTicket(ctx context.Context, ticket entity.RemoteTicket) error {
	headers := map[string]string{"Prefer": "resolution=merge-duplicates"}
	return g.do(ctx, http.MethodPost, g.cfg.TicketsTable, ticket, headers, nil)
}

func (g *RESTGateway) UpdateTicket(ctx context.Context, id string, fields map[string]interface{}) error {
	path := fmt.Sprintf("%s?id=eq.%s", g.cfg.TicketsTable, url.QueryEscape(id))
	return g.do(ctx, http.MethodPatch, path, fields, nil, nil)
}

func (g *RESTGateway) RecordScan(ctx context.Context, scan entity.ScanEvent) error {
	return g.do(ctx, http.MethodPost, g.cfg.ScansTable, scan, nil, nil)
}

func (g *RESTGateway) ResetTicket(ctx context.Context, id string) error {
	return g.UpdateTicket(ctx, id, map[string]interface{}{
		"active":         true,
		"last_synced_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (g *RESTGateway) FetchAllTickets(ctx context.Context) ([]entity.RemoteTicket, error) {
	var tickets []entity.RemoteTicket
	path := g.cfg.TicketsTable + "?select=*"
	if err := g.do(ctx, http.MethodGet, path, nil, nil, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// FetchScansSince returns the append-only scan log filtered to scan_at >=
// since, in ascending order, for incremental catch-up.
func (g *RESTGateway) FetchScansSince(ctx context.Context, since *time.Time) ([]entity.ScanEvent, error) {
	path := g.cfg.ScansTable + "?select=*&order=scan_at.asc"
	if since != nil {
		path += "&scan_at=gte." + url.QueryEscape(since.UTC().Format(time.RFC3339Nano))
	}
	var scans []entity.ScanEvent
	if err := g.do(ctx, http.MethodGet, path, nil, nil, &scans); err != nil {
		return nil, err
	}
	return scans, nil
}

func (g *RESTGateway) do(ctx context.Context, method, path string, body interface{}, headers map[string]string, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+"/rest/v1/"+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("apikey", g.cfg.ServiceKey)
	req.Header.Set("Authorization", "Bearer "+g.cfg.ServiceKey)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.online.Store(false)
		return fmt.Errorf("remote request failed: %w", err)
	}
	g.online.Store(true)
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("remote store error %d: %s", resp.StatusCode, text)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// QueueDispatcher adapts a Gateway to the sync queue's Dispatcher contract,
// routing each mutation type to its remote call.
type QueueDispatcher struct {
	gateway Gateway
}

func NewQueueDispatcher(gateway Gateway) *QueueDispatcher {
	return &QueueDispatcher{gateway: gateway}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, item entity.QueueItem) error {
	switch item.Type {
	case entity.MutationCreateTicket, entity.MutationControlTicket:
		var ticket entity.RemoteTicket
		if err := json.Unmarshal(item.Payload, &ticket); err != nil {
			return fmt.Errorf("invalid %s payload: %w", item.Type, err)
		}
		return d.gateway.CreateTicket(ctx, ticket)
	case entity.MutationUpdateTicket:
		var update entity.TicketUpdate
		if err := json.Unmarshal(item.Payload, &update); err != nil {
			return fmt.Errorf("invalid updateTicket payload: %w", err)
		}
		return d.gateway.UpdateTicket(ctx, update.ID, update.Update)
	case entity.MutationRecordScan:
		var scan entity.ScanEvent
		if err := json.Unmarshal(item.Payload, &scan); err != nil {
			return fmt.Errorf("invalid recordScan payload: %w", err)
		}
		return d.gateway.RecordScan(ctx, scan)
	case entity.MutationResetTicket:
		var payload struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(item.Payload, &payload); err != nil {
			return fmt.Errorf("invalid resetTicket payload: %w", err)
		}
		return d.gateway.ResetTicket(ctx, payload.ID)
	default:
		return fmt.Errorf("unknown queue mutation %q", item.Type)
	}
}
