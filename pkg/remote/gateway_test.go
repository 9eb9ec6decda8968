package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/Numzn/NUMZSCAN-APP/internal/entity"
)

type recordedRequest struct {
	method string
	path   string
	query  url.Values
	header http.Header
	body   []byte
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.Query(),
			header: r.Header.Clone(),
			body:   body,
		})
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestCreateTicketUpsert(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusCreated, "[]")
	gw := NewRESTGateway(Config{BaseURL: srv.URL, ServiceKey: "secret"})

	err := gw.CreateTicket(context.Background(), entity.RemoteTicket{ID: "T1", EventID: "default-event", Active: true})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	req := (*requests)[0]
	if req.method != http.MethodPost || req.path != "/rest/v1/tickets" {
		t.Fatalf("request = %s %s", req.method, req.path)
	}
	if got := req.header.Get("Prefer"); got != "resolution=merge-duplicates" {
		t.Errorf("Prefer header = %q, duplicate creates must merge", got)
	}
	if got := req.header.Get("Authorization"); got != "Bearer secret" {
		t.Errorf("Authorization header = %q", got)
	}
	if got := req.header.Get("apikey"); got != "secret" {
		t.Errorf("apikey header = %q", got)
	}

	var sent entity.RemoteTicket
	if err := json.Unmarshal(req.body, &sent); err != nil {
		t.Fatalf("body: %v", err)
	}
	if sent.ID != "T1" || !sent.Active {
		t.Fatalf("sent ticket = %+v", sent)
	}
}

func TestUpdateTicketFiltersByID(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusNoContent, "")
	gw := NewRESTGateway(Config{BaseURL: srv.URL, ServiceKey: "secret"})

	err := gw.UpdateTicket(context.Background(), "T1", map[string]interface{}{"active": false})
	if err != nil {
		t.Fatalf("UpdateTicket: %v", err)
	}

	req := (*requests)[0]
	if req.method != http.MethodPatch {
		t.Fatalf("method = %s, want PATCH", req.method)
	}
	if got := req.query.Get("id"); got != "eq.T1" {
		t.Fatalf("id predicate = %q, want eq.T1", got)
	}
}

func TestFetchScansSincePredicate(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusOK, `[{"ticket_id":"T1","scan_action":"scan"}]`)
	gw := NewRESTGateway(Config{BaseURL: srv.URL, ServiceKey: "secret"})

	since := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	scans, err := gw.FetchScansSince(context.Background(), &since)
	if err != nil {
		t.Fatalf("FetchScansSince: %v", err)
	}
	if len(scans) != 1 || scans[0].TicketID != "T1" {
		t.Fatalf("scans = %+v", scans)
	}

	req := (*requests)[0]
	if got := req.query.Get("order"); got != "scan_at.asc" {
		t.Errorf("order = %q, want scan_at.asc", got)
	}
	if got := req.query.Get("scan_at"); got != "gte.2026-01-02T03:04:05Z" {
		t.Errorf("scan_at predicate = %q", got)
	}
}

func TestNonSuccessIsTransportError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusInternalServerError, "boom")
	gw := NewRESTGateway(Config{BaseURL: srv.URL, ServiceKey: "secret"})

	if err := gw.RecordScan(context.Background(), entity.ScanEvent{TicketID: "T1"}); err == nil {
		t.Fatal("expected transport error on 500")
	}
}

func TestOnlineTracksReachability(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	down.Close()
	gw := NewRESTGateway(Config{BaseURL: down.URL, ServiceKey: "secret"})

	if !gw.Online() {
		t.Fatal("gateway must start optimistic")
	}
	if err := gw.RecordScan(context.Background(), entity.ScanEvent{TicketID: "T1"}); err == nil {
		t.Fatal("expected transport error against a closed server")
	}
	if gw.Online() {
		t.Fatal("transport failure must mark the gateway offline")
	}

	// An HTTP error still proves the remote is reachable.
	srv, _ := newTestServer(t, http.StatusInternalServerError, "boom")
	reachable := NewRESTGateway(Config{BaseURL: srv.URL, ServiceKey: "secret"})
	reachable.RecordScan(context.Background(), entity.ScanEvent{TicketID: "T1"})
	if !reachable.Online() {
		t.Fatal("an HTTP response must mark the gateway online")
	}
}

func TestQueueDispatcherRouting(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusOK, "[]")
	gw := NewRESTGateway(Config{BaseURL: srv.URL, ServiceKey: "secret"})
	d := NewQueueDispatcher(gw)
	ctx := context.Background()

	cases := []struct {
		mutation entity.MutationType
		payload  interface{}
		method   string
		path     string
	}{
		{entity.MutationCreateTicket, entity.RemoteTicket{ID: "T1"}, http.MethodPost, "/rest/v1/tickets"},
		{entity.MutationControlTicket, entity.RemoteTicket{ID: entity.ControlTicketID}, http.MethodPost, "/rest/v1/tickets"},
		{entity.MutationUpdateTicket, entity.TicketUpdate{ID: "T1", Update: map[string]interface{}{"active": false}}, http.MethodPatch, "/rest/v1/tickets"},
		{entity.MutationRecordScan, entity.ScanEvent{TicketID: "T1", ScanAction: entity.ScanActionScan}, http.MethodPost, "/rest/v1/ticket_scans"},
		{entity.MutationResetTicket, map[string]string{"id": "T1"}, http.MethodPatch, "/rest/v1/tickets"},
	}

	for i, tc := range cases {
		raw, _ := json.Marshal(tc.payload)
		item := entity.QueueItem{ID: "q1", Type: tc.mutation, Payload: raw}
		if err := d.Dispatch(ctx, item); err != nil {
			t.Fatalf("Dispatch(%s): %v", tc.mutation, err)
		}
		req := (*requests)[i]
		if req.method != tc.method || req.path != tc.path {
			t.Errorf("%s routed to %s %s, want %s %s", tc.mutation, req.method, req.path, tc.method, tc.path)
		}
	}

	item := entity.QueueItem{ID: "q2", Type: "bogus", Payload: []byte("{}")}
	if err := d.Dispatch(ctx, item); err == nil {
		t.Fatal("unknown mutation type should fail")
	}
}
