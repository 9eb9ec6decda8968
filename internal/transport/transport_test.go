package transport

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Numzn/NUMZSCAN-APP/internal/engine"
	"github.com/Numzn/NUMZSCAN-APP/internal/entity"
	"github.com/Numzn/NUMZSCAN-APP/internal/ids"
	"github.com/Numzn/NUMZSCAN-APP/internal/ledger"
	"github.com/Numzn/NUMZSCAN-APP/internal/scanner"
	"github.com/Numzn/NUMZSCAN-APP/internal/service"
	"github.com/Numzn/NUMZSCAN-APP/internal/storage"
	"github.com/Numzn/NUMZSCAN-APP/pkg/remote"
	"github.com/Numzn/NUMZSCAN-APP/pkg/syncqueue"
)

func newTestRouter(t *testing.T) (*gin.Engine, *ledger.Ledger) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewTicketStore(storage.NewMemoryBackend())
	l := ledger.New(store)
	l.Load(context.Background())

	gateway := remote.NewNoopGateway()
	q := syncqueue.New(remote.NewQueueDispatcher(gateway), storage.NewQueuePersister(store), nil, syncqueue.DefaultRetryPolicy())
	gen := ids.NewGenerator("", rand.New(rand.NewSource(3)))
	e := engine.New(l, q, gateway, gen, nil)
	processor := scanner.NewProcessor(l, q, scanner.Config{EventID: "default-event", DeviceID: "dev-test"})

	ticketService := service.NewTicketService(l, q, gen, "default-event", "dev-test")
	fundraisingService := service.NewFundraisingService(context.Background(), store, 10000)

	router := InitRoutes(
		NewTicketHandler(ticketService),
		NewScanHandler(processor, q),
		NewSyncHandler(e, q),
		NewFundraisingHandler(fundraisingService),
	)
	return router, l
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGenerateAndListTickets(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/tickets/generate", `{"count":2}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("generate status = %d: %s", w.Code, w.Body)
	}

	w = doRequest(router, http.MethodGet, "/api/v1/tickets", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var resp struct {
		Count   int             `json:"count"`
		Tickets []entity.Ticket `json:"tickets"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("list body: %v", err)
	}
	if resp.Count != 2 || len(resp.Tickets) != 2 {
		t.Fatalf("list = %+v", resp)
	}
}

func TestGenerateConflictsWhileLocked(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/tickets/lock", `{"locked":true,"reason":"test"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("lock status = %d: %s", w.Code, w.Body)
	}

	w = doRequest(router, http.MethodPost, "/api/v1/tickets/generate", `{"count":1}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("generate under lock = %d, want 409", w.Code)
	}
}

func TestScanEndpointOutcomes(t *testing.T) {
	router, l := newTestRouter(t)
	l.Mutate(func(tx *ledger.Tx) {
		tx.Insert(entity.EnsureShape(entity.Ticket{ID: "LHG-TK01-ABCD"}))
	})

	w := doRequest(router, http.MethodPost, "/api/v1/scan", `{"code":"LHG-TK01-ABCD"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("scan status = %d", w.Code)
	}
	var result scanner.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("scan body: %v", err)
	}
	if result.Outcome != scanner.OutcomeAccepted {
		t.Fatalf("outcome = %q, want accepted", result.Outcome)
	}

	w = doRequest(router, http.MethodPost, "/api/v1/scan", `{"code":"GHOST"}`)
	var second scanner.Result
	json.Unmarshal(w.Body.Bytes(), &second)
	if second.Outcome != scanner.OutcomeIgnored {
		t.Fatalf("scan inside cooldown = %q, want ignored", second.Outcome)
	}
}

func TestTicketNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v1/tickets/MISSING", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestSyncStatusEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v1/sync/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body: %v", err)
	}
	if resp["phase"] != "idle" {
		t.Fatalf("phase = %v", resp["phase"])
	}
}

func TestFundraisingFlow(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/fundraising/contributions", `{"type":"donation","amount":2500}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("add contribution = %d: %s", w.Code, w.Body)
	}

	w = doRequest(router, http.MethodGet, "/api/v1/fundraising", "")
	var state struct {
		CurrentAmount float64 `json:"currentAmount"`
		Progress      float64 `json:"progress"`
		Milestones    []int   `json:"milestones"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatalf("state body: %v", err)
	}
	if state.CurrentAmount != 2500 || state.Progress != 25 {
		t.Fatalf("state = %+v", state)
	}
	if len(state.Milestones) != 1 || state.Milestones[0] != 25 {
		t.Fatalf("milestones = %v", state.Milestones)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health = %d", w.Code)
	}
}
