// Package scanner turns raw scan input into ticket redemptions. Camera and
// keyboard-wedge readers fire duplicate and overlapping reads, so the
// processor debounces repeats, rejects input during a cooldown window and
// admits only one scan at a time.
package scanner

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Numzn/NUMZSCAN-APP/internal/entity"
	"github.com/Numzn/NUMZSCAN-APP/internal/ledger"
	"github.com/Numzn/NUMZSCAN-APP/pkg/syncqueue"
)

type Outcome string

const (
	// OutcomeAccepted means the ticket was valid and is now redeemed.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeAlreadyUsed means the ticket exists but was redeemed earlier.
	OutcomeAlreadyUsed Outcome = "already_used"
	// OutcomeUnknown means no ticket matches the scanned id.
	OutcomeUnknown Outcome = "unknown"
	// OutcomeIgnored means the input was dropped by debounce, cooldown or an
	// in-flight scan and produced no decision.
	OutcomeIgnored Outcome = "ignored"
)

const (
	DefaultDebounce       = 500 * time.Millisecond
	DefaultAcceptCooldown = 1200 * time.Millisecond
	DefaultRejectCooldown = 1500 * time.Millisecond
)

// Result is the decision for one scan attempt.
type Result struct {
	Outcome   Outcome       `json:"outcome"`
	TicketID  string        `json:"ticketId,omitempty"`
	Ticket    entity.Ticket `json:"ticket"`
	ScannedAt time.Time     `json:"scannedAt"`
}

type Config struct {
	Debounce       time.Duration
	AcceptCooldown time.Duration
	RejectCooldown time.Duration
	EventID        string
	DeviceID       string
	Location       string
}

func (c *Config) applyDefaults() {
	if c.Debounce == 0 {
		c.Debounce = DefaultDebounce
	}
	if c.AcceptCooldown == 0 {
		c.AcceptCooldown = DefaultAcceptCooldown
	}
	if c.RejectCooldown == 0 {
		c.RejectCooldown = DefaultRejectCooldown
	}
}

type Processor struct {
	ledger *ledger.Ledger
	queue  *syncqueue.Queue
	cfg    Config

	// now is replaced in tests to step through debounce and cooldown windows.
	now func() time.Time

	mu            sync.Mutex
	busy          bool
	lastRaw       string
	lastRawAt     time.Time
	cooldownUntil time.Time
}

func NewProcessor(l *ledger.Ledger, q *syncqueue.Queue, cfg Config) *Processor {
	cfg.applyDefaults()
	return &Processor{
		ledger: l,
		queue:  q,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Process handles one raw scan payload. It returns OutcomeIgnored without
// touching any state when the input is a debounced repeat, arrives inside a
// cooldown window or overlaps an in-flight scan.
func (p *Processor) Process(ctx context.Context, raw string) Result {
	now := p.now()

	p.mu.Lock()
	if p.busy || now.Before(p.cooldownUntil) {
		p.mu.Unlock()
		return Result{Outcome: OutcomeIgnored, ScannedAt: now}
	}
	if raw == p.lastRaw && now.Sub(p.lastRawAt) < p.cfg.Debounce {
		p.mu.Unlock()
		return Result{Outcome: OutcomeIgnored, ScannedAt: now}
	}
	p.lastRaw = raw
	p.lastRawAt = now
	p.busy = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.busy = false
		p.mu.Unlock()
	}()

	id := ExtractTicketID(raw)
	if id == "" {
		p.startCooldown(now, p.cfg.RejectCooldown)
		return Result{Outcome: OutcomeUnknown, ScannedAt: now}
	}

	result := p.redeem(ctx, id, now)
	if result.Outcome == OutcomeAccepted {
		p.startCooldown(now, p.cfg.AcceptCooldown)
	} else {
		p.startCooldown(now, p.cfg.RejectCooldown)
	}
	logrus.WithFields(logrus.Fields{
		"ticketId": id,
		"outcome":  result.Outcome,
	}).Info("scan processed")
	return result
}

func (p *Processor) redeem(ctx context.Context, id string, now time.Time) Result {
	var outcome Outcome
	var snapshot entity.Ticket

	p.ledger.Mutate(func(tx *ledger.Tx) {
		ticket, ok := tx.Get(id)
		if !ok {
			outcome = OutcomeUnknown
			return
		}
		if ticket.Used {
			outcome = OutcomeAlreadyUsed
			snapshot = *ticket
			return
		}
		ticket.Used = true
		usedAt := now
		ticket.UsedAt = &usedAt
		ticket.SyncStatus = entity.SyncStatusPending
		ticket.PendingAction = entity.PendingActionScan
		snapshot = *ticket
		outcome = OutcomeAccepted
		tx.MarkChanged()
	})

	if outcome != OutcomeAccepted {
		return Result{Outcome: outcome, TicketID: id, Ticket: snapshot, ScannedAt: now}
	}

	if err := p.ledger.Persist(ctx); err != nil {
		logrus.Errorf("failed to persist redemption of %s: %v", id, err)
	}
	p.enqueueRedemption(ctx, id, now)
	return Result{Outcome: OutcomeAccepted, TicketID: id, Ticket: snapshot, ScannedAt: now}
}

// enqueueRedemption records the scan event and the ticket deactivation for the
// next queue flush. Both mutations are queued even while offline; the queue
// delivers them once connectivity returns.
func (p *Processor) enqueueRedemption(ctx context.Context, id string, now time.Time) {
	scan := entity.ScanEvent{
		TicketID:     id,
		EventID:      p.cfg.EventID,
		DeviceID:     p.cfg.DeviceID,
		ScanLocation: p.cfg.Location,
		ScanAction:   entity.ScanActionScan,
		ScanAt:       now,
	}
	if _, err := p.queue.Enqueue(ctx, entity.MutationRecordScan, scan); err != nil {
		logrus.Errorf("failed to queue scan record for %s: %v", id, err)
	}

	update := entity.TicketUpdate{
		ID: id,
		Update: map[string]interface{}{
			"active":         false,
			"last_synced_at": now.Format(time.RFC3339Nano),
		},
	}
	if _, err := p.queue.Enqueue(ctx, entity.MutationUpdateTicket, update); err != nil {
		logrus.Errorf("failed to queue ticket update for %s: %v", id, err)
	}
}

func (p *Processor) startCooldown(from time.Time, d time.Duration) {
	p.mu.Lock()
	p.cooldownUntil = from.Add(d)
	p.mu.Unlock()
}

// ExtractTicketID normalizes raw scan input to a ticket id. QR codes in the
// wild carry the id as a query parameter, a fragment, a path suffix or the
// bare id itself.
func ExtractTicketID(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		return s
	}

	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	if v := u.Query().Get("ticket"); v != "" {
		return v
	}
	if u.Fragment != "" {
		return strings.Trim(u.Fragment, "/")
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if (seg == "t" || seg == "ticket") && i+1 < len(segments) && segments[i+1] != "" {
			return segments[i+1]
		}
	}
	if last := segments[len(segments)-1]; last != "" {
		return last
	}
	return ""
}
