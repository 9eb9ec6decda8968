// Package engine converges the local ticket ledger with the remote store. A
// sync cycle pulls the remote ticket snapshot and the scan log since the last
// checkpoint, merges both into the ledger, then pushes queued local mutations.
// The merge is idempotent: replaying the same remote data is always safe.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Numzn/NUMZSCAN-APP/internal/entity"
	"github.com/Numzn/NUMZSCAN-APP/internal/ids"
	"github.com/Numzn/NUMZSCAN-APP/internal/ledger"
	"github.com/Numzn/NUMZSCAN-APP/pkg/remote"
	"github.com/Numzn/NUMZSCAN-APP/pkg/syncqueue"
)

// Phase is the engine's position in the sync cycle, for observability.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseFetchingRemote Phase = "fetching_remote"
	PhaseMergingTickets Phase = "merging_tickets"
	PhaseMergingScans   Phase = "merging_scans"
	PhaseFlushingQueue  Phase = "flushing_queue"
	PhaseFailed         Phase = "failed"
)

type Engine struct {
	ledger    *ledger.Ledger
	queue     *syncqueue.Queue
	gateway   remote.Gateway
	generator *ids.Generator
	online    func() bool

	mu             sync.Mutex
	phase          Phase
	manualInFlight bool
	totals         entity.RemoteTotals
}

func New(l *ledger.Ledger, q *syncqueue.Queue, gw remote.Gateway, gen *ids.Generator, online func() bool) *Engine {
	if online == nil {
		online = func() bool { return true }
	}
	return &Engine{
		ledger:    l,
		queue:     q,
		gateway:   gw,
		generator: gen,
		online:    online,
		phase:     PhaseIdle,
	}
}

// Phase returns the current cycle phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// RemoteTotals returns the aggregate counts from the last remote snapshot,
// informational only.
func (e *Engine) RemoteTotals() entity.RemoteTotals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totals
}

func (e *Engine) setPhase(p Phase) {
	e.mu.Lock()
	e.phase = p
	e.mu.Unlock()
}

// ManualSync runs one full cycle on explicit user request. It refuses to run
// without a configured remote, while offline or while another manual sync is
// in flight, surfacing a clear error instead of queueing silently.
func (e *Engine) ManualSync(ctx context.Context) error {
	if _, disabled := e.gateway.(*remote.NoopGateway); disabled {
		return entity.ErrSyncDisabled
	}
	if !e.online() {
		return entity.ErrOffline
	}

	e.mu.Lock()
	if e.manualInFlight {
		e.mu.Unlock()
		return entity.ErrSyncInProgress
	}
	e.manualInFlight = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.manualInFlight = false
		e.mu.Unlock()
	}()

	return e.Sync(ctx)
}

// Sync runs one cycle: fetch remote tickets, merge, fetch scans since the
// last checkpoint, replay, flush the outbound queue. A fetch failure aborts
// the cycle and leaves the ledger at its last-good state; a scans-fetch
// failure after the ticket merge is still a failed cycle, never a silent
// partial success.
func (e *Engine) Sync(ctx context.Context) error {
	e.setPhase(PhaseFetchingRemote)

	remoteTickets, err := e.gateway.FetchAllTickets(ctx)
	if err != nil {
		e.setPhase(PhaseFailed)
		return fmt.Errorf("failed to fetch remote tickets: %w", err)
	}

	e.setPhase(PhaseMergingTickets)
	merged := e.MergeRemoteTickets(ctx, remoteTickets)

	since := e.queue.LastSyncAt()
	scans, err := e.gateway.FetchScansSince(ctx, since)
	if err != nil {
		e.setPhase(PhaseFailed)
		return fmt.Errorf("failed to fetch remote scans: %w", err)
	}

	e.setPhase(PhaseMergingScans)
	replayed := e.ApplyRemoteScans(scans)

	if merged || replayed {
		if err := e.ledger.Persist(ctx); err != nil {
			e.setPhase(PhaseFailed)
			return err
		}
	}

	e.queue.SetLastSyncAt(ctx, time.Now().UTC())
	if err := e.ledger.UpdateSettings(ctx, func(s *entity.Settings) {
		now := time.Now().UTC()
		s.LastRemoteSync = &now
	}); err != nil {
		logrus.Warnf("failed to persist last remote sync: %v", err)
	}

	e.setPhase(PhaseFlushingQueue)
	flushErr := e.queue.Flush(ctx)

	e.setPhase(PhaseIdle)
	if flushErr != nil {
		return fmt.Errorf("queue flush during sync: %w", flushErr)
	}
	logrus.Infof("sync cycle complete: %d remote tickets, %d scans replayed", len(remoteTickets), len(scans))
	return nil
}

// MergeRemoteTickets merges a remote snapshot into the ledger. Redemption is
// monotonic here: if either side reports a ticket used, the merged record is
// used. A reset is a distinct event applied only through the scan log, so a
// stale remote snapshot can never silently un-redeem a ticket. Returns
// whether anything changed.
func (e *Engine) MergeRemoteTickets(ctx context.Context, remoteTickets []entity.RemoteTicket) bool {
	if len(remoteTickets) == 0 {
		return false
	}

	// Control records toggle settings, not tickets; handled outside the
	// collection mutation.
	for _, rt := range remoteTickets {
		if rt.ID == entity.ControlTicketID {
			e.applyControlRecord(ctx, rt)
		}
	}

	active, inactive := 0, 0
	changed := e.ledger.Mutate(func(tx *ledger.Tx) {
		for _, rt := range remoteTickets {
			if rt.ID == "" || rt.ID == entity.ControlTicketID {
				continue
			}

			if rt.Active {
				active++
			} else {
				inactive++
			}

			remoteUsed := !rt.Active
			existing, ok := tx.Get(rt.ID)
			if !ok {
				tx.Insert(e.remoteToLocal(rt))
				continue
			}

			if remoteUsed && !existing.Used {
				existing.Used = true
				existing.UsedAt = remoteUsedAt(rt)
				tx.MarkChanged()
			}
			if existing.SyncStatus != entity.SyncStatusSynced || existing.PendingAction != entity.PendingActionNone {
				tx.MarkChanged()
			}
			existing.SyncStatus = entity.SyncStatusSynced
			existing.PendingAction = entity.PendingActionNone
			if rt.LastSyncedAt != nil {
				existing.LastSyncedAt = rt.LastSyncedAt
			}
			if len(rt.Metadata) > 0 {
				existing.Metadata = rt.Metadata
			}
		}
	})

	e.mu.Lock()
	e.totals = entity.RemoteTotals{Active: active, Inactive: inactive}
	e.mu.Unlock()

	if changed {
		e.generator.SetBaseline(e.ledger.Count())
	}
	return changed
}

// ApplyRemoteScans replays the scan log in chronological order. The event log
// carries what a snapshot merge cannot: the distinction between "never used"
// and "used then explicitly reset". Unknown ticket ids are skipped; a scan
// log never creates orphan tickets.
func (e *Engine) ApplyRemoteScans(scans []entity.ScanEvent) bool {
	if len(scans) == 0 {
		return false
	}

	ordered := make([]entity.ScanEvent, len(scans))
	copy(ordered, scans)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ScanAt.Before(ordered[j].ScanAt)
	})

	return e.ledger.Mutate(func(tx *ledger.Tx) {
		for _, scan := range ordered {
			if scan.TicketID == "" {
				continue
			}
			ticket, ok := tx.Get(scan.TicketID)
			if !ok {
				continue
			}

			switch scan.ScanAction {
			case entity.ScanActionScan:
				if !ticket.Used {
					ticket.Used = true
					scannedAt := scan.ScanAt
					if scannedAt.IsZero() {
						scannedAt = time.Now().UTC()
					}
					ticket.UsedAt = &scannedAt
					ticket.SyncStatus = entity.SyncStatusSynced
					ticket.PendingAction = entity.PendingActionNone
					tx.MarkChanged()
				}
			case entity.ScanActionReset:
				if ticket.Used {
					ticket.Used = false
					ticket.UsedAt = nil
					ticket.SyncStatus = entity.SyncStatusSynced
					ticket.PendingAction = entity.PendingActionNone
					tx.MarkChanged()
				}
			}
		}
	})
}

func (e *Engine) applyControlRecord(ctx context.Context, rt entity.RemoteTicket) {
	locked := false
	switch v := rt.Metadata["locked"].(type) {
	case bool:
		locked = v
	case string:
		locked = v == "true"
	}
	if e.ledger.Settings().GenerationLocked == locked {
		return
	}
	logrus.Infof("generation lock toggled to %v by remote control record", locked)
	if err := e.ledger.UpdateSettings(ctx, func(s *entity.Settings) {
		s.GenerationLocked = locked
	}); err != nil {
		logrus.Warnf("failed to persist generation lock: %v", err)
	}
}

func (e *Engine) remoteToLocal(rt entity.RemoteTicket) entity.Ticket {
	used := !rt.Active
	t := entity.Ticket{
		ID:            rt.ID,
		Used:          used,
		SyncStatus:    entity.SyncStatusSynced,
		PendingAction: entity.PendingActionNone,
		LastSyncedAt:  rt.LastSyncedAt,
		Metadata:      rt.Metadata,
		Source:        entity.TicketSourceCloud,
	}
	if rt.CreatedAt != nil {
		t.CreatedAt = *rt.CreatedAt
	}
	if used {
		t.UsedAt = remoteUsedAt(rt)
	}
	return entity.EnsureShape(t)
}

// remoteUsedAt takes the redemption time from the remote confirmation when
// available.
func remoteUsedAt(rt entity.RemoteTicket) *time.Time {
	if rt.LastSyncedAt != nil {
		ts := *rt.LastSyncedAt
		return &ts
	}
	now := time.Now().UTC()
	return &now
}
