package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Numzn/NUMZSCAN-APP/internal/entity"
	"github.com/Numzn/NUMZSCAN-APP/internal/ids"
	"github.com/Numzn/NUMZSCAN-APP/internal/ledger"
	"github.com/Numzn/NUMZSCAN-APP/pkg/syncqueue"
)

// exportVersion tags JSON exports so later readers can handle format changes.
const exportVersion = 1

type ticketService struct {
	ledger    *ledger.Ledger
	queue     *syncqueue.Queue
	generator *ids.Generator
	eventID   string
	deviceID  string
}

func NewTicketService(l *ledger.Ledger, q *syncqueue.Queue, gen *ids.Generator, eventID, deviceID string) TicketService {
	return &ticketService{
		ledger:    l,
		queue:     q,
		generator: gen,
		eventID:   eventID,
		deviceID:  deviceID,
	}
}

func (s *ticketService) List(ctx context.Context) []entity.Ticket {
	return s.ledger.Snapshot()
}

func (s *ticketService) Get(ctx context.Context, id string) (entity.Ticket, error) {
	t, ok := s.ledger.Get(id)
	if !ok {
		return entity.Ticket{}, entity.ErrTicketNotFound
	}
	return t, nil
}

func (s *ticketService) Stats(ctx context.Context) entity.TicketStats {
	return s.ledger.Stats()
}

// Generate creates count new tickets. It refuses while the generation lock is
// set, so a device that imported an authoritative ticket list cannot mint
// conflicting ids on top of it.
func (s *ticketService) Generate(ctx context.Context, count int) ([]entity.Ticket, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", entity.ErrInvalidInput)
	}
	if s.ledger.Settings().GenerationLocked {
		return nil, entity.ErrGenerationLocked
	}

	s.generator.SetBaseline(s.ledger.Count())

	now := time.Now().UTC()
	created := make([]entity.Ticket, 0, count)
	s.ledger.Mutate(func(tx *ledger.Tx) {
		for i := 0; i < count; i++ {
			t := entity.EnsureShape(entity.Ticket{
				ID:            s.generator.Next(),
				CreatedAt:     now,
				SyncStatus:    entity.SyncStatusPending,
				PendingAction: entity.PendingActionCreateTicket,
			})
			tx.Insert(t)
			created = append(created, t)
		}
	})

	if err := s.ledger.Persist(ctx); err != nil {
		return nil, fmt.Errorf("failed to persist generated tickets: %w", err)
	}
	for _, t := range created {
		s.enqueueCreate(ctx, t)
	}
	logrus.Infof("generated %d tickets", len(created))
	return created, nil
}

// ResetAll flips every used ticket back to unused. Each reset is pushed to the
// remote as a reset scan event plus a ticket reactivation, so other devices
// replay the resets instead of treating the snapshot as stale.
func (s *ticketService) ResetAll(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	var resetIDs []string

	s.ledger.Mutate(func(tx *ledger.Tx) {
		tx.Each(func(t *entity.Ticket) {
			if !t.Used {
				return
			}
			t.Used = false
			t.UsedAt = nil
			t.SyncStatus = entity.SyncStatusPending
			t.PendingAction = entity.PendingActionReset
			resetIDs = append(resetIDs, t.ID)
			tx.MarkChanged()
		})
	})

	if len(resetIDs) == 0 {
		return 0, nil
	}
	if err := s.ledger.Persist(ctx); err != nil {
		return 0, fmt.Errorf("failed to persist reset: %w", err)
	}

	for _, id := range resetIDs {
		scan := entity.ScanEvent{
			TicketID:   id,
			EventID:    s.eventID,
			DeviceID:   s.deviceID,
			ScanAction: entity.ScanActionReset,
			ScanAt:     now,
		}
		if _, err := s.queue.Enqueue(ctx, entity.MutationRecordScan, scan); err != nil {
			logrus.Errorf("failed to queue reset scan for %s: %v", id, err)
		}
		if _, err := s.queue.Enqueue(ctx, entity.MutationResetTicket, map[string]string{"id": id}); err != nil {
			logrus.Errorf("failed to queue reset for %s: %v", id, err)
		}
	}
	logrus.Infof("reset %d used tickets", len(resetIDs))
	return len(resetIDs), nil
}

// SetGenerationLock persists the lock and optionally propagates it to other
// devices through the reserved control record in the remote ticket table.
func (s *ticketService) SetGenerationLock(ctx context.Context, locked bool, reason string, propagate bool) error {
	if err := s.ledger.UpdateSettings(ctx, func(st *entity.Settings) {
		st.GenerationLocked = locked
	}); err != nil {
		return fmt.Errorf("failed to persist generation lock: %w", err)
	}
	if !propagate {
		return nil
	}

	control := entity.RemoteTicket{
		ID:      entity.ControlTicketID,
		EventID: s.eventID,
		Active:  true,
		Metadata: map[string]interface{}{
			"locked":     locked,
			"reason":     reason,
			"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
			"updated_by": s.deviceID,
		},
	}
	if _, err := s.queue.Enqueue(ctx, entity.MutationControlTicket, control); err != nil {
		return fmt.Errorf("failed to queue control record: %w", err)
	}
	return nil
}

// ImportCSV loads tickets from a spreadsheet export. Existing ids are only
// ever upgraded to used, never downgraded; a successful import also sets and
// propagates the generation lock because the imported list is now the
// authoritative one.
func (s *ticketService) ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidImportFile, err)
	}

	idCol, statusCol, usedAtCol := -1, -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "ticket id", "id", "ticket":
			if idCol == -1 {
				idCol = i
			}
		case "status", "used":
			statusCol = i
		case "used at", "usedat":
			usedAtCol = i
		}
	}
	if idCol == -1 {
		return nil, entity.ErrMissingIDColumn
	}

	result := &ImportResult{}
	var created []entity.Ticket
	now := time.Now().UTC()

	s.ledger.Mutate(func(tx *ledger.Tx) {
		for {
			row, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				result.Skipped++
				continue
			}
			if idCol >= len(row) {
				result.Skipped++
				continue
			}
			id := strings.TrimSpace(row[idCol])
			if id == "" {
				result.Skipped++
				continue
			}

			used := false
			if statusCol != -1 && statusCol < len(row) {
				used = parseUsed(row[statusCol])
			}
			var usedAt *time.Time
			if used {
				if usedAtCol != -1 && usedAtCol < len(row) {
					usedAt = parseTimestamp(row[usedAtCol])
				}
				if usedAt == nil {
					usedAt = &now
				}
			}

			if existing, ok := tx.Get(id); ok {
				if used && !existing.Used {
					existing.Used = true
					existing.UsedAt = usedAt
					tx.MarkChanged()
					result.Updated++
				}
				continue
			}

			t := entity.EnsureShape(entity.Ticket{
				ID:            id,
				Used:          used,
				UsedAt:        usedAt,
				CreatedAt:     now,
				SyncStatus:    entity.SyncStatusPending,
				PendingAction: entity.PendingActionCreateTicket,
				Source:        entity.TicketSourceCSV,
			})
			tx.Insert(t)
			created = append(created, t)
			result.Imported++
		}
	})

	if err := s.ledger.Persist(ctx); err != nil {
		return nil, fmt.Errorf("failed to persist imported tickets: %w", err)
	}
	for _, t := range created {
		s.enqueueCreate(ctx, t)
	}

	s.generator.SetBaseline(s.ledger.Count())
	if err := s.SetGenerationLock(ctx, true, "csv import", true); err != nil {
		logrus.Warnf("import succeeded but lock propagation failed: %v", err)
	}

	logrus.WithFields(logrus.Fields{
		"imported": result.Imported,
		"updated":  result.Updated,
		"skipped":  result.Skipped,
	}).Info("csv import complete")
	return result, nil
}

func (s *ticketService) ExportCSV(ctx context.Context, w io.Writer) error {
	tickets := s.ledger.Snapshot()
	if len(tickets) == 0 {
		return entity.ErrNoTickets
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Ticket ID", "Status", "Used At"}); err != nil {
		return err
	}
	for _, t := range tickets {
		status := "unused"
		usedAt := ""
		if t.Used {
			status = "used"
			if t.UsedAt != nil {
				usedAt = t.UsedAt.Format(time.RFC3339)
			}
		}
		if err := writer.Write([]string{t.ID, status, usedAt}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ticketExport is the portable backup format.
type ticketExport struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Version     int             `json:"version"`
	Tickets     []entity.Ticket `json:"tickets"`
}

func (s *ticketService) ExportJSON(ctx context.Context, w io.Writer) error {
	export := ticketExport{
		GeneratedAt: time.Now().UTC(),
		Version:     exportVersion,
		Tickets:     s.ledger.Snapshot(),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(export)
}

// ImportJSON restores a backup. With replace the collection is swapped
// wholesale; otherwise the backup is merged with used-only upgrades, matching
// the CSV import semantics.
func (s *ticketService) ImportJSON(ctx context.Context, r io.Reader, replace bool) (*ImportResult, error) {
	var export ticketExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidImportFile, err)
	}
	if export.Tickets == nil {
		return nil, fmt.Errorf("%w: missing tickets array", entity.ErrInvalidImportFile)
	}

	incoming := entity.NormalizeTickets(export.Tickets)
	result := &ImportResult{}

	s.ledger.Mutate(func(tx *ledger.Tx) {
		if replace {
			tx.Replace(incoming)
			result.Imported = len(incoming)
			return
		}
		for _, in := range incoming {
			if in.ID == "" {
				result.Skipped++
				continue
			}
			existing, ok := tx.Get(in.ID)
			if !ok {
				tx.Insert(in)
				result.Imported++
				continue
			}
			if in.Used && !existing.Used {
				existing.Used = true
				existing.UsedAt = in.UsedAt
				tx.MarkChanged()
				result.Updated++
			}
		}
	})

	if err := s.ledger.Persist(ctx); err != nil {
		return nil, fmt.Errorf("failed to persist imported tickets: %w", err)
	}
	s.generator.SetBaseline(s.ledger.Count())
	return result, nil
}

func (s *ticketService) enqueueCreate(ctx context.Context, t entity.Ticket) {
	remote := entity.RemoteTicket{
		ID:        t.ID,
		EventID:   s.eventID,
		Active:    !t.Used,
		CreatedAt: &t.CreatedAt,
		CreatedBy: s.deviceID,
		Metadata:  t.Metadata,
	}
	if _, err := s.queue.Enqueue(ctx, entity.MutationCreateTicket, remote); err != nil {
		logrus.Errorf("failed to queue create for %s: %v", t.ID, err)
	}
}

func parseUsed(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "used", "true", "yes", "1":
		return true
	}
	return false
}

func parseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
