package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Numzn/NUMZSCAN-APP/internal/entity"
	"github.com/Numzn/NUMZSCAN-APP/internal/storage"
)

type fundraisingService struct {
	mu    sync.Mutex
	state entity.FundraisingState
	store *storage.TicketStore
}

// NewFundraisingService loads the persisted tracker state. A missing or
// corrupt blob starts an empty tracker with the given target.
func NewFundraisingService(ctx context.Context, store *storage.TicketStore, defaultTarget float64) FundraisingService {
	s := &fundraisingService{store: store}
	data, err := store.LoadBlob(ctx, storage.BlobFundraising)
	if err == nil {
		if err := json.Unmarshal(data, &s.state); err != nil {
			logrus.Warnf("corrupt fundraising state, starting empty: %v", err)
			s.state = entity.FundraisingState{}
		}
	}
	if s.state.TargetAmount == 0 {
		s.state.TargetAmount = defaultTarget
	}
	s.recalculateLocked()
	return s
}

func (s *fundraisingService) Contributions(ctx context.Context) []entity.Contribution {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Contribution, len(s.state.Contributions))
	copy(out, s.state.Contributions)
	return out
}

func (s *fundraisingService) AddContribution(ctx context.Context, req *AddContributionRequest) (*entity.Contribution, error) {
	if req.Amount < 0 {
		return nil, fmt.Errorf("%w: amount cannot be negative", entity.ErrInvalidInput)
	}
	if !validContributionType(req.Type) {
		return nil, fmt.Errorf("%w: unknown contribution type %q", entity.ErrInvalidInput, req.Type)
	}

	c := entity.Contribution{
		ID:        uuid.NewString(),
		Type:      req.Type,
		Amount:    req.Amount,
		Notes:     req.Notes,
		Metadata:  req.Metadata,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.state.Contributions = append(s.state.Contributions, c)
	s.recalculateLocked()
	err := s.persistLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *fundraisingService) ImportMany(ctx context.Context, reqs []AddContributionRequest) (int, error) {
	now := time.Now().UTC()
	added := 0

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, req := range reqs {
		if req.Amount < 0 || !validContributionType(req.Type) {
			continue
		}
		s.state.Contributions = append(s.state.Contributions, entity.Contribution{
			ID:        uuid.NewString(),
			Type:      req.Type,
			Amount:    req.Amount,
			Notes:     req.Notes,
			Metadata:  req.Metadata,
			CreatedAt: now,
		})
		added++
	}
	s.recalculateLocked()
	if err := s.persistLocked(ctx); err != nil {
		return 0, err
	}
	return added, nil
}

func (s *fundraisingService) RemoveContribution(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.state.Contributions {
		if c.ID == id {
			s.state.Contributions = append(s.state.Contributions[:i], s.state.Contributions[i+1:]...)
			s.recalculateLocked()
			return s.persistLocked(ctx)
		}
	}
	return entity.ErrContributionNotFound
}

// ClearNonInitial drops everything except seed entries, for starting a new
// campaign on the same baseline.
func (s *fundraisingService) ClearNonInitial(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.state.Contributions[:0]
	removed := 0
	for _, c := range s.state.Contributions {
		if c.Type == entity.ContributionInitial {
			kept = append(kept, c)
		} else {
			removed++
		}
	}
	s.state.Contributions = kept
	s.recalculateLocked()
	if err := s.persistLocked(ctx); err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *fundraisingService) Totals(ctx context.Context) entity.ContributionTotals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return computeTotals(s.state.Contributions)
}

func (s *fundraisingService) SetTarget(ctx context.Context, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: target must be positive", entity.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TargetAmount = amount
	return s.persistLocked(ctx)
}

func (s *fundraisingService) State(ctx context.Context) entity.FundraisingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.state
	state.Contributions = make([]entity.Contribution, len(s.state.Contributions))
	copy(state.Contributions, s.state.Contributions)
	return state
}

// ImportCSV reads rows of type,amount,notes and appends them as contributions.
func (s *fundraisingService) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", entity.ErrInvalidImportFile, err)
	}
	typeCol, amountCol, notesCol := -1, -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "type":
			typeCol = i
		case "amount":
			amountCol = i
		case "notes":
			notesCol = i
		}
	}
	if typeCol == -1 || amountCol == -1 {
		return 0, fmt.Errorf("%w: type and amount columns required", entity.ErrMissingIDColumn)
	}

	var reqs []AddContributionRequest
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil || typeCol >= len(row) || amountCol >= len(row) {
			continue
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(row[amountCol]), 64)
		if err != nil {
			continue
		}
		req := AddContributionRequest{
			Type:   entity.ContributionType(strings.ToLower(strings.TrimSpace(row[typeCol]))),
			Amount: amount,
		}
		if notesCol != -1 && notesCol < len(row) {
			req.Notes = row[notesCol]
		}
		reqs = append(reqs, req)
	}
	return s.ImportMany(ctx, reqs)
}

func (s *fundraisingService) ExportCSV(ctx context.Context, w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Type", "Amount", "Notes", "Created At"}); err != nil {
		return err
	}
	for _, c := range s.Contributions(ctx) {
		row := []string{
			string(c.Type),
			strconv.FormatFloat(c.Amount, 'f', 2, 64),
			c.Notes,
			c.CreatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func (s *fundraisingService) recalculateLocked() {
	total := 0.0
	for _, c := range s.state.Contributions {
		total += c.Amount
	}
	s.state.CurrentAmount = total
}

func (s *fundraisingService) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("failed to marshal fundraising state: %w", err)
	}
	return s.store.SaveBlob(ctx, storage.BlobFundraising, data)
}

func computeTotals(contributions []entity.Contribution) entity.ContributionTotals {
	totals := entity.ContributionTotals{Count: len(contributions)}
	for _, c := range contributions {
		switch c.Type {
		case entity.ContributionTicket, entity.ContributionBulkTickets:
			totals.TicketSales += c.Amount
		case entity.ContributionVIP:
			totals.VIP += c.Amount
		case entity.ContributionCash, entity.ContributionInitial:
			totals.Cash += c.Amount
		default:
			totals.Donations += c.Amount
		}
	}
	return totals
}

func validContributionType(t entity.ContributionType) bool {
	switch t {
	case entity.ContributionDonation, entity.ContributionTicket, entity.ContributionBulkTickets,
		entity.ContributionVIP, entity.ContributionCash, entity.ContributionInitial:
		return true
	}
	return false
}
