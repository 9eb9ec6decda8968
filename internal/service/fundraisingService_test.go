package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Numzn/NUMZSCAN-APP/internal/entity"
	"github.com/Numzn/NUMZSCAN-APP/internal/storage"
)

func newFundraising(t *testing.T) (FundraisingService, *storage.TicketStore) {
	t.Helper()
	store := storage.NewTicketStore(storage.NewMemoryBackend())
	return NewFundraisingService(context.Background(), store, 10000), store
}

func TestAddContributionUpdatesTotals(t *testing.T) {
	svc, _ := newFundraising(t)
	ctx := context.Background()

	if _, err := svc.AddContribution(ctx, &AddContributionRequest{Type: entity.ContributionTicket, Amount: 150}); err != nil {
		t.Fatalf("AddContribution: %v", err)
	}
	if _, err := svc.AddContribution(ctx, &AddContributionRequest{Type: entity.ContributionDonation, Amount: 500, Notes: "pledge"}); err != nil {
		t.Fatalf("AddContribution: %v", err)
	}
	if _, err := svc.AddContribution(ctx, &AddContributionRequest{Type: entity.ContributionVIP, Amount: 1000}); err != nil {
		t.Fatalf("AddContribution: %v", err)
	}

	totals := svc.Totals(ctx)
	if totals.Count != 3 || totals.TicketSales != 150 || totals.Donations != 500 || totals.VIP != 1000 {
		t.Fatalf("totals = %+v", totals)
	}
	if got := svc.State(ctx).CurrentAmount; got != 1650 {
		t.Fatalf("currentAmount = %v, want 1650", got)
	}
}

func TestAddContributionValidation(t *testing.T) {
	svc, _ := newFundraising(t)
	ctx := context.Background()

	if _, err := svc.AddContribution(ctx, &AddContributionRequest{Type: entity.ContributionCash, Amount: -5}); !errors.Is(err, entity.ErrInvalidInput) {
		t.Fatalf("negative amount = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.AddContribution(ctx, &AddContributionRequest{Type: "sponsorship", Amount: 5}); !errors.Is(err, entity.ErrInvalidInput) {
		t.Fatalf("unknown type = %v, want ErrInvalidInput", err)
	}
}

func TestClearNonInitialKeepsSeedEntries(t *testing.T) {
	svc, _ := newFundraising(t)
	ctx := context.Background()

	svc.AddContribution(ctx, &AddContributionRequest{Type: entity.ContributionInitial, Amount: 2000})
	svc.AddContribution(ctx, &AddContributionRequest{Type: entity.ContributionTicket, Amount: 150})
	svc.AddContribution(ctx, &AddContributionRequest{Type: entity.ContributionCash, Amount: 75})

	removed, err := svc.ClearNonInitial(ctx)
	if err != nil {
		t.Fatalf("ClearNonInitial: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed %d, want 2", removed)
	}

	remaining := svc.Contributions(ctx)
	if len(remaining) != 1 || remaining[0].Type != entity.ContributionInitial {
		t.Fatalf("remaining = %+v", remaining)
	}
	if got := svc.State(ctx).CurrentAmount; got != 2000 {
		t.Fatalf("currentAmount = %v, want 2000", got)
	}
}

func TestRemoveContribution(t *testing.T) {
	svc, _ := newFundraising(t)
	ctx := context.Background()

	c, _ := svc.AddContribution(ctx, &AddContributionRequest{Type: entity.ContributionCash, Amount: 75})
	if err := svc.RemoveContribution(ctx, c.ID); err != nil {
		t.Fatalf("RemoveContribution: %v", err)
	}
	if got := svc.Totals(ctx).Count; got != 0 {
		t.Fatalf("count = %d after removal", got)
	}
	if err := svc.RemoveContribution(ctx, "missing"); !errors.Is(err, entity.ErrContributionNotFound) {
		t.Fatalf("err = %v, want ErrContributionNotFound", err)
	}
}

func TestFundraisingStateSurvivesRestart(t *testing.T) {
	svc, store := newFundraising(t)
	ctx := context.Background()

	svc.AddContribution(ctx, &AddContributionRequest{Type: entity.ContributionDonation, Amount: 300})
	svc.SetTarget(ctx, 25000)

	reloaded := NewFundraisingService(ctx, store, 10000)
	state := reloaded.State(ctx)
	if state.TargetAmount != 25000 {
		t.Fatalf("target = %v after reload", state.TargetAmount)
	}
	if state.CurrentAmount != 300 || len(state.Contributions) != 1 {
		t.Fatalf("state = %+v after reload", state)
	}
}

func TestFundraisingCSVRoundTrip(t *testing.T) {
	svc, _ := newFundraising(t)
	ctx := context.Background()

	csvData := strings.Join([]string{
		"Type,Amount,Notes",
		"ticket,150.00,gate sale",
		"donation,500.00,",
		"bogus,100.00,ignored type",
		"cash,notanumber,ignored amount",
	}, "\n")

	added, err := svc.ImportCSV(ctx, strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if added != 2 {
		t.Fatalf("added %d, want 2", added)
	}

	var buf bytes.Buffer
	if err := svc.ExportCSV(ctx, &buf); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "Type,Amount,Notes,Created At" {
		t.Fatalf("header = %q", lines[0])
	}
	if len(lines) != 3 {
		t.Fatalf("exported %d rows, want 2 plus header", len(lines)-1)
	}
	if !strings.HasPrefix(lines[1], "ticket,150.00,gate sale,") {
		t.Fatalf("row = %q", lines[1])
	}
}
