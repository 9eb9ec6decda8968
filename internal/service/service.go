package service

import (
	"context"
	"io"

	"github.com/Numzn/NUMZSCAN-APP/internal/entity"
)

// TicketService covers ticket lifecycle operations outside of scanning:
// generation, bulk reset, import/export and the generation lock.
type TicketService interface {
	List(ctx context.Context) []entity.Ticket
	Get(ctx context.Context, id string) (entity.Ticket, error)
	Stats(ctx context.Context) entity.TicketStats

	Generate(ctx context.Context, count int) ([]entity.Ticket, error)
	ResetAll(ctx context.Context) (int, error)
	SetGenerationLock(ctx context.Context, locked bool, reason string, propagate bool) error

	ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error)
	ExportCSV(ctx context.Context, w io.Writer) error
	ImportJSON(ctx context.Context, r io.Reader, replace bool) (*ImportResult, error)
	ExportJSON(ctx context.Context, w io.Writer) error
}

// FundraisingService tracks contributions toward the fundraising target. It is
// local bookkeeping only and never touches the sync queue.
type FundraisingService interface {
	Contributions(ctx context.Context) []entity.Contribution
	AddContribution(ctx context.Context, req *AddContributionRequest) (*entity.Contribution, error)
	ImportMany(ctx context.Context, reqs []AddContributionRequest) (int, error)
	RemoveContribution(ctx context.Context, id string) error
	ClearNonInitial(ctx context.Context) (int, error)
	Totals(ctx context.Context) entity.ContributionTotals
	SetTarget(ctx context.Context, amount float64) error
	State(ctx context.Context) entity.FundraisingState

	ImportCSV(ctx context.Context, r io.Reader) (int, error)
	ExportCSV(ctx context.Context, w io.Writer) error
}

// ImportResult summarizes a bulk ticket import.
type ImportResult struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

type AddContributionRequest struct {
	Type     entity.ContributionType `json:"type" binding:"required"`
	Amount   float64                 `json:"amount"`
	Notes    string                  `json:"notes"`
	Metadata map[string]interface{}  `json:"metadata"`
}
