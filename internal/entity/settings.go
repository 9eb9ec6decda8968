package entity

import "time"

// Settings is the small persisted settings blob shared by both dashboards.
type Settings struct {
	AutoSyncEnabled  bool       `json:"autoSyncEnabled"`
	GenerationLocked bool       `json:"generationLocked"`
	LastRemoteSync   *time.Time `json:"lastRemoteSync"`
}

// Contribution is one fundraising ledger entry.
type Contribution struct {
	ID        string                 `json:"id"`
	Type      ContributionType       `json:"type"`
	Amount    float64                `json:"amount"`
	Notes     string                 `json:"notes,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

type ContributionType string

const (
	ContributionDonation    ContributionType = "donation"
	ContributionTicket      ContributionType = "ticket"
	ContributionBulkTickets ContributionType = "bulk_tickets"
	ContributionVIP         ContributionType = "vip"
	ContributionCash        ContributionType = "cash"
	ContributionInitial     ContributionType = "initial"
)

// ContributionTotals groups contribution amounts by category for the
// progress dashboard.
type ContributionTotals struct {
	Count       int     `json:"count"`
	TicketSales float64 `json:"ticketSales"`
	Donations   float64 `json:"donations"`
	VIP         float64 `json:"vip"`
	Cash        float64 `json:"cash"`
}

// FundraisingState is the persisted fundraising tracker blob.
type FundraisingState struct {
	TargetAmount  float64        `json:"targetAmount"`
	CurrentAmount float64        `json:"currentAmount"`
	Contributions []Contribution `json:"contributions"`
}
