package entity

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

type SyncStatus string

const (
	SyncStatusLocal   SyncStatus = "local"
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
)

type PendingAction string

const (
	PendingActionNone         PendingAction = ""
	PendingActionCreateTicket PendingAction = "createTicket"
	PendingActionScan         PendingAction = "scan"
	PendingActionReset        PendingAction = "reset"
	PendingActionUpdateTicket PendingAction = "updateTicket"
)

type TicketSource string

const (
	TicketSourceLocal TicketSource = "local"
	TicketSourceCSV   TicketSource = "csv"
	TicketSourceCloud TicketSource = "cloud"
)

// Ticket is one admit-one credential identified by a unique scannable code.
// UsedAt is set exactly when Used transitions false to true and cleared on reset.
type Ticket struct {
	ID            string                 `json:"id"`
	Used          bool                   `json:"used"`
	CreatedAt     time.Time              `json:"createdAt"`
	UsedAt        *time.Time             `json:"usedAt,omitempty"`
	SyncStatus    SyncStatus             `json:"syncStatus"`
	PendingAction PendingAction          `json:"pendingAction,omitempty"`
	LastSyncedAt  *time.Time             `json:"lastSyncedAt,omitempty"`
	Metadata      map[string]interface{} `json:"metadata"`
	Source        TicketSource           `json:"source"`
}

// EnsureShape fills in defaults for tickets loaded from storage or imported
// from files so the rest of the system can rely on a fully-populated record.
func EnsureShape(t Ticket) Ticket {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if !t.Used {
		t.UsedAt = nil
	} else if t.UsedAt == nil {
		usedAt := t.CreatedAt
		t.UsedAt = &usedAt
	}
	if t.SyncStatus == "" {
		t.SyncStatus = SyncStatusLocal
	}
	if t.Metadata == nil {
		t.Metadata = map[string]interface{}{}
	}
	if t.Source == "" {
		t.Source = TicketSourceLocal
	}
	return t
}

// NormalizeTickets applies EnsureShape to every ticket in place.
func NormalizeTickets(tickets []Ticket) []Ticket {
	out := make([]Ticket, len(tickets))
	for i, t := range tickets {
		out[i] = EnsureShape(t)
	}
	return out
}

// IndexTickets rebuilds the id lookup map. Must be called after every
// structural mutation of the slice (add, merge, sort).
func IndexTickets(tickets []Ticket) map[string]*Ticket {
	index := make(map[string]*Ticket, len(tickets))
	for i := range tickets {
		index[tickets[i].ID] = &tickets[i]
	}
	return index
}

// SortTickets orders tickets by id with numeric-aware comparison,
// so "TK2" sorts before "TK10".
func SortTickets(tickets []Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		return CompareTicketIDs(tickets[i].ID, tickets[j].ID) < 0
	})
}

// CompareTicketIDs compares two ids segment by segment, treating runs of
// digits as numbers.
func CompareTicketIDs(a, b string) int {
	for len(a) > 0 && len(b) > 0 {
		aNum, aRest, aIsNum := leadingToken(a)
		bNum, bRest, bIsNum := leadingToken(b)

		if aIsNum && bIsNum {
			an, _ := strconv.ParseInt(aNum, 10, 64)
			bn, _ := strconv.ParseInt(bNum, 10, 64)
			if an != bn {
				if an < bn {
					return -1
				}
				return 1
			}
		} else if cmp := strings.Compare(aNum, bNum); cmp != 0 {
			return cmp
		}
		a, b = aRest, bRest
	}
	return strings.Compare(a, b)
}

func leadingToken(s string) (token, rest string, numeric bool) {
	isDigit := func(c byte) bool { return c >= '0' && c <= '9' }
	numeric = isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == numeric {
		i++
	}
	return s[:i], s[i:], numeric
}

// TicketStats are aggregate counts for dashboard display.
type TicketStats struct {
	Total  int `json:"total"`
	Used   int `json:"used"`
	Unused int `json:"unused"`
}

func ComputeTicketStats(tickets []Ticket) TicketStats {
	used := 0
	for _, t := range tickets {
		if t.Used {
			used++
		}
	}
	return TicketStats{
		Total:  len(tickets),
		Used:   used,
		Unused: len(tickets) - used,
	}
}
