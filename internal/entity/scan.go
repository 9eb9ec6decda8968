package entity

import "time"

type ScanAction string

const (
	ScanActionScan  ScanAction = "scan"
	ScanActionReset ScanAction = "reset"
)

// ScanEvent is one append-only record in the remote scan log. Field names
// follow the remote store's column naming.
type ScanEvent struct {
	TicketID     string                 `json:"ticket_id"`
	EventID      string                 `json:"event_id"`
	DeviceID     string                 `json:"device_id"`
	ScanLocation string                 `json:"scan_location"`
	ScanAction   ScanAction             `json:"scan_action"`
	ScanAt       time.Time              `json:"scan_at"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
}

// RemoteTicket is the wire shape of a ticket row in the remote store.
// Active is the inverse of the local Used flag.
type RemoteTicket struct {
	ID           string                 `json:"id"`
	EventID      string                 `json:"event_id"`
	Active       bool                   `json:"active"`
	CreatedAt    *time.Time             `json:"created_at,omitempty"`
	CreatedBy    string                 `json:"created_by,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	LastSyncedAt *time.Time             `json:"last_synced_at,omitempty"`
}

// ControlTicketID is a reserved ticket id used to propagate the generation
// lock between devices through the remote ticket table.
const ControlTicketID = "__control_generation__"

// RemoteTotals are aggregate remote-side counts, informational only.
type RemoteTotals struct {
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}
