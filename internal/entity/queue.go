package entity

import (
	"encoding/json"
	"time"
)

type MutationType string

const (
	MutationCreateTicket  MutationType = "createTicket"
	MutationUpdateTicket  MutationType = "updateTicket"
	MutationRecordScan    MutationType = "recordScan"
	MutationResetTicket   MutationType = "resetTicket"
	MutationControlTicket MutationType = "controlTicket"
)

// QueueItem is one durable pending remote write, replayed until acknowledged
// or abandoned after the retry ceiling.
type QueueItem struct {
	ID        string          `json:"id"`
	Type      MutationType    `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Retries   int             `json:"retries"`
	CreatedAt time.Time       `json:"createdAt"`
}

// TicketUpdate is the payload of an updateTicket mutation.
type TicketUpdate struct {
	ID     string                 `json:"id"`
	Update map[string]interface{} `json:"update"`
}

// SyncState is the process-wide sync status snapshot consumed by observers.
// It is recomputed from queue length, connectivity and the in-flight flag and
// never persisted.
type SyncState struct {
	Pending    int        `json:"pending"`
	Syncing    bool       `json:"syncing"`
	LastSyncAt *time.Time `json:"lastSyncAt"`
	Online     bool       `json:"online"`
}
