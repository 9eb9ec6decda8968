// Package ledger owns the in-memory ticket collection shared by the scanner,
// the ticket actions and the reconciliation engine. All mutations go through
// Mutate so the id index and sort order stay consistent, and every Persist is
// a durability checkpoint against the backing store.
package ledger

import (
	"context"
	"sync"

	"github.com/Numzn/NUMZSCAN-APP/internal/entity"
	"github.com/Numzn/NUMZSCAN-APP/internal/storage"
)

type Ledger struct {
	mu       sync.RWMutex
	tickets  []entity.Ticket
	index    map[string]*entity.Ticket
	settings entity.Settings
	store    *storage.TicketStore
}

func New(store *storage.TicketStore) *Ledger {
	return &Ledger{
		index: map[string]*entity.Ticket{},
		store: store,
	}
}

// Load reads tickets and settings from storage, normalizing and sorting.
func (l *Ledger) Load(ctx context.Context) {
	tickets := l.store.LoadAll(ctx)
	entity.SortTickets(tickets)

	l.mu.Lock()
	l.tickets = tickets
	l.index = entity.IndexTickets(l.tickets)
	l.settings = storage.LoadSettings(ctx, l.store)
	l.mu.Unlock()
}

// Persist writes the full collection back to storage.
func (l *Ledger) Persist(ctx context.Context) error {
	l.mu.RLock()
	snapshot := make([]entity.Ticket, len(l.tickets))
	copy(snapshot, l.tickets)
	l.mu.RUnlock()
	return l.store.SaveAll(ctx, snapshot)
}

// Snapshot returns a copy of all tickets in sorted order.
func (l *Ledger) Snapshot() []entity.Ticket {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]entity.Ticket, len(l.tickets))
	copy(out, l.tickets)
	return out
}

// Get returns a copy of the ticket with the given id.
func (l *Ledger) Get(id string) (entity.Ticket, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.index[id]
	if !ok {
		return entity.Ticket{}, false
	}
	return *t, true
}

// Count returns the number of tickets.
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tickets)
}

// Stats returns aggregate counts.
func (l *Ledger) Stats() entity.TicketStats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return entity.ComputeTicketStats(l.tickets)
}

// Settings returns the current settings snapshot.
func (l *Ledger) Settings() entity.Settings {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.settings
}

// UpdateSettings mutates and persists the settings blob.
func (l *Ledger) UpdateSettings(ctx context.Context, fn func(*entity.Settings)) error {
	l.mu.Lock()
	fn(&l.settings)
	settings := l.settings
	l.mu.Unlock()
	return storage.SaveSettings(ctx, l.store, settings)
}

// Tx is a write view over the collection, valid only inside Mutate.
type Tx struct {
	ledger  *Ledger
	changed bool
	// stale is set when an append may have reallocated the backing array,
	// invalidating the pointers held by the id index.
	stale bool
}

// Mutate runs fn with exclusive write access. If fn reports a structural
// change the collection is re-sorted and the id index rebuilt before the lock
// is released, so no reader observes an intermediate state. Returns whether
// anything changed.
func (l *Ledger) Mutate(fn func(tx *Tx)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &Tx{ledger: l}
	fn(tx)
	if tx.changed {
		entity.SortTickets(l.tickets)
		l.index = entity.IndexTickets(l.tickets)
	}
	return tx.changed
}

// Get returns a pointer into the live collection; valid until the next Insert
// or Replace in this transaction.
func (tx *Tx) Get(id string) (*entity.Ticket, bool) {
	if tx.stale {
		tx.ledger.index = entity.IndexTickets(tx.ledger.tickets)
		tx.stale = false
	}
	t, ok := tx.ledger.index[id]
	return t, ok
}

// All returns the live slice for iteration.
func (tx *Tx) All() []entity.Ticket {
	return tx.ledger.tickets
}

// Each runs fn over every live ticket.
func (tx *Tx) Each(fn func(t *entity.Ticket)) {
	for i := range tx.ledger.tickets {
		fn(&tx.ledger.tickets[i])
	}
}

// Insert appends a new ticket and marks the collection changed. The append
// may reallocate, so the id index is refreshed on the next Get.
func (tx *Tx) Insert(t entity.Ticket) {
	tx.ledger.tickets = append(tx.ledger.tickets, t)
	tx.changed = true
	tx.stale = true
}

// Replace swaps in a whole new collection.
func (tx *Tx) Replace(tickets []entity.Ticket) {
	tx.ledger.tickets = tickets
	tx.changed = true
	tx.stale = true
}

// MarkChanged flags an in-place field mutation so the index and order are
// refreshed.
func (tx *Tx) MarkChanged() {
	tx.changed = true
}

// Count returns the live ticket count.
func (tx *Tx) Count() int {
	return len(tx.ledger.tickets)
}
