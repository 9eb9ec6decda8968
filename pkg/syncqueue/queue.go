// Package syncqueue implements the durable outbound mutation queue. Local
// mutations append items here; Flush drains them through a Dispatcher with
// retry and linear backoff, surviving restarts via a Persister.
package syncqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Numzn/NUMZSCAN-APP/internal/entity"
)

// Dispatcher delivers one queue item to the remote store. Dispatch must be
// idempotent for createTicket replays (the remote treats duplicate-id creates
// as merges), because a retry after a timeout may resubmit an accepted write.
type Dispatcher interface {
	Dispatch(ctx context.Context, item entity.QueueItem) error
}

// Persister stores the queue and the last-sync marker across restarts.
type Persister interface {
	LoadQueue(ctx context.Context) ([]entity.QueueItem, error)
	SaveQueue(ctx context.Context, items []entity.QueueItem) error
	LoadLastSync(ctx context.Context) (*time.Time, error)
	SaveLastSync(ctx context.Context, t time.Time) error
}

// StatusObserver receives a status snapshot after every queue state change.
type StatusObserver func(entity.SyncState)

// ErrorObserver receives terminal and transient sync errors; a nil error
// clears any previously reported condition.
type ErrorObserver func(error)

// Queue is the process-wide sync queue. At most one Flush is in flight at a
// time; concurrent calls are no-ops that still notify observers.
type Queue struct {
	mu           sync.Mutex
	items        []entity.QueueItem
	syncing      bool
	lastSyncAt   *time.Time
	policy       RetryPolicy
	dispatcher   Dispatcher
	persister    Persister
	online       func() bool
	observers    map[int]StatusObserver
	errObservers map[int]ErrorObserver
	nextObserver int

	// afterFunc schedules a deferred re-flush; replaced in tests.
	afterFunc func(d time.Duration, f func())
}

func New(dispatcher Dispatcher, persister Persister, online func() bool, policy RetryPolicy) *Queue {
	if online == nil {
		online = func() bool { return true }
	}
	if policy.MaxRetries == 0 {
		policy = DefaultRetryPolicy()
	}
	return &Queue{
		policy:       policy,
		dispatcher:   dispatcher,
		persister:    persister,
		online:       online,
		observers:    make(map[int]StatusObserver),
		errObservers: make(map[int]ErrorObserver),
		afterFunc:    func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// Restore loads persisted queue state. A corrupt or missing snapshot resets
// the queue rather than failing startup.
func (q *Queue) Restore(ctx context.Context) {
	q.mu.Lock()
	items, err := q.persister.LoadQueue(ctx)
	if err != nil {
		logrus.Warnf("failed to restore sync queue, starting empty: %v", err)
		items = nil
	}
	q.items = items
	if last, err := q.persister.LoadLastSync(ctx); err == nil {
		q.lastSyncAt = last
	}
	q.mu.Unlock()
	q.notify()
}

// Enqueue appends a mutation and persists the queue immediately. The returned
// id identifies the item for later removal.
func (q *Queue) Enqueue(ctx context.Context, mutation entity.MutationType, payload interface{}) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s payload: %w", mutation, err)
	}
	item := entity.QueueItem{
		ID:        uuid.NewString(),
		Type:      mutation,
		Payload:   raw,
		Retries:   0,
		CreatedAt: time.Now().UTC(),
	}

	q.mu.Lock()
	q.items = append(q.items, item)
	q.persistLocked(ctx)
	q.mu.Unlock()

	q.notify()
	return item.ID, nil
}

// Flush drains the queue in FIFO order. Offline it reports immediately
// without touching the queue; while another flush is in flight it is a no-op
// that still updates observers. Per-item failures are isolated: a failed item
// has its retry count bumped and is rescheduled after Backoff*retries, or
// dropped with a terminal error once past MaxRetries.
func (q *Queue) Flush(ctx context.Context) error {
	if !q.online() {
		q.notify()
		q.notifyError(entity.ErrOffline)
		return entity.ErrOffline
	}

	q.mu.Lock()
	if q.syncing {
		q.mu.Unlock()
		q.notify()
		return nil
	}
	if len(q.items) == 0 {
		q.mu.Unlock()
		q.notify()
		q.notifyError(nil)
		return nil
	}
	q.syncing = true
	snapshot := make([]entity.QueueItem, len(q.items))
	copy(snapshot, q.items)
	q.mu.Unlock()
	q.notify()

	var firstErr error
	reschedule := time.Duration(0)

	for _, item := range snapshot {
		err := q.dispatcher.Dispatch(ctx, item)
		if err == nil {
			q.remove(ctx, item.ID)
			continue
		}

		logrus.Errorf("failed to sync queue item %s (%s): %v", item.ID, item.Type, err)
		q.notifyError(err)
		if firstErr == nil {
			firstErr = err
		}

		retries := q.bumpRetries(ctx, item.ID)
		if q.policy.Exhausted(retries) {
			logrus.Errorf("dropping queue item %s after %d retries", item.ID, retries-1)
			q.remove(ctx, item.ID)
			q.notifyError(fmt.Errorf("%w: %s %s: %v", entity.ErrQueueItemDropped, item.Type, item.ID, err))
			continue
		}
		if delay := q.policy.NextDelay(retries); reschedule == 0 || delay < reschedule {
			reschedule = delay
		}
	}

	now := time.Now().UTC()
	q.mu.Lock()
	q.syncing = false
	if firstErr == nil {
		q.lastSyncAt = &now
		if err := q.persister.SaveLastSync(ctx, now); err != nil {
			logrus.Warnf("failed to persist last sync marker: %v", err)
		}
	}
	q.persistLocked(ctx)
	q.mu.Unlock()

	if firstErr == nil {
		q.notifyError(nil)
	} else if reschedule > 0 {
		q.afterFunc(reschedule, func() {
			if err := q.Flush(context.Background()); err != nil {
				logrus.Debugf("scheduled flush: %v", err)
			}
		})
	}
	q.notify()
	return firstErr
}

// Pending returns the number of queued mutations.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Items returns a copy of the queued mutations in order.
func (q *Queue) Items() []entity.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]entity.QueueItem, len(q.items))
	copy(out, q.items)
	return out
}

// State returns the current status snapshot.
func (q *Queue) State() entity.SyncState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stateLocked()
}

// LastSyncAt returns the time of the last fully successful flush.
func (q *Queue) LastSyncAt() *time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastSyncAt
}

// SetLastSyncAt records an externally driven sync checkpoint (the
// reconciliation engine advances it after a full pull).
func (q *Queue) SetLastSyncAt(ctx context.Context, t time.Time) {
	q.mu.Lock()
	q.lastSyncAt = &t
	if err := q.persister.SaveLastSync(ctx, t); err != nil {
		logrus.Warnf("failed to persist last sync marker: %v", err)
	}
	q.mu.Unlock()
	q.notify()
}

// OnStatusChange registers an observer; it is invoked immediately with the
// current state. The returned function unsubscribes.
func (q *Queue) OnStatusChange(observer StatusObserver) func() {
	q.mu.Lock()
	id := q.nextObserver
	q.nextObserver++
	q.observers[id] = observer
	state := q.stateLocked()
	q.mu.Unlock()

	observer(state)
	return func() {
		q.mu.Lock()
		delete(q.observers, id)
		q.mu.Unlock()
	}
}

// OnError registers an error observer. The returned function unsubscribes.
func (q *Queue) OnError(observer ErrorObserver) func() {
	q.mu.Lock()
	id := q.nextObserver
	q.nextObserver++
	q.errObservers[id] = observer
	q.mu.Unlock()

	return func() {
		q.mu.Lock()
		delete(q.errObservers, id)
		q.mu.Unlock()
	}
}

func (q *Queue) stateLocked() entity.SyncState {
	return entity.SyncState{
		Pending:    len(q.items),
		Syncing:    q.syncing,
		LastSyncAt: q.lastSyncAt,
		Online:     q.online(),
	}
}

func (q *Queue) remove(ctx context.Context, id string) {
	q.mu.Lock()
	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			break
		}
	}
	q.persistLocked(ctx)
	q.mu.Unlock()
	q.notify()
}

func (q *Queue) bumpRetries(ctx context.Context, id string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.items {
		if q.items[i].ID == id {
			q.items[i].Retries++
			q.persistLocked(ctx)
			return q.items[i].Retries
		}
	}
	return q.policy.MaxRetries + 1
}

func (q *Queue) persistLocked(ctx context.Context) {
	if err := q.persister.SaveQueue(ctx, q.items); err != nil {
		logrus.Errorf("failed to persist sync queue: %v", err)
	}
}

func (q *Queue) notify() {
	q.mu.Lock()
	state := q.stateLocked()
	observers := make([]StatusObserver, 0, len(q.observers))
	for _, o := range q.observers {
		observers = append(observers, o)
	}
	q.mu.Unlock()

	for _, o := range observers {
		o(state)
	}
}

func (q *Queue) notifyError(err error) {
	q.mu.Lock()
	observers := make([]ErrorObserver, 0, len(q.errObservers))
	for _, o := range q.errObservers {
		observers = append(observers, o)
	}
	q.mu.Unlock()

	for _, o := range observers {
		o(err)
	}
}
