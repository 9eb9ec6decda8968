package syncqueue

import "time"

const (
	defaultMaxRetries   = 5
	defaultRetryBackoff = 4 * time.Second
)

// RetryPolicy controls rescheduling of failed queue items. Backoff is linear
// rather than exponential: the queue is small and a bounded worst-case
// latency matters more than load shedding against a single remote store.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: defaultMaxRetries,
		Backoff:    defaultRetryBackoff,
	}
}

// NextDelay returns the delay before the given retry attempt (1-based).
func (p RetryPolicy) NextDelay(retries int) time.Duration {
	if retries < 1 {
		retries = 1
	}
	return p.Backoff * time.Duration(retries)
}

// Exhausted reports whether an item with this retry count must be dropped.
func (p RetryPolicy) Exhausted(retries int) bool {
	return retries > p.MaxRetries
}
