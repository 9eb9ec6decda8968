package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/Numzn/NUMZSCAN-APP/internal/entity"
)

// RedisBackend stores each ticket as a hash field keyed by ticket id, so the
// keyed-collection semantics (last write under a given id wins) hold at the
// storage layer. Blobs are plain keys under the same namespace.
type RedisBackend struct {
	client    *redis.Client
	namespace string
}

func NewRedisBackend(client *redis.Client, namespace string) *RedisBackend {
	if namespace == "" {
		namespace = "numzscan"
	}
	return &RedisBackend{client: client, namespace: namespace}
}

func (r *RedisBackend) Name() string { return "redis" }

func (r *RedisBackend) ticketsKey() string {
	return r.namespace + ":tickets"
}

func (r *RedisBackend) blobKey(key string) string {
	return r.namespace + ":blob:" + key
}

func (r *RedisBackend) LoadTickets(ctx context.Context) ([]entity.Ticket, error) {
	rows, err := r.client.HGetAll(ctx, r.ticketsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load failed: %w", err)
	}
	tickets := make([]entity.Ticket, 0, len(rows))
	for id, raw := range rows {
		var t entity.Ticket
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, fmt.Errorf("corrupt ticket record %q: %w", id, err)
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

// SaveTickets replaces the whole collection in one transaction: the clear and
// every write land atomically, so concurrent readers see either the old or
// the new snapshot.
func (r *RedisBackend) SaveTickets(ctx context.Context, tickets []entity.Ticket) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.ticketsKey())
	for _, t := range tickets {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to marshal ticket %q: %w", t.ID, err)
		}
		pipe.HSet(ctx, r.ticketsKey(), t.ID, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save failed: %w", err)
	}
	return nil
}

func (r *RedisBackend) LoadBlob(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.blobKey(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis blob load failed: %w", err)
	}
	return data, nil
}

func (r *RedisBackend) SaveBlob(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, r.blobKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("redis blob save failed: %w", err)
	}
	return nil
}
