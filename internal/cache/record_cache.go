// Package cache keeps recently read OEM returns in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/returnsdesk/oem-returns/internal/domain"
)

const keyPrefix = "oem_return:"

// RecordCache stores returns keyed by id. Set never replaces an entry with an
// older UpdatedAt, so a slow read-through cannot undo a fresher write.
type RecordCache interface {
	Get(ctx context.Context, id string) (*domain.OEMReturn, bool, error)
	Set(ctx context.Context, record *domain.OEMReturn) error
	Invalidate(ctx context.Context, id string) error
}

type redisRecordCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRecordCache returns a cache backed by client. A nil client yields a
// cache that never hits.
func NewRedisRecordCache(client *redis.Client, ttl time.Duration) RecordCache {
	if client == nil {
		return noopCache{}
	}
	return &redisRecordCache{client: client, ttl: ttl}
}

// Key returns the Redis key for a return id.
func Key(id string) string {
	return keyPrefix + id
}

func (c *redisRecordCache) Get(ctx context.Context, id string) (*domain.OEMReturn, bool, error) {
	raw, err := c.client.Get(ctx, Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var record domain.OEMReturn
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, false, err
	}
	return &record, true, nil
}

// Set stores record unless the cached copy is newer. A write that races
// another writer of the same key evicts the key instead.
func (c *redisRecordCache) Set(ctx context.Context, record *domain.OEMReturn) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	key := Key(record.ID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var cached domain.OEMReturn
			if json.Unmarshal(current, &cached) == nil && Supersedes(&cached, record) {
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, c.ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return c.client.Del(ctx, key).Err()
	}
	return err
}

func (c *redisRecordCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, Key(id)).Err()
}

// Supersedes reports whether cached was written after incoming and must not be
// replaced by it.
func Supersedes(cached, incoming *domain.OEMReturn) bool {
	return cached.UpdatedAt.After(incoming.UpdatedAt)
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*domain.OEMReturn, bool, error) {
	return nil, false, nil
}

func (noopCache) Set(context.Context, *domain.OEMReturn) error { return nil }

func (noopCache) Invalidate(context.Context, string) error { return nil }
