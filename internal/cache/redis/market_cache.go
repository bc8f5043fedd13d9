package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prophetmarkets/liquidityd/internal/domain"
)

// MarketCache implements domain.MarketCache using Redis hashes with the
// params and state serialized as separate JSON fields, so a live state
// update never rewrites the immutable params.
//
// Key schema:
//
//	market:{address} - hash with fields "params" and "state"
type MarketCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewMarketCache creates a MarketCache backed by the given Client.
// Snapshots expire after ttl so stale markets fall back to a hub fetch.
func NewMarketCache(c *Client, ttl time.Duration) *MarketCache {
	return &MarketCache{rdb: c.Underlying(), ttl: ttl}
}

func marketKey(address string) string { return "market:" + address }

// Set stores a full market snapshot.
func (mc *MarketCache) Set(ctx context.Context, snap domain.MarketSnapshot) error {
	address := snap.Params.Address

	params, err := json.Marshal(snap.Params)
	if err != nil {
		return fmt.Errorf("redis: marshal params %s: %w", address, err)
	}
	state, err := json.Marshal(snap.State)
	if err != nil {
		return fmt.Errorf("redis: marshal state %s: %w", address, err)
	}

	key := marketKey(address)

	pipe := mc.rdb.TxPipeline()
	pipe.HSet(ctx, key, "params", params, "state", state)
	pipe.Expire(ctx, key, mc.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set market %s: %w", address, err)
	}
	return nil
}

// Get retrieves a market snapshot by AA address.
// It returns domain.ErrNotFound when the key does not exist.
func (mc *MarketCache) Get(ctx context.Context, address string) (domain.MarketSnapshot, error) {
	fields, err := mc.rdb.HMGet(ctx, marketKey(address), "params", "state").Result()
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("redis: get market %s: %w", address, err)
	}
	if len(fields) < 2 || fields[0] == nil || fields[1] == nil {
		return domain.MarketSnapshot{}, domain.ErrNotFound
	}

	var snap domain.MarketSnapshot
	if err := json.Unmarshal([]byte(fields[0].(string)), &snap.Params); err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("redis: unmarshal params %s: %w", address, err)
	}
	if err := json.Unmarshal([]byte(fields[1].(string)), &snap.State); err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("redis: unmarshal state %s: %w", address, err)
	}
	return snap, nil
}

// SetState refreshes only the state field of an already cached market,
// keeping the remaining TTL. Missing markets are left absent; a state
// diff for an uncached market is not enough to reconstruct a snapshot.
func (mc *MarketCache) SetState(ctx context.Context, address string, state domain.MarketState) error {
	key := marketKey(address)

	exists, err := mc.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis: set state %s: %w", address, err)
	}
	if exists == 0 {
		return domain.ErrNotFound
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("redis: marshal state %s: %w", address, err)
	}
	if err := mc.rdb.HSet(ctx, key, "state", data).Err(); err != nil {
		return fmt.Errorf("redis: set state %s: %w", address, err)
	}
	return nil
}

// Invalidate removes a market snapshot from the cache.
func (mc *MarketCache) Invalidate(ctx context.Context, address string) error {
	if err := mc.rdb.Del(ctx, marketKey(address)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis: invalidate market %s: %w", address, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.MarketCache = (*MarketCache)(nil)
