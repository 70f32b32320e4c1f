// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sitegen/internal/models"
)

const rateKeyPrefix = "ratelimit:"

// hitScript increments the window counter and opens a new window on the
// first hit. Returns {count, window start in unix milliseconds}.
var hitScript = redis.NewScript(`
local count = redis.call('HINCRBY', KEYS[1], 'count', 1)
if count == 1 then
  redis.call('HSET', KEYS[1], 'start', ARGV[1])
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {count, tonumber(redis.call('HGET', KEYS[1], 'start'))}
`)

// RateStore keeps fixed-window counters in Valkey so every gateway
// instance shares them. Windows end when their key expires.
type RateStore struct {
	client *redis.Client
	window time.Duration
}

// NewRateStore creates a Valkey rate store with the given window.
func NewRateStore(client *redis.Client, window time.Duration) *RateStore {
	return &RateStore{client: client, window: window}
}

// Hit records one request for key at now.
func (s *RateStore) Hit(ctx context.Context, key string, now time.Time) (models.RateLimitEntry, error) {
	res, err := hitScript.Run(ctx, s.client, []string{rateKeyPrefix + key}, now.UnixMilli(), s.window.Milliseconds()).Int64Slice()
	if err != nil {
		return models.RateLimitEntry{}, fmt.Errorf("cache rate hit: %w", err)
	}
	if len(res) != 2 {
		return models.RateLimitEntry{}, fmt.Errorf("cache rate hit: unexpected reply %v", res)
	}
	return models.RateLimitEntry{
		ClientKey:   key,
		Count:       int(res[0]),
		WindowStart: time.UnixMilli(res[1]),
	}, nil
}
