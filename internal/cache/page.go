// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// pageKeyPrefix is the Valkey key prefix for rendered pages.
	pageKeyPrefix = "site:"

	// DefaultPageTTL is how long a rendered page stays cached.
	DefaultPageTTL = 5 * time.Minute
)

// PageCache keeps rendered site pages in Valkey. Documents never change
// once stored, so entries only leave the cache by TTL or invalidation.
// Cache failures are logged and treated as misses.
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPageCache creates a new page cache backed by the given Valkey client.
func NewPageCache(client *redis.Client, ttl time.Duration) *PageCache {
	if ttl == 0 {
		ttl = DefaultPageTTL
	}
	return &PageCache{client: client, ttl: ttl}
}

// PageKey returns the cache key of one page of a site.
func PageKey(siteID, page string) string {
	return pageKeyPrefix + siteID + ":" + page
}

// Get retrieves cached HTML for a page. The second result reports a hit.
func (pc *PageCache) Get(ctx context.Context, siteID, page string) ([]byte, bool) {
	key := PageKey(siteID, page)
	val, err := pc.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("page cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("page cache hit", "key", key)
	return val, true
}

// Set stores rendered HTML for a page with the configured TTL.
func (pc *PageCache) Set(ctx context.Context, siteID, page string, html []byte) {
	key := PageKey(siteID, page)
	if err := pc.client.Set(ctx, key, html, pc.ttl).Err(); err != nil {
		slog.Warn("page cache set error", "key", key, "error", err)
	}
}

// InvalidateSite removes every cached page of a site.
func (pc *PageCache) InvalidateSite(ctx context.Context, siteID string) int {
	return pc.deleteMatching(ctx, pageKeyPrefix+siteID+":*")
}

// InvalidateAll removes all cached pages. Used when templates change,
// since any page could be affected.
func (pc *PageCache) InvalidateAll(ctx context.Context) int {
	deleted := pc.deleteMatching(ctx, pageKeyPrefix+"*")
	if deleted > 0 {
		slog.Info("page cache fully cleared", "deleted", deleted)
	}
	return deleted
}

func (pc *PageCache) deleteMatching(ctx context.Context, pattern string) int {
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := pc.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			slog.Warn("page cache scan error", "pattern", pattern, "error", err)
			return deleted
		}
		if len(keys) > 0 {
			if err := pc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("page cache bulk delete error", "error", err)
			} else {
				deleted += len(keys)
			}
		}
		cursor = nextCursor
		if cursor == 0 {
			return deleted
		}
	}
}
