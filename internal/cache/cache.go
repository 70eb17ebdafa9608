// Package cache keeps recent crawl results in Redis so repeated requests for
// the same listing do not launch a browser.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/storefront-crawler/internal/crawler"
	"github.com/maltedev/storefront-crawler/internal/extract"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "crawl:result:"

// RedisClient is the subset of the Redis client the cache needs.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// ResultCache stores extraction results with a TTL. Cache failures are
// logged and treated as misses.
type ResultCache struct {
	redis  RedisClient
	ttl    time.Duration
	logger *slog.Logger
}

func New(client RedisClient, ttl time.Duration, logger *slog.Logger) *ResultCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultCache{
		redis:  client,
		ttl:    ttl,
		logger: logger.With("component", "cache"),
	}
}

func (c *ResultCache) Get(ctx context.Context, req crawler.Request) (*extract.Result, bool) {
	data, err := c.redis.Get(ctx, Key(req)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("failed to read cached result", "url", req.URL, "error", err)
		}
		return nil, false
	}

	var result extract.Result
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("failed to decode cached result", "url", req.URL, "error", err)
		return nil, false
	}
	return &result, true
}

func (c *ResultCache) Set(ctx context.Context, req crawler.Request, result *extract.Result) {
	if err := c.set(ctx, req, result); err != nil {
		c.logger.Warn("failed to cache result", "url", req.URL, "error", err)
	}
}

func (c *ResultCache) set(ctx context.Context, req crawler.Request, result *extract.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := c.redis.Set(ctx, Key(req), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write to redis: %w", err)
	}
	return nil
}

// Key derives the Redis key for a request. The base URL is part of the key
// because it decides link resolution and the same-site filter.
func Key(req crawler.Request) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", req.URL, req.BaseURL, req.Limit)))
	return keyPrefix + hex.EncodeToString(sum[:])
}
