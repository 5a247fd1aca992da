// Package cache stores JSON values in Redis with per-entry TTLs. Every
// operation fails open: a missing or unreachable store turns reads into
// misses and writes into no-ops.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/multimodal-agent/server/internal/infra"
)

// Cache wraps a Redis client. The zero value and a nil *Cache are valid and
// behave as an always-missing store.
type Cache struct {
	client redis.Cmdable
	logger *infra.Logger
}

// New returns a Cache over client. Pass a nil client to disable caching.
func New(client redis.Cmdable, logger *infra.Logger) *Cache {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Cache{client: client, logger: logger}
}

// Enabled reports whether a store is attached.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get decodes the value under key into dest. It returns false on a miss, a
// decode failure or any store error.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if !c.Enabled() {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache: get failed")
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache: decode failed")
		return false
	}
	return true
}

// Set stores value as JSON under key. A non-positive ttl stores without
// expiry.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if !c.Enabled() {
		return false
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache: encode failed")
		return false
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache: set failed")
		return false
	}
	return true
}

// Delete removes key. Deleting an absent key succeeds.
func (c *Cache) Delete(ctx context.Context, key string) bool {
	if !c.Enabled() {
		return false
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache: delete failed")
		return false
	}
	return true
}

// Ping checks the store. It returns nil when caching is disabled.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// GenerateKey joins prefix and parts with ':'. Parts are not escaped.
func GenerateKey(prefix string, parts ...string) string {
	if len(parts) == 0 {
		return prefix
	}
	return prefix + ":" + strings.Join(parts, ":")
}

// HashPrompt returns the first 16 hex characters of sha256("model:prompt").
func HashPrompt(prompt, model string) string {
	sum := sha256.Sum256([]byte(model + ":" + prompt))
	return hex.EncodeToString(sum[:])[:16]
}
