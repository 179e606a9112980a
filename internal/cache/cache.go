// Package cache memoizes parsed query modules by content hash.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// NoExpiration keeps an entry until it is deleted.
const NoExpiration time.Duration = 0

// Cache is a keyed store of values of type V.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// ComputeKey generates a cache key from content using SHA-256.
func ComputeKey(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:16]) // use first 128 bits
}

// ComputeKeyWithPrefix generates a cache key with a prefix.
func ComputeKeyWithPrefix(prefix string, content []byte) string {
	return fmt.Sprintf("%s:%s", prefix, ComputeKey(content))
}

// Entry is a cached value with its expiry. A zero ExpiresAt never expires.
type Entry[V any] struct {
	Value     V
	ExpiresAt time.Time
}

// IsExpired reports whether the entry has expired at now.
func (e *Entry[V]) IsExpired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}
