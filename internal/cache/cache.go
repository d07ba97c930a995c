// Package cache provides TTL-bounded key/value caching for answers and
// retrieval results. Two backends exist: an in-process LRU store and a
// Redis-backed store that degrades to the in-process store when Redis is
// unreachable. Callers select the backend through configuration and interact
// only with Cache.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// Cache is the store-agnostic caching contract. Implementations never return
// errors: a cache miss and a backend failure look the same to the caller.
type Cache interface {
	// Get returns the cached value and whether it was present and unexpired.
	Get(ctx context.Context, key string) (string, bool)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key, value string, ttl time.Duration)
	// Delete removes a single key.
	Delete(ctx context.Context, key string)
	// Invalidate removes all keys sharing prefix. An empty prefix clears
	// the whole cache.
	Invalidate(ctx context.Context, prefix string)
}

const maxKeyLen = 250

// Key builds a deterministic cache key from a prefix and parts. Oversized
// keys are compacted to a hash so backends with key-length limits stay happy.
func Key(prefix string, parts ...string) string {
	b := strings.Builder{}
	b.WriteString(prefix)
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(":")
		b.WriteString(p)
	}
	key := b.String()
	if len(key) > maxKeyLen {
		sum := md5.Sum([]byte(key))
		key = prefix + ":hash:" + hex.EncodeToString(sum[:])
	}
	return key
}
