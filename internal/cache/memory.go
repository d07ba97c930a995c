package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// Memory is a bounded in-process cache with per-entry TTL. Eviction is LRU
// once the configured size is reached; expired entries are dropped lazily on
// read. Safe for concurrent use.
type Memory struct {
	mu  sync.Mutex
	lru *lru.Cache[string, entry]
	now func() time.Time
}

// NewMemory creates an in-process cache holding at most maxItems entries.
func NewMemory(maxItems int) *Memory {
	if maxItems <= 0 {
		maxItems = 1000
	}
	l, _ := lru.New[string, entry](maxItems)
	return &Memory{lru: l, now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lru.Get(key)
	if !ok {
		return "", false
	}
	if m.now().After(e.expiresAt) {
		m.lru.Remove(key)
		return "", false
	}
	return e.value, true
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Add(key, entry{value: value, expiresAt: m.now().Add(ttl)})
}

func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Remove(key)
}

func (m *Memory) Invalidate(_ context.Context, prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prefix == "" {
		m.lru.Purge()
		return
	}
	for _, key := range m.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			m.lru.Remove(key)
		}
	}
}

var _ Cache = (*Memory)(nil)
