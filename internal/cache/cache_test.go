package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		parts  []string
		want   string
	}{
		{"simple", "answer", []string{"t1", "how do refunds work"}, "answer:t1:how do refunds work"},
		{"skips_empty", "answer", []string{"t1", "", "q"}, "answer:t1:q"},
		{"no_parts", "answer", nil, "answer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.prefix, tt.parts...); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_Deterministic(t *testing.T) {
	a := Key("ctx", "tenant", "question")
	b := Key("ctx", "tenant", "question")
	if a != b {
		t.Errorf("same inputs produced different keys: %q vs %q", a, b)
	}
}

func TestKey_LongKeyHashed(t *testing.T) {
	long := strings.Repeat("x", 500)
	key := Key("answer", long)
	if len(key) > maxKeyLen {
		t.Errorf("hashed key still too long: %d chars", len(key))
	}
	if !strings.HasPrefix(key, "answer:hash:") {
		t.Errorf("expected hash-compacted key, got %q", key)
	}
	if key != Key("answer", long) {
		t.Error("hash compaction not deterministic")
	}
}

func TestMemory_SetGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10)

	m.Set(ctx, "k", "v", time.Minute)
	got, ok := m.Get(ctx, "k")
	if !ok || got != "v" {
		t.Errorf("Get = (%q, %v), want (v, true)", got, ok)
	}

	if _, ok := m.Get(ctx, "missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestMemory_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10)
	now := time.Now()
	m.now = func() time.Time { return now }

	m.Set(ctx, "k", "v", time.Minute)
	now = now.Add(2 * time.Minute)

	if _, ok := m.Get(ctx, "k"); ok {
		t.Error("expected expired entry to be dropped")
	}
}

func TestMemory_Bounded(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)

	m.Set(ctx, "a", "1", time.Minute)
	m.Set(ctx, "b", "2", time.Minute)
	m.Set(ctx, "c", "3", time.Minute)

	// Oldest entry is evicted once the bound is reached.
	if _, ok := m.Get(ctx, "a"); ok {
		t.Error("expected LRU eviction of oldest key")
	}
	if _, ok := m.Get(ctx, "c"); !ok {
		t.Error("newest key should survive")
	}
}

func TestMemory_InvalidatePrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10)

	m.Set(ctx, "answer:t1:q1", "a", time.Minute)
	m.Set(ctx, "answer:t1:q2", "b", time.Minute)
	m.Set(ctx, "answer:t2:q1", "c", time.Minute)

	m.Invalidate(ctx, "answer:t1")

	if _, ok := m.Get(ctx, "answer:t1:q1"); ok {
		t.Error("prefixed key should be invalidated")
	}
	if _, ok := m.Get(ctx, "answer:t2:q1"); !ok {
		t.Error("other tenant's key should survive")
	}

	m.Invalidate(ctx, "")
	if _, ok := m.Get(ctx, "answer:t2:q1"); ok {
		t.Error("empty prefix should clear everything")
	}
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10)
	m.Set(ctx, "k", "v", time.Minute)
	m.Delete(ctx, "k")
	if _, ok := m.Get(ctx, "k"); ok {
		t.Error("deleted key should be gone")
	}
}
