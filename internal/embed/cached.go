package embed

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vantley/answercore/internal/observability"
)

const defaultCacheSize = 4096

// Cached wraps a provider with a bounded in-memory LRU keyed by text, so
// re-indexing the same corpus or answering repeated questions does not
// recompute vectors.
type Cached struct {
	inner Provider
	lru   *lru.Cache[string, []float32]
}

// NewCached wraps inner with a cache of at most size entries.
func NewCached(inner Provider, size int) (*Cached, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, lru: c}, nil
}

func (c *Cached) Name() string   { return c.inner.Name() }
func (c *Cached) Dimension() int { return c.inner.Dimension() }

// Embed serves hits from the cache and delegates only the misses, preserving
// input order in the result.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if vec, ok := c.lru.Get(text); ok {
			vectors[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return vectors, nil
	}

	spanCtx, span := observability.StartEmbedSpan(ctx, c.inner.Name(), len(missTexts))
	computed, err := c.inner.Embed(spanCtx, missTexts)
	if err != nil {
		observability.RecordError(span, err)
		span.End()
		return nil, err
	}
	span.End()
	for j, vec := range computed {
		vectors[missIdx[j]] = vec
		c.lru.Add(missTexts[j], vec)
	}
	return vectors, nil
}

// Close releases the inner provider's resources, if it holds any.
func (c *Cached) Close() error {
	if closer, ok := c.inner.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

var _ Provider = (*Cached)(nil)
