package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Memory is a process-local Store with linear cosine search. It honors the
// same contract as the Qdrant store, including dimension rebuilds, and is
// the backend of choice for tests and single-process deployments.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
	mirror      *textMirror
}

type memCollection struct {
	dim  int
	docs []Document
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]*memCollection),
		mirror:      newTextMirror(),
	}
}

func (m *Memory) EnsureCollection(_ context.Context, collection string, dim int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collection]
	if ok && c.dim == dim {
		return nil
	}
	if ok {
		// Dimension changed: rebuild, dropping old points.
		m.mirror.drop(collection)
	}
	m.collections[collection] = &memCollection{dim: dim}
	return nil
}

func (m *Memory) AddDocuments(_ context.Context, collection string, docs []Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	m.mu.Lock()
	c, ok := m.collections[collection]
	if !ok {
		m.mu.Unlock()
		return 0, fmt.Errorf("collection %s does not exist", collection)
	}
	// The batch's dimension wins: a disagreement with the stored dimension
	// rebuilds the collection, discarding prior points. Stragglers inside
	// the batch that differ from its leading dimension are still dropped.
	dim := len(docs[0].Vector)
	if dim != c.dim {
		c = &memCollection{dim: dim}
		m.collections[collection] = c
		m.mirror.drop(collection)
	}
	inserted := 0
	for _, d := range docs {
		if len(d.Vector) != c.dim {
			continue
		}
		c.docs = append(c.docs, d)
		inserted++
	}
	m.mu.Unlock()

	m.mirror.add(collection, docs)
	return inserted, nil
}

func (m *Memory) Search(_ context.Context, collection string, vector []float32, query string, topK int) ([]SearchResult, error) {
	m.mu.RLock()
	c, ok := m.collections[collection]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if len(vector) != c.dim {
		return m.mirror.search(collection, query, topK), nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	results := make([]SearchResult, 0, len(c.docs))
	for _, d := range c.docs {
		results = append(results, SearchResult{
			ID:       d.ID,
			Text:     d.Text,
			Score:    cosine(vector, d.Vector),
			Metadata: d.Metadata,
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (m *Memory) Corpus(_ context.Context, collection string) []string {
	return m.mirror.texts(collection)
}

func (m *Memory) DeleteCollection(_ context.Context, collection string) error {
	m.mirror.drop(collection)
	m.mu.Lock()
	delete(m.collections, collection)
	m.mu.Unlock()
	return nil
}

func (m *Memory) CollectionInfo(_ context.Context, collection string) (CollectionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[collection]
	if !ok {
		return CollectionInfo{}, nil
	}
	return CollectionInfo{Exists: true, Points: uint64(len(c.docs)), Dimension: c.dim}, nil
}

func (m *Memory) Close() error { return nil }

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

var _ Store = (*Memory)(nil)
