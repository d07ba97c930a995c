package vectorstore

import (
	"sort"
	"strings"
	"sync"
)

// textMirror keeps a plain-text copy of every indexed document per
// collection. It is the degraded search path: when the vector index is
// unreachable or mid-rebuild, queries are answered by word-overlap ranking
// against the mirror instead of failing.
type textMirror struct {
	mu   sync.RWMutex
	docs map[string][]mirrorDoc
}

type mirrorDoc struct {
	id       string
	text     string
	metadata map[string]string
}

func newTextMirror() *textMirror {
	return &textMirror{docs: make(map[string][]mirrorDoc)}
}

func (m *textMirror) add(collection string, docs []Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		m.docs[collection] = append(m.docs[collection], mirrorDoc{
			id:       d.ID,
			text:     d.Text,
			metadata: d.Metadata,
		})
	}
}

func (m *textMirror) drop(collection string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, collection)
}

func (m *textMirror) count(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs[collection])
}

func (m *textMirror) texts(collection string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.docs[collection]))
	for _, d := range m.docs[collection] {
		out = append(out, d.text)
	}
	return out
}

// search ranks mirror documents by the fraction of query words they
// contain. Zero-overlap documents are excluded.
func (m *textMirror) search(collection, query string, topK int) []SearchResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	queryWords := tokenize(query)
	if len(queryWords) == 0 {
		return nil
	}

	var results []SearchResult
	for _, d := range m.docs[collection] {
		docWords := tokenize(d.text)
		overlap := 0
		for w := range queryWords {
			if docWords[w] {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		results = append(results, SearchResult{
			ID:       d.id,
			Text:     d.text,
			Score:    float32(overlap) / float32(len(queryWords)),
			Metadata: d.metadata,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

func tokenize(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?'\"()")
		if w != "" {
			words[w] = true
		}
	}
	return words
}
