package embed

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHashVector(t *testing.T) {
	a := HashVector("how do I reset my password", 384)
	b := HashVector("how do I reset my password", 384)
	c := HashVector("what are your opening hours", 384)

	if len(a) != 384 {
		t.Fatalf("dimension = %d, want 384", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same text produced different vectors at index %d", i)
		}
	}

	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different texts produced identical vectors")
	}

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-5 {
		t.Fatalf("vector norm = %f, want 1", math.Sqrt(norm))
	}
}

func TestDeterministicEmbed(t *testing.T) {
	p := NewDeterministic(0)
	if p.Dimension() != 384 {
		t.Fatalf("default dimension = %d, want 384", p.Dimension())
	}

	vecs, err := p.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vecs))
	}
	for i, v := range vecs {
		if len(v) != 384 {
			t.Fatalf("vector %d dimension = %d, want 384", i, len(v))
		}
	}
}

func TestNewProviderExplicit(t *testing.T) {
	p, err := NewProvider(context.Background(), Options{Provider: "deterministic", Dimension: 128})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Name() != "deterministic" || p.Dimension() != 128 {
		t.Fatalf("got %s/%d, want deterministic/128", p.Name(), p.Dimension())
	}

	if _, err := NewProvider(context.Background(), Options{Provider: "quantum"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewProviderAutoFallsBackToDeterministic(t *testing.T) {
	// No local model on disk, no API key, no Ollama host.
	p, err := NewProvider(context.Background(), Options{Provider: "auto"})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Name() != "deterministic" {
		t.Fatalf("auto selected %s, want deterministic", p.Name())
	}
}

func TestOpenAIEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		type item struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		resp := struct {
			Data []item `json:"data"`
		}{}
		// Return out of order to exercise index placement.
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, item{Embedding: []float32{float32(i), 1}, Index: i})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewOpenAI("key", "", srv.URL, 2, nil)
	vecs, err := p.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vecs))
	}
	// Batches of 2: first batch indexes 0,1; second batch index 0.
	if vecs[0][0] != 0 || vecs[1][0] != 1 || vecs[2][0] != 0 {
		t.Fatalf("vectors placed out of order: %v", vecs)
	}
}

func TestOpenAIEmbedDegradesOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewOpenAI("key", "", srv.URL, 50, nil)
	vecs, err := p.Embed(context.Background(), []string{"hello", "world"})
	if err != nil {
		t.Fatalf("Embed should not fail: %v", err)
	}
	want := HashVector("hello", p.Dimension())
	for i := range want {
		if vecs[0][i] != want[i] {
			t.Fatal("degraded vector does not match deterministic fallback")
		}
	}
}

func TestOllamaEmbed(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{0.1, 0.2}})
	}))
	defer srv.Close()

	p := NewOllama(srv.URL, "", nil)
	vecs, err := p.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if calls != 3 {
		t.Fatalf("server called %d times, want one call per text", calls)
	}
	if len(vecs) != 3 || len(vecs[0]) != 2 {
		t.Fatalf("unexpected vectors: %v", vecs)
	}
}

type countingProvider struct {
	calls int
	texts int
}

func (c *countingProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.texts += len(texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = HashVector(t, 8)
	}
	return out, nil
}

func (c *countingProvider) Dimension() int { return 8 }
func (c *countingProvider) Name() string   { return "counting" }

func TestCachedEmbed(t *testing.T) {
	inner := &countingProvider{}
	p, err := NewCached(inner, 16)
	if err != nil {
		t.Fatalf("NewCached: %v", err)
	}

	ctx := context.Background()
	first, err := p.Embed(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	second, err := p.Embed(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if inner.texts != 3 {
		t.Fatalf("inner embedded %d texts, want 3 (a, b cached)", inner.texts)
	}
	for i := range first[0] {
		if first[0][i] != second[0][i] {
			t.Fatal("cached vector differs from original")
		}
	}
	if len(second) != 3 {
		t.Fatalf("got %d vectors, want 3", len(second))
	}
}
