package answercore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/vantley/answercore/internal/analytics"
	"github.com/vantley/answercore/internal/vectorstore"
)

func newTestEngine(t *testing.T, recorder analytics.Recorder) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Embedding.Provider = "deterministic"
	cfg.Vector.Host = "" // in-memory store

	opts := []Option{WithStore(vectorstore.NewMemory())}
	if recorder != nil {
		opts = append(opts, WithRecorder(recorder))
	}
	e, err := New(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { e.Close(context.Background()) })
	return e
}

func TestEngineIngestAndAnswer(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	text := strings.Repeat("The premium subscription plan includes unlimited storage and priority support. ", 20)
	manifest, err := e.Ingest(ctx, "t1", []Source{
		{Name: "plans.txt", Kind: "file", Text: text},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(manifest.Processed) != 1 {
		t.Fatalf("manifest = %+v", manifest)
	}

	res := e.Answer(ctx, AskRequest{
		Tenant:   "t1",
		Question: "what does the premium subscription plan include",
	})
	if res.Answer == "" {
		t.Fatal("empty answer")
	}
	if res.Confidence < 0 || res.Confidence > 100 {
		t.Fatalf("confidence %f outside [0,100]", res.Confidence)
	}
	if res.Err != nil {
		t.Fatalf("unexpected pipeline error: %v", res.Err)
	}
}

func TestEngineGreetingAgainstEmptyCorpus(t *testing.T) {
	e := newTestEngine(t, nil)

	res := e.Answer(context.Background(), AskRequest{Tenant: "t1", Question: "hi"})
	if res.Tier != 0 || res.Confidence != 100 {
		t.Fatalf("greeting result = %+v", res)
	}
}

func TestEngineShortChunksEngagePlaceholder(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	// Three sub-minimum texts: all dropped by the chunker, so the
	// placeholder document keeps the collection alive.
	if _, err := e.Ingest(ctx, "t1", []Source{
		{Name: "a", Kind: "file", Text: strings.Repeat("x", 50)},
		{Name: "b", Kind: "file", Text: strings.Repeat("y", 50)},
		{Name: "c", Kind: "file", Text: strings.Repeat("z", 50)},
	}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	info, err := e.store.CollectionInfo(ctx, "t1")
	if err != nil {
		t.Fatalf("CollectionInfo: %v", err)
	}
	if !info.Exists || info.Points < 1 {
		t.Fatalf("info = %+v, want placeholder point", info)
	}
}

func TestEngineForgetScopedToTenant(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	e.cache.Set(ctx, "answer:t1:how do refunds work", "cached-t1", time.Minute)
	e.cache.Set(ctx, "answer:t10:how do refunds work", "cached-t10", time.Minute)

	if err := e.Forget(ctx, "t1"); err != nil {
		t.Fatalf("Forget: %v", err)
	}

	if _, ok := e.cache.Get(ctx, "answer:t1:how do refunds work"); ok {
		t.Error("t1 answer survived Forget")
	}
	if _, ok := e.cache.Get(ctx, "answer:t10:how do refunds work"); !ok {
		t.Error("t10 answer was invalidated by forgetting t1")
	}
}

type captureRecorder struct {
	records []analytics.Record
}

func (c *captureRecorder) Record(_ context.Context, rec analytics.Record) {
	c.records = append(c.records, rec)
}

func TestEngineRecordsAnalytics(t *testing.T) {
	rec := &captureRecorder{}
	e := newTestEngine(t, rec)

	e.Answer(context.Background(), AskRequest{Tenant: "t1", Question: "hello"})
	if len(rec.records) != 1 {
		t.Fatalf("recorded %d outcomes, want 1", len(rec.records))
	}
	if rec.records[0].Tier != 0 || rec.records[0].Confidence != 100 {
		t.Fatalf("record = %+v", rec.records[0])
	}
}

func TestEngineForget(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	text := strings.Repeat("Invoices are emailed on the first day of every month to the account owner. ", 20)
	if _, err := e.Ingest(ctx, "t1", []Source{{Name: "billing", Kind: "file", Text: text}}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if err := e.Forget(ctx, "t1"); err != nil {
		t.Fatalf("Forget: %v", err)
	}

	info, err := e.store.CollectionInfo(ctx, "t1")
	if err != nil {
		t.Fatalf("CollectionInfo: %v", err)
	}
	if info.Exists {
		t.Fatalf("collection survived Forget: %+v", info)
	}
}
