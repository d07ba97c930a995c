package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/vantley/answercore/internal/chunker"
	"github.com/vantley/answercore/internal/embed"
	"github.com/vantley/answercore/internal/vectorstore"
)

func newIngestor(t *testing.T) (*Ingestor, *vectorstore.Memory) {
	t.Helper()
	store := vectorstore.NewMemory()
	provider := embed.NewDeterministic(16)
	return New(provider, store, chunker.DefaultOptions(), nil), store
}

func TestIngestIndexesSources(t *testing.T) {
	ctx := context.Background()
	in, store := newIngestor(t)

	long := strings.Repeat("Refunds are processed within five business days. ", 30)
	manifest, err := in.Ingest(ctx, "tenant1", []Source{
		{Name: "faq.txt", Kind: KindFile, Text: long},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(manifest.Processed) != 1 || manifest.Processed[0].Chunks == 0 {
		t.Fatalf("manifest = %+v, want one processed source with chunks", manifest)
	}

	info, err := store.CollectionInfo(ctx, "tenant1")
	if err != nil {
		t.Fatalf("CollectionInfo: %v", err)
	}
	if !info.Exists || info.Points == 0 || info.Dimension != 16 {
		t.Fatalf("info = %+v, want populated collection at dim 16", info)
	}

	results, err := store.Search(ctx, "tenant1", nil, "refunds processed", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no search results after ingest")
	}
	for _, r := range results {
		if r.Metadata["tenant"] != "tenant1" {
			t.Errorf("chunk metadata tenant = %q, want tenant1", r.Metadata["tenant"])
		}
		if r.Metadata["chunk_index"] == "" {
			t.Errorf("chunk metadata missing chunk_index: %+v", r.Metadata)
		}
	}
}

func TestIngestSkipsMalformedSources(t *testing.T) {
	ctx := context.Background()
	in, _ := newIngestor(t)

	long := strings.Repeat("Support is available on weekdays from nine to five. ", 30)
	manifest, err := in.Ingest(ctx, "tenant1", []Source{
		{Name: "empty.txt", Kind: KindFile, Text: ""},
		{Name: "weird", Kind: "carrier_pigeon", Text: "hello"},
		{Name: "good.txt", Kind: KindFile, Text: long},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(manifest.Processed) != 1 || manifest.Processed[0].Name != "good.txt" {
		t.Fatalf("manifest = %+v, want only good.txt processed", manifest)
	}
}

func TestIngestEmptyCorpusIndexesPlaceholder(t *testing.T) {
	ctx := context.Background()
	in, store := newIngestor(t)

	manifest, err := in.Ingest(ctx, "tenant1", nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if manifest.Message != ErrEmptyCorpus.Error() {
		t.Fatalf("message = %q, want empty-corpus explanation", manifest.Message)
	}

	info, err := store.CollectionInfo(ctx, "tenant1")
	if err != nil {
		t.Fatalf("CollectionInfo: %v", err)
	}
	if !info.Exists || info.Points < 1 {
		t.Fatalf("info = %+v, want placeholder point", info)
	}
}

func TestIngestRebuildReplacesOldContent(t *testing.T) {
	ctx := context.Background()
	in, store := newIngestor(t)

	a := strings.Repeat("The old handbook says office hours are eight to four. ", 30)
	if _, err := in.Ingest(ctx, "tenant1", []Source{{Name: "old", Kind: KindFile, Text: a}}); err != nil {
		t.Fatalf("first Ingest: %v", err)
	}
	first, _ := store.CollectionInfo(ctx, "tenant1")

	b := strings.Repeat("The new handbook says office hours are nine to five. ", 30)
	if _, err := in.Ingest(ctx, "tenant1", []Source{{Name: "new", Kind: KindFile, Text: b}}); err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	second, _ := store.CollectionInfo(ctx, "tenant1")

	// Rebuild drops the old points rather than accumulating.
	if second.Points > first.Points*2 {
		t.Fatalf("points grew from %d to %d, expected full rebuild", first.Points, second.Points)
	}

	results, err := store.Search(ctx, "tenant1", nil, "old handbook", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.Metadata["source"] == "old" {
			t.Fatalf("old source survived rebuild: %+v", r)
		}
	}
}

func TestIngestingFlag(t *testing.T) {
	in, _ := newIngestor(t)
	if in.Ingesting("tenant1") {
		t.Fatal("no ingest running, flag should be false")
	}
}
