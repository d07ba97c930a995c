package chunker

import (
	"reflect"
	"strings"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"collapses_whitespace", "a  b\n\tc", "a b c"},
		{"strips_special", "price: $20 @ store #3", "price: 20 store 3"},
		{"keeps_punctuation", "Done. Really? Yes!", "Done. Really? Yes!"},
		{"trims", "  hello  ", "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestChunk_Deterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 60)
	text = Clean(text)
	a := Chunk(text, DefaultOptions())
	b := Chunk(text, DefaultOptions())
	if !reflect.DeepEqual(a, b) {
		t.Error("chunking the same text twice produced different results")
	}
	if len(a) == 0 {
		t.Fatal("expected chunks for long text")
	}
}

func TestChunk_BoundedSize(t *testing.T) {
	opts := DefaultOptions()
	text := Clean(strings.Repeat("Support tickets are answered within two business days. ", 80))
	chunks := Chunk(text, opts)
	for i, c := range chunks {
		if len(c) > opts.ChunkSize {
			t.Errorf("chunk %d exceeds size limit: %d > %d", i, len(c), opts.ChunkSize)
		}
	}
}

func TestChunk_MonotonicOrder(t *testing.T) {
	// Each chunk's first sentence must appear in the source at or after the
	// previous chunk's start.
	text := Clean(strings.Repeat("Billing happens monthly on the first day. Refunds take five days. ", 40))
	chunks := Chunk(text, DefaultOptions())
	prev := -1
	searchFrom := 0
	for i, c := range chunks {
		idx := strings.Index(text[searchFrom:], c[:40])
		if idx < 0 {
			t.Fatalf("chunk %d not found in source from offset %d", i, searchFrom)
		}
		abs := searchFrom + idx
		if abs <= prev {
			t.Errorf("chunk %d starts at %d, before previous start %d", i, abs, prev)
		}
		prev = abs
		searchFrom = abs + 1
	}
}

func TestChunk_LongSentenceHardSplit(t *testing.T) {
	opts := Options{ChunkSize: 100, ChunkOverlap: 20, MinChunkSize: 10}
	// One giant "sentence" with no terminators.
	text := strings.Repeat("abcdefghij", 50)
	chunks := Chunk(text, opts)
	if len(chunks) < 2 {
		t.Fatalf("expected long sentence to be split, got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > opts.ChunkSize {
			t.Errorf("window %d exceeds size: %d", i, len(c))
		}
	}
	// Consecutive windows share the configured overlap.
	first, second := chunks[0], chunks[1]
	if !strings.HasPrefix(second, first[len(first)-opts.ChunkOverlap:]) {
		t.Error("expected windows to overlap")
	}
}

func TestChunk_DropsFragments(t *testing.T) {
	opts := Options{ChunkSize: 800, ChunkOverlap: 200, MinChunkSize: 100}
	chunks := Chunk("Too short to index.", opts)
	if len(chunks) != 0 {
		t.Errorf("expected sub-minimum text to produce no chunks, got %v", chunks)
	}
}

func TestChunk_Empty(t *testing.T) {
	if got := Chunk("", DefaultOptions()); got != nil {
		t.Errorf("expected nil for empty text, got %v", got)
	}
}
