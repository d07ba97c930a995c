// Package chunker splits cleaned knowledge-base text into bounded,
// overlapping segments suitable for embedding. Chunking is deterministic:
// the same text with the same parameters always yields the same chunks.
package chunker

import (
	"regexp"
	"strings"
)

// Options bound the size of produced chunks.
type Options struct {
	// ChunkSize is the target chunk length in characters.
	ChunkSize int
	// ChunkOverlap is the overlap carried between fixed-window splits.
	ChunkOverlap int
	// MinChunkSize drops fragments below this length.
	MinChunkSize int
}

// DefaultOptions returns the tuned production defaults.
func DefaultOptions() Options {
	return Options{ChunkSize: 800, ChunkOverlap: 200, MinChunkSize: 100}
}

func (o Options) normalized() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = 800
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		o.ChunkOverlap = o.ChunkSize / 4
	}
	if o.MinChunkSize <= 0 {
		o.MinChunkSize = 100
	}
	return o
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	disallowedRe = regexp.MustCompile(`[^\w\s.,;:!?'"()-]`)
	sentenceRe   = regexp.MustCompile(`[^.!?]+[.!?]*\s*`)
)

// Clean collapses whitespace and strips characters outside the word and
// punctuation allow-list.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = disallowedRe.ReplaceAllString(text, " ")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Chunk splits cleaned text into ordered chunks of at most opts.ChunkSize
// characters. Sentences are packed greedily; a sentence longer than the
// chunk size is hard-split into overlapping windows. When sentence detection
// finds nothing usable the text falls back to fixed character windows.
// Fragments below MinChunkSize are dropped; the caller is responsible for
// emitting a placeholder when that leaves nothing.
func Chunk(text string, opts Options) []string {
	opts = opts.normalized()
	if text == "" {
		return nil
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return windowSplit(text, opts)
	}

	var chunks []string
	var current []string
	currentLen := 0

	for _, sentence := range sentences {
		sentLen := len(sentence)

		if sentLen > opts.ChunkSize {
			if len(current) > 0 {
				flushChunk(&chunks, current, opts)
				current, currentLen = nil, 0
			}
			chunks = append(chunks, windowSplit(sentence, opts)...)
			continue
		}

		// +1 for the joining space.
		joinedLen := currentLen + sentLen
		if currentLen > 0 {
			joinedLen++
		}
		if joinedLen > opts.ChunkSize && len(current) > 0 {
			flushChunk(&chunks, current, opts)
			current, currentLen = nil, 0
		}

		current = append(current, sentence)
		if currentLen > 0 {
			currentLen++
		}
		currentLen += sentLen
	}

	if len(current) > 0 {
		flushChunk(&chunks, current, opts)
	}
	return chunks
}

func flushChunk(chunks *[]string, sentences []string, opts Options) {
	joined := strings.Join(sentences, " ")
	if len(joined) >= opts.MinChunkSize {
		*chunks = append(*chunks, joined)
	}
}

func splitSentences(text string) []string {
	matches := sentenceRe.FindAllString(text, -1)
	sentences := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimSpace(m)
		if m != "" {
			sentences = append(sentences, m)
		}
	}
	return sentences
}

// windowSplit cuts text into fixed-size windows that overlap by
// opts.ChunkOverlap characters.
func windowSplit(text string, opts Options) []string {
	step := opts.ChunkSize - opts.ChunkOverlap
	if step <= 0 {
		step = opts.ChunkSize
	}
	var chunks []string
	for i := 0; i < len(text); i += step {
		end := i + opts.ChunkSize
		if end > len(text) {
			end = len(text)
		}
		window := text[i:end]
		if len(window) >= opts.MinChunkSize {
			chunks = append(chunks, window)
		}
		if end == len(text) {
			break
		}
	}
	return chunks
}
