// Package vectorstore provides tenant-scoped vector collections with
// similarity search. Two backends implement the same contract: a Qdrant
// gRPC store for production and an in-memory cosine index for tests and
// single-process deployments. Both keep a plain-text mirror of every
// collection so search can degrade to word-overlap ranking whenever the
// vector index cannot serve.
package vectorstore

import (
	"context"
	"errors"
)

// ErrDimensionMismatch reports that a collection holds vectors of a
// different size than the one being written. The Qdrant store resolves it
// by rebuilding the collection; it surfaces only when rebuild fails too.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// ErrIndexUnavailable reports that the vector index cannot be reached.
// Search never returns it; callers see mirror results instead.
var ErrIndexUnavailable = errors.New("vector index unavailable")

// Document is one indexed chunk of text with its embedding.
type Document struct {
	ID       string
	Text     string
	Vector   []float32
	Metadata map[string]string
}

// SearchResult is a single match, ordered by descending score.
type SearchResult struct {
	ID       string
	Text     string
	Score    float32
	Metadata map[string]string
}

// CollectionInfo describes one collection's state.
type CollectionInfo struct {
	Exists    bool
	Points    uint64
	Dimension int
}

// Store is the vector storage contract. Collections are created lazily and
// hold vectors of exactly one dimension each.
type Store interface {
	// EnsureCollection creates the collection if missing. If it exists with
	// a different vector dimension it is rebuilt to the new one; existing
	// points are lost and the caller is expected to re-index.
	EnsureCollection(ctx context.Context, collection string, dim int) error
	// AddDocuments inserts documents in sub-batches, skipping batches that
	// fail. A batch whose vector dimension disagrees with the collection's
	// stored dimension rebuilds the collection at the batch's dimension,
	// discarding prior points; stragglers inside the batch of yet another
	// size are dropped. It returns the number of documents accepted by the
	// index; the text mirror always receives the batch.
	AddDocuments(ctx context.Context, collection string, docs []Document) (int, error)
	// Search returns up to topK matches ordered by descending score. query
	// is the original question text, used for mirror ranking when the
	// vector index cannot serve. An empty or missing collection yields an
	// empty result, not an error.
	Search(ctx context.Context, collection string, vector []float32, query string, topK int) ([]SearchResult, error)
	// Corpus returns the full text of every document in the collection,
	// served from the mirror. Used for lexical passes over content that
	// similarity search did not surface.
	Corpus(ctx context.Context, collection string) []string
	// DeleteCollection removes the collection and its mirror.
	DeleteCollection(ctx context.Context, collection string) error
	// CollectionInfo reports existence, point count and dimension.
	CollectionInfo(ctx context.Context, collection string) (CollectionInfo, error)
	// Close releases backend resources.
	Close() error
}
