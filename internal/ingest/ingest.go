// Package ingest turns raw tenant sources into an indexed knowledge base.
// Sources are cleaned, chunked, embedded in bulk and written into the
// tenant's vector collection, which is rebuilt on every run so the index
// always reflects exactly the latest upload.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/vantley/answercore/internal/chunker"
	"github.com/vantley/answercore/internal/embed"
	"github.com/vantley/answercore/internal/vectorstore"
)

// ErrMalformedInput reports a source that cannot be processed. Malformed
// sources are skipped and logged, never fatal to the run.
var ErrMalformedInput = errors.New("malformed source")

// ErrEmptyCorpus reports that a run produced no usable chunks. The index
// still gets a placeholder document so search stays operational.
var ErrEmptyCorpus = errors.New("no usable content in sources")

// Source kinds accepted by Ingest.
const (
	KindFile       = "file"
	KindWeb        = "web"
	KindFolderFile = "folder_file"
	KindDatabase   = "database"
)

// placeholderText is indexed when a tenant has no usable content, keeping
// the collection non-empty so downstream search never hits a missing index.
const placeholderText = "No knowledge base content has been uploaded yet. " +
	"Add documents, web pages or database exports to start answering questions."

// Source is one unit of tenant content to index.
type Source struct {
	Name string
	Kind string
	Text string
}

// SourceRef records one processed source in the manifest.
type SourceRef struct {
	Name   string
	Kind   string
	Chunks int
}

// Manifest summarizes an ingest run.
type Manifest struct {
	Processed []SourceRef
	Message   string
}

// Ingestor rebuilds tenant collections from sources. Runs for the same
// tenant are serialized; Ingesting reports an in-flight run so searches can
// avoid the half-built index.
type Ingestor struct {
	provider embed.Provider
	store    vectorstore.Store
	opts     chunker.Options
	log      *slog.Logger

	mu    sync.Mutex
	locks map[string]*tenantLock
}

type tenantLock struct {
	mu   sync.Mutex
	busy bool
}

// New creates an Ingestor.
func New(provider embed.Provider, store vectorstore.Store, opts chunker.Options, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		provider: provider,
		store:    store,
		opts:     opts,
		log:      logger,
		locks:    make(map[string]*tenantLock),
	}
}

// Ingesting reports whether an ingest run for tenant is in flight.
func (in *Ingestor) Ingesting(tenant string) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	l, ok := in.locks[tenant]
	return ok && l.busy
}

func (in *Ingestor) lock(tenant string) *tenantLock {
	in.mu.Lock()
	l, ok := in.locks[tenant]
	if !ok {
		l = &tenantLock{}
		in.locks[tenant] = l
	}
	in.mu.Unlock()
	return l
}

// Ingest rebuilds the tenant collection from sources. Malformed sources are
// skipped with a log line. With zero usable chunks the collection still gets
// a placeholder document and the manifest says why.
func (in *Ingestor) Ingest(ctx context.Context, tenant string, sources []Source) (Manifest, error) {
	l := in.lock(tenant)
	l.mu.Lock()
	l.busy = true
	defer func() {
		l.busy = false
		l.mu.Unlock()
	}()

	var (
		texts    []string
		metas    []map[string]string
		manifest Manifest
	)
	for _, src := range sources {
		if err := validate(src); err != nil {
			in.log.Warn("skipping source", "tenant", tenant, "source", src.Name, "error", err)
			continue
		}
		chunks := chunker.Chunk(chunker.Clean(src.Text), in.opts)
		for ci, c := range chunks {
			texts = append(texts, c)
			metas = append(metas, map[string]string{
				"tenant":      tenant,
				"source":      src.Name,
				"kind":        src.Kind,
				"chunk_index": strconv.Itoa(ci),
			})
		}
		manifest.Processed = append(manifest.Processed, SourceRef{
			Name:   src.Name,
			Kind:   src.Kind,
			Chunks: len(chunks),
		})
	}

	if len(texts) == 0 {
		in.log.Warn("ingest produced no chunks, indexing placeholder", "tenant", tenant)
		texts = []string{placeholderText}
		metas = []map[string]string{{"tenant": tenant, "source": "system", "kind": KindFile, "chunk_index": "0"}}
		manifest.Message = ErrEmptyCorpus.Error()
	} else {
		manifest.Message = fmt.Sprintf("indexed %d chunks from %d sources", len(texts), len(manifest.Processed))
	}

	vectors, err := in.provider.Embed(ctx, texts)
	if err != nil {
		return Manifest{}, fmt.Errorf("embedding %d chunks: %w", len(texts), err)
	}

	// Rebuild from scratch so removed sources disappear from the index.
	if err := in.store.DeleteCollection(ctx, tenant); err != nil {
		in.log.Warn("dropping old collection failed", "tenant", tenant, "error", err)
	}
	if err := in.store.EnsureCollection(ctx, tenant, in.provider.Dimension()); err != nil {
		return Manifest{}, fmt.Errorf("preparing collection %s: %w", tenant, err)
	}

	docs := make([]vectorstore.Document, len(texts))
	for i := range texts {
		docs[i] = vectorstore.Document{
			ID:       uuid.NewString(),
			Text:     texts[i],
			Vector:   vectors[i],
			Metadata: metas[i],
		}
	}
	inserted, err := in.store.AddDocuments(ctx, tenant, docs)
	if err != nil {
		return Manifest{}, fmt.Errorf("inserting documents: %w", err)
	}
	in.log.Info("ingest complete", "tenant", tenant, "chunks", len(docs), "inserted", inserted)
	return manifest, nil
}

func validate(src Source) error {
	if src.Text == "" {
		return fmt.Errorf("%w: %s has no text", ErrMalformedInput, src.Name)
	}
	switch src.Kind {
	case KindFile, KindWeb, KindFolderFile, KindDatabase:
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrMalformedInput, src.Kind)
	}
}
