// Package answercore is a retrieval-augmented question-answering engine for
// multi-tenant knowledge bases. It owns chunking, embedding, vector storage,
// caching and the confidence-scored answer pipeline; the surrounding service
// layer calls Ingest to (re)build a tenant's index and Answer to reply to a
// question. Every external dependency degrades gracefully: missing embedding
// providers fall back to deterministic vectors, an unreachable vector index
// falls back to lexical search, and the answer pipeline always produces some
// reply.
package answercore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/vantley/answercore/internal/analytics"
	"github.com/vantley/answercore/internal/answer"
	"github.com/vantley/answercore/internal/cache"
	"github.com/vantley/answercore/internal/chunker"
	"github.com/vantley/answercore/internal/config"
	"github.com/vantley/answercore/internal/embed"
	"github.com/vantley/answercore/internal/ingest"
	"github.com/vantley/answercore/internal/llm"
	"github.com/vantley/answercore/internal/llm/openai"
	"github.com/vantley/answercore/internal/observability"
	"github.com/vantley/answercore/internal/vectorstore"
)

// Re-exported request/response types, so callers only import this package.
type (
	Config       = config.Config
	Source       = ingest.Source
	Manifest     = ingest.Manifest
	AskRequest   = answer.Request
	AnswerResult = answer.Result
	Turn         = answer.Turn
)

// DefaultConfig returns a configuration with working defaults.
func DefaultConfig() *Config { return config.Default() }

// LoadConfig reads configuration from a file plus ANSWERCORE_* environment
// variables.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// Engine wires the core's components together. Construct it once at startup
// with New; it is safe for concurrent use by many tenants.
type Engine struct {
	cfg      *config.Config
	log      *slog.Logger
	cache    cache.Cache
	store    vectorstore.Store
	provider embed.Provider
	ingestor *ingest.Ingestor
	pipeline *answer.Pipeline
	recorder analytics.Recorder
	tracing  *observability.TracerProvider
}

// Option overrides a default collaborator.
type Option func(*Engine)

// WithStore replaces the vector store, e.g. with an in-memory one in tests.
func WithStore(s vectorstore.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithCache replaces the answer cache.
func WithCache(c cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithRecorder replaces the analytics recorder.
func WithRecorder(r analytics.Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// New builds an Engine from config. All provider probing happens here, once;
// no global state is touched apart from the process default tracer.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	e := &Engine{
		cfg: cfg,
		log: newLogger(cfg.Log),
	}
	for _, opt := range opts {
		opt(e)
	}

	tracing, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.Endpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}
	e.tracing = tracing

	if e.cache == nil {
		switch cfg.Cache.Backend {
		case "redis":
			e.cache = cache.NewRedis(ctx, cache.RedisOptions{
				Addr:     cfg.Cache.RedisAddr,
				Password: cfg.Cache.Password,
				DB:       cfg.Cache.RedisDB,
				MaxItems: cfg.Cache.MaxItems,
				Logger:   e.log,
			})
		default:
			e.cache = cache.NewMemory(cfg.Cache.MaxItems)
		}
	}

	if e.store == nil {
		if cfg.Vector.Host == "" {
			e.store = vectorstore.NewMemory()
		} else {
			store, err := vectorstore.NewQdrant(ctx, cfg.Vector.Host, cfg.Vector.Port, e.log)
			if err != nil {
				return nil, fmt.Errorf("connecting vector store: %w", err)
			}
			e.store = store
		}
	}

	provider, err := embed.NewProvider(ctx, embed.Options{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		BatchSize:  cfg.Embedding.BatchSize,
		Dimension:  cfg.Embedding.Dimension,
		OllamaHost: cfg.Embedding.OllamaHost,
		Logger:     e.log,
	})
	if err != nil {
		return nil, fmt.Errorf("selecting embedding provider: %w", err)
	}
	e.provider, err = embed.NewCached(provider, cfg.Embedding.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("wrapping embedding cache: %w", err)
	}

	e.ingestor = ingest.New(e.provider, e.store, chunker.Options{
		ChunkSize:    cfg.Chunker.ChunkSize,
		ChunkOverlap: cfg.Chunker.ChunkOverlap,
		MinChunkSize: cfg.Chunker.MinChunkSize,
	}, e.log)

	generator, err := e.buildGenerator()
	if err != nil {
		return nil, err
	}

	if e.recorder == nil {
		e.recorder = analytics.NewLogRecorder(e.log)
	}

	e.pipeline, err = answer.New(answer.Options{
		Provider:  e.provider,
		Store:     e.store,
		Cache:     e.cache,
		Generator: generator,
		Recorder:  e.recorder,
		Config:    cfg.Answer,
		AnswerTTL: cfg.Cache.AnswerTTL,
		Busy:      e.ingestor.Ingesting,
		Logger:    e.log,
	})
	if err != nil {
		return nil, fmt.Errorf("building answer pipeline: %w", err)
	}
	return e, nil
}

// buildGenerator creates the answer generator from LLM config. With no
// provider configured the extractive generator is used.
func (e *Engine) buildGenerator() (answer.Generator, error) {
	factory := llm.NewFactory()
	for name, baseURL := range llm.KnownProviders {
		name, baseURL := name, baseURL
		factory.Register(name, func(c llm.ProviderConfig) (llm.Provider, error) {
			base := c.BaseURL
			if base == "" {
				base = baseURL
			}
			return openai.New(c.APIKey, c.Model, base), nil
		})
	}
	factory.Register("custom", func(c llm.ProviderConfig) (llm.Provider, error) {
		if c.BaseURL == "" {
			return nil, fmt.Errorf("custom LLM provider requires base_url")
		}
		return openai.New(c.APIKey, c.Model, c.BaseURL), nil
	})

	pcfg := llm.DefaultProviderConfig()
	pcfg.Provider = e.cfg.LLM.Provider
	pcfg.APIKey = e.cfg.LLM.APIKey
	pcfg.Model = e.cfg.LLM.Model
	pcfg.BaseURL = e.cfg.LLM.BaseURL
	provider, err := factory.Create(pcfg)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	if provider == nil {
		return answer.Extractive{}, nil
	}
	if e.cfg.LLM.RequestsPerMinute > 0 || e.cfg.LLM.TokensPerMinute > 0 {
		provider = llm.WithRateLimit(provider, &llm.RateLimitConfig{
			RequestsPerMinute: e.cfg.LLM.RequestsPerMinute,
			TokensPerMinute:   e.cfg.LLM.TokensPerMinute,
		})
	}
	e.log.Info("LLM generator enabled", "provider", e.cfg.LLM.Provider, "model", e.cfg.LLM.Model)
	return answer.NewLLMGenerator(provider, e.cfg.LLM.Temperature, e.cfg.LLM.MaxTokens, e.cfg.Answer.HistoryTurns), nil
}

// Ingest rebuilds the tenant's knowledge base from sources and returns a
// manifest of what was indexed.
func (e *Engine) Ingest(ctx context.Context, tenant string, sources []Source) (Manifest, error) {
	ctx, span := observability.StartIngestSpan(ctx, tenant, len(sources))
	defer span.End()

	manifest, err := e.ingestor.Ingest(ctx, tenant, sources)
	chunks := 0
	for _, ref := range manifest.Processed {
		chunks += ref.Chunks
	}
	observability.RecordIngestResult(span, chunks, err)
	return manifest, err
}

// Answer replies to one question. The result always contains a usable
// answer string; internal failures surface in the result's Err field.
func (e *Engine) Answer(ctx context.Context, req AskRequest) AnswerResult {
	ctx, span := observability.StartAnswerSpan(ctx, req.Tenant, req.ConversationID != "")
	defer span.End()

	res := e.pipeline.Answer(ctx, req)
	observability.RecordAnswerResult(span, res.Tier, res.Confidence, res.ResponseType)
	if res.Err != nil {
		observability.RecordError(span, res.Err)
	}
	return res
}

// Forget removes a tenant's collection and cached answers. The trailing
// colon keeps the invalidation from bleeding into tenants that share a
// prefix ("t1" must not wipe "t10").
func (e *Engine) Forget(ctx context.Context, tenant string) error {
	e.cache.Invalidate(ctx, "answer:"+tenant+":")
	return e.store.DeleteCollection(ctx, tenant)
}

// Close releases backend connections.
func (e *Engine) Close(ctx context.Context) error {
	var firstErr error
	if closer, ok := e.provider.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			firstErr = err
		}
	}
	if err := e.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := e.tracing.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
