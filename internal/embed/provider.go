// Package embed generates text embeddings through interchangeable providers.
// Four backends exist: a local sentence-transformer model, a batched
// OpenAI-compatible API, a single-call Ollama API, and a deterministic
// hash-seeded fallback that needs no external service at all. Provider
// selection is decided once at construction from a static capability table;
// no call path re-probes availability.
package embed

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// ErrProviderUnavailable reports that an embedding backend cannot serve.
// It is used internally to drive fallback selection and is never returned
// from Registry embeds.
var ErrProviderUnavailable = errors.New("embedding provider unavailable")

// Provider generates embeddings for batches of text. All vectors returned by
// one provider share a single dimension.
type Provider interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension returns the fixed length of vectors this provider emits.
	Dimension() int
	// Name returns the provider identifier.
	Name() string
}

// Options configures provider construction.
type Options struct {
	// Provider is "auto", "local", "openai", "ollama" or "deterministic".
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	BatchSize  int
	Dimension  int // deterministic provider only
	OllamaHost string
	Logger     *slog.Logger
}

type candidate struct {
	name      string
	available func(ctx context.Context) bool
	build     func() (Provider, error)
}

// NewProvider builds the configured provider. With "auto" the capability
// table is probed once, preferring local > openai > ollama > deterministic;
// the first available backend wins. The deterministic provider is always
// available, so NewProvider only fails when an explicitly requested backend
// cannot be built.
func NewProvider(ctx context.Context, opts Options) (Provider, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	table := []candidate{
		{
			name: "local",
			available: func(ctx context.Context) bool {
				return localModelUsable()
			},
			build: func() (Provider, error) { return NewLocal(opts.Model) },
		},
		{
			name: "openai",
			available: func(ctx context.Context) bool {
				return opts.APIKey != ""
			},
			build: func() (Provider, error) {
				return NewOpenAI(opts.APIKey, opts.Model, opts.BaseURL, opts.BatchSize, logger), nil
			},
		},
		{
			name: "ollama",
			available: func(ctx context.Context) bool {
				return ollamaReachable(ctx, opts.OllamaHost)
			},
			build: func() (Provider, error) {
				return NewOllama(opts.OllamaHost, opts.Model, logger), nil
			},
		},
		{
			name:      "deterministic",
			available: func(ctx context.Context) bool { return true },
			build: func() (Provider, error) {
				return NewDeterministic(opts.Dimension), nil
			},
		},
	}

	if opts.Provider != "" && opts.Provider != "auto" {
		for _, c := range table {
			if c.name == opts.Provider {
				return c.build()
			}
		}
		return nil, errors.New("unknown embedding provider: " + opts.Provider)
	}

	for _, c := range table {
		if !c.available(ctx) {
			continue
		}
		p, err := c.build()
		if err != nil {
			logger.Warn("embedding provider failed to initialize, trying next", "provider", c.name, "error", err)
			continue
		}
		logger.Info("embedding provider selected", "provider", p.Name(), "dimension", p.Dimension())
		return p, nil
	}
	// Unreachable: the deterministic candidate never fails to build.
	return NewDeterministic(opts.Dimension), nil
}

func ollamaReachable(ctx context.Context, host string) bool {
	if host == "" {
		return false
	}
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
