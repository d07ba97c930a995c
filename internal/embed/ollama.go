package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const ollamaDefaultModel = "nomic-embed-text"

// Ollama talks to a local Ollama server. Its embeddings endpoint accepts one
// prompt per call, so texts are embedded sequentially; a failed call degrades
// that single text to a deterministic vector.
type Ollama struct {
	host  string
	model string
	dim   int
	http  *http.Client
	log   *slog.Logger
}

// NewOllama creates a single-call remote provider.
func NewOllama(host, model string, logger *slog.Logger) *Ollama {
	if model == "" {
		model = ollamaDefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ollama{
		host:  host,
		model: model,
		dim:   768, // nomic-embed-text output size
		http:  &http.Client{Timeout: 30 * time.Second},
		log:   logger,
	}
}

func (o *Ollama) Name() string   { return "ollama" }
func (o *Ollama) Dimension() int { return o.dim }

// Embed calls the server once per text. Errors are logged per text, never
// propagated.
func (o *Ollama) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := o.embedOne(ctx, text)
		if err != nil {
			o.log.Warn("ollama embedding failed, using deterministic vector", "index", i, "error", err)
			vectors[i] = HashVector(text, o.dim)
			continue
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (o *Ollama) embedOne(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(map[string]any{
		"model":  o.model,
		"prompt": text,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var parsed struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decoding ollama response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned empty embedding")
	}
	return parsed.Embedding, nil
}

var _ Provider = (*Ollama)(nil)
