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

const (
	openaiDefaultBaseURL = "https://api.openai.com/v1"
	openaiDefaultModel   = "text-embedding-3-small"
	defaultBatchSize     = 50
)

// OpenAI talks to an OpenAI-compatible /embeddings endpoint. Requests are
// sent in batches; a failing batch is filled with deterministic vectors and
// logged, so one bad batch never aborts a whole indexing run.
type OpenAI struct {
	apiKey    string
	model     string
	baseURL   string
	batchSize int
	dim       int
	http      *http.Client
	log       *slog.Logger
}

// NewOpenAI creates a batched remote provider. An empty baseURL targets the
// OpenAI API; any OpenAI-compatible endpoint works.
func NewOpenAI(apiKey, model, baseURL string, batchSize int, logger *slog.Logger) *OpenAI {
	if model == "" {
		model = openaiDefaultModel
	}
	if baseURL == "" {
		baseURL = openaiDefaultBaseURL
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAI{
		apiKey:    apiKey,
		model:     model,
		baseURL:   baseURL,
		batchSize: batchSize,
		dim:       openaiModelDimension(model),
		http:      &http.Client{Timeout: 60 * time.Second},
		log:       logger,
	}
}

func openaiModelDimension(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	default:
		return 1536
	}
}

func (o *OpenAI) Name() string   { return "openai" }
func (o *OpenAI) Dimension() int { return o.dim }

// Embed sends texts in batches. Failures degrade the affected batch to
// deterministic vectors; Embed itself never returns an error.
func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += o.batchSize {
		end := start + o.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		batchVectors, err := o.embedBatch(ctx, batch)
		if err != nil {
			o.log.Warn("embedding batch failed, using deterministic vectors",
				"provider", "openai", "batch_start", start, "batch_size", len(batch), "error", err)
			for _, text := range batch {
				vectors = append(vectors, HashVector(text, o.dim))
			}
			continue
		}
		vectors = append(vectors, batchVectors...)
	}
	return vectors, nil
}

func (o *OpenAI) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(map[string]any{
		"model": o.model,
		"input": texts,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

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
		return nil, fmt.Errorf("embeddings API status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decoding embeddings response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(parsed.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ Provider = (*OpenAI)(nil)
