package embed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/knights-analytics/hugot"
)

const (
	localDefaultModel = "sentence-transformers/all-MiniLM-L6-v2"
	localModelDir     = "./models"
	localDim          = 384
)

// Local runs a sentence-transformer model in-process through hugot. It is
// the preferred backend when the model weights are present on disk: no
// network dependency and the lowest latency of the real providers.
type Local struct {
	session *hugot.Session
	run     func(texts []string) ([][]float32, error)
}

// NewLocal loads the local model, downloading it on first use.
func NewLocal(model string) (*Local, error) {
	if model == "" {
		model = localDefaultModel
	}
	modelPath, err := prepareModel(model)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("creating hugot session: %w", err)
	}

	cfg := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "answercore-embedder",
	}
	pipeline, err := hugot.NewPipeline(session, cfg)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("creating feature pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("creating feature pipeline: %w", err)
	}

	run := func(texts []string) ([][]float32, error) {
		result, err := pipeline.RunPipeline(texts)
		if err != nil {
			return nil, fmt.Errorf("running embedding pipeline: %w", err)
		}
		if len(result.Embeddings) != len(texts) {
			return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(result.Embeddings), len(texts))
		}
		return result.Embeddings, nil
	}
	return &Local{session: session, run: run}, nil
}

func (l *Local) Name() string   { return "local" }
func (l *Local) Dimension() int { return localDim }

func (l *Local) Embed(_ context.Context, texts []string) ([][]float32, error) {
	return l.run(texts)
}

// Close releases the model session.
func (l *Local) Close() error {
	if l.session != nil {
		return l.session.Destroy()
	}
	return nil
}

// localModelUsable reports whether the model weights are already on disk.
// The auto probe deliberately does not download anything: explicit
// configuration is required for the first multi-hundred-megabyte fetch.
func localModelUsable() bool {
	_, err := os.Stat(localModelPath(localDefaultModel))
	return err == nil
}

func localModelPath(model string) string {
	return filepath.Join(localModelDir, sanitizeModelName(model))
}

func sanitizeModelName(model string) string {
	out := make([]rune, 0, len(model))
	for _, r := range model {
		if r == '/' {
			r = '_'
		}
		out = append(out, r)
	}
	return string(out)
}

func prepareModel(model string) (string, error) {
	modelPath := localModelPath(model)
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		if err := os.MkdirAll(localModelDir, 0o755); err != nil {
			return "", fmt.Errorf("creating model directory: %w", err)
		}
		opts := hugot.NewDownloadOptions()
		opts.OnnxFilePath = "onnx/model.onnx"
		downloaded, err := hugot.DownloadModel(model, localModelDir, opts)
		if err != nil {
			return "", fmt.Errorf("downloading model %s: %w", model, err)
		}
		return downloaded, nil
	}
	return modelPath, nil
}

var _ Provider = (*Local)(nil)
