// Package analytics records answer outcomes for downstream reporting.
package analytics

import (
	"context"
	"log/slog"
)

// Record is one answered question.
type Record struct {
	Tenant       string
	Question     string
	Answer       string
	Confidence   float64
	Tier         int
	ResponseType string
}

// Recorder receives every answer outcome. Implementations must be safe for
// concurrent use and must never block the answer path for long.
type Recorder interface {
	Record(ctx context.Context, rec Record)
}

// LogRecorder writes records as structured log lines. It is the default
// Recorder; platforms with a metrics warehouse plug in their own.
type LogRecorder struct {
	log *slog.Logger
}

// NewLogRecorder creates a slog-backed recorder.
func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogRecorder{log: logger}
}

func (r *LogRecorder) Record(_ context.Context, rec Record) {
	r.log.Info("answer recorded",
		"tenant", rec.Tenant,
		"question", rec.Question,
		"answer_len", len(rec.Answer),
		"confidence", rec.Confidence,
		"tier", rec.Tier,
		"response_type", rec.ResponseType,
	)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Record) {}

var (
	_ Recorder = (*LogRecorder)(nil)
	_ Recorder = NopRecorder{}
)
