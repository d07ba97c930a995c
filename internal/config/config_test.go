package config

import (
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Chunker.ChunkSize != 800 {
		t.Errorf("expected chunk_size 800, got %d", cfg.Chunker.ChunkSize)
	}
	if cfg.Chunker.ChunkOverlap != 200 {
		t.Errorf("expected chunk_overlap 200, got %d", cfg.Chunker.ChunkOverlap)
	}
	if cfg.Answer.HighThreshold != 70 || cfg.Answer.MediumThreshold != 50 {
		t.Errorf("unexpected thresholds: high=%.0f medium=%.0f", cfg.Answer.HighThreshold, cfg.Answer.MediumThreshold)
	}
	if got := cfg.Answer.ChunkWeight + cfg.Answer.OverlapWeight + cfg.Answer.LengthWeight + cfg.Answer.SpecificityWeight; got != 100 {
		t.Errorf("default score weights should sum to 100, got %.0f", got)
	}
	if cfg.Tracing.Endpoint != "" || cfg.Tracing.SampleRate != 1.0 || cfg.Tracing.ServiceName != "answercore" {
		t.Errorf("unexpected tracing defaults: %+v", cfg.Tracing)
	}
	if len(cfg.Validate()) != 0 {
		t.Errorf("default config should have no warnings, got %v", cfg.Validate())
	}
}

func TestValidate_MissingAPIKey(t *testing.T) {
	cfg := Default()
	cfg.LLM.Provider = "groq"
	warnings := cfg.Validate()
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "api_key") {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected warning about missing api_key")
	}
}

func TestValidate_ChunkOverlap(t *testing.T) {
	cfg := Default()
	cfg.Chunker.ChunkOverlap = 900
	warnings := cfg.Validate()
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "chunk_overlap") {
			found = true
		}
	}
	if !found {
		t.Error("expected warning about chunk_overlap >= chunk_size")
	}
}

func TestValidate_Thresholds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"medium_above_high", func(c *Config) { c.Answer.MediumThreshold = 80 }, true},
		{"match_negative", func(c *Config) { c.Answer.MatchThreshold = -0.1 }, true},
		{"match_above_one", func(c *Config) { c.Answer.MatchThreshold = 1.5 }, true},
		{"sample_rate_above_one", func(c *Config) { c.Tracing.SampleRate = 2 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			hasWarn := len(cfg.Validate()) > 0
			if hasWarn != tt.want {
				t.Errorf("hasWarn=%v, want=%v (%v)", hasWarn, tt.want, cfg.Validate())
			}
		})
	}
}
