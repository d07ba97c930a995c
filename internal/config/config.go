package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all engine configuration.
type Config struct {
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Chunker   ChunkerConfig   `mapstructure:"chunker"`
	Answer    AnswerConfig    `mapstructure:"answer"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	// Provider is "auto", "local", "openai", "ollama" or "deterministic".
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	BatchSize  int    `mapstructure:"batch_size"`
	CacheSize  int    `mapstructure:"cache_size"`
	Dimension  int    `mapstructure:"dimension"` // deterministic provider only
	OllamaHost string `mapstructure:"ollama_host"`
}

type VectorConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend   string        `mapstructure:"backend"`
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db"`
	Password  string        `mapstructure:"password"`
	MaxItems  int           `mapstructure:"max_items"`
	AnswerTTL time.Duration `mapstructure:"answer_ttl"`
}

type ChunkerConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
	MinChunkSize int `mapstructure:"min_chunk_size"`
}

// AnswerConfig carries the confidence thresholds and score weights. The
// weights are tunables, not invariants: the five-factor shape is fixed but
// the coefficients are expected to be adjusted per deployment.
type AnswerConfig struct {
	TopK            int     `mapstructure:"top_k"`
	HighThreshold   float64 `mapstructure:"high_threshold"`
	MediumThreshold float64 `mapstructure:"medium_threshold"`
	MatchThreshold  float64 `mapstructure:"match_threshold"`
	HistoryTurns    int     `mapstructure:"history_turns"`

	ChunkWeight       float64 `mapstructure:"chunk_weight"`
	OverlapWeight     float64 `mapstructure:"overlap_weight"`
	LengthWeight      float64 `mapstructure:"length_weight"`
	SpecificityWeight float64 `mapstructure:"specificity_weight"`
	HedgePenalty      float64 `mapstructure:"hedge_penalty"`
}

// LLMConfig configures the optional answer-generation backend.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`

	// RequestsPerMinute and TokensPerMinute throttle provider calls.
	// Zero means unlimited.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	TokensPerMinute   int `mapstructure:"tokens_per_minute"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TracingConfig configures OpenTelemetry export. Tracing is disabled while
// Endpoint is empty.
type TracingConfig struct {
	ServiceName string  `mapstructure:"service_name"`
	Environment string  `mapstructure:"environment"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// Default returns a config with working defaults for every component.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:   "auto",
			BatchSize:  50,
			CacheSize:  1000,
			Dimension:  384,
			OllamaHost: "http://localhost:11434",
		},
		Vector: VectorConfig{
			Host: "localhost",
			Port: 6334,
		},
		Cache: CacheConfig{
			Backend:   "memory",
			MaxItems:  1000,
			AnswerTTL: 30 * time.Minute,
		},
		Chunker: ChunkerConfig{
			ChunkSize:    800,
			ChunkOverlap: 200,
			MinChunkSize: 100,
		},
		Answer: AnswerConfig{
			TopK:            8,
			HighThreshold:   70,
			MediumThreshold: 50,
			MatchThreshold:  0.3,
			HistoryTurns:    8,

			ChunkWeight:       25,
			OverlapWeight:     30,
			LengthWeight:      20,
			SpecificityWeight: 25,
			HedgePenalty:      5,
		},
		LLM: LLMConfig{
			Provider:    "none",
			Temperature: 0.3,
			MaxTokens:   800,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Tracing: TracingConfig{
			ServiceName: "answercore",
			Environment: "development",
			SampleRate:  1.0,
		},
	}
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.LLM.Provider != "" && c.LLM.Provider != "none" && c.LLM.APIKey == "" {
		warnings = append(warnings, fmt.Sprintf("LLM provider '%s' is configured but api_key is empty", c.LLM.Provider))
	}
	if c.Embedding.Provider == "openai" && c.Embedding.APIKey == "" {
		warnings = append(warnings, "embedding provider 'openai' is configured but api_key is empty")
	}
	if c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize && c.Chunker.ChunkSize > 0 {
		warnings = append(warnings, fmt.Sprintf("chunk_overlap %d >= chunk_size %d", c.Chunker.ChunkOverlap, c.Chunker.ChunkSize))
	}
	if c.Answer.MediumThreshold > c.Answer.HighThreshold {
		warnings = append(warnings, fmt.Sprintf("medium_threshold %.0f exceeds high_threshold %.0f", c.Answer.MediumThreshold, c.Answer.HighThreshold))
	}
	if c.Answer.MatchThreshold < 0 || c.Answer.MatchThreshold > 1 {
		warnings = append(warnings, fmt.Sprintf("match_threshold %.2f is outside [0, 1]", c.Answer.MatchThreshold))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside [0, 1]", c.Tracing.SampleRate))
	}

	return warnings
}

// Load reads configuration from file and environment, on top of defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("ANSWERCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return cfg, nil
}
