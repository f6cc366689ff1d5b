package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every knob for the review pipeline. Values resolve in
// three layers: built-in defaults, then an optional YAML file, then
// CRITIQUE_MCP_* environment variables.
type Config struct {
	// OpenAIAPIKey authenticates both the embedding and completion
	// capabilities. Also read from OPENAI_API_KEY.
	OpenAIAPIKey string `yaml:"openai_api_key"`

	// EmbeddingModel is the model used to vectorize chunks and queries.
	EmbeddingModel string `yaml:"embedding_model"`
	// CompletionModel is the model used to generate critiques.
	CompletionModel string `yaml:"completion_model"`
	// Temperature and MaxTokens apply to critique generation.
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// ChunkSize and ChunkOverlap are character counts for the chunker.
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`

	// TopK is the number of chunks retrieved per query.
	TopK int `yaml:"top_k"`
	// EmbedBatchSize caps how many texts go into one embedding request.
	EmbedBatchSize int `yaml:"embed_batch_size"`

	// Cooldown is the minimum interval between generation requests. In
	// YAML it is a Go duration string such as "5s".
	Cooldown Duration `yaml:"cooldown"`

	// MatchThreshold is the minimum normalized similarity for a quote
	// to anchor to page text.
	MatchThreshold float64 `yaml:"match_threshold"`

	// Upload ceilings enforced before extraction.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
	MaxPages       int   `yaml:"max_pages"`

	// MaxSessions bounds the in-memory session store.
	MaxSessions int `yaml:"max_sessions"`
}

// Duration is a time.Duration that decodes from YAML scalars like "5s"
// through time.ParseDuration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		EmbeddingModel:  "text-embedding-3-small",
		CompletionModel: "gpt-4o-mini",
		Temperature:     0.7,
		MaxTokens:       2000,
		ChunkSize:       500,
		ChunkOverlap:    100,
		TopK:            5,
		EmbedBatchSize:  64,
		Cooldown:        Duration(5 * time.Second),
		MatchThreshold:  0.8,
		MaxUploadBytes:  10 * 1024 * 1024,
		MaxPages:        50,
		MaxSessions:     8,
	}
}

// Load resolves the configuration. path may be empty, in which case
// only CRITIQUE_MCP_CONFIG is consulted for a file; a missing file is
// not an error, an unreadable or malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CRITIQUE_MCP_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("unable to open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("unable to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAIAPIKey = v
	}
	if v := os.Getenv("CRITIQUE_MCP_OPENAI_API_KEY"); v != "" {
		c.OpenAIAPIKey = v
	}
	c.EmbeddingModel = envOr("CRITIQUE_MCP_EMBEDDING_MODEL", c.EmbeddingModel)
	c.CompletionModel = envOr("CRITIQUE_MCP_COMPLETION_MODEL", c.CompletionModel)
	c.Temperature = envFloat("CRITIQUE_MCP_TEMPERATURE", c.Temperature)
	c.MaxTokens = envInt("CRITIQUE_MCP_MAX_TOKENS", c.MaxTokens)
	c.ChunkSize = envInt("CRITIQUE_MCP_CHUNK_SIZE", c.ChunkSize)
	c.ChunkOverlap = envInt("CRITIQUE_MCP_CHUNK_OVERLAP", c.ChunkOverlap)
	c.TopK = envInt("CRITIQUE_MCP_TOP_K", c.TopK)
	c.EmbedBatchSize = envInt("CRITIQUE_MCP_EMBED_BATCH_SIZE", c.EmbedBatchSize)
	c.Cooldown = Duration(envDuration("CRITIQUE_MCP_COOLDOWN", time.Duration(c.Cooldown)))
	c.MatchThreshold = envFloat("CRITIQUE_MCP_MATCH_THRESHOLD", c.MatchThreshold)
	c.MaxUploadBytes = envInt64("CRITIQUE_MCP_MAX_UPLOAD_BYTES", c.MaxUploadBytes)
	c.MaxPages = envInt("CRITIQUE_MCP_MAX_PAGES", c.MaxPages)
	c.MaxSessions = envInt("CRITIQUE_MCP_MAX_SESSIONS", c.MaxSessions)
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.ChunkSize <= 0 || c.ChunkOverlap <= 0 {
		return fmt.Errorf("chunk_size and chunk_overlap must be positive (got %d, %d)", c.ChunkSize, c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be less than chunk_size (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	if c.TopK < 1 {
		return fmt.Errorf("top_k must be at least 1 (got %d)", c.TopK)
	}
	if c.EmbedBatchSize < 1 {
		return fmt.Errorf("embed_batch_size must be at least 1 (got %d)", c.EmbedBatchSize)
	}
	if c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("match_threshold must be in (0, 1] (got %g)", c.MatchThreshold)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive (got %d)", c.MaxUploadBytes)
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("max_pages must be at least 1 (got %d)", c.MaxPages)
	}
	if c.MaxSessions < 1 {
		return fmt.Errorf("max_sessions must be at least 1 (got %d)", c.MaxSessions)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
