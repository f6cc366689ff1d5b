package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.ChunkSize != 500 {
		t.Errorf("ChunkSize = %d, want 500", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap != 100 {
		t.Errorf("ChunkOverlap = %d, want 100", cfg.ChunkOverlap)
	}
	if cfg.TopK != 5 {
		t.Errorf("TopK = %d, want 5", cfg.TopK)
	}
	if cfg.Cooldown != Duration(5*time.Second) {
		t.Errorf("Cooldown = %v, want 5s", time.Duration(cfg.Cooldown))
	}
	if cfg.MatchThreshold != 0.8 {
		t.Errorf("MatchThreshold = %g, want 0.8", cfg.MatchThreshold)
	}
	if cfg.MaxPages != 50 {
		t.Errorf("MaxPages = %d, want 50", cfg.MaxPages)
	}
	if cfg.MaxUploadBytes != 10*1024*1024 {
		t.Errorf("MaxUploadBytes = %d, want 10MB", cfg.MaxUploadBytes)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
chunk_size: 800
chunk_overlap: 150
top_k: 3
cooldown: 10s
completion_model: gpt-4o
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ChunkSize != 800 {
		t.Errorf("ChunkSize = %d, want 800", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap != 150 {
		t.Errorf("ChunkOverlap = %d, want 150", cfg.ChunkOverlap)
	}
	if cfg.TopK != 3 {
		t.Errorf("TopK = %d, want 3", cfg.TopK)
	}
	if cfg.Cooldown != Duration(10*time.Second) {
		t.Errorf("Cooldown = %v, want 10s", time.Duration(cfg.Cooldown))
	}
	if cfg.CompletionModel != "gpt-4o" {
		t.Errorf("CompletionModel = %q, want gpt-4o", cfg.CompletionModel)
	}
	// Untouched fields keep their defaults.
	if cfg.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("EmbeddingModel = %q, want default", cfg.EmbeddingModel)
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error for missing file: %v", err)
	}
	if cfg.ChunkSize != 500 {
		t.Errorf("ChunkSize = %d, want default 500", cfg.ChunkSize)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("chunk_size: [not an int"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Load() succeeded on malformed YAML, want error")
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("cooldown: banana"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() succeeded on invalid duration, want error")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("Load() error = %v, want invalid duration", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CRITIQUE_MCP_CHUNK_SIZE", "1000")
	t.Setenv("CRITIQUE_MCP_COOLDOWN", "2s")
	t.Setenv("CRITIQUE_MCP_MATCH_THRESHOLD", "0.9")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.OpenAIAPIKey != "sk-test" {
		t.Errorf("OpenAIAPIKey = %q, want sk-test", cfg.OpenAIAPIKey)
	}
	if cfg.ChunkSize != 1000 {
		t.Errorf("ChunkSize = %d, want 1000", cfg.ChunkSize)
	}
	if cfg.Cooldown != Duration(2*time.Second) {
		t.Errorf("Cooldown = %v, want 2s", time.Duration(cfg.Cooldown))
	}
	if cfg.MatchThreshold != 0.9 {
		t.Errorf("MatchThreshold = %g, want 0.9", cfg.MatchThreshold)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.OpenAIAPIKey = "sk-test"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing api key",
			mutate:  func(c *Config) { c.OpenAIAPIKey = "" },
			wantErr: "OPENAI_API_KEY",
		},
		{
			name:    "overlap equals size",
			mutate:  func(c *Config) { c.ChunkOverlap = c.ChunkSize },
			wantErr: "chunk_overlap",
		},
		{
			name:    "negative size",
			mutate:  func(c *Config) { c.ChunkSize = -1 },
			wantErr: "must be positive",
		},
		{
			name:    "zero top_k",
			mutate:  func(c *Config) { c.TopK = 0 },
			wantErr: "top_k",
		},
		{
			name:    "threshold above one",
			mutate:  func(c *Config) { c.MatchThreshold = 1.5 },
			wantErr: "match_threshold",
		},
		{
			name:    "zero pages",
			mutate:  func(c *Config) { c.MaxPages = 0 },
			wantErr: "max_pages",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() succeeded, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}
