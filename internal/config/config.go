// Package config builds an immutable Config from layered sources:
// built-in defaults, then ~/.config/context-cache/config.yaml, then
// environment variables (loaded via joho/godotenv when a .env file is
// present). Config is YAML (gopkg.in/yaml.v3); the directory layout and
// MkdirAll-on-open pattern follow a file-based config store.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DataDir          string        `yaml:"data_dir"`
	Sources          []SourceEntry `yaml:"sources"`
	Embedding        EmbeddingConfig `yaml:"embedding"`
	Rerank           RerankConfig  `yaml:"rerank"`
	Chunk            ChunkConfig   `yaml:"chunk"`
	HTTPAddr         string        `yaml:"http_addr"`
	JWTSecret        string        `yaml:"-"`
	ReconcileCron    string        `yaml:"reconcile_cron"`
	SchedulerWorkers int           `yaml:"scheduler_workers"`
}

type SourceEntry struct {
	ID          string   `yaml:"id"`
	Kind        string   `yaml:"kind"`
	URI         string   `yaml:"uri"`
	Label       string   `yaml:"label"`
	IncludeGlob []string `yaml:"include_glob"`
	ExcludeGlob []string `yaml:"exclude_glob"`
}

type EmbeddingConfig struct {
	Backend string `yaml:"backend"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"-"`
	BaseURL string `yaml:"base_url"`
	Dim     int    `yaml:"dim"`
}

type RerankConfig struct {
	Enabled bool   `yaml:"enabled"`
	Backend string `yaml:"backend"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"-"`
}

type ChunkConfig struct {
	TargetTokens int `yaml:"target_tokens"`
	MaxTokens    int `yaml:"max_tokens"`
	MinTokens    int `yaml:"min_tokens"`
}

func defaults() Config {
	return Config{
		DataDir:          defaultDataDir(),
		Embedding:        EmbeddingConfig{Backend: "hashed", Dim: 256},
		Rerank:           RerankConfig{Enabled: false, Backend: "hashed"},
		Chunk:            ChunkConfig{TargetTokens: 512, MaxTokens: 768, MinTokens: 120},
		HTTPAddr:         "127.0.0.1:8777",
		SchedulerWorkers: 4,
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".context-cache"
	}
	return filepath.Join(home, ".config", "context-cache")
}

// Load builds the immutable Config: defaults, then the YAML file at
// dir/config.yaml if present, then environment variable overrides. dir
// defaults to ~/.config/context-cache when empty.
func Load(dir string) (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if dir == "" {
		dir = cfg.DataDir
	} else {
		cfg.DataDir = dir
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return Config{}, fmt.Errorf("create config dir: %w", err)
	}

	path := filepath.Join(dir, "config.yaml")
	if b, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CONTEXT_CACHE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("CONTEXT_CACHE_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("CONTEXT_CACHE_EMBEDDING_BACKEND"); v != "" {
		cfg.Embedding.Backend = v
	}
	if v := os.Getenv("CONTEXT_CACHE_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("CONTEXT_CACHE_RERANK_API_KEY"); v != "" {
		cfg.Rerank.APIKey = v
	}
	if v := os.Getenv("CONTEXT_CACHE_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("CONTEXT_CACHE_RECONCILE_CRON"); v != "" {
		cfg.ReconcileCron = v
	}
	if v := os.Getenv("CONTEXT_CACHE_SCHEDULER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SchedulerWorkers = n
		}
	}
}

// DBPath returns the single embedded database file path for this config.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "cache.db")
}
