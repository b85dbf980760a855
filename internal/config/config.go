// Package config loads quarry's runtime configuration: defaults, then an
// optional TOML file, then QUARRY_* env vars (env wins).
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	quarry "github.com/quarryhq/quarry"
)

type Config struct {
	Strategy  StrategyConfig  `toml:"strategy"`
	Ingest    IngestConfig    `toml:"ingest"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Store     StoreConfig     `toml:"store"`
	Embedding EmbeddingConfig `toml:"embedding"`
	LLM       LLMConfig       `toml:"llm"`
	Chat      ChatConfig      `toml:"chat"`
	Observer  ObserverConfig  `toml:"observer"`
	Repos     []RepoConfig    `toml:"repos"`
}

type StrategyConfig struct {
	Name              string `toml:"name"`
	ChunkSize         int    `toml:"chunk_size"`
	ChunkOverlap      int    `toml:"chunk_overlap"`
	WordsPerChunk     int    `toml:"words_per_chunk"`
	SentencesPerChunk int    `toml:"sentences_per_chunk"`
}

type IngestConfig struct {
	BatchSize           int      `toml:"batch_size"`
	AllowedExtensions   []string `toml:"allowed_extensions"`
	DisallowedFilenames []string `toml:"disallowed_filenames"`
}

type RetrievalConfig struct {
	Metric       string `toml:"metric"`
	TopK         int    `toml:"top_k"`
	ExternalOnly bool   `toml:"external_only"`
}

type StoreConfig struct {
	Backend string `toml:"backend"` // "sqlite" or "postgres"
	Path    string `toml:"path"`    // sqlite file path
	DSN     string `toml:"dsn"`     // postgres connection string
}

type EmbeddingConfig struct {
	BaseURL    string `toml:"base_url"`
	Model      string `toml:"model"`
	APIKey     string `toml:"api_key"`
	Dimensions int    `toml:"dimensions"`
}

type LLMConfig struct {
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
	APIKey  string `toml:"api_key"`
}

type ChatConfig struct {
	HistoryDir    string `toml:"history_dir"`
	HistoryBudget int    `toml:"history_budget"`
}

type ObserverConfig struct {
	Enabled bool `toml:"enabled"`
}

type RepoConfig struct {
	Path     string `toml:"path"`
	Internal bool   `toml:"internal"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Strategy:  StrategyConfig{Name: "recursive", ChunkSize: 2000, ChunkOverlap: 200},
		Ingest:    IngestConfig{BatchSize: 64},
		Retrieval: RetrievalConfig{Metric: "cosine_similarity", TopK: 10},
		Store:     StoreConfig{Backend: "sqlite", Path: "quarry.db"},
		Embedding: EmbeddingConfig{BaseURL: "http://localhost:11434/v1", Model: "nomic-embed-text", Dimensions: 768},
		LLM:       LLMConfig{BaseURL: "http://localhost:11434/v1", Model: "llama3.1"},
		Chat:      ChatConfig{HistoryDir: "history", HistoryBudget: 20000},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "quarry.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("QUARRY_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("QUARRY_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("QUARRY_STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("QUARRY_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if os.Getenv("QUARRY_OBSERVER_ENABLED") == "true" || os.Getenv("QUARRY_OBSERVER_ENABLED") == "1" {
		cfg.Observer.Enabled = true
	}

	return cfg
}

// Descriptor resolves the [strategy] section into a validated chunking
// descriptor.
func (c Config) Descriptor() (quarry.Descriptor, error) {
	kind, err := quarry.ParseStrategyKind(c.Strategy.Name)
	if err != nil {
		return quarry.Descriptor{}, err
	}
	d := quarry.Descriptor{
		Kind:              kind,
		ChunkSize:         c.Strategy.ChunkSize,
		ChunkOverlap:      c.Strategy.ChunkOverlap,
		WordsPerChunk:     c.Strategy.WordsPerChunk,
		SentencesPerChunk: c.Strategy.SentencesPerChunk,
	}
	if err := d.Validate(); err != nil {
		return quarry.Descriptor{}, err
	}
	return d, nil
}

// Metric resolves the [retrieval] metric name.
func (c Config) Metric() (quarry.Metric, error) {
	return quarry.ParseMetric(c.Retrieval.Metric)
}

// Scope resolves the retrieval scope from the external_only flag.
func (c Config) Scope() quarry.Scope {
	if c.Retrieval.ExternalOnly {
		return quarry.ScopeExternalOnly
	}
	return quarry.ScopeAll
}

// Validate checks cross-field constraints the TOML decoder cannot.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite backend")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Ingest.BatchSize <= 0 {
		return fmt.Errorf("ingest.batch_size must be > 0, got %d", c.Ingest.BatchSize)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be > 0, got %d", c.Retrieval.TopK)
	}
	if _, err := c.Metric(); err != nil {
		return err
	}
	if _, err := c.Descriptor(); err != nil {
		return err
	}
	return nil
}
