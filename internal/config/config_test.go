package config

import (
	"os"
	"path/filepath"
	"testing"

	quarry "github.com/quarryhq/quarry"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default config invalid: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quarry.toml")
	data := `
[strategy]
name = "every_n_words"
words_per_chunk = 120

[retrieval]
metric = "euclidean"
top_k = 3
external_only = true

[store]
backend = "postgres"
dsn = "postgres://localhost/quarry"

[[repos]]
path = "/srv/docs"
internal = true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	desc, err := cfg.Descriptor()
	if err != nil {
		t.Fatalf("Descriptor: %v", err)
	}
	want := quarry.Descriptor{Kind: quarry.StrategyEveryNWords, WordsPerChunk: 120}
	if desc != want {
		t.Errorf("Descriptor = %+v, want %+v", desc, want)
	}

	m, err := cfg.Metric()
	if err != nil || m != quarry.MetricEuclidean {
		t.Errorf("Metric = %v, %v", m, err)
	}
	if cfg.Scope() != quarry.ScopeExternalOnly {
		t.Errorf("Scope = %v", cfg.Scope())
	}
	if len(cfg.Repos) != 1 || cfg.Repos[0].Path != "/srv/docs" || !cfg.Repos[0].Internal {
		t.Errorf("Repos = %+v", cfg.Repos)
	}
	// File did not touch ingest; defaults survive.
	if cfg.Ingest.BatchSize != 64 {
		t.Errorf("BatchSize = %d", cfg.Ingest.BatchSize)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if cfg.Store.Backend != "sqlite" || cfg.Retrieval.TopK != 10 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QUARRY_LLM_API_KEY", "sk-env")
	t.Setenv("QUARRY_STORE_PATH", "/var/lib/quarry.db")
	t.Setenv("QUARRY_OBSERVER_ENABLED", "1")

	cfg := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if cfg.LLM.APIKey != "sk-env" {
		t.Errorf("LLM.APIKey = %q", cfg.LLM.APIKey)
	}
	if cfg.Store.Path != "/var/lib/quarry.db" {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
	if !cfg.Observer.Enabled {
		t.Error("observer not enabled by env")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = "redis"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown backend accepted")
	}

	cfg = Default()
	cfg.Strategy = StrategyConfig{Name: "recursive", ChunkSize: 0}
	if err := cfg.Validate(); err == nil {
		t.Error("zero chunk size accepted")
	}

	cfg = Default()
	cfg.Retrieval.Metric = "hamming"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown metric accepted")
	}
}
