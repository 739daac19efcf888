package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIPort != "8080" {
		t.Fatalf("unexpected default api port: %q", cfg.APIPort)
	}
	if cfg.RAGExpansionCount != 3 || cfg.RAGPerQueryLimit != 3 {
		t.Fatalf("unexpected rag defaults: %d/%d", cfg.RAGExpansionCount, cfg.RAGPerQueryLimit)
	}
	if cfg.RAGContextCharBudget != 8000 {
		t.Fatalf("unexpected context budget: %d", cfg.RAGContextCharBudget)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := "api_port: \"9999\"\nrag_expansion_count: 5\nqdrant_collection: custom\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIPort != "9999" {
		t.Fatalf("yaml overlay ignored: %q", cfg.APIPort)
	}
	if cfg.RAGExpansionCount != 5 {
		t.Fatalf("yaml overlay ignored: %d", cfg.RAGExpansionCount)
	}
	if cfg.QdrantCollection != "custom" {
		t.Fatalf("yaml overlay ignored: %q", cfg.QdrantCollection)
	}
	// Untouched keys keep their defaults.
	if cfg.NATSSubject != "documents.ingest" {
		t.Fatalf("default lost under overlay: %q", cfg.NATSSubject)
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api_port: \"9999\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_PORT", "7777")
	t.Setenv("RAG_PER_QUERY_LIMIT", "10")
	t.Setenv("HTTP_RATE_LIMIT_PER_SECOND", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIPort != "7777" {
		t.Fatalf("env must win over yaml: %q", cfg.APIPort)
	}
	if cfg.RAGPerQueryLimit != 10 {
		t.Fatalf("env int override ignored: %d", cfg.RAGPerQueryLimit)
	}
	if cfg.HTTPRateLimitPerSecond != 2.5 {
		t.Fatalf("env float override ignored: %v", cfg.HTTPRateLimitPerSecond)
	}
}

func TestLoadBadNumericEnvFallsBack(t *testing.T) {
	t.Setenv("RAG_EXPANSION_COUNT", "not a number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RAGExpansionCount != 3 {
		t.Fatalf("bad env value must fall back to default, got %d", cfg.RAGExpansionCount)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unreadable config file")
	}
}
