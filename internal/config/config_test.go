package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if len(cfg.Feeds) == 0 {
		t.Error("expected feeds to be populated")
	}

	podcasts := 0
	for _, f := range cfg.Feeds {
		if f.Kind != KindArticle && f.Kind != KindPodcast {
			t.Errorf("feed %q has unknown kind %q", f.Name, f.Kind)
		}
		if f.Kind == KindPodcast {
			podcasts++
		}
	}
	if podcasts == 0 {
		t.Error("expected at least one podcast feed in defaults")
	}

	if cfg.Enrichment.Model != "gemini-1.5-flash-latest" {
		t.Errorf("expected model 'gemini-1.5-flash-latest', got %q", cfg.Enrichment.Model)
	}
	if cfg.Enrichment.APIKeyEnv != "GEMINI_API_KEY" {
		t.Errorf("expected api_key_env 'GEMINI_API_KEY', got %q", cfg.Enrichment.APIKeyEnv)
	}
	if cfg.Limits.MaxPerFeed != 3 {
		t.Errorf("expected max_per_feed 3, got %d", cfg.Limits.MaxPerFeed)
	}
	if cfg.Fetch.FullContent {
		t.Error("expected full_content fetch disabled by default")
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
feeds:
  - name: Example
    url: https://example.com/feed.xml
    kind: article
limits:
  max_total: 5
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if len(cfg.Feeds) != 1 || cfg.Feeds[0].Name != "Example" {
		t.Errorf("expected single Example feed, got %+v", cfg.Feeds)
	}
	if cfg.Limits.MaxTotal != 5 {
		t.Errorf("expected max_total 5, got %d", cfg.Limits.MaxTotal)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Limits.RecencyDays != 14 {
		t.Errorf("expected default recency_days 14, got %d", cfg.Limits.RecencyDays)
	}
	if cfg.Enrichment.ThrottleMS != 200 {
		t.Errorf("expected default throttle_ms 200, got %d", cfg.Enrichment.ThrottleMS)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Feeds) == 0 {
		t.Error("expected feeds to be populated from file")
	}
}

func TestDataFilePath(t *testing.T) {
	cfg := &Config{}
	if filepath.Base(cfg.DataFilePath()) != "data.json" {
		t.Errorf("expected default data.json, got %q", cfg.DataFilePath())
	}

	cfg.Output.DataDir = "/var/lib/kidigest"
	cfg.Output.DataFile = "items.json"
	if cfg.DataFilePath() != "/var/lib/kidigest/items.json" {
		t.Errorf("unexpected data file path %q", cfg.DataFilePath())
	}

	cfg.Output.DataFile = "/tmp/elsewhere.json"
	if cfg.DataFilePath() != "/tmp/elsewhere.json" {
		t.Errorf("absolute data_file should win, got %q", cfg.DataFilePath())
	}
}
