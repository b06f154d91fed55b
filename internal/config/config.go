package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// Feed kinds.
const (
	KindArticle = "article"
	KindPodcast = "podcast"
)

type Config struct {
	Feeds      []Feed     `yaml:"feeds"`
	Enrichment Enrichment `yaml:"enrichment"`
	Limits     Limits     `yaml:"limits"`
	Fetch      Fetch      `yaml:"fetch"`
	Output     Output     `yaml:"output"`
}

type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	Kind string `yaml:"kind"`
}

type Enrichment struct {
	Model             string `yaml:"model"`
	APIKeyEnv         string `yaml:"api_key_env"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec"`
	ThrottleMS        int    `yaml:"throttle_ms"`
}

// Limits bounds a single run: per-feed and total caps, a recency window for
// entries, and a wall-clock budget for the enrichment phase.
type Limits struct {
	MaxPerFeed      int  `yaml:"max_per_feed"`
	MaxTotal        int  `yaml:"max_total"`
	RecencyDays     int  `yaml:"recency_days"`
	RunBudgetSec    int  `yaml:"run_budget_sec"`
	FirstRunShallow bool `yaml:"first_run_shallow"`
}

// Fetch configures the optional full-content fallback for article entries
// whose feed carries no usable body text.
type Fetch struct {
	FullContent bool `yaml:"full_content"`
	TimeoutSec  int  `yaml:"timeout_sec"`
}

type Output struct {
	DataDir  string `yaml:"data_dir"`
	DataFile string `yaml:"data_file"`
}

// ConfigDir returns the XDG config directory for kidigest.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "kidigest")
}

// DataDir returns the XDG data directory for kidigest.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "kidigest")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/kidigest/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'kidigest init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Enrichment: Enrichment{
			Model:             "gemini-1.5-flash-latest",
			APIKeyEnv:         "GEMINI_API_KEY",
			RequestTimeoutSec: 30,
			ThrottleMS:        200,
		},
		Limits: Limits{
			MaxPerFeed:      3,
			MaxTotal:        30,
			RecencyDays:     14,
			RunBudgetSec:    180,
			FirstRunShallow: true,
		},
		Fetch: Fetch{
			FullContent: false,
			TimeoutSec:  15,
		},
		Output: Output{
			DataFile: "data.json",
		},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DataFilePath returns the absolute path of the JSON item store.
func (c *Config) DataFilePath() string {
	name := c.Output.DataFile
	if name == "" {
		name = "data.json"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.GetDataDir(), name)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
