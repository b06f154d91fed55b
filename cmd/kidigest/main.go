package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sbraun/kidigest/internal/config"
	"github.com/sbraun/kidigest/internal/llm"
	"github.com/sbraun/kidigest/internal/pipeline"
	"github.com/sbraun/kidigest/internal/runlog"
	"github.com/sbraun/kidigest/internal/store"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "kidigest",
	Short:   "AI-enriched digest of news and podcast feeds",
	Long:    "kidigest polls configured RSS/Atom feeds, enriches new entries with an AI summary, topics and sentiment, and maintains a deduplicated JSON data file.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("kidigest", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/kidigest/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds and set GEMINI_API_KEY in the environment.")
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll feeds, enrich new entries and update the data file",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := llm.NewGeminiProvider(
			cfg.Enrichment.Model,
			cfg.Enrichment.APIKeyEnv,
			time.Duration(cfg.Enrichment.RequestTimeoutSec)*time.Second,
		)
		if !provider.IsConfigured() {
			return fmt.Errorf("%s is not set; no enrichment credential available", cfg.Enrichment.APIKeyEnv)
		}

		// Run history is nice-to-have; a broken history DB must not block a run.
		var db *runlog.DB
		if opened, err := openRunLog(); err != nil {
			log.Printf("Run history unavailable: %v", err)
		} else {
			db = opened
			defer db.Close()
		}

		result := pipeline.New(cfg, provider, db).Run(context.Background())

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		fmt.Println("\nRun summary:")
		fmt.Printf("  New entries found:  %d\n", result.Found)
		fmt.Printf("  Enriched:           %d (%d fell back to defaults)\n", result.Enriched, result.Errors)
		fmt.Printf("  Added to store:     %d\n", result.Added)
		fmt.Printf("  Store total:        %d\n", result.StoreTotal)
		fmt.Printf("  Duration:           %ds\n", int(result.Duration.Seconds()))

		// Partial failures are reported above but never fail the process.
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store and run history status",
	RunE: func(cmd *cobra.Command, args []string) error {
		items := store.Load(cfg.DataFilePath())
		fmt.Printf("Store: %s\n", cfg.DataFilePath())
		fmt.Printf("  Items: %d\n", len(items))

		db, err := openRunLog()
		if err != nil {
			return fmt.Errorf("opening run history: %w", err)
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("\nRuns:")
		fmt.Printf("  Total: %d\n", stats.TotalRuns)
		fmt.Printf("  Entries enriched: %d\n", stats.TotalEnriched)
		fmt.Printf("  Enrichment fallbacks: %d\n", stats.TotalErrors)

		last, err := db.LastRun()
		if err != nil {
			return fmt.Errorf("reading last run: %w", err)
		}
		if last != nil {
			fmt.Println("\nLast run:")
			fmt.Printf("  Started: %s\n", last.StartedAt)
			fmt.Printf("  Found %d, enriched %d, store total %d, %ds\n",
				last.Found, last.Enriched, last.StoreTotal, last.DurationSec)
		}
		return nil
	},
}

func openRunLog() (*runlog.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return runlog.Open(filepath.Join(dataDir, "kidigest.db"))
}
