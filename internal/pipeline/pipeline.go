// Package pipeline drives a single batch run: load the store, extract new
// feed entries, enrich them, merge and save.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sbraun/kidigest/internal/collect"
	"github.com/sbraun/kidigest/internal/config"
	"github.com/sbraun/kidigest/internal/enrich"
	"github.com/sbraun/kidigest/internal/fetch"
	"github.com/sbraun/kidigest/internal/llm"
	"github.com/sbraun/kidigest/internal/runlog"
	"github.com/sbraun/kidigest/internal/store"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full run.
type Result struct {
	Steps      []StepResult
	Found      int
	Enriched   int
	Errors     int
	Added      int
	StoreTotal int
	Duration   time.Duration
}

// Pipeline orchestrates one run over the configured feeds.
type Pipeline struct {
	cfg      *config.Config
	provider llm.Provider
	db       *runlog.DB // nil when run history is unavailable
}

// New creates a pipeline. db may be nil; run recording is then skipped.
func New(cfg *config.Config, provider llm.Provider, db *runlog.DB) *Pipeline {
	return &Pipeline{cfg: cfg, provider: provider, db: db}
}

// Run executes the batch: load -> collect -> (fetch) -> enrich -> merge ->
// save. With no new entries the store is not written. Per-step failures are
// reported in the Result, never as a process failure.
func (p *Pipeline) Run(ctx context.Context) *Result {
	start := time.Now()
	r := &Result{}
	dataPath := p.cfg.DataFilePath()

	items := store.Load(dataPath)
	before := len(items)
	r.StoreTotal = before
	r.Steps = append(r.Steps, StepResult{
		Name:    "Load",
		Summary: fmt.Sprintf("%d items in store (%s)", before, dataPath),
	})

	existing := make(map[string]struct{}, len(items))
	for uid := range items {
		existing[uid] = struct{}{}
	}

	collector := collect.NewCollector(p.cfg.Feeds, p.cfg.Limits)
	entries := collector.Collect(existing)
	r.Found = len(entries)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("%d new entries across %d feeds", len(entries), len(p.cfg.Feeds)),
	})

	if len(entries) == 0 {
		r.Steps = append(r.Steps, StepResult{
			Name:    "Save",
			Summary: "no new entries, store not written",
		})
		r.Duration = time.Since(start)
		p.record(start, r)
		return r
	}

	if p.cfg.Fetch.FullContent {
		fetcher := fetch.NewFetcher(time.Duration(p.cfg.Fetch.TimeoutSec) * time.Second)
		fr := fetcher.FillMissingContent(entries)
		r.Steps = append(r.Steps, StepResult{
			Name:    "Fetch",
			Summary: fmt.Sprintf("%d bodies fetched, %d failed", fr.Fetched, fr.Failed),
		})
	}

	enricher := enrich.NewEnricher(
		p.provider,
		time.Duration(p.cfg.Enrichment.ThrottleMS)*time.Millisecond,
		p.cfg.Limits.MaxTotal,
		time.Duration(p.cfg.Limits.RunBudgetSec)*time.Second,
	)
	newItems, er := enricher.EnrichAll(ctx, entries)
	r.Enriched = er.Processed
	r.Errors = er.Errors
	r.Steps = append(r.Steps, StepResult{
		Name:    "Enrich",
		Summary: fmt.Sprintf("%d enriched, %d fell back to defaults", er.Processed, er.Errors),
	})

	store.Merge(items, newItems)
	r.Added = len(items) - before
	r.StoreTotal = len(items)

	if err := store.Save(dataPath, items); err != nil {
		log.Printf("ERROR: saving store: %v", err)
		r.Steps = append(r.Steps, StepResult{Name: "Save", Err: err})
	} else {
		r.Steps = append(r.Steps, StepResult{
			Name:    "Save",
			Summary: fmt.Sprintf("%d items written to %s", r.StoreTotal, dataPath),
		})
	}

	r.Duration = time.Since(start)
	p.record(start, r)
	return r
}

// record writes the run to the history database, best-effort.
func (p *Pipeline) record(start time.Time, r *Result) {
	if p.db == nil {
		return
	}
	err := p.db.RecordRun(runlog.Run{
		StartedAt:   start.UTC().Format(time.RFC3339),
		DurationSec: int(r.Duration.Seconds()),
		Found:       r.Found,
		Enriched:    r.Enriched,
		Errors:      r.Errors,
		StoreTotal:  r.StoreTotal,
	})
	if err != nil {
		log.Printf("Failed to record run: %v", err)
	}
}
