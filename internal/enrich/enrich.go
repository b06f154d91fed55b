package enrich

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sbraun/kidigest/internal/collect"
	"github.com/sbraun/kidigest/internal/llm"
	"github.com/sbraun/kidigest/internal/store"
)

const enrichPrompt = `Du bist ein JSON-Generator. Antworte ausschließlich mit einem einzelnen JSON-Objekt ohne Erklärtext oder Markdown.
Schlüssel:
1) "summary_ai": max. 2 Sätze (Deutsch).
2) "topics": genau 3 Schlagwörter (Array aus Strings, Deutsch).
3) "sentiment": einer von ["positiv","neutral","negativ"].

Eingang:
---
Titel: %s
Text: %s
---
`

// fallbackSummary is persisted when the model call or its output cannot be
// used for an entry.
const fallbackSummary = "Zusammenfassung konnte nicht erstellt werden."

const topicCount = 3

var validSentiments = map[string]struct{}{
	"positiv": {},
	"neutral": {},
	"negativ": {},
}

// Result holds the counters of an enrichment run.
type Result struct {
	Processed int
	Errors    int
}

// Enricher turns extracted entries into persistable items via the LLM
// provider. It never fails a batch: per-entry errors degrade to coerced
// defaults.
type Enricher struct {
	provider llm.Provider
	throttle time.Duration
	maxTotal int
	budget   time.Duration
}

// NewEnricher creates an enricher. throttle is slept after every call as a
// cooperative rate limit; maxTotal and budget cap the run (0 disables).
func NewEnricher(provider llm.Provider, throttle time.Duration, maxTotal int, budget time.Duration) *Enricher {
	return &Enricher{
		provider: provider,
		throttle: throttle,
		maxTotal: maxTotal,
		budget:   budget,
	}
}

// EnrichAll enriches entries in extraction order. Entries beyond the total
// cap or the time budget are left for the next run. Every entry that is
// processed yields exactly one item, content_raw is dropped in the process.
func (e *Enricher) EnrichAll(ctx context.Context, entries []collect.Entry) ([]store.Item, *Result) {
	r := &Result{}
	if len(entries) == 0 {
		return nil, r
	}

	start := time.Now()
	log.Printf("Enriching up to %d entries...", len(entries))

	var items []store.Item
	for _, entry := range entries {
		if e.maxTotal > 0 && len(items) >= e.maxTotal {
			log.Println("Total cap reached, deferring remaining entries")
			break
		}
		if e.budget > 0 && time.Since(start) >= e.budget {
			log.Printf("Run budget reached (%s), deferring remaining entries", e.budget)
			break
		}

		c := e.enrichOne(ctx, entry)
		if c.failed {
			r.Errors++
			log.Printf("Enrichment failed for %q, keeping fallback values", entry.Title)
		} else {
			r.Processed++
			log.Printf("Enriched %q: sentiment=%s topics=%v", entry.Title, c.sentiment, c.topics)
		}

		items = append(items, store.Item{
			UID:       entry.UID,
			Source:    entry.Source,
			Title:     entry.Title,
			Link:      entry.Link,
			Published: entry.Published,
			Kind:      entry.Kind,
			AudioURL:  entry.AudioURL,
			SummaryAI: c.summary,
			Topics:    c.topics,
			Sentiment: c.sentiment,
		})

		time.Sleep(e.throttle)
	}

	log.Printf("Enrichment done: %d ok, %d errors, %d total", r.Processed, r.Errors, len(items))
	return items, r
}

type coerced struct {
	summary   string
	topics    []string
	sentiment string
	failed    bool
}

func (e *Enricher) enrichOne(ctx context.Context, entry collect.Entry) coerced {
	prompt := fmt.Sprintf(enrichPrompt, entry.Title, entry.ContentRaw)

	text, err := e.provider.Generate(ctx, prompt)
	if err != nil {
		c := coerce(nil)
		c.failed = true
		return c
	}

	return coerce(llm.ExtractJSONObject(text))
}

// coerce normalizes a parsed model response into the fixed schema. It is
// total: any input, including nil, yields a trimmed summary, exactly three
// topic strings and a valid sentiment token.
func coerce(obj map[string]any) coerced {
	c := coerced{
		summary:   fallbackSummary,
		sentiment: "neutral",
	}

	if s, ok := obj["summary_ai"].(string); ok {
		c.summary = s
	}
	c.summary = strings.TrimSpace(c.summary)

	if list, ok := obj["topics"].([]any); ok {
		for _, t := range list {
			if len(c.topics) == topicCount {
				break
			}
			if s, ok := t.(string); ok {
				c.topics = append(c.topics, s)
			} else {
				c.topics = append(c.topics, fmt.Sprint(t))
			}
		}
	}
	for len(c.topics) < topicCount {
		c.topics = append(c.topics, "")
	}

	if s, ok := obj["sentiment"].(string); ok {
		if _, valid := validSentiments[s]; valid {
			c.sentiment = s
		}
	}

	return c
}
