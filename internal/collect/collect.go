package collect

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/sbraun/kidigest/internal/config"
)

const maxContentLen = 4000

// Entry is a feed entry extracted during a run, before enrichment. ContentRaw
// is transient input for the enrichment prompt and is never persisted.
type Entry struct {
	UID        string
	Source     string
	Title      string
	Link       string
	Published  string // RFC 3339, UTC
	ContentRaw string
	Kind       string
	AudioURL   string
}

// Collector extracts new entries from the configured feeds.
type Collector struct {
	feeds  []config.Feed
	limits config.Limits
	parser *gofeed.Parser
	now    func() time.Time
}

// NewCollector creates a collector over the configured feeds.
func NewCollector(feeds []config.Feed, limits config.Limits) *Collector {
	return &Collector{
		feeds:  feeds,
		limits: limits,
		parser: gofeed.NewParser(),
		now:    time.Now,
	}
}

// Collect fetches all configured feeds and returns entries whose uid is not
// in existing. Per-feed failures are logged and skipped; they never abort the
// remaining feeds.
func (c *Collector) Collect(existing map[string]struct{}) []Entry {
	var all []Entry
	log.Println("Checking feeds for new entries...")

	firstRun := len(existing) == 0 && c.limits.FirstRunShallow

	for _, fc := range c.feeds {
		if c.limits.MaxTotal > 0 && len(all) >= c.limits.MaxTotal {
			break
		}

		feed, err := c.parser.ParseURL(fc.URL)
		if err != nil {
			log.Printf("Failed to fetch feed %s: %v", fc.Name, err)
			continue
		}

		remaining := -1
		if c.limits.MaxTotal > 0 {
			remaining = c.limits.MaxTotal - len(all)
		}
		entries := c.extractItems(feed.Items, fc, existing, firstRun, remaining)
		all = append(all, entries...)
	}

	return all
}

// extractItems walks one feed's items and returns the new entries, honoring
// the per-feed cap, the remaining global budget and the recency window.
// remaining < 0 means no global cap.
func (c *Collector) extractItems(items []*gofeed.Item, fc config.Feed, existing map[string]struct{}, firstRun bool, remaining int) []Entry {
	cutoff := time.Time{}
	if c.limits.RecencyDays > 0 {
		cutoff = c.now().UTC().AddDate(0, 0, -c.limits.RecencyDays)
	}

	// Newest first; many feeds list oldest first.
	reversed := make([]*gofeed.Item, len(items))
	for i, item := range items {
		reversed[len(items)-1-i] = item
	}
	if firstRun && c.limits.MaxPerFeed > 0 && len(reversed) > c.limits.MaxPerFeed {
		reversed = reversed[:c.limits.MaxPerFeed]
	}

	var entries []Entry
	for _, item := range reversed {
		if remaining >= 0 && len(entries) >= remaining {
			break
		}
		if c.limits.MaxPerFeed > 0 && len(entries) >= c.limits.MaxPerFeed {
			break
		}

		uid := c.makeUID(item)
		if _, ok := existing[uid]; ok {
			continue
		}

		published := c.publishedTime(item)
		if !cutoff.IsZero() && published.Before(cutoff) {
			continue
		}

		body := item.Description
		if body == "" {
			body = item.Content
		}
		content := CleanHTML(body)
		if len(content) > maxContentLen {
			content = content[:maxContentLen]
		}

		audioURL := ""
		if fc.Kind == config.KindPodcast {
			audioURL = findAudioURL(item)
		}

		entry := Entry{
			UID:        uid,
			Source:     fc.Name,
			Title:      strings.TrimSpace(item.Title),
			Link:       strings.TrimSpace(item.Link),
			Published:  published.Format(time.RFC3339),
			ContentRaw: content,
			Kind:       fc.Kind,
			AudioURL:   audioURL,
		}
		entries = append(entries, entry)
		log.Printf("New: %q [%s]", entry.Title, fc.Name)
	}

	return entries
}

// makeUID derives a stable identifier: feed-native id/guid, then link, then a
// synthesized title+time composite. The composite is unique within a run but
// not stable across runs.
func (c *Collector) makeUID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	if item.Link != "" {
		return item.Link
	}
	title := item.Title
	if len(title) > 50 {
		title = title[:50]
	}
	return fmt.Sprintf("no-id::%s::%d", title, c.now().UnixNano())
}

// publishedTime resolves the publish timestamp in UTC, preferring the
// structured published time, then updated, then the extraction wall clock.
func (c *Collector) publishedTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC()
	}
	return c.now().UTC()
}

// findAudioURL returns the first enclosure URL with an audio media type.
// Atom links with rel="enclosure" surface as enclosures too. Absence is not
// an error.
func findAudioURL(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		if strings.Contains(enc.Type, "audio") && enc.URL != "" {
			return enc.URL
		}
	}
	return ""
}
