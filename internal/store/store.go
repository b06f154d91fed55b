// Package store persists enriched feed items as a single JSON array, keyed
// in memory by uid for overwrite-on-merge semantics.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
)

// Item is one enriched feed entry as persisted in the data file.
type Item struct {
	UID       string   `json:"uid"`
	Source    string   `json:"source"`
	Title     string   `json:"title"`
	Link      string   `json:"link"`
	Published string   `json:"published"`
	Kind      string   `json:"type"`
	AudioURL  string   `json:"audio_url"`
	SummaryAI string   `json:"summary_ai"`
	Topics    []string `json:"topics"`
	Sentiment string   `json:"sentiment"`
}

// Load reads the persisted JSON array into a uid-keyed map. A missing file is
// an empty store. A corrupt file is treated as an empty store too, but logged
// loudly since the next save will overwrite it. Legacy records without a uid
// fall back to their link as key.
func Load(path string) map[string]Item {
	result := make(map[string]Item)

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("WARNING: cannot read store %s, starting empty: %v", path, err)
		}
		return result
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		log.Printf("WARNING: store %s is corrupt, starting empty (next save overwrites it): %v", path, err)
		return result
	}

	for _, item := range items {
		key := item.UID
		if key == "" {
			key = item.Link
		}
		if key == "" {
			continue
		}
		result[key] = item
	}
	return result
}

// Merge upserts items into the store by uid. New values overwrite prior
// records entirely; there is no field-level merge.
func Merge(dst map[string]Item, items []Item) {
	for _, item := range items {
		if item.UID == "" {
			continue
		}
		dst[item.UID] = item
	}
}

// Save serializes the store as an indented JSON array sorted by published
// descending and writes it via a temp file + rename in the target directory.
// Non-ASCII characters are emitted literally.
func Save(path string, items map[string]Item) error {
	sorted := make([]Item, 0, len(items))
	for _, item := range items {
		sorted = append(sorted, item)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Published > sorted[j].Published
	})

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(sorted); err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".store-*.json")
	if err != nil {
		return fmt.Errorf("creating temp store: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing store: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing store: %w", err)
	}
	return nil
}
