package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/sbraun/kidigest/internal/collect"
)

// mockProvider implements llm.Provider for testing.
type mockProvider struct {
	response string
	err      error
	prompts  []string
}

func (m *mockProvider) Generate(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

func testEntry(uid string) collect.Entry {
	return collect.Entry{
		UID:        uid,
		Source:     "Test",
		Title:      "Titel " + uid,
		Link:       "https://example.com/" + uid,
		Published:  "2026-03-10T12:00:00Z",
		ContentRaw: "Inhalt von " + uid,
		Kind:       "article",
	}
}

func TestEnrichAllHappyPath(t *testing.T) {
	mock := &mockProvider{response: `{"summary_ai": " Eine kurze Zusammenfassung. ", "topics": ["KI", "Politik", "Wirtschaft"], "sentiment": "positiv"}`}
	e := NewEnricher(mock, 0, 0, 0)

	items, r := e.EnrichAll(context.Background(), []collect.Entry{testEntry("a")})

	if r.Processed != 1 || r.Errors != 0 {
		t.Fatalf("expected 1 processed, got %+v", r)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}

	item := items[0]
	if item.SummaryAI != "Eine kurze Zusammenfassung." {
		t.Errorf("expected trimmed summary, got %q", item.SummaryAI)
	}
	if len(item.Topics) != 3 || item.Topics[0] != "KI" {
		t.Errorf("unexpected topics %v", item.Topics)
	}
	if item.Sentiment != "positiv" {
		t.Errorf("expected sentiment positiv, got %q", item.Sentiment)
	}
	if item.UID != "a" || item.Published != "2026-03-10T12:00:00Z" {
		t.Errorf("entry fields not carried over: %+v", item)
	}
}

func TestEnrichAllPromptEmbedsTitleAndContent(t *testing.T) {
	mock := &mockProvider{response: `{}`}
	e := NewEnricher(mock, 0, 0, 0)

	e.EnrichAll(context.Background(), []collect.Entry{testEntry("a")})

	if len(mock.prompts) != 1 {
		t.Fatalf("expected 1 call, got %d", len(mock.prompts))
	}
	prompt := mock.prompts[0]
	if !contains(prompt, "Titel a") || !contains(prompt, "Inhalt von a") {
		t.Errorf("prompt missing entry fields:\n%s", prompt)
	}
	if !contains(prompt, `"summary_ai"`) || !contains(prompt, `"sentiment"`) {
		t.Errorf("prompt missing schema instructions:\n%s", prompt)
	}
}

func TestEnrichAllProseWrappedResponse(t *testing.T) {
	mock := &mockProvider{response: `I think this is about AI. {"summary_ai":"x","topics":["a","b"],"sentiment":"bogus"}`}
	e := NewEnricher(mock, 0, 0, 0)

	items, _ := e.EnrichAll(context.Background(), []collect.Entry{testEntry("a")})

	item := items[0]
	if item.SummaryAI != "x" {
		t.Errorf("expected summary 'x', got %q", item.SummaryAI)
	}
	if item.Topics[0] != "a" || item.Topics[1] != "b" || item.Topics[2] != "" {
		t.Errorf("expected padded topics [a b \"\"], got %v", item.Topics)
	}
	if item.Sentiment != "neutral" {
		t.Errorf("expected bogus sentiment coerced to neutral, got %q", item.Sentiment)
	}
}

func TestEnrichAllCallFailure(t *testing.T) {
	mock := &mockProvider{err: errors.New("boom")}
	e := NewEnricher(mock, 0, 0, 0)

	items, r := e.EnrichAll(context.Background(), []collect.Entry{testEntry("a")})

	if r.Errors != 1 || r.Processed != 0 {
		t.Fatalf("expected 1 error, got %+v", r)
	}
	if len(items) != 1 {
		t.Fatal("entry must still be persisted on call failure")
	}

	item := items[0]
	if item.SummaryAI != "Zusammenfassung konnte nicht erstellt werden." {
		t.Errorf("expected fallback summary, got %q", item.SummaryAI)
	}
	if len(item.Topics) != 3 || item.Topics[0] != "" || item.Topics[1] != "" || item.Topics[2] != "" {
		t.Errorf("expected three empty topics, got %v", item.Topics)
	}
	if item.Sentiment != "neutral" {
		t.Errorf("expected neutral sentiment, got %q", item.Sentiment)
	}
}

func TestEnrichAllTotalCap(t *testing.T) {
	mock := &mockProvider{response: `{}`}
	e := NewEnricher(mock, 0, 2, 0)

	entries := []collect.Entry{testEntry("a"), testEntry("b"), testEntry("c")}
	items, _ := e.EnrichAll(context.Background(), entries)

	if len(items) != 2 {
		t.Errorf("expected cap at 2 items, got %d", len(items))
	}
}

func TestEnrichAllEmptyBatch(t *testing.T) {
	mock := &mockProvider{response: `{}`}
	e := NewEnricher(mock, 0, 0, 0)

	items, r := e.EnrichAll(context.Background(), nil)
	if len(items) != 0 || r.Processed != 0 {
		t.Errorf("expected no-op for empty batch, got %d items", len(items))
	}
	if len(mock.prompts) != 0 {
		t.Error("expected no provider calls for empty batch")
	}
}

func TestCoerceTotal(t *testing.T) {
	tests := []struct {
		name          string
		in            map[string]any
		wantSummary   string
		wantTopics    []string
		wantSentiment string
	}{
		{
			name:          "nil object",
			in:            nil,
			wantSummary:   "Zusammenfassung konnte nicht erstellt werden.",
			wantTopics:    []string{"", "", ""},
			wantSentiment: "neutral",
		},
		{
			name:          "empty object",
			in:            map[string]any{},
			wantSummary:   "Zusammenfassung konnte nicht erstellt werden.",
			wantTopics:    []string{"", "", ""},
			wantSentiment: "neutral",
		},
		{
			name:          "null fields",
			in:            map[string]any{"summary_ai": nil, "topics": nil, "sentiment": nil},
			wantSummary:   "Zusammenfassung konnte nicht erstellt werden.",
			wantTopics:    []string{"", "", ""},
			wantSentiment: "neutral",
		},
		{
			name:          "topics not a list",
			in:            map[string]any{"summary_ai": "s", "topics": "KI", "sentiment": "negativ"},
			wantSummary:   "s",
			wantTopics:    []string{"", "", ""},
			wantSentiment: "negativ",
		},
		{
			name:          "too many topics",
			in:            map[string]any{"topics": []any{"a", "b", "c", "d", "e"}},
			wantSummary:   "Zusammenfassung konnte nicht erstellt werden.",
			wantTopics:    []string{"a", "b", "c"},
			wantSentiment: "neutral",
		},
		{
			name:          "non-string topics stringified",
			in:            map[string]any{"topics": []any{float64(1), true}},
			wantSummary:   "Zusammenfassung konnte nicht erstellt werden.",
			wantTopics:    []string{"1", "true", ""},
			wantSentiment: "neutral",
		},
		{
			name:          "wrong enum sentiment",
			in:            map[string]any{"sentiment": "happy"},
			wantSummary:   "Zusammenfassung konnte nicht erstellt werden.",
			wantTopics:    []string{"", "", ""},
			wantSentiment: "neutral",
		},
		{
			name:          "valid everything",
			in:            map[string]any{"summary_ai": "  ok  ", "topics": []any{"x", "y", "z"}, "sentiment": "positiv"},
			wantSummary:   "ok",
			wantTopics:    []string{"x", "y", "z"},
			wantSentiment: "positiv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := coerce(tt.in)
			if got.summary != tt.wantSummary {
				t.Errorf("summary = %q, want %q", got.summary, tt.wantSummary)
			}
			if len(got.topics) != 3 {
				t.Fatalf("topics length = %d, want 3", len(got.topics))
			}
			for i := range got.topics {
				if got.topics[i] != tt.wantTopics[i] {
					t.Errorf("topics[%d] = %q, want %q", i, got.topics[i], tt.wantTopics[i])
				}
			}
			if got.sentiment != tt.wantSentiment {
				t.Errorf("sentiment = %q, want %q", got.sentiment, tt.wantSentiment)
			}
		})
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
