// Package fetch fills in body text for article entries whose feed carries
// none, by downloading the page and extracting readable text. It is an
// optional pre-enrichment step, disabled by default.
package fetch

import (
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/sbraun/kidigest/internal/collect"
	"github.com/sbraun/kidigest/internal/config"
)

const maxContentLen = 4000

// Result holds the results of a content fetch run.
type Result struct {
	Fetched int
	Skipped int
	Failed  int
}

// Fetcher fetches full article text via HTTP + readability extraction.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FillMissingContent fetches page text for article entries with an empty
// body, updating them in place. Failures leave the entry untouched; a domain
// that errors once is not retried within the run.
func (f *Fetcher) FillMissingContent(entries []collect.Entry) *Result {
	result := &Result{}
	failedDomains := make(map[string]struct{})

	for i := range entries {
		e := &entries[i]
		if e.Kind != config.KindArticle || e.ContentRaw != "" || e.Link == "" {
			result.Skipped++
			continue
		}

		u, _ := url.Parse(e.Link)
		domain := ""
		if u != nil {
			domain = strings.ToLower(u.Host)
		}
		if _, failed := failedDomains[domain]; failed {
			result.Failed++
			continue
		}

		text, httpErr := f.fetchArticleContent(e.Link)
		if httpErr != nil {
			result.Failed++
			if domain != "" {
				failedDomains[domain] = struct{}{}
			}
			log.Printf("HTTP error for %s, skipping remaining from %s", e.Link, domain)
			continue
		}

		if text == "" {
			result.Failed++
			log.Printf("No extractable content from: %s", e.Link)
			continue
		}

		if len(text) > maxContentLen {
			text = text[:maxContentLen]
		}
		e.ContentRaw = text
		result.Fetched++
		log.Printf("Fetched content for: %s", e.Title)
	}

	if result.Fetched > 0 || result.Failed > 0 {
		log.Printf("Content fetch complete: %d fetched, %d failed", result.Fetched, result.Failed)
	}
	return result
}

func (f *Fetcher) fetchArticleContent(articleURL string) (string, error) {
	req, err := http.NewRequest("GET", articleURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "kidigest/1.0 (feed digest)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil // connection error, not HTTP error
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil
	}

	parsedURL, _ := url.Parse(articleURL)
	article, err := readability.FromReader(strings.NewReader(string(bodyBytes)), parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) > 100 {
		return text, nil
	}
	return "", nil
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
