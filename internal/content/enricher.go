package content

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Enricher fills read descriptions from the linked pages' metadata.
type Enricher struct {
	client *http.Client
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]string
}

func NewEnricher(client *http.Client, logger *slog.Logger) *Enricher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Enricher{client: client, logger: logger, cache: map[string]string{}}
}

// Enrich returns a copy of reads with Description set where the page
// provides one. Pages that fail to load keep their catalog entry.
func (e *Enricher) Enrich(ctx context.Context, reads []Read) []Read {
	out := make([]Read, len(reads))
	copy(out, reads)

	var wg sync.WaitGroup
	for i := range out {
		if out[i].Description != "" {
			continue
		}
		wg.Add(1)
		go func(r *Read) {
			defer wg.Done()
			desc, err := e.describe(ctx, r.URL)
			if err != nil {
				e.logger.Debug("read enrichment failed", "url", r.URL, "error", err)
				return
			}
			r.Description = desc
		}(&out[i])
	}
	wg.Wait()
	return out
}

func (e *Enricher) describe(ctx context.Context, url string) (string, error) {
	e.mu.Lock()
	desc, ok := e.cache[url]
	e.mu.Unlock()
	if ok {
		return desc, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "ai-fitness-planner/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	desc = PageDescription(doc)
	if desc == "" {
		return "", fmt.Errorf("page has no description")
	}

	e.mu.Lock()
	e.cache[url] = desc
	e.mu.Unlock()
	return desc, nil
}

// PageDescription extracts the best available summary of a page: its meta
// description, its Open Graph description, or its first paragraph.
func PageDescription(doc *goquery.Document) string {
	for _, sel := range []string{`meta[name="description"]`, `meta[property="og:description"]`} {
		if v, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return strings.TrimSpace(doc.Find("p").First().Text())
}
