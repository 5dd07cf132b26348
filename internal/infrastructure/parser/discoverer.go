package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"JobsScanner/internal/ports"
)

// listingAnchorSelector matches the post links on the index page.
const listingAnchorSelector = "a._self.cvplbd"

// Discoverer finds listing URLs on the index page.
type Discoverer struct {
	pages    PageFetcher
	indexURL string
	logger   *slog.Logger
}

var _ ports.ListingSource = (*Discoverer)(nil)

// NewDiscoverer wires the fetcher and the index endpoint.
func NewDiscoverer(pages PageFetcher, indexURL string, log *slog.Logger) *Discoverer {
	return &Discoverer{pages: pages, indexURL: indexURL, logger: log}
}

// Discover returns absolute listing URLs in document order, without duplicates.
func (d *Discoverer) Discover(ctx context.Context) ([]string, error) {
	base, err := url.Parse(d.indexURL)
	if err != nil {
		return nil, fmt.Errorf("invalid index url %s: %w", d.indexURL, err)
	}

	doc, err := fetchDocument(ctx, d.pages, d.indexURL)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}

	urls := extractListingURLs(doc, base)
	d.debug("index parsed", "url", d.indexURL, "listings", len(urls))
	return urls, nil
}

func extractListingURLs(doc *goquery.Document, base *url.URL) []string {
	var (
		urls []string
		seen = map[string]struct{}{}
	)

	doc.Find(listingAnchorSelector).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		urls = append(urls, abs)
	})

	return urls
}

func (d *Discoverer) debug(msg string, args ...interface{}) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
