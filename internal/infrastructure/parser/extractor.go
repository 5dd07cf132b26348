package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"JobsScanner/internal/domain"
	"JobsScanner/internal/ports"
)

const (
	titleSelector   = "h1.entry-title"
	detailsSelector = "blockquote.style-3"
)

// Extractor reads the title and labeled links of one listing page.
type Extractor struct {
	pages  PageFetcher
	logger *slog.Logger
}

var _ ports.ListingExtractor = (*Extractor)(nil)

// NewExtractor wires the page fetcher.
func NewExtractor(pages PageFetcher, log *slog.Logger) *Extractor {
	return &Extractor{pages: pages, logger: log}
}

// Extract loads pageURL and parses it. A missing title yields domain.ErrStructuralParse.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (domain.Listing, error) {
	doc, err := fetchDocument(ctx, e.pages, pageURL)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("load listing: %w", err)
	}

	listing, err := parseListing(doc, pageURL)
	if err != nil {
		return domain.Listing{}, err
	}

	e.debug("listing parsed", "url", pageURL, "title", listing.Title, "links", len(listing.Links))
	return listing, nil
}

func parseListing(doc *goquery.Document, pageURL string) (domain.Listing, error) {
	title := doc.Find(titleSelector).First()
	if title.Length() == 0 {
		return domain.Listing{}, fmt.Errorf("%w: no %s on %s", domain.ErrStructuralParse, titleSelector, pageURL)
	}

	return domain.Listing{
		SourceURL: pageURL,
		Title:     strings.TrimSpace(title.Text()),
		Links:     extractLabeledLinks(doc, pageURL),
	}, nil
}

// extractLabeledLinks pairs every anchor inside a details block with the nearest <b>
// that precedes it in document order, even outside the block. The first link seen for
// a role wins.
func extractLabeledLinks(doc *goquery.Document, pageURL string) map[domain.LinkRole]string {
	links := map[domain.LinkRole]string{}
	base, _ := url.Parse(pageURL)

	anchors := map[*html.Node]struct{}{}
	doc.Find(detailsSelector).Find("a").Each(func(_ int, a *goquery.Selection) {
		anchors[a.Get(0)] = struct{}{}
	})
	if len(anchors) == 0 {
		return links
	}

	var label string
	walk(doc.Get(0), func(node *html.Node) {
		if node.Type != html.ElementNode {
			return
		}
		if node.Data == "b" {
			label = nodeText(node)
			return
		}
		if _, ok := anchors[node]; !ok {
			return
		}
		role, ok := domain.ClassifyLabel(label)
		if !ok {
			return
		}
		if _, taken := links[role]; taken {
			return
		}
		href := strings.TrimSpace(attr(node, "href"))
		if href == "" {
			return
		}
		links[role] = resolve(base, href)
	})

	return links
}

// walk visits nodes in document order, parents before children.
func walk(n *html.Node, visit func(*html.Node)) {
	if n == nil {
		return
	}
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	})
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func resolve(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func (e *Extractor) debug(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
