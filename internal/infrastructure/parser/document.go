package parser

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"JobsScanner/internal/infrastructure/fetcher"
)

// PageFetcher is the subset of the fetcher used to load HTML pages.
type PageFetcher interface {
	Get(ctx context.Context, url string) (*fetcher.Response, error)
}

func fetchDocument(ctx context.Context, pages PageFetcher, pageURL string) (*goquery.Document, error) {
	resp, err := pages.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}
