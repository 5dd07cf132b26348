package ports

import (
	"context"

	"JobsScanner/internal/domain"
)

// ListingSource discovers candidate listing URLs on the index page.
type ListingSource interface {
	Discover(ctx context.Context) ([]string, error)
}

// ListingExtractor turns one listing page into its title and labeled links.
type ListingExtractor interface {
	Extract(ctx context.Context, url string) (domain.Listing, error)
}

// CheckpointStore remembers listings that were already delivered.
type CheckpointStore interface {
	Exists(ctx context.Context, url string) (bool, error)
	RecordProcessed(ctx context.Context, url, title string) error
}

// AttachmentFetcher downloads a labeled link into dir.
type AttachmentFetcher interface {
	FetchAttachment(ctx context.Context, url, dir string) (domain.Attachment, error)
}

// Shortener returns a short form of url, or url itself when shortening fails.
type Shortener interface {
	Shorten(ctx context.Context, url string) string
}

// Notifier delivers a composed message to the downstream channel.
type Notifier interface {
	Notify(ctx context.Context, msg domain.Message) error
}
