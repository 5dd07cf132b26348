package domain

import "time"

// Listing is one discovered job posting. SourceURL is its only identity.
type Listing struct {
	SourceURL string
	Title     string
	Links     map[LinkRole]string
}

// OrderedLinks returns the labeled links in role-processing order.
func (l Listing) OrderedLinks() []LabeledLink {
	links := make([]LabeledLink, 0, len(l.Links))
	for _, role := range RoleOrder {
		if href, ok := l.Links[role]; ok && href != "" {
			links = append(links, LabeledLink{Role: role, URL: href})
		}
	}
	return links
}

// LabeledLink pairs a URL with the role it was classified under.
type LabeledLink struct {
	Role LinkRole
	URL  string
}

// ProcessingRecord is persisted once a listing has been delivered.
type ProcessingRecord struct {
	URL         string    `bson:"url"`
	Title       string    `bson:"title"`
	ProcessedAt time.Time `bson:"processed_at"`
}

// Attachment is a downloaded file owned by the listing currently being processed.
type Attachment struct {
	Role      LinkRole
	LocalPath string
	Size      int64
	SourceURL string
}

// Message is the outbound notification for a single listing.
type Message struct {
	Text           string
	AttachmentPath string
}

// HasAttachment reports whether the message carries a document.
func (m Message) HasAttachment() bool {
	return m.AttachmentPath != ""
}
