// Package docstore persists uploaded documents for the stub backend. The
// search semantics are intentionally naive; relevance belongs to the real
// backend.
package docstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no document has the requested id.
var ErrNotFound = errors.New("document not found")

// Document is a stored entry with its file content.
type Document struct {
	ID              string
	MajorHead       string
	MinorHead       string
	DocumentDate    string
	DocumentRemarks string
	Tags            []string
	UploadedBy      string
	UploadedAt      time.Time
	FileName        string
	ContentType     string
	Content         []byte
}

// Filters narrows a search. Zero values mean "no filter".
type Filters struct {
	MajorHead  string
	MinorHead  string
	FromDate   string
	ToDate     string
	Tags       []string
	UploadedBy string
	Query      string
	Start      int
	Length     int
}

// Store persists and queries documents.
type Store interface {
	Save(ctx context.Context, doc Document) error
	Get(ctx context.Context, id string) (Document, error)
	// Search returns the requested page and the total matched count.
	Search(ctx context.Context, f Filters) ([]Document, int, error)
	// Tags returns the distinct tag names containing term.
	Tags(ctx context.Context, term string) ([]string, error)
}

// dateLayouts covers the formats the original client sends for document dates.
var dateLayouts = []string{"02-01-2006", "2006-01-02"}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
