package docstore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type inMemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewInMemory creates a concurrency-safe in-memory store used when no
// database is configured and in unit tests.
func NewInMemory() Store {
	return &inMemoryStore{docs: make(map[string]Document)}
}

func (s *inMemoryStore) Save(_ context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	return nil
}

func (s *inMemoryStore) Get(_ context.Context, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (s *inMemoryStore) Search(_ context.Context, f Filters) ([]Document, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Document
	for _, doc := range s.docs {
		if matches(doc, f) {
			matched = append(matched, doc)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UploadedAt.After(matched[j].UploadedAt)
	})

	total := len(matched)
	page := paginate(matched, f.Start, f.Length)
	return page, total, nil
}

func (s *inMemoryStore) Tags(_ context.Context, term string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	lowered := strings.ToLower(term)
	for _, doc := range s.docs {
		for _, tag := range doc.Tags {
			if term == "" || strings.Contains(strings.ToLower(tag), lowered) {
				seen[tag] = struct{}{}
			}
		}
	}
	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}

func matches(doc Document, f Filters) bool {
	if f.MajorHead != "" && doc.MajorHead != f.MajorHead {
		return false
	}
	if f.MinorHead != "" && doc.MinorHead != f.MinorHead {
		return false
	}
	if f.UploadedBy != "" && doc.UploadedBy != f.UploadedBy {
		return false
	}
	for _, want := range f.Tags {
		if !containsTag(doc.Tags, want) {
			return false
		}
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(doc.DocumentRemarks), q) &&
			!strings.Contains(strings.ToLower(doc.FileName), q) {
			return false
		}
	}
	if !withinDateRange(doc.DocumentDate, f.FromDate, f.ToDate) {
		return false
	}
	return true
}

func containsTag(tags []string, want string) bool {
	for _, tag := range tags {
		if strings.EqualFold(tag, want) {
			return true
		}
	}
	return false
}

// withinDateRange filters on the document date when all involved dates parse;
// unparseable bounds are ignored rather than excluding the document.
func withinDateRange(date, from, to string) bool {
	docDate, ok := parseDate(date)
	if !ok {
		return from == "" && to == ""
	}
	if from != "" {
		if fromDate, ok := parseDate(from); ok && docDate.Before(fromDate) {
			return false
		}
	}
	if to != "" {
		if toDate, ok := parseDate(to); ok && docDate.After(toDate) {
			return false
		}
	}
	return true
}

func paginate(docs []Document, start, length int) []Document {
	if start < 0 {
		start = 0
	}
	if start >= len(docs) {
		return []Document{}
	}
	if length <= 0 {
		length = 10
	}
	end := start + length
	if end > len(docs) {
		end = len(docs)
	}
	return docs[start:end]
}
