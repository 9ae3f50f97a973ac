// Package document wraps the document-management endpoints: tag lookup,
// multipart upload, filtered search, and binary download. All storage and
// search logic lives on the backend; this is a typed client surface over the
// gateway.
package document

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/url"

	"github.com/docu-man/documan/internal/credstore"
	"github.com/docu-man/documan/internal/demo"
	"github.com/docu-man/documan/internal/gateway"
)

// Tag is a single document label.
type Tag struct {
	TagName string `json:"tag_name"`
}

// ID is a document identifier. Backend revisions have returned both JSON
// numbers and strings here; either decodes.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = ID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*id = ID(s)
	return nil
}

func (id ID) String() string { return string(id) }

// Entry is a stored document as returned by search.
type Entry struct {
	ID              ID       `json:"id"`
	MajorHead       string   `json:"major_head"`
	MinorHead       string   `json:"minor_head"`
	DocumentDate    string   `json:"document_date"`
	DocumentRemarks string   `json:"document_remarks"`
	Tags            []string `json:"tags"`
	UploadedBy      string   `json:"uploaded_by"`
	UploadedAt      string   `json:"uploaded_at"`
	FileName        string   `json:"file_name"`
}

// UploadInput carries the file and its metadata for saveDocumentEntry.
type UploadInput struct {
	FileName string
	File     io.Reader
	Metadata Metadata
}

// Metadata is the JSON `data` part of the multipart upload payload.
type Metadata struct {
	MajorHead       string `json:"major_head"`
	MinorHead       string `json:"minor_head"`
	DocumentDate    string `json:"document_date"`
	DocumentRemarks string `json:"document_remarks"`
	Tags            []Tag  `json:"tags"`
	UserID          string `json:"user_id"`
}

// Filters narrows a searchDocumentEntry call. Zero values mean "no filter".
type Filters struct {
	MajorHead  string `json:"major_head"`
	MinorHead  string `json:"minor_head"`
	FromDate   string `json:"from_date"`
	ToDate     string `json:"to_date"`
	Tags       []Tag  `json:"tags"`
	UploadedBy string `json:"uploaded_by"`
	Start      int    `json:"start"`
	Length     int    `json:"length"`
	FilterID   string `json:"filterId"`
	Search     Search `json:"search"`
}

// Search is the free-text portion of the filter payload.
type Search struct {
	Value string `json:"value"`
}

// SearchResult is the normalized search response.
type SearchResult struct {
	Entries      []Entry
	RecordsTotal int
}

// UploadResult reports a stored document.
type UploadResult struct {
	Message    string
	DocumentID string
	FileName   string
}

// Service exposes document operations over the gateway. When the stored token
// is a synthetic demo token the read paths answer from fixtures without any
// network call, matching the original client's demo mode.
type Service struct {
	gw     *gateway.Gateway
	creds  *credstore.Store
	logger *slog.Logger
}

// NewService builds the document service.
func NewService(gw *gateway.Gateway, creds *credstore.Store, logger *slog.Logger) *Service {
	return &Service{gw: gw, creds: creds, logger: logger}
}

// Tags fetches the known tags, optionally filtered by term.
func (s *Service) Tags(ctx context.Context, term string) ([]Tag, error) {
	if s.demoMode() {
		return demoTags(), nil
	}
	env, err := s.gw.PostJSON(ctx, "/documentTags", map[string]string{"term": term})
	if err != nil {
		return nil, err
	}
	return decodeTags(env)
}

// Upload stores a document with its metadata via a multipart request. The
// multipart boundary is set by the request itself and survives the gateway's
// credential middleware untouched.
func (s *Service) Upload(ctx context.Context, in UploadInput) (UploadResult, error) {
	if s.demoMode() {
		return demoUpload(in), nil
	}
	env, err := s.gw.PostMultipart(ctx, "/saveDocumentEntry", func(w *multipart.Writer) error {
		part, err := w.CreateFormFile("file", in.FileName)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, in.File); err != nil {
			return err
		}
		meta, err := json.Marshal(in.Metadata)
		if err != nil {
			return err
		}
		return w.WriteField("data", string(meta))
	})
	if err != nil {
		return UploadResult{}, err
	}
	if !env.OK() {
		return UploadResult{}, fmt.Errorf("upload rejected: %s", env.Text())
	}
	result := UploadResult{Message: env.Text(), FileName: in.FileName}
	// Backend revisions have named the identifier both "id" and "document_id".
	var data struct {
		ID         string `json:"id"`
		DocumentID string `json:"document_id"`
		FileName   string `json:"file_name"`
	}
	if len(env.Data) > 0 && json.Unmarshal(env.Data, &data) == nil {
		result.DocumentID = data.ID
		if result.DocumentID == "" {
			result.DocumentID = data.DocumentID
		}
		if data.FileName != "" {
			result.FileName = data.FileName
		}
	}
	return result, nil
}

// Search runs a filtered document query. Length defaults to 10 server-side
// conventions when unset.
func (s *Service) Search(ctx context.Context, f Filters) (SearchResult, error) {
	if f.Length == 0 {
		f.Length = 10
	}
	if f.Tags == nil {
		f.Tags = []Tag{}
	}
	if s.demoMode() {
		return demoSearch(), nil
	}
	env, err := s.gw.PostJSON(ctx, "/searchDocumentEntry", f)
	if err != nil {
		return SearchResult{}, err
	}
	return decodeSearch(env)
}

// Download streams the document with the given id into w.
func (s *Service) Download(ctx context.Context, id string, w io.Writer) error {
	body, _, err := s.gw.Get(ctx, "/downloadDocument/"+url.PathEscape(id))
	if err != nil {
		return err
	}
	defer body.Close()
	_, err = io.Copy(w, body)
	return err
}

// DownloadZip streams multiple documents as a single zip archive into w.
func (s *Service) DownloadZip(ctx context.Context, ids []string, w io.Writer) error {
	body, _, err := s.gw.PostForStream(ctx, "/downloadMultiple", map[string][]string{"documentIds": ids})
	if err != nil {
		return err
	}
	defer body.Close()
	_, err = io.Copy(w, body)
	return err
}

// PreviewURL returns the address a viewer can fetch the document preview from.
func (s *Service) PreviewURL(id string) string {
	return s.gw.URL("/previewDocument/" + url.PathEscape(id))
}

func (s *Service) demoMode() bool {
	if s.creds == nil {
		return false
	}
	token, ok := s.creds.Token()
	return ok && demo.IsToken(token)
}

func decodeTags(env gateway.Envelope) ([]Tag, error) {
	var tags []Tag
	if len(env.Tags) > 0 {
		if err := json.Unmarshal(env.Tags, &tags); err != nil {
			return nil, gateway.ErrUnexpectedResponse
		}
		return tags, nil
	}
	// Some revisions return the raw array in data.
	if len(env.Data) > 0 && json.Unmarshal(env.Data, &tags) == nil {
		return tags, nil
	}
	return []Tag{}, nil
}

func decodeSearch(env gateway.Envelope) (SearchResult, error) {
	raw := env.Data
	if len(env.Documents) > 0 {
		raw = env.Documents
	}
	var entries []Entry
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &entries); err != nil {
			return SearchResult{}, gateway.ErrUnexpectedResponse
		}
	}
	total := env.RecordsTotal
	if total == 0 {
		total = len(entries)
	}
	return SearchResult{Entries: entries, RecordsTotal: total}, nil
}
