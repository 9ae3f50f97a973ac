package routes

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/docu-man/documan/internal/docstore"
)

// uploadLimit caps a single document body at 25 MiB, matching the hosted API.
const uploadLimit = 25 << 20

// RegisterDocumentRoutes wires the tag, upload, search and download endpoints.
func RegisterDocumentRoutes(r fiber.Router, h *documentHandler) {
	r.Post("/documentTags", h.Tags)
	r.Post("/saveDocumentEntry", h.Save)
	r.Post("/searchDocumentEntry", h.Search)
	r.Get("/downloadDocument/:id", h.Download)
	r.Get("/previewDocument/:id", h.Preview)
	r.Post("/downloadMultiple", h.DownloadMultiple)
}

type documentHandler struct {
	store  docstore.Store
	logger *slog.Logger
}

type tagsRequest struct {
	Term string `json:"term"`
}

type wireTag struct {
	TagName string `json:"tag_name"`
}

type uploadMetadata struct {
	MajorHead       string    `json:"major_head"`
	MinorHead       string    `json:"minor_head"`
	DocumentDate    string    `json:"document_date"`
	DocumentRemarks string    `json:"document_remarks"`
	Tags            []wireTag `json:"tags"`
	UserID          string    `json:"user_id"`
}

type searchRequest struct {
	MajorHead  string    `json:"major_head"`
	MinorHead  string    `json:"minor_head"`
	FromDate   string    `json:"from_date"`
	ToDate     string    `json:"to_date"`
	Tags       []wireTag `json:"tags"`
	UploadedBy string    `json:"uploaded_by"`
	Start      int       `json:"start"`
	Length     int       `json:"length"`
	Search     struct {
		Value string `json:"value"`
	} `json:"search"`
}

type wireEntry struct {
	ID              string   `json:"id"`
	MajorHead       string   `json:"major_head"`
	MinorHead       string   `json:"minor_head"`
	DocumentDate    string   `json:"document_date"`
	DocumentRemarks string   `json:"document_remarks"`
	Tags            []string `json:"tags"`
	UploadedBy      string   `json:"uploaded_by"`
	UploadedAt      string   `json:"uploaded_at"`
	FileName        string   `json:"file_name"`
}

// downloadMultipleRequest accepts both field names seen across client
// revisions.
type downloadMultipleRequest struct {
	IDs         []string `json:"ids"`
	DocumentIDs []string `json:"documentIds"`
}

func (r downloadMultipleRequest) all() []string {
	if len(r.IDs) > 0 {
		return r.IDs
	}
	return r.DocumentIDs
}

// Tags returns the distinct tags matching the search term.
func (h *documentHandler) Tags(c *fiber.Ctx) error {
	var req tagsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	names, err := h.store.Tags(c.UserContext(), req.Term)
	if err != nil {
		h.logger.Error("tag lookup failed", slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, "tag lookup failed")
	}
	tags := make([]wireTag, 0, len(names))
	for _, n := range names {
		tags = append(tags, wireTag{TagName: n})
	}
	return c.JSON(fiber.Map{"status": true, "data": tags})
}

// Save stores a multipart upload: a `file` part plus a `data` part carrying
// the metadata JSON.
func (h *documentHandler) Save(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "file part is required")
	}
	if fileHeader.Size > uploadLimit {
		return fiber.NewError(http.StatusRequestEntityTooLarge, "file exceeds the upload limit")
	}

	var meta uploadMetadata
	raw := c.FormValue("data")
	if raw == "" {
		return fiber.NewError(http.StatusBadRequest, "data part is required")
	}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid metadata JSON")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "unreadable file part")
	}
	defer f.Close()
	content, err := io.ReadAll(io.LimitReader(f, uploadLimit+1))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "unreadable file part")
	}
	if len(content) > uploadLimit {
		return fiber.NewError(http.StatusRequestEntityTooLarge, "file exceeds the upload limit")
	}

	uploadedBy := meta.UserID
	if mobile, _ := c.Locals("mobile").(string); uploadedBy == "" && mobile != "" {
		uploadedBy = mobile
	}

	doc := docstore.Document{
		ID:              uuid.NewString(),
		MajorHead:       meta.MajorHead,
		MinorHead:       meta.MinorHead,
		DocumentDate:    meta.DocumentDate,
		DocumentRemarks: meta.DocumentRemarks,
		Tags:            tagNames(meta.Tags),
		UploadedBy:      uploadedBy,
		UploadedAt:      time.Now().UTC(),
		FileName:        filepath.Base(fileHeader.Filename),
		ContentType:     sniffContentType(fileHeader.Filename, content),
		Content:         content,
	}
	if err := h.store.Save(c.UserContext(), doc); err != nil {
		h.logger.Error("document save failed", slog.String("id", doc.ID), slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, "document save failed")
	}

	h.logger.Info("document stored",
		slog.String("id", doc.ID),
		slog.String("file_name", doc.FileName),
		slog.Int("size", len(content)),
	)

	return c.JSON(fiber.Map{
		"status":  true,
		"message": "Document saved successfully",
		"data": fiber.Map{
			"id":        doc.ID,
			"file_name": doc.FileName,
		},
	})
}

// Search returns the matching page of documents plus the total match count.
func (h *documentHandler) Search(c *fiber.Ctx) error {
	var req searchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	docs, total, err := h.store.Search(c.UserContext(), docstore.Filters{
		MajorHead:  req.MajorHead,
		MinorHead:  req.MinorHead,
		FromDate:   req.FromDate,
		ToDate:     req.ToDate,
		Tags:       tagNames(req.Tags),
		UploadedBy: req.UploadedBy,
		Query:      req.Search.Value,
		Start:      req.Start,
		Length:     req.Length,
	})
	if err != nil {
		h.logger.Error("document search failed", slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, "document search failed")
	}

	entries := make([]wireEntry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, wireEntry{
			ID:              d.ID,
			MajorHead:       d.MajorHead,
			MinorHead:       d.MinorHead,
			DocumentDate:    d.DocumentDate,
			DocumentRemarks: d.DocumentRemarks,
			Tags:            d.Tags,
			UploadedBy:      d.UploadedBy,
			UploadedAt:      d.UploadedAt.UTC().Format(time.RFC3339),
			FileName:        d.FileName,
		})
	}

	return c.JSON(fiber.Map{
		"status":       true,
		"data":         entries,
		"recordsTotal": total,
	})
}

// Download streams the stored file as an attachment.
func (h *documentHandler) Download(c *fiber.Ctx) error {
	doc, err := h.store.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "document not found")
		}
		return fiber.NewError(http.StatusInternalServerError, "document load failed")
	}
	c.Set(fiber.HeaderContentType, doc.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.FileName))
	return c.Send(doc.Content)
}

// Preview streams the stored file inline so browsers render it in place.
func (h *documentHandler) Preview(c *fiber.Ctx) error {
	doc, err := h.store.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "document not found")
		}
		return fiber.NewError(http.StatusInternalServerError, "document load failed")
	}
	c.Set(fiber.HeaderContentType, doc.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", doc.FileName))
	return c.Send(doc.Content)
}

// DownloadMultiple bundles the requested documents into a single zip stream.
// Unknown ids are skipped rather than failing the whole archive.
func (h *documentHandler) DownloadMultiple(c *fiber.Ctx) error {
	var req downloadMultipleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	ids := req.all()
	if len(ids) == 0 {
		return fiber.NewError(http.StatusBadRequest, "document ids are required")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	seen := map[string]int{}
	for _, id := range ids {
		doc, err := h.store.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				h.logger.Warn("skipping unknown document in zip", slog.String("id", id))
				continue
			}
			return fiber.NewError(http.StatusInternalServerError, "document load failed")
		}
		name := doc.FileName
		if name == "" {
			name = doc.ID
		}
		// Zip entries need unique names.
		base := name
		if n := seen[base]; n > 0 {
			ext := filepath.Ext(name)
			name = fmt.Sprintf("%s_%d%s", name[:len(name)-len(ext)], n, ext)
		}
		seen[base]++
		w, err := zw.Create(name)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, "zip assembly failed")
		}
		if _, err := w.Write(doc.Content); err != nil {
			return fiber.NewError(http.StatusInternalServerError, "zip assembly failed")
		}
	}
	if err := zw.Close(); err != nil {
		return fiber.NewError(http.StatusInternalServerError, "zip assembly failed")
	}

	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="documents.zip"`)
	return c.Send(buf.Bytes())
}

func tagNames(tags []wireTag) []string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		if t.TagName != "" {
			names = append(names, t.TagName)
		}
	}
	return names
}

func sniffContentType(filename string, content []byte) string {
	if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
		return byExt
	}
	return http.DetectContentType(content)
}
