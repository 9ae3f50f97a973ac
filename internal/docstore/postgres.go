package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists documents in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed document store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Save inserts a document entry with its content.
func (s *PostgresStore) Save(ctx context.Context, doc Document) error {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return fmt.Errorf("parse document id: %w", err)
	}
	_, err = s.db.Exec(ctx, `INSERT INTO documents
        (id, major_head, minor_head, document_date, document_remarks, tags, uploaded_by, uploaded_at, file_name, content_type, content)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, doc.MajorHead, doc.MinorHead, doc.DocumentDate, doc.DocumentRemarks,
		doc.Tags, doc.UploadedBy, doc.UploadedAt.UTC(), doc.FileName, doc.ContentType, doc.Content)
	return err
}

// Get fetches a document including its content.
func (s *PostgresStore) Get(ctx context.Context, id string) (Document, error) {
	docID, err := uuid.Parse(id)
	if err != nil {
		return Document{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT id, major_head, minor_head, document_date, document_remarks,
        tags, uploaded_by, uploaded_at, file_name, content_type, content
        FROM documents WHERE id = $1`, docID)
	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

// Search applies the filters server-side and returns one page plus the total
// matched count.
func (s *PostgresStore) Search(ctx context.Context, f Filters) ([]Document, int, error) {
	query := `SELECT id, major_head, minor_head, document_date, document_remarks,
        tags, uploaded_by, uploaded_at, file_name, content_type, content,
        COUNT(*) OVER() AS total
        FROM documents WHERE 1=1`
	args := []any{}

	appendArg := func(clause string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(clause, len(args))
	}

	if f.MajorHead != "" {
		appendArg(" AND major_head = $%d", f.MajorHead)
	}
	if f.MinorHead != "" {
		appendArg(" AND minor_head = $%d", f.MinorHead)
	}
	if f.UploadedBy != "" {
		appendArg(" AND uploaded_by = $%d", f.UploadedBy)
	}
	if len(f.Tags) > 0 {
		appendArg(" AND tags @> $%d", f.Tags)
	}
	if f.Query != "" {
		args = append(args, f.Query)
		n := len(args)
		query += fmt.Sprintf(" AND (document_remarks ILIKE '%%' || $%d || '%%' OR file_name ILIKE '%%' || $%d || '%%')", n, n)
	}
	query += " ORDER BY uploaded_at DESC"

	length := f.Length
	if length <= 0 {
		length = 10
	}
	start := f.Start
	if start < 0 {
		start = 0
	}
	// Date-range filtering stays client-side of the query since document
	// dates are stored in the client's display format, so paging moves
	// client-side with it to keep totals consistent.
	pageInSQL := f.FromDate == "" && f.ToDate == ""
	if pageInSQL {
		appendArg(" LIMIT $%d", length)
		appendArg(" OFFSET $%d", start)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		docs  []Document
		total int
	)
	for rows.Next() {
		var (
			doc        Document
			id         uuid.UUID
			uploadedAt time.Time
		)
		if err := rows.Scan(&id, &doc.MajorHead, &doc.MinorHead, &doc.DocumentDate, &doc.DocumentRemarks,
			&doc.Tags, &doc.UploadedBy, &uploadedAt, &doc.FileName, &doc.ContentType, &doc.Content, &total); err != nil {
			return nil, 0, err
		}
		doc.ID = id.String()
		doc.UploadedAt = uploadedAt.UTC()
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if !pageInSQL {
		filtered := docs[:0]
		for _, doc := range docs {
			if withinDateRange(doc.DocumentDate, f.FromDate, f.ToDate) {
				filtered = append(filtered, doc)
			}
		}
		total = len(filtered)
		docs = paginate(filtered, start, length)
	}

	return docs, total, nil
}

// Tags returns distinct tag names containing term.
func (s *PostgresStore) Tags(ctx context.Context, term string) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT tag FROM documents, unnest(tags) AS tag
        WHERE tag ILIKE '%' || $1 || '%' ORDER BY tag`, term)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func scanDocument(row pgx.Row) (Document, error) {
	var (
		doc        Document
		id         uuid.UUID
		uploadedAt time.Time
	)
	if err := row.Scan(&id, &doc.MajorHead, &doc.MinorHead, &doc.DocumentDate, &doc.DocumentRemarks,
		&doc.Tags, &doc.UploadedBy, &uploadedAt, &doc.FileName, &doc.ContentType, &doc.Content); err != nil {
		return Document{}, err
	}
	doc.ID = id.String()
	doc.UploadedAt = uploadedAt.UTC()
	return doc, nil
}
