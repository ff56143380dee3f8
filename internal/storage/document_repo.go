package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks semdex/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("record not found")

// DocumentStore defines the interface for document storage operations.
type DocumentStore interface {
	// GetByPath gets a document by its corpus-relative path.
	// Returns nil and ErrNotFound if not found.
	GetByPath(ctx context.Context, path string) (*DocumentRecord, error)
	// ListAll returns all stored documents.
	ListAll(ctx context.Context) ([]DocumentRecord, error)
	// Replace upserts the document and swaps its full chunk set in one transaction.
	Replace(ctx context.Context, doc *DocumentRecord, chunks []*ChunkRecord) error
	// UpdateVisibility updates the public flag without touching chunks.
	UpdateVisibility(ctx context.Context, id string, public bool) error
	// Delete removes a document; its chunks cascade.
	Delete(ctx context.Context, id string) error
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// GetByPath gets a document by its corpus-relative path.
func (r *DocumentRepo) GetByPath(ctx context.Context, path string) (*DocumentRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, path, hash, public, updated_at FROM documents WHERE path = ?", path)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return doc, nil
}

// ListAll returns all stored documents ordered by path.
func (r *DocumentRepo) ListAll(ctx context.Context) ([]DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, path, hash, public, updated_at FROM documents ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []DocumentRecord
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

// Replace upserts the document row and replaces its entire chunk set atomically.
// A reader never observes a document with a mix of old and new chunks.
func (r *DocumentRepo) Replace(ctx context.Context, doc *DocumentRecord, chunks []*ChunkRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, path, hash, public, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (path) DO UPDATE SET
		 hash = excluded.hash, public = excluded.public, updated_at = CURRENT_TIMESTAMP`,
		doc.ID, doc.Path, doc.Hash, boolToInt(doc.Public),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", doc.ID); err != nil {
		return fmt.Errorf("failed to delete old chunks: %w", err)
	}

	for _, chunk := range chunks {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO chunks (id, document_id, chunk_index, section, text, token_count) VALUES (?, ?, ?, ?, ?, ?)",
			chunk.ID, chunk.DocumentID, chunk.ChunkIndex, chunk.Section, chunk.Text, chunk.TokenCount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document replace: %w", err)
	}
	return nil
}

// UpdateVisibility updates the public flag for a document.
func (r *DocumentRepo) UpdateVisibility(ctx context.Context, id string, public bool) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE documents SET public = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		boolToInt(public), id)
	if err != nil {
		return fmt.Errorf("failed to update document visibility: %w", err)
	}
	return nil
}

// Delete removes a document and, via the foreign key cascade, all of its chunks.
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*DocumentRecord, error) {
	var doc DocumentRecord
	var public int
	var updatedAtStr string

	if err := row.Scan(&doc.ID, &doc.Path, &doc.Hash, &public, &updatedAtStr); err != nil {
		return nil, err
	}
	doc.Public = public != 0

	// SQLite stores DATETIME as text; accept both common formats.
	var err error
	doc.UpdatedAt, err = time.Parse("2006-01-02 15:04:05", updatedAtStr)
	if err != nil {
		doc.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse updated_at timestamp: %w", err)
		}
	}
	return &doc, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
