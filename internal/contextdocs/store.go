// Package contextdocs gathers a caller's auxiliary documents into a bounded
// text block for the completion prompt.
package contextdocs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Document is one caller-owned auxiliary document.
type Document struct {
	ID        string
	Title     string
	Content   string
	UpdatedAt time.Time
}

// DocumentStore lists the caller's own documents, newest first. Row-level
// access control is the storage collaborator's concern; implementations must
// only ever return documents owned by callerID.
type DocumentStore interface {
	ListDocuments(ctx context.Context, callerID string, limit int) ([]Document, error)
}

const docsSchema = `
CREATE TABLE IF NOT EXISTS documents (
	caller_id  TEXT NOT NULL,
	doc_id     TEXT NOT NULL,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (caller_id, doc_id)
);`

// SQLiteStore reads caller documents from a local replica table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the documents database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open documents db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(docsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init documents schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ListDocuments implements DocumentStore.
func (s *SQLiteStore) ListDocuments(ctx context.Context, callerID string, limit int) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, title, content, updated_at
		FROM documents WHERE caller_id = ?
		ORDER BY updated_at DESC LIMIT ?`, callerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []Document
	for rows.Next() {
		var d Document
		var updated string
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &updated); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// PutDocument upserts a document into the replica. Used by the sync job and
// by tests.
func (s *SQLiteStore) PutDocument(ctx context.Context, callerID string, doc Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (caller_id, doc_id, title, content, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(caller_id, doc_id) DO UPDATE SET
			title      = excluded.title,
			content    = excluded.content,
			updated_at = excluded.updated_at`,
		callerID, doc.ID, doc.Title, doc.Content, doc.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	return nil
}
