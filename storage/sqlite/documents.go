package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

const documentColumns = `id, owner, title, source, storage_path, url, status, error, created_at, updated_at`

// documentRepository implements storage.DocumentRepository.
type documentRepository struct {
	db *sql.DB
}

var _ storage.DocumentRepository = (*documentRepository)(nil)

func (r *documentRepository) AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error) {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		now := time.Now().UTC().Truncate(time.Microsecond)
		for _, doc := range docs {
			if doc == nil {
				return core.ErrInvalidDocument
			}
			if doc.ID == "" {
				doc.ID = uuid.NewString()
			}
			if doc.Status == "" {
				doc.Status = core.StatusPending
			}
			if err := core.ValidateDocument(doc); err != nil {
				return err
			}

			var exists int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM documents WHERE id = ?`, doc.ID).Scan(&exists)
			if err == nil {
				return fmt.Errorf("%w: document %s", storage.ErrDuplicateKey, doc.ID)
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("checking document: %w", err)
			}

			if doc.CreatedAt.IsZero() {
				doc.CreatedAt = now
			}
			doc.UpdatedAt = now

			_, err = tx.ExecContext(ctx, `
				INSERT INTO documents (`+documentColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, doc.ID, doc.Owner, doc.Title, string(doc.Source), doc.StoragePath, doc.URL,
				string(doc.Status), doc.Error, toMicros(doc.CreatedAt), toMicros(doc.UpdatedAt))
			if err != nil {
				return fmt.Errorf("inserting document: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepository) UpdateDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error) {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		now := time.Now().UTC().Truncate(time.Microsecond)
		for _, doc := range docs {
			if err := core.ValidateDocument(doc); err != nil {
				return err
			}

			old, err := scanDocument(tx.QueryRowContext(ctx,
				`SELECT `+documentColumns+` FROM documents WHERE id = ?`, doc.ID))
			if err != nil {
				return err
			}
			if old.Owner != doc.Owner {
				return fmt.Errorf("%w: owner cannot change", core.ErrInvalidDocument)
			}
			// Ready is absorbing even when updates race
			if old.Status == core.StatusReady && doc.Status != core.StatusReady {
				return fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, old.Status, doc.Status)
			}

			doc.CreatedAt = old.CreatedAt
			doc.UpdatedAt = now
			_, err = tx.ExecContext(ctx, `
				UPDATE documents
				SET title = ?, source = ?, storage_path = ?, url = ?, status = ?, error = ?, updated_at = ?
				WHERE id = ?
			`, doc.Title, string(doc.Source), doc.StoragePath, doc.URL, string(doc.Status), doc.Error,
				toMicros(doc.UpdatedAt), doc.ID)
			if err != nil {
				return fmt.Errorf("updating document: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepository) GetDocument(ctx context.Context, id string) (*core.Document, error) {
	return scanDocument(r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))
}

func (r *documentRepository) GetDocuments(ctx context.Context, ids ...string) ([]*core.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	byID, err := collectDocuments(rows)
	if err != nil {
		return nil, err
	}

	// Preserve request order
	index := make(map[string]*core.Document, len(byID))
	for _, doc := range byID {
		index[doc.ID] = doc
	}
	var result []*core.Document
	for _, id := range ids {
		if doc, ok := index[id]; ok {
			result = append(result, doc)
		}
	}
	return result, nil
}

func (r *documentRepository) ListDocumentsByOwner(ctx context.Context, owner string) ([]*core.Document, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: owner is empty", storage.ErrInvalidQuery)
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE owner = ?
		ORDER BY created_at DESC, id DESC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	return collectDocuments(rows)
}

func (r *documentRepository) DeleteDocuments(ctx context.Context, ids ...string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, id := range ids {
			res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
			if err != nil {
				return fmt.Errorf("deleting document: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("deleting document: %w", err)
			}
			if n == 0 {
				return fmt.Errorf("%w: document %s", storage.ErrNotFound, id)
			}
		}
		return nil
	})
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*core.Document, error) {
	var (
		doc                  core.Document
		source, status       string
		createdAt, updatedAt int64
	)
	err := row.Scan(&doc.ID, &doc.Owner, &doc.Title, &source, &doc.StoragePath, &doc.URL,
		&status, &doc.Error, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	doc.Source = core.SourceType(source)
	doc.Status = core.DocumentStatus(status)
	doc.CreatedAt = fromMicros(createdAt)
	doc.UpdatedAt = fromMicros(updatedAt)
	return &doc, nil
}

func collectDocuments(rows *sql.Rows) ([]*core.Document, error) {
	defer rows.Close()

	var docs []*core.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}
