package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

const fragmentColumns = `id, owner, document_id, ordinal, content, checksum, embedding, created_at`

// fragmentRepository implements storage.FragmentRepository.
type fragmentRepository struct {
	db *sql.DB
}

var _ storage.FragmentRepository = (*fragmentRepository)(nil)

func (r *fragmentRepository) ReplaceFragments(ctx context.Context, documentID string, fragments ...*core.Fragment) ([]*core.Fragment, error) {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var owner string
		err := tx.QueryRowContext(ctx, `SELECT owner FROM documents WHERE id = ?`, documentID).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: document %s", storage.ErrNotFound, documentID)
		}
		if err != nil {
			return fmt.Errorf("loading parent document: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM fragments WHERE document_id = ?`, documentID); err != nil {
			return fmt.Errorf("deleting fragments: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO fragments (owner, document_id, ordinal, content, checksum, embedding, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()

		var dim int
		if len(fragments) > 0 {
			dim = len(fragments[0].Vector)
		}
		now := time.Now().UTC().Truncate(time.Microsecond)
		for i, fragment := range fragments {
			if fragment == nil {
				return core.ErrInvalidFragment
			}
			if fragment.Ordinal != i {
				return fmt.Errorf("%w: ordinal %d at position %d", core.ErrInvalidFragment, fragment.Ordinal, i)
			}
			fragment.Owner = owner
			fragment.DocumentID = documentID
			if err := core.ValidateFragment(fragment, dim); err != nil {
				return err
			}
			fragment.Checksum = core.IDFromContent(fragment.Content)
			fragment.CreatedAt = now

			// SQLite integers are signed; the checksum is stored bit-for-bit
			res, err := stmt.ExecContext(ctx, fragment.Owner, fragment.DocumentID, fragment.Ordinal,
				fragment.Content, int64(fragment.Checksum), encodeEmbedding(fragment.Vector), toMicros(now))
			if err != nil {
				return fmt.Errorf("inserting fragment: %w", err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("reading fragment id: %w", err)
			}
			fragment.ID = core.ID(id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fragments, nil
}

func (r *fragmentRepository) GetFragmentsByDocument(ctx context.Context, documentID string) ([]*core.Fragment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+fragmentColumns+` FROM fragments
		WHERE document_id = ?
		ORDER BY ordinal
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying fragments: %w", err)
	}
	return collectFragments(rows)
}

func (r *fragmentRepository) GetFragmentsByOwner(ctx context.Context, owner string) ([]*core.Fragment, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: owner is empty", storage.ErrInvalidQuery)
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+fragmentColumns+` FROM fragments
		WHERE owner = ?
		ORDER BY document_id, ordinal
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("querying fragments: %w", err)
	}
	return collectFragments(rows)
}

func (r *fragmentRepository) CountFragments(ctx context.Context, documentID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fragments WHERE document_id = ?`, documentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting fragments: %w", err)
	}
	return count, nil
}

func collectFragments(rows *sql.Rows) ([]*core.Fragment, error) {
	defer rows.Close()

	var fragments []*core.Fragment
	for rows.Next() {
		var (
			f         core.Fragment
			id        int64
			checksum  int64
			embedding []byte
			createdAt int64
		)
		if err := rows.Scan(&id, &f.Owner, &f.DocumentID, &f.Ordinal, &f.Content,
			&checksum, &embedding, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning fragment: %w", err)
		}
		vec, err := decodeEmbedding(embedding)
		if err != nil {
			return nil, err
		}
		f.ID = core.ID(id)
		f.Checksum = core.ID(checksum)
		f.Vector = vec
		f.CreatedAt = fromMicros(createdAt)
		fragments = append(fragments, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fragments: %w", err)
	}
	return fragments, nil
}
