package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) *DocumentRepository {
	return &DocumentRepository{backend: backend}
}

// AddDocuments stores new documents, generating UUIDs for empty IDs.
func (r *DocumentRepository) AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error) {
	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
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

			key := makeDocumentKey(doc.ID)
			existing, err := readDocument(tx, key)
			if err != nil {
				return err
			}
			if existing != nil {
				return fmt.Errorf("%w: document %s", storage.ErrDuplicateKey, doc.ID)
			}

			if doc.CreatedAt.IsZero() {
				doc.CreatedAt = now
			}
			doc.UpdatedAt = now

			if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
				return err
			}
			ownerKey := makeDocumentOwnerKey(doc.Owner, doc.CreatedAt, doc.ID)
			if err := tx.Set(ownerKey, []byte(doc.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// UpdateDocuments replaces existing documents. Owner and CreatedAt are fixed
// at creation and cannot be changed.
func (r *DocumentRepository) UpdateDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error) {
	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		now := time.Now().UTC().Truncate(time.Microsecond)
		for _, doc := range docs {
			if err := core.ValidateDocument(doc); err != nil {
				return err
			}

			key := makeDocumentKey(doc.ID)
			old, err := readDocument(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return fmt.Errorf("%w: document %s", storage.ErrNotFound, doc.ID)
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
			if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// GetDocument retrieves a single document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id string) (*core.Document, error) {
	var result *core.Document
	err := r.backend.View(func(tx *badger.Txn) error {
		var err error
		result, err = readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	})
	return result, err
}

// GetDocuments retrieves multiple documents by their IDs.
func (r *DocumentRepository) GetDocuments(ctx context.Context, ids ...string) ([]*core.Document, error) {
	var result []*core.Document
	err := r.backend.View(func(tx *badger.Txn) error {
		for _, id := range ids {
			doc, err := readDocument(tx, makeDocumentKey(id))
			if err != nil {
				return err
			}
			if doc != nil {
				result = append(result, doc)
			}
		}
		return nil
	})
	return result, err
}

// ListDocumentsByOwner returns an owner's documents, newest first.
func (r *DocumentRepository) ListDocumentsByOwner(ctx context.Context, owner string) ([]*core.Document, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: owner is empty", storage.ErrInvalidQuery)
	}
	var results []*core.Document
	err := r.backend.View(func(tx *badger.Txn) error {
		prefix := makeDocumentOwnerPrefix(owner)

		// Reverse iteration must start past the last key with this prefix
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		seekKey := append(append([]byte{}, prefix...), 0xFF)
		for iter.Seek(seekKey); iter.ValidForPrefix(prefix); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, err := iter.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			doc, err := readDocument(tx, makeDocumentKey(string(id)))
			if err != nil {
				return err
			}
			if doc != nil {
				results = append(results, doc)
			}
		}
		return nil
	})
	return results, err
}

// DeleteDocuments removes documents, their owner index entries and all of
// their fragments. Fragment sets too large for one transaction are purged
// in batches first. The documents themselves are removed in one transaction
// together with any fragments still left.
func (r *DocumentRepository) DeleteDocuments(ctx context.Context, ids ...string) error {
	err := r.backend.View(func(tx *badger.Txn) error {
		for _, id := range ids {
			doc, err := readDocument(tx, makeDocumentKey(id))
			if err != nil {
				return err
			}
			if doc == nil {
				return fmt.Errorf("%w: document %s", storage.ErrNotFound, id)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := purgeFragments(ctx, r.backend, id, 0); err != nil {
			return err
		}
	}

	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeDocumentKey(id)
			doc, err := readDocument(tx, key)
			if err != nil {
				return err
			}
			if doc == nil {
				return fmt.Errorf("%w: document %s", storage.ErrNotFound, id)
			}

			complete, err := deleteFragments(tx, doc.ID, 0)
			if err != nil {
				return err
			}
			if !complete {
				return badger.ErrTxnTooBig
			}
			if err := tx.Delete(makeDocumentOwnerKey(doc.Owner, doc.CreatedAt, doc.ID)); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// readDocument reads a document from the transaction.
// Returns nil, nil if the key does not exist.
func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		doc, unmarshalErr = storage.UnmarshalDocument(val)
		return unmarshalErr
	})
	return doc, err
}
