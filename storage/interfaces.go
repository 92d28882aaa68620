package storage

import (
	"context"

	"github.com/poiesic/docindex/core"
)

// DocumentRepository provides operations for managing documents.
// Implementations must be thread-safe and support concurrent access.
type DocumentRepository interface {
	// AddDocuments stores new documents.
	// Documents with an empty ID receive a generated one.
	// Sets CreatedAt and UpdatedAt, and defaults Status to pending.
	// Returns ErrDuplicateKey if a document with the same ID exists.
	AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// UpdateDocuments replaces existing documents.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any document doesn't exist, and
	// core.ErrInvalidTransition if a ready document would leave ready.
	UpdateDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id string) (*core.Document, error)

	// GetDocuments retrieves multiple documents by their IDs.
	// Returns only the documents that exist (no error for missing documents).
	GetDocuments(ctx context.Context, ids ...string) ([]*core.Document, error)

	// ListDocumentsByOwner returns all documents of an owner, newest first.
	ListDocumentsByOwner(ctx context.Context, owner string) ([]*core.Document, error)

	// DeleteDocuments removes documents and all of their fragments.
	// Returns ErrNotFound if any document doesn't exist.
	DeleteDocuments(ctx context.Context, ids ...string) error
}

// FragmentRepository provides operations for managing fragments.
type FragmentRepository interface {
	// ReplaceFragments removes every fragment of a document and stores the
	// given ones in their place. Fragment i must carry ordinal i. Owner and
	// DocumentID are copied from the parent document; IDs, checksums and
	// CreatedAt are assigned. Each fragment is written atomically, but a
	// large set may become visible in several steps.
	// Returns ErrNotFound if the parent document doesn't exist.
	ReplaceFragments(ctx context.Context, documentID string, fragments ...*core.Fragment) ([]*core.Fragment, error)

	// GetFragmentsByDocument returns a document's fragments in ordinal order.
	GetFragmentsByDocument(ctx context.Context, documentID string) ([]*core.Fragment, error)

	// GetFragmentsByOwner returns every fragment owned by a user,
	// ordered by document ID then ordinal.
	GetFragmentsByOwner(ctx context.Context, owner string) ([]*core.Fragment, error)

	// CountFragments returns the number of fragments stored for a document.
	CountFragments(ctx context.Context, documentID string) (int, error)
}

// Store bundles the repositories of one storage backend.
type Store interface {
	Documents() DocumentRepository
	Fragments() FragmentRepository

	// Close closes the storage backend and releases resources.
	Close() error
}
