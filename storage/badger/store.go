package badger

import (
	"errors"

	"github.com/poiesic/docindex/storage"
)

// Store implements storage.Store on a single BadgerDB backend.
type Store struct {
	backend   *Backend
	documents *DocumentRepository
	fragments *FragmentRepository
}

var _ storage.Store = (*Store)(nil)

// Open opens or creates a BadgerDB store in the given directory.
func Open(path string) (*Store, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newStore(backend)
}

func newStore(backend *Backend) (*Store, error) {
	fragments, err := NewFragmentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Store{
		backend:   backend,
		documents: NewDocumentRepository(backend),
		fragments: fragments,
	}, nil
}

// Documents returns the document repository.
func (s *Store) Documents() storage.DocumentRepository {
	return s.documents
}

// Fragments returns the fragment repository.
func (s *Store) Fragments() storage.FragmentRepository {
	return s.fragments
}

// Backend exposes the underlying backend so other components, such as the
// job queue, can share the database.
func (s *Store) Backend() *Backend {
	return s.backend
}

// Close releases the ID sequence and closes the database.
func (s *Store) Close() error {
	if s.backend.IsClosed() {
		return nil
	}
	return errors.Join(s.fragments.Close(), s.backend.Close())
}
