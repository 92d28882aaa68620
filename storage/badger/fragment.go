package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

// FragmentRepository implements storage.FragmentRepository for BadgerDB.
type FragmentRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.FragmentRepository = (*FragmentRepository)(nil)

// NewFragmentRepository creates a new FragmentRepository.
func NewFragmentRepository(backend *Backend) (*FragmentRepository, error) {
	idSeq, err := backend.GetSequence(fragmentIDSeq)
	if err != nil {
		return nil, err
	}

	return &FragmentRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *FragmentRepository) Close() error {
	return r.idSeq.Release()
}

// ReplaceFragments swaps a document's fragments for the given ones.
// Large sets are written across several transactions, each committed when
// it reaches Badger's batch limit. Ordinal keys are overwritten in place and
// leftover ordinals are removed once every new fragment is stored, so readers
// may briefly observe a mix of old and new fragments.
// Each batch re-reads the parent, which makes a concurrent delete of the
// document conflict with the write instead of leaving orphans.
func (r *FragmentRepository) ReplaceFragments(ctx context.Context, documentID string, fragments ...*core.Fragment) ([]*core.Fragment, error) {
	var parent *core.Document
	err := r.backend.View(func(tx *badger.Txn) error {
		var err error
		parent, err = readDocument(tx, makeDocumentKey(documentID))
		return err
	})
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, fmt.Errorf("%w: document %s", storage.ErrNotFound, documentID)
	}

	var dim int
	if len(fragments) > 0 && fragments[0] != nil {
		dim = len(fragments[0].Vector)
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	for i, fragment := range fragments {
		if fragment == nil {
			return nil, core.ErrInvalidFragment
		}
		if fragment.Ordinal != i {
			return nil, fmt.Errorf("%w: ordinal %d at position %d", core.ErrInvalidFragment, fragment.Ordinal, i)
		}
		fragment.Owner = parent.Owner
		fragment.DocumentID = parent.ID
		if err := core.ValidateFragment(fragment, dim); err != nil {
			return nil, err
		}
		fragment.Checksum = core.IDFromContent(fragment.Content)
		fragment.CreatedAt = now
	}

	for written := 0; written < len(fragments); {
		var stored int
		err := r.backend.Update(ctx, func(tx *badger.Txn) error {
			var err error
			stored, err = r.writeFragments(tx, documentID, fragments[written:])
			return err
		})
		if err != nil {
			return nil, err
		}
		written += stored
	}

	if err := purgeFragments(ctx, r.backend, documentID, len(fragments)); err != nil {
		return nil, err
	}
	return fragments, nil
}

// writeFragments stores fragments in order until the transaction is full
// and returns how many were written.
func (r *FragmentRepository) writeFragments(tx *badger.Txn, documentID string, fragments []*core.Fragment) (int, error) {
	parent, err := readDocument(tx, makeDocumentKey(documentID))
	if err != nil {
		return 0, err
	}
	if parent == nil {
		return 0, fmt.Errorf("%w: document %s", storage.ErrNotFound, documentID)
	}

	for i, fragment := range fragments {
		id, err := nextID(r.idSeq)
		if err != nil {
			return 0, err
		}
		fragment.ID = core.ID(id)

		key := makeFragmentKey(documentID, fragment.Ordinal)
		ownerKey := makeFragmentOwnerKey(fragment.Owner, documentID, fragment.Ordinal)
		err = tx.Set(key, storage.MarshalFragment(fragment))
		if err == nil {
			err = tx.Set(ownerKey, key)
		}
		if errors.Is(err, badger.ErrTxnTooBig) && i > 0 {
			// A half-written fragment is rewritten by the next batch
			return i, nil
		}
		if err != nil {
			return 0, err
		}
	}
	return len(fragments), nil
}

// GetFragmentsByDocument returns a document's fragments in ordinal order.
func (r *FragmentRepository) GetFragmentsByDocument(ctx context.Context, documentID string) ([]*core.Fragment, error) {
	var results []*core.Fragment
	err := r.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeFragmentPrefix(documentID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var fragment *core.Fragment
			err := iter.Item().Value(func(val []byte) error {
				var err error
				fragment, err = storage.UnmarshalFragment(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, fragment)
		}
		return nil
	})
	return results, err
}

// GetFragmentsByOwner returns an owner's fragments ordered by document ID
// then ordinal, which is the key order of the owner index.
func (r *FragmentRepository) GetFragmentsByOwner(ctx context.Context, owner string) ([]*core.Fragment, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: owner is empty", storage.ErrInvalidQuery)
	}
	var results []*core.Fragment
	err := r.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeFragmentOwnerPrefix(owner)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key, err := iter.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			fragment, err := readFragment(tx, key)
			if err != nil {
				return err
			}
			if fragment != nil {
				results = append(results, fragment)
			}
		}
		return nil
	})
	return results, err
}

// CountFragments returns the number of fragments stored for a document.
func (r *FragmentRepository) CountFragments(ctx context.Context, documentID string) (int, error) {
	count := 0
	err := r.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeFragmentPrefix(documentID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// purgeFragments removes a document's fragments with an ordinal of from or
// more, committing whenever a transaction fills up.
func purgeFragments(ctx context.Context, backend *Backend, documentID string, from int) error {
	for {
		var complete bool
		err := backend.Update(ctx, func(tx *badger.Txn) error {
			var err error
			complete, err = deleteFragments(tx, documentID, from)
			return err
		})
		if err != nil || complete {
			return err
		}
	}
}

// deleteFragments removes a document's fragments with an ordinal of from or
// more, along with their owner index entries. It stops early when the
// transaction is full and reports whether every fragment was removed.
func deleteFragments(tx *badger.Txn, documentID string, from int) (bool, error) {
	var stale []*core.Fragment

	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeFragmentPrefix(documentID)
	iter := tx.NewIterator(opts)
	for iter.Seek(makeFragmentKey(documentID, from)); iter.Valid(); iter.Next() {
		err := iter.Item().Value(func(val []byte) error {
			fragment, err := storage.UnmarshalFragment(val)
			if err != nil {
				return err
			}
			stale = append(stale, fragment)
			return nil
		})
		if err != nil {
			iter.Close()
			return false, err
		}
	}
	// Keys are deleted after the iterator is closed
	iter.Close()

	for i, fragment := range stale {
		err := tx.Delete(makeFragmentKey(fragment.DocumentID, fragment.Ordinal))
		if err == nil {
			err = tx.Delete(makeFragmentOwnerKey(fragment.Owner, fragment.DocumentID, fragment.Ordinal))
		}
		if errors.Is(err, badger.ErrTxnTooBig) && i > 0 {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}
	return true, nil
}

// readFragment reads a fragment from the transaction.
// Returns nil, nil if the key does not exist.
func readFragment(tx *badger.Txn, key []byte) (*core.Fragment, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var fragment *core.Fragment
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		fragment, unmarshalErr = storage.UnmarshalFragment(val)
		return unmarshalErr
	})
	return fragment, err
}
