package badger

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/jobs"
	"github.com/poiesic/docindex/storage"
)

// JobQueue implements jobs.Queue on BadgerDB so queued work survives restarts.
// Visibility is tracked in an index ordered by the instant a job becomes
// reservable; a lease simply moves that instant into the future.
type JobQueue struct {
	backend *Backend
	idSeq   *badger.Sequence
	now     jobs.Clock
}

var _ jobs.Queue = (*JobQueue)(nil)

// NewJobQueue creates a queue on the given backend. A nil clock uses time.Now.
func NewJobQueue(backend *Backend, clock jobs.Clock) (*JobQueue, error) {
	idSeq, err := backend.GetSequence(jobIDSeq)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = time.Now
	}
	return &JobQueue{
		backend: backend,
		idSeq:   idSeq,
		now:     clock,
	}, nil
}

// Close releases the ID sequence.
func (q *JobQueue) Close() error {
	return q.idSeq.Release()
}

func (q *JobQueue) Enqueue(ctx context.Context, job *core.Job) (*core.Job, error) {
	id, err := nextID(q.idSeq)
	if err != nil {
		return nil, err
	}
	job.ID = core.ID(id)
	if job.Timeout <= 0 {
		job.Timeout = jobs.DefaultTimeout
	}
	job.Attempts = 0
	job.EnqueuedAt = q.now().UTC().Truncate(time.Microsecond)
	job.VisibleAt = job.EnqueuedAt

	err = q.backend.Update(ctx, func(tx *badger.Txn) error {
		return writeJob(tx, job)
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (q *JobQueue) Reserve(ctx context.Context) (*core.Job, error) {
	var reserved *core.Job
	err := q.backend.Update(ctx, func(tx *badger.Txn) error {
		reserved = nil
		now := q.now().UTC().Truncate(time.Microsecond)

		id, visibleAt, found, err := firstReady(tx)
		if err != nil {
			return err
		}
		if !found || visibleAt.After(now) {
			return jobs.ErrQueueEmpty
		}

		job, err := readJob(tx, makeJobKey(id))
		if err != nil {
			return err
		}
		if job == nil {
			return fmt.Errorf("%w: dangling ready entry for job %d", storage.ErrNotFound, id)
		}

		if err := tx.Delete(makeJobReadyKey(job.VisibleAt, job.ID)); err != nil {
			return err
		}
		job.Attempts++
		job.VisibleAt = now.Add(job.Timeout)
		if err := writeJob(tx, job); err != nil {
			return err
		}
		reserved = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reserved, nil
}

func (q *JobQueue) Ack(ctx context.Context, id core.ID) error {
	return q.backend.Update(ctx, func(tx *badger.Txn) error {
		job, err := readJob(tx, makeJobKey(id))
		if err != nil {
			return err
		}
		if job == nil {
			return fmt.Errorf("%w: %d", jobs.ErrJobNotFound, id)
		}
		if err := tx.Delete(makeJobReadyKey(job.VisibleAt, job.ID)); err != nil {
			return err
		}
		return tx.Delete(makeJobKey(id))
	})
}

func (q *JobQueue) Release(ctx context.Context, id core.ID) error {
	return q.backend.Update(ctx, func(tx *badger.Txn) error {
		job, err := readJob(tx, makeJobKey(id))
		if err != nil {
			return err
		}
		if job == nil {
			return fmt.Errorf("%w: %d", jobs.ErrJobNotFound, id)
		}
		if err := tx.Delete(makeJobReadyKey(job.VisibleAt, job.ID)); err != nil {
			return err
		}
		job.VisibleAt = q.now().UTC().Truncate(time.Microsecond)
		return writeJob(tx, job)
	})
}

func (q *JobQueue) Len(ctx context.Context) (int, error) {
	count := 0
	err := q.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobPrefix)
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

// firstReady returns the job with the earliest visibility instant.
func firstReady(tx *badger.Txn) (core.ID, time.Time, bool, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(jobReadyPrefix)
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	iter.Rewind()
	if !iter.Valid() {
		return 0, time.Time{}, false, nil
	}

	key := iter.Item().Key()
	if len(key) != len(jobReadyPrefix)+16 {
		return 0, time.Time{}, false, fmt.Errorf("%w: ready key length %d", storage.ErrTruncatedData, len(key))
	}
	offset := len(jobReadyPrefix)
	visibleAt := time.UnixMicro(int64(binary.BigEndian.Uint64(key[offset:]))).UTC()
	id := core.ID(binary.BigEndian.Uint64(key[offset+8:]))
	return id, visibleAt, true, nil
}

// writeJob stores a job and its visibility index entry.
func writeJob(tx *badger.Txn, job *core.Job) error {
	if err := tx.Set(makeJobKey(job.ID), storage.MarshalJob(job)); err != nil {
		return err
	}
	return tx.Set(makeJobReadyKey(job.VisibleAt, job.ID), storage.MarshalID(job.ID))
}

// readJob reads a job from the transaction.
// Returns nil, nil if the key does not exist.
func readJob(tx *badger.Txn, key []byte) (*core.Job, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var job *core.Job
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		job, unmarshalErr = storage.UnmarshalJob(val)
		return unmarshalErr
	})
	return job, err
}
