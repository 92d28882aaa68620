package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/poiesic/docindex/core"
)

// MemoryQueue is an in-process Queue. Jobs are lost when the process exits.
type MemoryQueue struct {
	mu     sync.Mutex
	jobs   map[core.ID]*core.Job
	nextID core.ID
	now    Clock
}

var _ Queue = (*MemoryQueue)(nil)

// NewMemoryQueue creates an empty queue. A nil clock uses time.Now.
func NewMemoryQueue(clock Clock) *MemoryQueue {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryQueue{
		jobs: make(map[core.ID]*core.Job),
		now:  clock,
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job *core.Job) (*core.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextID++
	job.ID = q.nextID
	if job.Timeout <= 0 {
		job.Timeout = DefaultTimeout
	}
	job.Attempts = 0
	job.EnqueuedAt = q.now().UTC()
	job.VisibleAt = job.EnqueuedAt

	stored := *job
	q.jobs[job.ID] = &stored
	return job, nil
}

func (q *MemoryQueue) Reserve(ctx context.Context) (*core.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now().UTC()
	var next *core.Job
	for _, job := range q.jobs {
		if job.VisibleAt.After(now) {
			continue
		}
		if next == nil || job.VisibleAt.Before(next.VisibleAt) ||
			(job.VisibleAt.Equal(next.VisibleAt) && job.ID < next.ID) {
			next = job
		}
	}
	if next == nil {
		return nil, ErrQueueEmpty
	}

	next.Attempts++
	next.VisibleAt = now.Add(next.Timeout)
	reserved := *next
	return &reserved, nil
}

func (q *MemoryQueue) Ack(ctx context.Context, id core.ID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.jobs[id]; !ok {
		return fmt.Errorf("%w: %d", ErrJobNotFound, id)
	}
	delete(q.jobs, id)
	return nil
}

func (q *MemoryQueue) Release(ctx context.Context, id core.ID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrJobNotFound, id)
	}
	job.VisibleAt = q.now().UTC()
	return nil
}

func (q *MemoryQueue) Len(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs), nil
}
