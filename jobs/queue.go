package jobs

import (
	"context"
	"time"

	"github.com/poiesic/docindex/core"
)

// DefaultTimeout is the execution limit applied to jobs enqueued without one.
const DefaultTimeout = 600 * time.Second

// Clock returns the current time. Queues accept one so tests can move time.
type Clock func() time.Time

// Queue is the job transport contract. Implementations must be safe for
// concurrent use.
type Queue interface {
	// Enqueue stores a job and makes it immediately visible.
	// Assigns ID and EnqueuedAt; a zero Timeout becomes DefaultTimeout.
	Enqueue(ctx context.Context, job *core.Job) (*core.Job, error)

	// Reserve leases the oldest visible job for its Timeout and increments
	// its Attempts. Returns ErrQueueEmpty if nothing is visible.
	Reserve(ctx context.Context) (*core.Job, error)

	// Ack removes a job. Returns ErrJobNotFound if it doesn't exist.
	Ack(ctx context.Context, id core.ID) error

	// Release ends a lease early so the job is visible again immediately.
	// Returns ErrJobNotFound if it doesn't exist.
	Release(ctx context.Context, id core.ID) error

	// Len returns the number of stored jobs, leased or not.
	Len(ctx context.Context) (int, error)
}
