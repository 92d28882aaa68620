package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/docindex/core"
)

// Dispatcher hands document IDs to a queue for background processing.
// It reports only whether the hand-off succeeded.
type Dispatcher struct {
	queue   Queue
	timeout time.Duration
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher over an explicit queue.
// A non-positive timeout becomes DefaultTimeout; a nil logger uses slog.Default().
func NewDispatcher(queue Queue, timeout time.Duration, logger *slog.Logger) (*Dispatcher, error) {
	if queue == nil {
		return nil, ErrQueueRequired
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		queue:   queue,
		timeout: timeout,
		logger:  logger.With("component", "dispatcher"),
	}, nil
}

// Enqueue schedules ingestion of a document.
func (d *Dispatcher) Enqueue(ctx context.Context, documentID string) error {
	_, err := d.Dispatch(ctx, core.JobKindProcessDocument, documentID)
	return err
}

// Dispatch schedules a job of the given kind for a document.
func (d *Dispatcher) Dispatch(ctx context.Context, kind core.JobKind, documentID string) (*core.Job, error) {
	if documentID == "" {
		return nil, ErrInvalidDocumentID
	}

	job, err := d.queue.Enqueue(ctx, &core.Job{
		Kind:       kind,
		DocumentID: documentID,
		Timeout:    d.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue %s for document %s: %w", kind, documentID, err)
	}

	d.logger.Debug("job enqueued", "job", job.ID, "kind", kind, "document", documentID)
	return job, nil
}

// Timeout returns the execution limit attached to dispatched jobs.
func (d *Dispatcher) Timeout() time.Duration {
	return d.timeout
}
