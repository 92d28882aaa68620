package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/docindex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestMemoryQueue_EnqueueReserveAck(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(nil)

	job, err := q.Enqueue(ctx, &core.Job{Kind: core.JobKindProcessDocument, DocumentID: "doc-1"})
	require.NoError(t, err)
	assert.NotZero(t, job.ID)
	assert.Equal(t, DefaultTimeout, job.Timeout)
	assert.False(t, job.EnqueuedAt.IsZero())

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	reserved, err := q.Reserve(ctx)
	require.NoError(t, err)
	assert.Equal(t, job.ID, reserved.ID)
	assert.Equal(t, "doc-1", reserved.DocumentID)
	assert.Equal(t, 1, reserved.Attempts)

	// Leased jobs are not visible
	_, err = q.Reserve(ctx)
	assert.ErrorIs(t, err, ErrQueueEmpty)

	require.NoError(t, q.Ack(ctx, reserved.ID))
	n, err = q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, q.Ack(ctx, reserved.ID), ErrJobNotFound)
	assert.ErrorIs(t, q.Release(ctx, reserved.ID), ErrJobNotFound)
}

func TestMemoryQueue_FIFO(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	q := NewMemoryQueue(clock.Now)

	for _, id := range []string{"doc-1", "doc-2", "doc-3"} {
		_, err := q.Enqueue(ctx, &core.Job{Kind: core.JobKindProcessDocument, DocumentID: id})
		require.NoError(t, err)
	}

	for _, want := range []string{"doc-1", "doc-2", "doc-3"} {
		job, err := q.Reserve(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, job.DocumentID)
	}
}

func TestMemoryQueue_LeaseExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	q := NewMemoryQueue(clock.Now)

	_, err := q.Enqueue(ctx, &core.Job{Kind: core.JobKindProcessDocument, DocumentID: "doc-1", Timeout: time.Minute})
	require.NoError(t, err)

	first, err := q.Reserve(ctx)
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	_, err = q.Reserve(ctx)
	assert.ErrorIs(t, err, ErrQueueEmpty)

	// Lease expired: delivered again
	clock.Advance(time.Second)
	second, err := q.Reserve(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Attempts)
}

func TestMemoryQueue_Release(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	q := NewMemoryQueue(clock.Now)

	_, err := q.Enqueue(ctx, &core.Job{Kind: core.JobKindProcessDocument, DocumentID: "doc-1"})
	require.NoError(t, err)

	job, err := q.Reserve(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Release(ctx, job.ID))

	again, err := q.Reserve(ctx)
	require.NoError(t, err)
	assert.Equal(t, job.ID, again.ID)
	assert.Equal(t, 2, again.Attempts)
}
