// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docindex/core"
	"golang.org/x/time/rate"
)

const (
	defaultMaxAttempts  = 3
	defaultPollInterval = 500 * time.Millisecond
)

// Handler executes one job. It must honour ctx cancellation.
type Handler func(ctx context.Context, job *core.Job) error

// Runner executes queued jobs on a goroutine pool.
type Runner struct {
	queue        Queue
	handlers     map[core.JobKind]Handler
	pool         *ants.Pool
	limiter      *rate.Limiter
	maxAttempts  int
	pollInterval time.Duration
	logger       *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner) error

// WithPoolSize sets the number of jobs executed concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(r *Runner) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if r.pool != nil {
			r.pool.Release()
		}
		r.pool = pool
		return nil
	}
}

// WithMaxAttempts sets how many times a failing job is tried before it is dropped.
func WithMaxAttempts(attempts int) Option {
	return func(r *Runner) error {
		if attempts < 1 {
			attempts = 1
		}
		r.maxAttempts = attempts
		return nil
	}
}

// WithRateLimit caps job starts per second. Zero or less disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(r *Runner) error {
		if perSecond <= 0 {
			r.limiter = nil
			return nil
		}
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		return nil
	}
}

// WithPollInterval sets how long Run waits when the queue is empty.
func WithPollInterval(interval time.Duration) Option {
	return func(r *Runner) error {
		if interval > 0 {
			r.pollInterval = interval
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRunner creates a runner. The handler table is copied, so later changes
// to the map have no effect.
func NewRunner(queue Queue, handlers map[core.JobKind]Handler, opts ...Option) (*Runner, error) {
	if queue == nil {
		return nil, ErrQueueRequired
	}
	if len(handlers) == 0 {
		return nil, ErrHandlerRequired
	}
	for kind, h := range handlers {
		if h == nil {
			return nil, fmt.Errorf("%w: nil handler for %s", ErrHandlerRequired, kind)
		}
	}

	r := &Runner{
		queue:        queue,
		handlers:     maps.Clone(handlers),
		maxAttempts:  defaultMaxAttempts,
		pollInterval: defaultPollInterval,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			r.Release()
			return nil, err
		}
	}

	if r.pool == nil {
		poolSize := max(runtime.NumCPU()/2, 1)
		pool, err := ants.NewPool(poolSize)
		if err != nil {
			return nil, err
		}
		r.pool = pool
	}
	r.logger = r.logger.With("component", "runner")

	return r, nil
}

// Run reserves and executes jobs until ctx is cancelled, then waits for
// in-flight jobs and returns nil.
func (r *Runner) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		job, err := r.reserve(ctx)
		switch {
		case ctx.Err() != nil:
			if job != nil {
				// Reserved but never started; hand it back
				r.release(context.WithoutCancel(ctx), job)
			}
			return nil
		case errors.Is(err, ErrQueueEmpty):
			timer := time.NewTimer(r.pollInterval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
			continue
		case err != nil:
			r.logger.Error("error reserving job", "err", err)
			return err
		}

		if err := r.submit(ctx, &wg, job); err != nil {
			return err
		}
	}
}

// Drain executes jobs until no job is visible and none is in flight.
// Returns the number of job executions started.
func (r *Runner) Drain(ctx context.Context) (int, error) {
	var wg sync.WaitGroup
	executed := 0

	for {
		job, err := r.reserve(ctx)
		if errors.Is(err, ErrQueueEmpty) {
			// Released jobs become visible again once in-flight work settles
			wg.Wait()
			job, err = r.reserve(ctx)
			if errors.Is(err, ErrQueueEmpty) {
				return executed, nil
			}
		}
		if err != nil {
			wg.Wait()
			return executed, err
		}

		executed++
		if err := r.submit(ctx, &wg, job); err != nil {
			wg.Wait()
			return executed, err
		}
	}
}

// Release frees the goroutine pool. The runner must not be used afterwards.
func (r *Runner) Release() {
	if r.pool != nil {
		r.pool.Release()
	}
}

func (r *Runner) reserve(ctx context.Context) (*core.Job, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return r.queue.Reserve(ctx)
}

func (r *Runner) submit(ctx context.Context, wg *sync.WaitGroup, job *core.Job) error {
	wg.Add(1)
	err := r.pool.Submit(func() {
		defer wg.Done()
		r.execute(ctx, job)
	})
	if err != nil {
		wg.Done()
		r.release(context.WithoutCancel(ctx), job)
		return fmt.Errorf("submit job %d: %w", job.ID, err)
	}
	return nil
}

// execute runs one job and settles it on the queue. Handler errors, panics
// and timeouts are turned into queue operations and logs. A job on its last
// attempt is dropped whatever the failure.
func (r *Runner) execute(ctx context.Context, job *core.Job) {
	logger := r.logger.With("job", job.ID, "kind", job.Kind, "document", job.DocumentID, "attempt", job.Attempts)
	// Queue bookkeeping outlives the caller's cancellation
	settleCtx := context.WithoutCancel(ctx)

	handler, ok := r.handlers[job.Kind]
	if !ok {
		logger.Error("dropping job", "err", ErrUnknownJobKind)
		r.ack(settleCtx, job)
		return
	}

	jobCtx, cancel := context.WithTimeout(settleCtx, job.Timeout)
	defer cancel()

	err := r.call(jobCtx, handler, job)
	switch {
	case err == nil:
		logger.Debug("job completed")
		r.ack(settleCtx, job)
	case job.Attempts >= r.maxAttempts:
		logger.Error("job failed, dropping", "err", err, "maxAttempts", r.maxAttempts)
		r.ack(settleCtx, job)
	case errors.Is(err, ErrJobTimeout):
		logger.Warn("job timed out, leaving lease to expire", "timeout", job.Timeout)
	default:
		logger.Warn("job failed, will retry", "err", err)
		r.release(settleCtx, job)
	}
}

// call runs the handler and enforces the deadline even if the handler
// ignores its context.
func (r *Runner) call(ctx context.Context, handler Handler, job *core.Job) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("%w: %v", ErrHandlerPanic, p)
			}
		}()
		done <- handler(ctx, job)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrJobTimeout, err)
		}
		return err
	case <-ctx.Done():
		return ErrJobTimeout
	}
}

func (r *Runner) ack(ctx context.Context, job *core.Job) {
	if err := r.queue.Ack(ctx, job.ID); err != nil {
		r.logger.Error("error acknowledging job", "job", job.ID, "err", err)
	}
}

func (r *Runner) release(ctx context.Context, job *core.Job) {
	if err := r.queue.Release(ctx, job.ID); err != nil {
		r.logger.Error("error releasing job", "job", job.ID, "err", err)
	}
}
