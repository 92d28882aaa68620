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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/poiesic/docindex/chunker"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/jobs"
	"github.com/poiesic/docindex/storage"
	"github.com/poiesic/docindex/vector"
)

// Worker runs the ingestion pipeline for single documents.
type Worker struct {
	documents   storage.DocumentRepository
	fragments   storage.FragmentRepository
	chunker     *chunker.Chunker
	codec       vector.Codec
	loader      ContentLoader
	concurrency int
	logger      *slog.Logger
}

// Option configures a Worker.
type Option func(*Worker) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) error {
		if logger == nil {
			logger = slog.Default()
		}
		w.logger = logger
		return nil
	}
}

// WithChunker sets the chunker used to split content.
// Default is a chunker with chunker.DefaultChunkSize.
func WithChunker(c *chunker.Chunker) Option {
	return func(w *Worker) error {
		if c != nil {
			w.chunker = c
		}
		return nil
	}
}

// WithCodec sets the codec used to embed chunks.
// Default is vector.NewHashCodec().
func WithCodec(codec vector.Codec) Option {
	return func(w *Worker) error {
		if codec != nil {
			w.codec = codec
		}
		return nil
	}
}

// WithConcurrency sets how many chunks of one document are embedded in parallel.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithConcurrency(n int) Option {
	return func(w *Worker) error {
		if n < 1 {
			return fmt.Errorf("%w: got %d", ErrInvalidConcurrency, n)
		}
		w.concurrency = n
		return nil
	}
}

// WithContentLoader sets how document content is resolved.
// Default is FileLoader.
func WithContentLoader(loader ContentLoader) Option {
	return func(w *Worker) error {
		if loader != nil {
			w.loader = loader
		}
		return nil
	}
}

// NewWorker creates a new ingestion worker.
func NewWorker(documents storage.DocumentRepository, fragments storage.FragmentRepository, opts ...Option) (*Worker, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if fragments == nil {
		return nil, ErrFragmentRepositoryRequired
	}

	concurrency := runtime.NumCPU() / 2
	if concurrency < 1 {
		concurrency = 1
	}

	w := &Worker{
		documents:   documents,
		fragments:   fragments,
		chunker:     chunker.Default(),
		codec:       vector.NewHashCodec(),
		loader:      FileLoader{},
		concurrency: concurrency,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	w.logger = w.logger.With("component", "ingestion")

	return w, nil
}

// Handler returns the job handler for core.JobKindProcessDocument.
func (w *Worker) Handler() jobs.Handler {
	return func(ctx context.Context, job *core.Job) error {
		if job.DocumentID == "" {
			return jobs.ErrInvalidDocumentID
		}
		return w.ProcessDocument(ctx, job.DocumentID)
	}
}

// ProcessDocument ingests a single document.
//
// A missing document is a no-op, as is a document that is already ready.
// Pipeline failures are recorded on the document as status failed and are
// not returned. An error is returned only when the document could not be
// read at pickup, or when ctx ended mid-run; in both cases the job should be
// delivered again.
func (w *Worker) ProcessDocument(ctx context.Context, documentID string) error {
	logger := w.logger.With("document", documentID)

	doc, err := w.documents.GetDocument(ctx, documentID)
	if errors.Is(err, storage.ErrNotFound) {
		logger.Info("document no longer exists, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading document %s: %w", documentID, err)
	}

	if doc.Status == core.StatusReady {
		logger.Debug("document already ready, skipping")
		return nil
	}

	err = w.run(ctx, logger, doc)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Warn("ingestion interrupted", "err", err)
		return ctxErr
	}

	logger.Error("ingestion failed", "err", err)
	w.markFailed(ctx, logger, documentID, err)
	return nil
}

// run executes the pipeline and leaves the document ready on success.
func (w *Worker) run(ctx context.Context, logger *slog.Logger, doc *core.Document) error {
	if doc.Status != core.StatusProcessing {
		if err := core.ValidateTransition(doc.Status, core.StatusProcessing); err != nil {
			return err
		}
		doc.Status = core.StatusProcessing
		if _, err := w.documents.UpdateDocuments(ctx, doc); err != nil {
			return fmt.Errorf("marking document processing: %w", err)
		}
	}

	text, err := w.loader.Load(ctx, doc)
	if err != nil {
		return fmt.Errorf("loading content: %w", err)
	}

	chunks := w.chunker.Split(text)
	fragments, err := embedChunks(ctx, w.codec, chunks, w.concurrency)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}

	if _, err := w.fragments.ReplaceFragments(ctx, doc.ID, fragments...); err != nil {
		return fmt.Errorf("storing fragments: %w", err)
	}

	doc.Status = core.StatusReady
	doc.Error = ""
	if _, err := w.documents.UpdateDocuments(ctx, doc); err != nil {
		return fmt.Errorf("marking document ready: %w", err)
	}

	logger.Info("document ingested", "fragments", len(fragments), "chars", len(text))
	return nil
}

// markFailed records cause on a freshly loaded copy of the document.
// Errors are logged and dropped.
func (w *Worker) markFailed(ctx context.Context, logger *slog.Logger, documentID string, cause error) {
	doc, err := w.documents.GetDocument(ctx, documentID)
	if err != nil {
		logger.Error("unable to reload document to record failure", "err", err)
		return
	}
	if doc.Status != core.StatusFailed && !doc.Status.CanTransition(core.StatusFailed) {
		logger.Warn("not recording failure", "status", doc.Status)
		return
	}

	doc.Status = core.StatusFailed
	doc.Error = cause.Error()
	if _, err := w.documents.UpdateDocuments(ctx, doc); err != nil {
		logger.Error("unable to record failure", "err", err)
	}
}
