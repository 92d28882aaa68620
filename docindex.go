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

package docindex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/poiesic/docindex/chunker"
	"github.com/poiesic/docindex/config"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/ingestion"
	"github.com/poiesic/docindex/jobs"
	"github.com/poiesic/docindex/search"
	"github.com/poiesic/docindex/storage"
	"github.com/poiesic/docindex/storage/badger"
	"github.com/poiesic/docindex/storage/sqlite"
)

const maxDerivedTitle = 80

// Index wires storage, the job queue, ingestion and search together.
type Index struct {
	cfg          *config.Config
	store        storage.Store
	queueBackend *badger.Backend // nil when the queue shares the badger store
	queue        *badger.JobQueue
	dispatcher   *jobs.Dispatcher
	worker       *ingestion.Worker
	runner       *jobs.Runner
	searcher     *search.Searcher
	logger       *slog.Logger
}

// Option configures an Index.
type Option func(*indexOptions)

type indexOptions struct {
	logger *slog.Logger
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *indexOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewDocument describes a document submitted for indexing.
// Exactly one of Content, URL or Text must be provided.
type NewDocument struct {
	Owner    string
	Title    string    // Derived from FileName, URL or Text when empty
	FileName string    // Original name of the uploaded file
	Content  io.Reader // Upload body
	URL      string
	Text     string // Inline content, stored as a file
}

// Open creates an Index from cfg. A nil cfg uses config.DefaultConfig().
func Open(cfg *config.Config, opts ...Option) (*Index, error) {
	options := &indexOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	idx := &Index{cfg: cfg, logger: logger}

	var queueBackend *badger.Backend
	switch cfg.Store {
	case config.StoreSQLite:
		store, err := sqlite.Open(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		idx.store = store

		backend, err := badger.OpenBackend(filepath.Join(cfg.DataDir, "queue"), false)
		if err != nil {
			idx.Close()
			return nil, err
		}
		idx.queueBackend = backend
		queueBackend = backend
	default:
		store, err := badger.Open(filepath.Join(cfg.DataDir, "records"))
		if err != nil {
			return nil, err
		}
		idx.store = store
		queueBackend = store.Backend()
	}

	queue, err := badger.NewJobQueue(queueBackend, nil)
	if err != nil {
		idx.Close()
		return nil, err
	}
	idx.queue = queue

	if err := idx.wire(); err != nil {
		idx.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) wire() error {
	cfg := idx.cfg

	dispatcher, err := jobs.NewDispatcher(idx.queue, cfg.JobTimeout.Duration, idx.logger)
	if err != nil {
		return err
	}
	idx.dispatcher = dispatcher

	splitter, err := chunker.New(chunker.WithChunkSize(cfg.ChunkSize))
	if err != nil {
		return err
	}

	worker, err := ingestion.NewWorker(idx.store.Documents(), idx.store.Fragments(),
		ingestion.WithLogger(idx.logger),
		ingestion.WithChunker(splitter),
		ingestion.WithConcurrency(cfg.PoolSize),
	)
	if err != nil {
		return err
	}
	idx.worker = worker

	runner, err := jobs.NewRunner(idx.queue,
		map[core.JobKind]jobs.Handler{core.JobKindProcessDocument: worker.Handler()},
		jobs.WithPoolSize(cfg.PoolSize),
		jobs.WithMaxAttempts(cfg.MaxAttempts),
		jobs.WithRateLimit(cfg.RateLimit),
		jobs.WithLogger(idx.logger),
	)
	if err != nil {
		return err
	}
	idx.runner = runner

	searcher, err := search.NewSearcher(idx.store.Documents(), idx.store.Fragments(),
		search.WithLogger(idx.logger))
	if err != nil {
		return err
	}
	idx.searcher = searcher
	return nil
}

// Close releases the worker pool, the queue and the store.
func (idx *Index) Close() error {
	if idx.runner != nil {
		idx.runner.Release()
	}

	var errs []error
	if idx.queue != nil {
		if err := idx.queue.Close(); err != nil {
			idx.logger.Error("error closing job queue", "err", err)
			errs = append(errs, err)
		}
	}
	if idx.queueBackend != nil {
		if err := idx.queueBackend.Close(); err != nil {
			idx.logger.Error("error closing queue backend", "err", err)
			errs = append(errs, err)
		}
	}
	if idx.store != nil {
		if err := idx.store.Close(); err != nil {
			idx.logger.Error("error closing store", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Config returns the validated configuration the index was opened with.
func (idx *Index) Config() *config.Config {
	return idx.cfg
}

// CreateDocument stores a new pending document and schedules its ingestion.
// Uploads and inline text are copied into the upload directory. When the
// document is stored but scheduling fails, the document is returned along
// with an error wrapping ErrEnqueueFailed.
func (idx *Index) CreateDocument(ctx context.Context, nd NewDocument) (*core.Document, error) {
	source, err := nd.source()
	if err != nil {
		return nil, err
	}

	doc := &core.Document{
		ID:     uuid.NewString(),
		Owner:  nd.Owner,
		Title:  nd.title(),
		Source: source,
		Status: core.StatusPending,
	}

	switch source {
	case core.SourceTypeUpload:
		doc.StoragePath, err = idx.saveUpload(doc.ID, nd.FileName, nd.Content)
	case core.SourceTypeRaw:
		doc.StoragePath, err = idx.saveUpload(doc.ID, "raw.txt", strings.NewReader(nd.Text))
	case core.SourceTypeURL:
		doc.URL = nd.URL
	}
	if err != nil {
		return nil, err
	}

	if _, err := idx.store.Documents().AddDocuments(ctx, doc); err != nil {
		idx.removeUpload(doc)
		return nil, err
	}

	if err := idx.dispatcher.Enqueue(ctx, doc.ID); err != nil {
		idx.logger.Error("error scheduling ingestion", "document", doc.ID, "err", err)
		return doc, fmt.Errorf("%w: %w", ErrEnqueueFailed, err)
	}
	return doc, nil
}

// GetDocument returns a document owned by owner.
// Documents of other owners are reported as storage.ErrNotFound.
func (idx *Index) GetDocument(ctx context.Context, owner, id string) (*core.Document, error) {
	doc, err := idx.store.Documents().GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Owner != owner {
		return nil, fmt.Errorf("%w: document %s", storage.ErrNotFound, id)
	}
	return doc, nil
}

// ListDocuments returns the documents of owner, newest first.
func (idx *Index) ListDocuments(ctx context.Context, owner string) ([]*core.Document, error) {
	return idx.store.Documents().ListDocumentsByOwner(ctx, owner)
}

// DeleteDocument removes a document, its fragments and its stored upload.
// The upload is removed only once the record is gone. Failure to remove it
// is logged and ignored.
func (idx *Index) DeleteDocument(ctx context.Context, owner, id string) error {
	doc, err := idx.GetDocument(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := idx.store.Documents().DeleteDocuments(ctx, doc.ID); err != nil {
		return err
	}
	idx.removeUpload(doc)
	return nil
}

// Search returns the topK fragments of owner that best match query.
func (idx *Index) Search(ctx context.Context, owner, query string, topK int) ([]*core.SearchResult, error) {
	return idx.searcher.Query(ctx, owner, query, topK)
}

// Drain processes queued jobs until none remain and returns how many ran.
func (idx *Index) Drain(ctx context.Context) (int, error) {
	return idx.runner.Drain(ctx)
}

// RunWorker processes jobs until ctx is cancelled.
func (idx *Index) RunWorker(ctx context.Context) error {
	return idx.runner.Run(ctx)
}

// PendingJobs returns the number of jobs waiting in the queue.
func (idx *Index) PendingJobs(ctx context.Context) (int, error) {
	return idx.queue.Len(ctx)
}

func (idx *Index) saveUpload(id, name string, content io.Reader) (string, error) {
	safeName := strings.ReplaceAll(id+"_"+filepath.Base(name), " ", "_")
	path := filepath.Join(idx.cfg.UploadDir, safeName)

	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating upload: %w", err)
	}
	if _, err := io.Copy(out, content); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing upload: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing upload: %w", err)
	}
	return path, nil
}

func (idx *Index) removeUpload(doc *core.Document) {
	if doc.StoragePath == "" {
		return
	}
	if err := os.Remove(doc.StoragePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		idx.logger.Warn("unable to remove upload", "path", doc.StoragePath, "err", err)
	}
}

func (nd NewDocument) source() (core.SourceType, error) {
	var sources []core.SourceType
	if nd.Content != nil {
		sources = append(sources, core.SourceTypeUpload)
	}
	if nd.URL != "" {
		sources = append(sources, core.SourceTypeURL)
	}
	if nd.Text != "" {
		sources = append(sources, core.SourceTypeRaw)
	}

	switch len(sources) {
	case 0:
		return "", ErrNoContent
	case 1:
		if sources[0] == core.SourceTypeUpload && nd.FileName == "" {
			return "", ErrFileNameRequired
		}
		return sources[0], nil
	default:
		return "", fmt.Errorf("%w: %v", ErrConflictingContent, sources)
	}
}

func (nd NewDocument) title() string {
	if nd.Title != "" {
		return nd.Title
	}
	switch {
	case nd.Content != nil:
		return filepath.Base(nd.FileName)
	case nd.URL != "":
		return nd.URL
	default:
		return titleFromText(nd.Text)
	}
}

// titleFromText uses the first non-blank line, shortened to maxDerivedTitle runes.
func titleFromText(text string) string {
	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > maxDerivedTitle {
			line = string([]rune(line)[:maxDerivedTitle])
		}
		return line
	}
	return "untitled"
}
