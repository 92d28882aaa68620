package search

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
	"github.com/poiesic/docindex/vector"
)

// Searcher ranks fragments by similarity to a query.
type Searcher struct {
	documents storage.DocumentRepository
	fragments storage.FragmentRepository
	codec     vector.Codec
	monitor   SearchMonitor
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithCodec sets the codec used to embed queries.
// It must match the codec fragments were embedded with.
func WithCodec(codec vector.Codec) Option {
	return func(s *Searcher) error {
		if codec != nil {
			s.codec = codec
		}
		return nil
	}
}

// WithMonitor sets the monitor used by Query.
func WithMonitor(monitor SearchMonitor) Option {
	return func(s *Searcher) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(documents storage.DocumentRepository, fragments storage.FragmentRepository, opts ...Option) (*Searcher, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if fragments == nil {
		return nil, ErrFragmentRepositoryRequired
	}

	s := &Searcher{
		documents: documents,
		fragments: fragments,
		codec:     vector.NewHashCodec(),
		monitor:   &noopMonitor{},
		logger:    slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Query returns up to topK fragments owned by userID, best match first.
// Equal scores are ordered by document ID, then by ordinal.
// A topK of zero or less returns no results.
func (s *Searcher) Query(ctx context.Context, userID, query string, topK int) ([]*core.SearchResult, error) {
	return s.QueryWithMonitor(ctx, userID, query, topK, s.monitor)
}

// QueryWithMonitor is Query with a per-call monitor.
func (s *Searcher) QueryWithMonitor(ctx context.Context, userID, query string, topK int, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(userID, query)

	if topK <= 0 {
		results := []*core.SearchResult{}
		monitor.Finish(results)
		return results, nil
	}

	queryVector := s.codec.Embed(query)

	fragments, err := s.fragments.GetFragmentsByOwner(ctx, userID)
	if err != nil {
		s.logger.Error("error loading fragments", "user", userID, "err", err)
		return nil, err
	}
	monitor.AfterFragmentScan(len(fragments))

	type scored struct {
		fragment *core.Fragment
		score    float32
	}
	ranked := make([]scored, len(fragments))
	for i, f := range fragments {
		ranked[i] = scored{fragment: f, score: s.codec.Similarity(queryVector, f.Vector)}
	}

	slices.SortStableFunc(ranked, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.fragment.DocumentID, b.fragment.DocumentID); c != 0 {
			return c
		}
		return cmp.Compare(a.fragment.Ordinal, b.fragment.Ordinal)
	})
	ranked = ranked[:min(topK, len(ranked))]

	ids := make([]string, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.fragment.DocumentID)
	}
	titles, err := s.documentTitles(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]*core.SearchResult, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, &core.SearchResult{
			DocumentID:    r.fragment.DocumentID,
			DocumentTitle: titles[r.fragment.DocumentID],
			FragmentID:    r.fragment.ID,
			Ordinal:       r.fragment.Ordinal,
			Content:       r.fragment.Content,
			Score:         r.score,
		})
	}

	s.logger.Debug("search complete", "user", userID, "scanned", len(fragments), "results", len(results))
	monitor.Finish(results)
	return results, nil
}

// documentTitles maps document IDs to titles, loading each document once.
func (s *Searcher) documentTitles(ctx context.Context, ids []string) (map[string]string, error) {
	slices.Sort(ids)
	ids = slices.Compact(ids)

	docs, err := s.documents.GetDocuments(ctx, ids...)
	if err != nil {
		s.logger.Error("error loading documents", "err", err)
		return nil, err
	}

	titles := make(map[string]string, len(docs))
	for _, doc := range docs {
		titles[doc.ID] = doc.Title
	}
	return titles, nil
}
