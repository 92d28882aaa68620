package ingestion

import (
	"context"

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/vector"
	"golang.org/x/sync/errgroup"
)

// embedChunks builds one fragment per chunk. Ordinals follow chunk order
// regardless of the order in which embeddings complete.
func embedChunks(ctx context.Context, codec vector.Codec, chunks []string, limit int) ([]*core.Fragment, error) {
	fragments := make([]*core.Fragment, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, chunk := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fragments[i] = &core.Fragment{
				Ordinal: i,
				Content: chunk,
				Vector:  codec.Embed(chunk),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fragments, nil
}
