package semantic

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const (
	embedBatchSize   = 16
	embedConcurrency = 4
)

// Vectorizer embeds texts with a single, already selected model.
// *engine.Handle satisfies it.
type Vectorizer interface {
	Embed(ctx context.Context, texts ...string) ([][]float32, error)
}

// EmbedBatch returns one vector per text, in input order. Texts are sent in
// fixed-size batches, a bounded number of batches at a time.
// Returns nil (not error) for empty input.
func EmbedBatch(ctx context.Context, v Vectorizer, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	results := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		g.Go(func() error {
			vecs, err := v.Embed(gCtx, texts[start:end]...)
			if err != nil {
				return fmt.Errorf("embedding texts %d-%d: %w", start, end-1, err)
			}
			if len(vecs) != end-start {
				return fmt.Errorf("embedding texts %d-%d: got %d vectors", start, end-1, len(vecs))
			}
			copy(results[start:end], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
