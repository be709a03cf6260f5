package store

import (
	"context"
	"fmt"

	"github.com/dslunde/Glyph-sub000/pkg/ai"
	"golang.org/x/sync/errgroup"
)

// ChunkRange calls fn for consecutive [start, end) windows of at most
// chunkSize items.
func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

type embeddingBatcher interface {
	GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error)
}

// GenerateEmbeddings embeds every input with client, at most parallel
// requests at a time. Clients that can batch are called once.
func GenerateEmbeddings(
	ctx context.Context,
	client ai.GraphAIClient,
	inputs [][]byte,
	parallel int,
) ([][]float32, error) {
	if client == nil {
		return nil, fmt.Errorf("ai client is nil")
	}
	if len(inputs) == 0 {
		return nil, nil
	}
	if b, ok := client.(embeddingBatcher); ok {
		return b.GenerateEmbeddings(ctx, inputs)
	}
	if parallel <= 0 {
		parallel = 1
	}

	out := make([][]float32, len(inputs))

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(parallel)
	for i := range inputs {
		eg.Go(func() error {
			emb, err := client.GenerateEmbedding(ectx, inputs[i])
			if err != nil {
				return fmt.Errorf("failed to embed input %d: %w", i, err)
			}
			out[i] = emb
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}
