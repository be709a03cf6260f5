package ollama

import (
	"context"
	"fmt"
	"strings"

	"github.com/dslunde/Glyph-sub000/pkg/ai"

	"github.com/ollama/ollama/api"
)

const defaultDimensions = 768

// GenerateEmbedding creates a vector embedding for the given input text
// using the configured embedding model on Ollama.
//
// The returned vector always has the configured dimension; blank input
// yields a zero vector.
func (c *GraphOllamaClient) GenerateEmbedding(
	ctx context.Context,
	input []byte,
) ([]float32, error) {
	dim := c.embeddingDim
	if len(strings.TrimSpace(string(input))) == 0 {
		return make([]float32, dim), nil
	}

	req := &api.EmbedRequest{
		Model: c.embeddingModel,
		Input: string(input),
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	res, err := c.Client.Embed(ctx, req)
	if err != nil {
		return nil, err
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens: res.PromptEvalCount,
		TotalTokens: res.PromptEvalCount,
		DurationMs:  res.TotalDuration.Milliseconds(),
		Requests:    1,
	})

	if len(res.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ai.ErrInvalidResponse)
	}
	out := make([]float32, dim)
	copy(out, res.Embeddings[0])
	return out, nil
}
