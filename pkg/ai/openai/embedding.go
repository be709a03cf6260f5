package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dslunde/Glyph-sub000/pkg/ai"

	"github.com/openai/openai-go/v3"
)

const defaultDimensions = 1536

// GenerateEmbedding creates a vector embedding for the given input text
// using the configured embedding model.
//
// The result always has the configured dimension: longer vectors are cut
// and shorter ones zero padded, so they fit a fixed-width vector column.
// Blank input yields a zero vector without a request.
//
// Example:
//
//	embedding, err := client.GenerateEmbedding(ctx, []byte("minimal subgraph"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println("Embedding length:", len(embedding))
func (c *GraphOpenAIClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	dim := c.embeddingDim
	if len(strings.TrimSpace(string(input))) == 0 {
		return make([]float32, dim), nil
	}
	if c.EmbeddingClient == nil {
		return nil, errors.New("openai embedding client not configured")
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	body := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: []string{string(input)}},
		Model: c.embeddingModel,
	}

	start := time.Now()
	response, err := c.EmbeddingClient.Embeddings.New(ctx, body)
	if err != nil {
		return nil, err
	}
	c.modifyMetrics(ai.ModelMetrics{
		InputTokens: int(response.Usage.PromptTokens),
		TotalTokens: int(response.Usage.TotalTokens),
		DurationMs:  time.Since(start).Milliseconds(),
		Requests:    1,
	})

	if len(response.Data) != 1 {
		return nil, fmt.Errorf("%w: embedding response size mismatch: got %d want 1", ai.ErrInvalidResponse, len(response.Data))
	}
	return fitDimensions(response.Data[0].Embedding, dim), nil
}

func fitDimensions(values []float64, dim int) []float32 {
	out := make([]float32, dim)
	for i := 0; i < dim && i < len(values); i++ {
		out[i] = float32(values[i])
	}
	return out
}
