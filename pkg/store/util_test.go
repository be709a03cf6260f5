package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/dslunde/Glyph-sub000/pkg/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkRange(t *testing.T) {
	var windows [][2]int
	err := ChunkRange(5, 2, func(start, end int) error {
		windows = append(windows, [2]int{start, end})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 2}, {2, 4}, {4, 5}}, windows)

	calls := 0
	require.NoError(t, ChunkRange(0, 2, func(int, int) error { calls++; return nil }))
	assert.Zero(t, calls)

	boom := errors.New("boom")
	assert.ErrorIs(t, ChunkRange(3, 0, func(int, int) error { return boom }), boom)
}

type embedClient struct {
	calls atomic.Int32
	fail  bool
}

func (c *embedClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", nil
}

func (c *embedClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	return nil
}

func (c *embedClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	c.calls.Add(1)
	if c.fail {
		return nil, errors.New("embedding backend down")
	}
	return []float32{float32(len(input))}, nil
}

func (c *embedClient) ResetMetrics()               {}
func (c *embedClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func TestGenerateEmbeddings(t *testing.T) {
	client := &embedClient{}
	out, err := GenerateEmbeddings(context.Background(), client, [][]byte{[]byte("a"), []byte("abc")}, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {3}}, out)
	assert.EqualValues(t, 2, client.calls.Load())

	out, err = GenerateEmbeddings(context.Background(), client, nil, 2)
	require.NoError(t, err)
	assert.Nil(t, out)

	_, err = GenerateEmbeddings(context.Background(), &embedClient{fail: true}, [][]byte{[]byte("a")}, 0)
	assert.Error(t, err)

	_, err = GenerateEmbeddings(context.Background(), nil, [][]byte{[]byte("a")}, 1)
	assert.Error(t, err)
}
