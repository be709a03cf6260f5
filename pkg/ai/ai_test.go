package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cannedClient struct {
	response string
	err      error
	prompts  []string
	metrics  ModelMetrics
}

func (c *cannedClient) GenerateCompletion(ctx context.Context, prompt string, opts ...GenerateOption) (string, error) {
	c.prompts = append(c.prompts, prompt)
	return c.response, c.err
}

func (c *cannedClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...GenerateOption) error {
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return c.err
	}
	return UnmarshalFlexible(c.response, out)
}

func (c *cannedClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	return []float32{1, 0}, c.err
}

func (c *cannedClient) ResetMetrics()            { c.metrics = ModelMetrics{} }
func (c *cannedClient) GetMetrics() ModelMetrics { return c.metrics }

func TestGenerateSearchQueries(t *testing.T) {
	client := &cannedClient{response: `{"queries": ["  graph   theory basics ", "", "Graph theory basics", "pagerank explained", "centrality in practice"]}`}

	queries, err := GenerateSearchQueries(context.Background(), client, "graph theory", []string{"reliable", "insider"}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"graph theory basics", "pagerank explained"}, queries)

	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "Topic: graph theory")
	assert.Contains(t, client.prompts[0], PreferenceHints["reliable"])
	assert.Contains(t, client.prompts[0], PreferenceHints["insider"])
	assert.NotContains(t, client.prompts[0], PreferenceHints["outsider"])
}

func TestGenerateSearchQueries_Empty(t *testing.T) {
	client := &cannedClient{response: `{"queries": ["", "   "]}`}
	_, err := GenerateSearchQueries(context.Background(), client, "graph theory", nil, 5)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestGenerateSearchQueries_ProviderError(t *testing.T) {
	boom := errors.New("rate limited")
	client := &cannedClient{err: boom}
	_, err := GenerateSearchQueries(context.Background(), client, "graph theory", nil, 5)
	assert.ErrorIs(t, err, boom)
}

func TestScoreReliability(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     int
		wantErr  error
	}{
		{name: "valid", response: `{"score": 82, "reasoning": "peer reviewed"}`, want: 82},
		{name: "boundary low", response: `{"score": 0, "reasoning": "spam"}`, want: 0},
		{name: "out of range", response: `{"score": 140, "reasoning": "??"}`, wantErr: ErrInvalidResponse},
		{name: "negative", response: `{"score": -1, "reasoning": "??"}`, wantErr: ErrInvalidResponse},
		{name: "garbage", response: `not json at all`, wantErr: ErrInvalidResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &cannedClient{response: tt.response}
			got, err := ScoreReliability(context.Background(), client, "Title", "https://example.edu/a", strings.Repeat("x", 5000))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Less(t, len(client.prompts[0]), 5000)
		})
	}
}

func TestExtractConcepts_Limit(t *testing.T) {
	client := &cannedClient{response: `{"items": [{"name": "PageRank", "kind": "concept", "count": 3}, {"name": "Google", "kind": "entity", "count": 1}]}`}
	items, err := ExtractConcepts(context.Background(), client, "graphs", "text", 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "PageRank", items[0].Name)
}

func TestModelMetricsAdd(t *testing.T) {
	var m ModelMetrics
	m.Add(ModelMetrics{InputTokens: 10, OutputTokens: 5, TotalTokens: 15, DurationMs: 500, Requests: 1})
	m.Add(ModelMetrics{InputTokens: 10, OutputTokens: 5, TotalTokens: 15, DurationMs: 500, Requests: 1})
	assert.Equal(t, 30, m.TotalTokens)
	assert.Equal(t, 2, m.Requests)
	assert.InDelta(t, 30.0, float64(m.TokenPerSecond), 0.01)
}
