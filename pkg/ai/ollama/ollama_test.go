package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dslunde/Glyph-sub000/pkg/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *GraphOllamaClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewGraphOllamaClient(NewGraphOllamaClientParams{
		ChatModel:      "llama3",
		EmbeddingModel: "nomic-embed-text",
		EmbeddingDim:   3,
		BaseURL:        srv.URL,
		ApiKey:         "secret",
	})
	require.NoError(t, err)
	return client
}

func TestGenerateCompletionWithFormat(t *testing.T) {
	var req map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &req)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":             "llama3",
			"message":           map[string]any{"role": "assistant", "content": `{"queries": ["graph theory basics"]}`},
			"done":              true,
			"prompt_eval_count": 10,
			"eval_count":        5,
		})
	})

	var out ai.QueriesResponse
	err := client.GenerateCompletionWithFormat(context.Background(), "search_queries", "desc", "prompt", &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"graph theory basics"}, out.Queries)
	assert.Equal(t, "llama3", req["model"])
	assert.NotNil(t, req["format"])

	m := client.GetMetrics()
	assert.Equal(t, 15, m.TotalTokens)
	assert.Equal(t, 1, m.Requests)
}

func TestGenerateCompletionWithFormat_RejectsNonPointer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	var out ai.QueriesResponse
	err := client.GenerateCompletionWithFormat(context.Background(), "n", "d", "p", out)
	assert.Error(t, err)
}

func TestGenerateEmbedding_PadsToDimension(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":             "nomic-embed-text",
			"embeddings":        [][]float32{{0.1, 0.2}},
			"prompt_eval_count": 2,
		})
	})

	vec, err := client.GenerateEmbedding(context.Background(), []byte("betweenness"))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0}, vec)
}

func TestContextSizeGrowsWithPrompt(t *testing.T) {
	short := contextSize("hello")
	long := contextSize(strings.Repeat("centrality ", 5000))
	assert.Greater(t, long, short)
	assert.Greater(t, long, 4096)
}
