package openai

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

func newTestServer(t *testing.T, handler http.HandlerFunc) *GraphOpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGraphOpenAIClient(NewGraphOpenAIClientParams{
		ChatModel:      "test-chat",
		EmbeddingModel: "test-embed",
		EmbeddingDim:   4,
		ChatURL:        srv.URL,
		ChatKey:        "test-key",
	})
}

func chatCompletionBody(content string) string {
	payload := map[string]any{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-chat",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16},
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func TestGenerateCompletionWithFormat(t *testing.T) {
	var gotBody map[string]any
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatCompletionBody(`{"score": 77, "reasoning": "established publisher"}`))
	})

	var out ai.ReliabilityResponse
	err := client.GenerateCompletionWithFormat(context.Background(), "reliability_score", "desc", "prompt", &out)
	require.NoError(t, err)
	assert.Equal(t, 77, out.Score)
	assert.Equal(t, "test-chat", gotBody["model"])
	assert.Contains(t, gotBody, "response_format")

	m := client.GetMetrics()
	assert.Equal(t, 16, m.TotalTokens)
	assert.Equal(t, 1, m.Requests)

	client.ResetMetrics()
	assert.Equal(t, 0, client.GetMetrics().TotalTokens)
}

func TestGenerateCompletion_EmptyContent(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatCompletionBody(""))
	})

	_, err := client.GenerateCompletion(context.Background(), "prompt")
	assert.ErrorIs(t, err, ai.ErrInvalidResponse)
}

func TestGenerateCompletion_ServerErrorIsNotRetried(t *testing.T) {
	calls := 0
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.GenerateCompletion(context.Background(), "prompt")
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestGenerateEmbedding(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","model":"test-embed","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}],"usage":{"prompt_tokens":3,"total_tokens":3}}`)
	})

	vec, err := client.GenerateEmbedding(context.Background(), []byte("pagerank"))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25, 0, 0}, vec)

	blank, err := client.GenerateEmbedding(context.Background(), []byte("   "))
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 4), blank)
}

func TestMissingKeyLeavesClientUnconfigured(t *testing.T) {
	client := NewGraphOpenAIClient(NewGraphOpenAIClientParams{ChatModel: "m"})
	_, err := client.GenerateCompletion(context.Background(), "prompt")
	assert.ErrorIs(t, err, errNoChatClient)
}
