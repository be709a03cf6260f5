package openai

import (
	"sync"

	"github.com/dslunde/Glyph-sub000/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

// GraphOpenAIClient implements ai.GraphAIClient against any OpenAI
// compatible endpoint. Chat and embedding requests may target different
// base URLs and keys.
//
// A GraphOpenAIClient should be created using NewGraphOpenAIClient.
type GraphOpenAIClient struct {
	chatModel      string
	embeddingModel string
	embeddingDim   int

	chatURL string

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewGraphOpenAIClientParams defines the configuration parameters for
// creating a new GraphOpenAIClient.
//
// ChatURL and EmbeddingURL may be empty to use the public OpenAI API.
// MaxConcurrentRequests bounds in-flight requests across all goroutines
// sharing the client; zero means 15.
type NewGraphOpenAIClientParams struct {
	ChatModel      string
	EmbeddingModel string
	EmbeddingDim   int

	ChatURL      string
	ChatKey      string
	EmbeddingURL string
	EmbeddingKey string

	MaxConcurrentRequests int64
}

// NewGraphOpenAIClient creates a client with separate chat and embedding
// connections.
//
// Example:
//
//	client := openai.NewGraphOpenAIClient(openai.NewGraphOpenAIClientParams{
//		ChatModel:      "gpt-4o-mini",
//		EmbeddingModel: "text-embedding-3-small",
//		ChatKey:        os.Getenv("AI_CHAT_KEY"),
//		EmbeddingKey:   os.Getenv("AI_EMBED_KEY"),
//	})
func NewGraphOpenAIClient(
	params NewGraphOpenAIClientParams,
) *GraphOpenAIClient {
	chatClient := newOpenaiClient(params.ChatURL, params.ChatKey)
	embedKey := params.EmbeddingKey
	embedURL := params.EmbeddingURL
	if embedKey == "" {
		embedKey = params.ChatKey
		embedURL = params.ChatURL
	}
	embedClient := newOpenaiClient(embedURL, embedKey)

	maxReq := params.MaxConcurrentRequests
	if maxReq <= 0 {
		maxReq = 15
	}
	dim := params.EmbeddingDim
	if dim <= 0 {
		dim = defaultDimensions
	}

	return &GraphOpenAIClient{
		chatModel:      params.ChatModel,
		embeddingModel: params.EmbeddingModel,
		embeddingDim:   dim,
		chatURL:        params.ChatURL,

		reqLock: semaphore.NewWeighted(maxReq),

		ChatClient:      chatClient,
		EmbeddingClient: embedClient,
	}
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}

// ResetMetrics clears all accumulated token and timing metrics to zero.
func (c *GraphOpenAIClient) ResetMetrics() {
	c.metricsLock.Lock()
	c.metrics = ai.ModelMetrics{}
	c.metricsLock.Unlock()
}

// GetMetrics returns the accumulated token usage and timing metrics since the last reset.
func (c *GraphOpenAIClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}

func (c *GraphOpenAIClient) modifyMetrics(m ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics.Add(m)
}
