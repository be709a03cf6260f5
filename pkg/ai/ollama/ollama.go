package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/dslunde/Glyph-sub000/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// GraphOllamaClient implements the ai.GraphAIClient interface using Ollama as the backend.
// It serves chat completions, structured output and embeddings from locally-hosted models.
type GraphOllamaClient struct {
	chatModel      string
	embeddingModel string
	embeddingDim   int

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	baseURL *url.URL

	Client *api.Client
}

// NewGraphOllamaClientParams contains configuration options for creating a new GraphOllamaClient.
type NewGraphOllamaClientParams struct {
	ChatModel      string
	EmbeddingModel string
	EmbeddingDim   int

	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if v == "" || r.Header.Get(k) != "" {
			continue
		}
		r.Header.Set(k, v)
	}
	return t.rt.RoundTrip(r)
}

// NewGraphOllamaClient creates a new Ollama-based AI client with the specified configuration.
// It connects to the Ollama server at the given BaseURL (or the default if empty).
func NewGraphOllamaClient(
	params NewGraphOllamaClientParams,
) (*GraphOllamaClient, error) {
	u, err := url.Parse("http://localhost:11434")
	if err != nil {
		return nil, err
	}
	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	auth := ""
	if params.ApiKey != "" {
		auth = "Bearer " + params.ApiKey
	}
	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{"Authorization": auth},
			rt:      http.DefaultTransport,
		},
	}

	maxReq := params.MaxConcurrentRequests
	if maxReq <= 0 {
		maxReq = 4
	}
	dim := params.EmbeddingDim
	if dim <= 0 {
		dim = defaultDimensions
	}

	return &GraphOllamaClient{
		chatModel:      params.ChatModel,
		embeddingModel: params.EmbeddingModel,
		embeddingDim:   dim,

		reqLock: semaphore.NewWeighted(maxReq),

		baseURL: u,

		Client: api.NewClient(u, httpClient),
	}, nil
}
