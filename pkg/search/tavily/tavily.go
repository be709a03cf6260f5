// Package tavily implements search.Provider against the Tavily search API.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dslunde/Glyph-sub000/pkg/logger"
	"github.com/dslunde/Glyph-sub000/pkg/search"

	"golang.org/x/time/rate"
)

const DefaultEndpoint = "https://api.tavily.com/search"

// Client is a Tavily search client. It is safe for concurrent use; all
// requests share one rate limiter.
type Client struct {
	apiKey   string
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
}

// Params configures a Client. RequestsPerSecond of zero means 5.
type Params struct {
	APIKey            string
	Endpoint          string
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

func New(p Params) *Client {
	endpoint := p.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	rps := p.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	hc := p.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		apiKey:   p.APIKey,
		endpoint: endpoint,
		http:     hc,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type searchResponse struct {
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		Score         float64 `json:"score"`
		PublishedDate string  `json:"published_date"`
	} `json:"results"`
}

// Search runs query and returns at most limit validated results. Records
// that fail validation are dropped and logged.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(searchRequest{
		APIKey:      c.apiKey,
		Query:       query,
		MaxResults:  limit,
		SearchDepth: "basic",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", search.ErrProvider, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", search.ErrInvalidResult, err)
	}

	out := make([]search.Result, 0, len(parsed.Results))
	dropped := 0
	for _, raw := range parsed.Results {
		r := search.Result{
			Title:         raw.Title,
			URL:           raw.URL,
			Content:       raw.Content,
			Score:         raw.Score,
			PublishedDate: raw.PublishedDate,
		}
		if err := r.Validate(); err != nil {
			dropped++
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	if dropped > 0 {
		logger.Debug("[Search] Dropped invalid results", "query", query, "dropped", dropped)
	}
	return out, nil
}
