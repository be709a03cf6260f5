package ai

import (
	"context"
	"fmt"
	"strings"
)

// QueriesResponse is the structured output of query generation.
type QueriesResponse struct {
	Queries []string `json:"queries" jsonschema_description:"Natural language web search queries, one per aspect of the topic."`
}

// GenerateSearchQueries asks the model for n search queries about topic.
//
// Blank and duplicate queries are dropped and the list is trimmed to n.
// A response without any usable query wraps ErrInvalidResponse; padding
// short lists is left to the caller.
func GenerateSearchQueries(
	ctx context.Context,
	client GraphAIClient,
	topic string,
	preferences []string,
	n int,
) ([]string, error) {
	if client == nil {
		return nil, fmt.Errorf("ai client is nil")
	}
	if n <= 0 {
		n = 5
	}

	var hints strings.Builder
	for _, p := range preferences {
		if h, ok := PreferenceHints[strings.ToLower(p)]; ok {
			hints.WriteString(h)
			hints.WriteString("\n")
		}
	}
	prompt := fmt.Sprintf(QueryGenerationPrompt, topic, hints.String(), n)

	var res QueriesResponse
	err := client.GenerateCompletionWithFormat(
		ctx,
		"search_queries",
		"Search queries for researching a topic.",
		prompt,
		&res,
		WithTemperature(0.7),
	)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(res.Queries))
	queries := make([]string, 0, n)
	for _, q := range res.Queries {
		q = strings.Join(strings.Fields(q), " ")
		if q == "" {
			continue
		}
		key := strings.ToLower(q)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		queries = append(queries, q)
		if len(queries) == n {
			break
		}
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("%w: no queries returned", ErrInvalidResponse)
	}
	return queries, nil
}
