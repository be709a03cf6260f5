package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/dslunde/Glyph-sub000/pkg/ai"
	"github.com/dslunde/Glyph-sub000/pkg/common"
	"github.com/dslunde/Glyph-sub000/pkg/search"
)

var errBoom = errors.New("boom")

type fakeSearch struct {
	mu      sync.Mutex
	results map[string][]search.Result
	errs    map[string]error
	block   map[string]bool
	calls   []string
}

func (f *fakeSearch) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query)
	f.mu.Unlock()

	if f.block[query] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return f.results[query], nil
}

func (f *fakeSearch) queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeLLM answers query generation with a fixed list and reliability
// scoring from a URL lookup table. Scoring a URL listed in hold waits until
// its channel is closed.
type fakeLLM struct {
	mu       sync.Mutex
	queries  []string
	queryErr error
	scores   map[string]int
	scoreErr error
	scored   int
	hold     map[string]chan struct{}
}

func (f *fakeLLM) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeLLM) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	switch name {
	case "search_queries":
		if f.queryErr != nil {
			return f.queryErr
		}
		return roundTrip(ai.QueriesResponse{Queries: f.queries}, out)
	case "reliability_score":
		f.mu.Lock()
		f.scored++
		f.mu.Unlock()
		if f.scoreErr != nil {
			return f.scoreErr
		}
		url := promptURL(prompt)
		if wait, ok := f.hold[url]; ok {
			select {
			case <-wait:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		score, ok := f.scores[url]
		if !ok {
			return errBoom
		}
		return roundTrip(ai.ReliabilityResponse{Score: score, Reasoning: "test"}, out)
	}
	return errors.New("unexpected request " + name)
}

func (f *fakeLLM) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeLLM) ResetMetrics()               {}
func (f *fakeLLM) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func roundTrip(v any, out any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func promptURL(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if rest, ok := strings.CutPrefix(line, "URL: "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

func testConfig() Config {
	return Config{
		SearchAPIKey: "search-key",
		LLMAPIKey:    "llm-key",
	}
}

// collect drains events until the channel is closed.
func collect(events <-chan common.ProgressEvent) []common.ProgressEvent {
	var out []common.ProgressEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func terminalEvents(events []common.ProgressEvent) []common.ProgressEvent {
	var out []common.ProgressEvent
	for _, ev := range events {
		if ev.Terminal {
			out = append(out, ev)
		}
	}
	return out
}

func resultEvents(events []common.ProgressEvent) []common.ProgressEvent {
	var out []common.ProgressEvent
	for _, ev := range events {
		if ev.Result != nil {
			out = append(out, ev)
		}
	}
	return out
}
