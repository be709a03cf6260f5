package workflow

import (
	"context"
	"fmt"
	"testing"

	"github.com/dslunde/Glyph-sub000/pkg/ai"
	"github.com/dslunde/Glyph-sub000/pkg/common"
	"github.com/dslunde/Glyph-sub000/pkg/search"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicScore(t *testing.T) {
	tests := []struct {
		url    string
		lo, hi int
	}{
		{"https://en.wikipedia.org/wiki/Graph", 80, 95},
		{"https://arxiv.org/abs/1234", 80, 95},
		{"https://cs.stanford.edu/people", 75, 90},
		{"https://www.nih.gov/research", 75, 90},
		{"https://www.acm.org/", 60, 80},
		{"https://medium.com/@someone/post", 40, 70},
		{"https://example.net/x", 40, 70},
		{"https://example.io/x", 47, 53},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got := HeuristicScore(tt.url)
			assert.GreaterOrEqual(t, got, tt.lo)
			assert.LessOrEqual(t, got, tt.hi)
			assert.Equal(t, got, HeuristicScore(tt.url), "score must be stable")
		})
	}
}

func TestCategories(t *testing.T) {
	tests := []struct {
		name string
		doc  common.SourceDocument
		want []string
	}{
		{"reliable edu", common.SourceDocument{URL: "https://mit.edu/a", ReliabilityScore: 80}, []string{CategoryReliable, CategoryInsider}},
		{"unreliable com", common.SourceDocument{URL: "https://shop.com/a", ReliabilityScore: 30}, []string{CategoryUnreliable, CategoryOutsider}},
		{"middle with expert title", common.SourceDocument{URL: "https://blog.com/a", Title: "An Expert view", ReliabilityScore: 50}, []string{CategoryInsider}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categories(tt.doc))
		})
	}
}

func TestFilter(t *testing.T) {
	docs := []common.SourceDocument{
		{ID: "1", URL: "https://b.com", ReliabilityScore: 70, Categories: []string{CategoryReliable, CategoryOutsider}},
		{ID: "2", URL: "https://a.edu", ReliabilityScore: 70, Categories: []string{CategoryReliable, CategoryInsider}},
		{ID: "3", URL: "https://c.org", ReliabilityScore: 90, Categories: []string{CategoryReliable, CategoryInsider}},
		{ID: "4", URL: "https://d.com", ReliabilityScore: 20, Categories: []string{CategoryUnreliable, CategoryOutsider}},
	}

	all := Filter(docs, 60, nil)
	assert.Equal(t, []string{"3", "2", "1"}, ids(all))

	insiders := Filter(docs, 0, []string{CategoryInsider})
	assert.Equal(t, []string{"3", "2"}, ids(insiders))

	none := Filter(docs, 95, nil)
	assert.Empty(t, none)
}

func ids(docs []common.SourceDocument) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://example.com/a", NormalizeURL("HTTPS://Example.COM/a/#top"))
	assert.Equal(t, "https://example.com/a?x=1", NormalizeURL(" https://example.com/a/?x=1 "))
	assert.Equal(t, NormalizeURL("https://example.com"), NormalizeURL("https://example.com/"))
}

func TestDeduplicate(t *testing.T) {
	docs := []common.SourceDocument{
		{ID: "1", Title: "Graph Theory Basics", URL: "https://a.com/x", ProviderScore: 0.5},
		{ID: "2", Title: "Something else entirely", URL: "https://a.com/x/", ProviderScore: 0.9},
		{ID: "3", Title: "Graph theory basics.", URL: "https://b.com/y", ProviderScore: 0.2},
		{ID: "4", Title: "Unrelated topic", URL: "https://c.com/z", ProviderScore: 0.4},
		{ID: "5", Title: "Unrelated topic", URL: "https://d.com/z", ProviderScore: 0.4},
	}

	out := Deduplicate(docs, 0.8)
	// "2" wins the URL collision, so "3" no longer has a title twin.
	assert.Equal(t, []string{"2", "3", "4"}, ids(out))

	again := Deduplicate(out, 0.8)
	assert.Equal(t, ids(out), ids(again))
}

func TestDeduplicate_MatchesFirstSeenTitle(t *testing.T) {
	docs := []common.SourceDocument{
		{ID: "a", Title: "Graph Theory 1010", URL: "https://a.com/1", ProviderScore: 0.3},
		{ID: "b", Title: "Graph Theory 1099", URL: "https://b.com/1", ProviderScore: 0.9},
		{ID: "c", Title: "Graph Theory 9999", URL: "https://c.com/1", ProviderScore: 0.5},
	}

	// "b" replaces "a" but the group still matches on "a"'s title, which
	// "c" is not close to.
	out := Deduplicate(docs, 0.8)
	assert.Equal(t, []string{"b", "c"}, ids(out))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{nil, nil},
		{context.DeadlineExceeded, ErrProviderTimeout},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), ErrProviderTimeout},
		{fmt.Errorf("%w: bad json", ai.ErrInvalidResponse), ErrParse},
		{search.ErrInvalidResult, ErrParse},
		{fmt.Errorf("%w: status 500", search.ErrProvider), ErrProvider},
		{errBoom, ErrProvider},
		{fmt.Errorf("%w: none", ErrMissingCredential), ErrMissingCredential},
		{fmt.Errorf("%w: 10 errors", ErrBudgetExceeded), ErrBudgetExceeded},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), "%v", tt.err)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultConfig(), cfg)

	custom := Config{QueryCount: 3, ErrorBudget: 4}.withDefaults()
	assert.Equal(t, 3, custom.QueryCount)
	assert.Equal(t, 4, custom.ErrorBudget)
}
