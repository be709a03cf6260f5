package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSingular(t *testing.T) {
	tests := map[string]string{
		"networks":  "network",
		"theories":  "theory",
		"boxes":     "box",
		"classes":   "class",
		"analysis":  "analysis",
		"status":    "status",
		"children":  "child",
		"matrices":  "matrix",
		"gas":       "gas",
		"embedding": "embedding",
	}
	for in, want := range tests {
		assert.Equal(t, want, Singular(in), in)
	}
}

func TestConceptSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "case insensitive", a: "Graph Theory", b: "graph theory", want: 1.0},
		{name: "plural", a: "Neural Network", b: "Neural Networks", want: 0.95},
		{name: "plural ies", a: "Probability Theory", b: "probability theories", want: 0.95},
		{name: "verb form", a: "Optimize", b: "Optimizing", want: 0.9},
		{name: "verb form compound", a: "data clustering", b: "data clustered", want: 0.9},
		{name: "acronym", a: "NLP", b: "Natural Language Processing", want: 0.9},
		{name: "acronym reversed", a: "Large Language Models", b: "LLM", want: 0.9},
		{name: "table expansion", a: "AI", b: "artificial intelligence", want: 0.9},
		{name: "acronym skips stopwords", a: "DE", b: "Department of Energy", want: 0.9},
		{name: "token overlap", a: "graph neural network", b: "graph neural network model", want: 0.75},
		{name: "unrelated", a: "graph", b: "cooking", want: 0},
		{name: "empty", a: "", b: "graph", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ConceptSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestConceptSimilarityIsSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"Neural Network", "Neural Networks"},
		{"NLP", "Natural Language Processing"},
		{"graph neural network", "graph neural network model"},
		{"training", "trained"},
	}
	for _, p := range pairs {
		assert.Equal(t, ConceptSimilarity(p[0], p[1]), ConceptSimilarity(p[1], p[0]), p)
	}
}

func TestConceptSimilar(t *testing.T) {
	assert.True(t, ConceptSimilar("Neural Network", "Neural Networks", DefaultConceptThreshold))
	assert.False(t, ConceptSimilar("graph theory", "set theory", DefaultConceptThreshold))
}
