package plan

import (
	"testing"

	"github.com/dslunde/Glyph-sub000/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func concept(name string, importance float64, hours int, refs ...string) common.Concept {
	return common.Concept{
		Name:              name,
		Kind:              common.NodeKindConcept,
		TimeEstimateHours: hours,
		ImportanceScore:   importance,
		Resources:         []string{},
		SourceReferences:  refs,
	}
}

func TestDeduplicate_MergePolicy(t *testing.T) {
	in := []common.Concept{
		concept("Neural Network", 0.6, 5, "A", "B"),
		concept("Neural Networks", 0.8, 3, "B", "C"),
	}
	in[0].Resources = []string{"r1", "r2"}
	in[1].Resources = []string{"r2", "r3", "r4"}

	out := Deduplicate(in, 0.75)
	require.Len(t, out, 1)
	assert.Equal(t, "Neural Networks", out[0].Name)
	assert.Equal(t, 0.8, out[0].ImportanceScore)
	assert.Equal(t, 5, out[0].TimeEstimateHours)
	assert.Equal(t, []string{"A", "B", "C"}, out[0].SourceReferences)
	assert.Equal(t, []string{"r1", "r2", "r3"}, out[0].Resources)

	// inputs are not modified
	assert.Equal(t, []string{"A", "B"}, in[0].SourceReferences)
}

func TestDeduplicate_Idempotent(t *testing.T) {
	in := []common.Concept{
		concept("graph", 0.9, 4, "A"),
		concept("Graphs", 0.5, 2, "B"),
		concept("natural language processing", 0.4, 3, "C"),
		concept("NLP", 0.7, 2, "D"),
		concept("pagerank", 0.3, 1, "E"),
		concept("PageRank", 0.2, 1, "F"),
	}

	once := Deduplicate(in, 0.75)
	require.Len(t, once, 3)
	assert.Equal(t, "Graphs", once[0].Name)
	assert.Equal(t, "natural language processing", once[1].Name)
	assert.Equal(t, 0.7, once[1].ImportanceScore)
	assert.Equal(t, "PageRank", once[2].Name)
	assert.Equal(t, []string{"E", "F"}, once[2].SourceReferences)

	assert.Equal(t, once, Deduplicate(once, 0.75))
}

func TestDeduplicate_CapsReferences(t *testing.T) {
	in := []common.Concept{
		concept("centrality", 0.5, 1, "A", "B", "C"),
		concept("Centrality", 0.5, 1, "C", "D", "E", "F", "G"),
	}
	out := Deduplicate(in, 0.75)
	require.Len(t, out, 1)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, out[0].SourceReferences)
	assert.Equal(t, "Centrality", out[0].Name)

	assert.Empty(t, Deduplicate(nil, 0.75))
}

func node(id, label string, score float64, sources ...string) common.GraphNode {
	return common.GraphNode{
		ID:            id,
		Label:         label,
		Kind:          common.NodeKindConcept,
		Frequency:     2,
		CombinedScore: score,
		SourceIDs:     sources,
	}
}

var planDocs = []common.SourceDocument{
	{ID: "d1", Title: "Intro to graphs", URL: "https://a.example/intro"},
	{ID: "d2", URL: "https://b.example/ranking"},
}

func TestAssemble_Phases(t *testing.T) {
	minimal := &common.MinimalSubgraph{Nodes: []common.GraphNode{
		node("n0", "graph theory", 1.0, "d1"),
		node("n1", "pagerank", 0.8, "d2", "d1"),
		node("n2", "eigenvector", 0.6, "d1"),
		node("n3", "betweenness", 0.4, "d2"),
		node("n4", "model deployment", 0.2, "d2"),
		node("n5", "orphan", 0.9, "missing"),
	}}

	plan, err := NewAssembler(NewAssemblerParams{}).Assemble(minimal, planDocs, "graphs", DepthModerate)
	require.NoError(t, err)
	require.Equal(t, 5, plan.ConceptCount())

	names := func(p common.Phase) []string {
		var out []string
		for _, c := range plan.ConceptsByPhase[p] {
			out = append(out, c.Name)
		}
		return out
	}
	assert.Equal(t, []string{"graph theory", "pagerank"}, names(common.PhaseFoundation))
	assert.Equal(t, []string{"eigenvector"}, names(common.PhaseIntermediate))
	assert.Equal(t, []string{"betweenness"}, names(common.PhaseAdvanced))
	assert.Equal(t, []string{"model deployment"}, names(common.PhasePractical))

	assert.Equal(t, map[common.Phase]int{
		common.PhaseFoundation:   12,
		common.PhaseIntermediate: 5,
		common.PhaseAdvanced:     4,
		common.PhasePractical:    3,
	}, plan.PhaseBreakdown)
	assert.Equal(t, 24, plan.TotalEstimatedHours)

	pagerank := plan.ConceptsByPhase[common.PhaseFoundation][1]
	assert.Equal(t, []string{"https://b.example/ranking", "Intro to graphs"}, pagerank.SourceReferences)
	assert.Equal(t, []string{"https://b.example/ranking", "https://a.example/intro"}, pagerank.Resources)

	for _, list := range plan.ConceptsByPhase {
		for _, c := range list {
			assert.NotEmpty(t, c.SourceReferences, c.Name)
			assert.NotEqual(t, "orphan", c.Name)
		}
	}
	assert.Contains(t, plan.Rationale, "without a traceable source")
}

func TestAssemble_Empty(t *testing.T) {
	a := NewAssembler(NewAssemblerParams{})

	plan, err := a.Assemble(&common.MinimalSubgraph{}, planDocs, "graphs", DepthOverview)
	require.NoError(t, err)
	assert.Zero(t, plan.ConceptCount())
	assert.Zero(t, plan.TotalEstimatedHours)
	assert.NotEmpty(t, plan.Rationale)
	assert.Len(t, plan.ConceptsByPhase, 4)

	plan, err = a.Assemble(nil, nil, "graphs", "")
	require.NoError(t, err)
	assert.Equal(t, DepthModerate, plan.Depth)

	orphans := &common.MinimalSubgraph{Nodes: []common.GraphNode{node("n0", "orphan", 1, "nope")}}
	plan, err = a.Assemble(orphans, planDocs, "graphs", DepthModerate)
	require.NoError(t, err)
	assert.Zero(t, plan.ConceptCount())
	assert.Contains(t, plan.Rationale, "could be traced")
}

func TestAssemble_Depth(t *testing.T) {
	minimal := &common.MinimalSubgraph{Nodes: []common.GraphNode{node("n0", "graph theory", 0.5, "d1")}}
	a := NewAssembler(NewAssemblerParams{})

	tests := []struct {
		depth string
		hours int
	}{
		{DepthOverview, 3},
		{DepthModerate, 6},
		{DepthComprehensive, 9},
	}
	for _, tt := range tests {
		t.Run(tt.depth, func(t *testing.T) {
			plan, err := a.Assemble(minimal, planDocs, "graphs", tt.depth)
			require.NoError(t, err)
			assert.Equal(t, tt.hours, plan.TotalEstimatedHours)
			assert.Equal(t, tt.hours, plan.PhaseBreakdown[common.PhaseFoundation])
		})
	}

	_, err := a.Assemble(minimal, planDocs, "graphs", "exhaustive")
	assert.ErrorIs(t, err, ErrInvalidDepth)
	assert.ErrorIs(t, ValidateDepth("exhaustive"), ErrInvalidDepth)
	assert.NoError(t, ValidateDepth(""))
}

func TestIsPractical(t *testing.T) {
	assert.True(t, isPractical("Case Studies"))
	assert.True(t, isPractical("graph tools"))
	assert.True(t, isPractical("Applications of PageRank"))
	assert.False(t, isPractical("graph theory"))
}
