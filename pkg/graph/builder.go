// Package graph builds a weighted co-occurrence graph of concepts and
// entities from a set of source documents.
package graph

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/dslunde/Glyph-sub000/pkg/centrality"
	"github.com/dslunde/Glyph-sub000/pkg/common"
	"github.com/dslunde/Glyph-sub000/pkg/logger"
)

// Builder turns documents into a common.Graph.
//
// A Builder should be created using NewBuilder.
type Builder struct {
	extractor     Extractor
	window        int
	minEdgeWeight float64
	maxConcepts   int
	maxEntities   int
}

// NewBuilderParams defines the configuration of a Builder.
//
// Window is the sentence distance within which two terms co-occur (0 means
// the same sentence only). MinEdgeWeight drops lighter edges after
// accumulation. MaxConcepts and MaxEntities cap the node set to the most
// frequent terms. Extractor defaults to a HeuristicExtractor.
type NewBuilderParams struct {
	Extractor     Extractor
	Window        int
	MinEdgeWeight float64
	MaxConcepts   int
	MaxEntities   int
}

// DefaultBuilderParams returns the default builder configuration.
func DefaultBuilderParams() NewBuilderParams {
	return NewBuilderParams{
		Window:        1,
		MinEdgeWeight: 1,
		MaxConcepts:   500,
		MaxEntities:   300,
	}
}

// NewBuilder creates a Builder. Negative or zero limits take their defaults.
//
// Example:
//
//	b := graph.NewBuilder(graph.NewBuilderParams{Window: 1})
//	g, err := b.Build(ctx, docs, "graph theory")
func NewBuilder(params NewBuilderParams) *Builder {
	d := DefaultBuilderParams()
	if params.Extractor == nil {
		params.Extractor = NewHeuristicExtractor()
	}
	if params.Window < 0 {
		params.Window = d.Window
	}
	if params.MinEdgeWeight <= 0 {
		params.MinEdgeWeight = d.MinEdgeWeight
	}
	if params.MaxConcepts <= 0 {
		params.MaxConcepts = d.MaxConcepts
	}
	if params.MaxEntities <= 0 {
		params.MaxEntities = d.MaxEntities
	}
	return &Builder{
		extractor:     params.Extractor,
		window:        params.Window,
		minEdgeWeight: params.MinEdgeWeight,
		maxConcepts:   params.MaxConcepts,
		maxEntities:   params.MaxEntities,
	}
}

// termStat accumulates a term across the corpus.
type termStat struct {
	term      string
	label     string
	kind      common.NodeKind
	frequency int
	sources   []string
	seen      int
}

type extracted struct {
	doc   common.SourceDocument
	cands []Candidate
}

type edgeKey struct{ a, b int }

// Build extracts candidates from docs in order and connects terms that
// co-occur within the sentence window. Node and edge IDs follow first-seen
// order, so the same input always yields the same graph. A failing
// document is logged and skipped.
func (b *Builder) Build(ctx context.Context, docs []common.SourceDocument, topic string) (*common.Graph, error) {
	g := common.NewGraph(topic)
	g.Metadata.DocumentCount = len(docs)

	stats := make(map[string]*termStat)
	var order []*termStat
	perDoc := make([]extracted, 0, len(docs))

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cands, err := b.extractor.Extract(ctx, doc, topic)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("[Graph] Extraction failed, skipping document", "doc", doc.ID, "err", err)
			continue
		}
		for _, c := range cands {
			st, ok := stats[c.Term]
			if !ok {
				st = &termStat{term: c.Term, label: c.Label, kind: c.Kind, seen: len(order)}
				stats[c.Term] = st
				order = append(order, st)
			}
			st.frequency += c.Count
			if !slices.Contains(st.sources, doc.ID) {
				st.sources = append(st.sources, doc.ID)
			}
		}
		perDoc = append(perDoc, extracted{doc: doc, cands: cands})
	}

	kept := b.applyCaps(order)
	ordinal := make(map[string]int, len(kept))
	for i, st := range kept {
		ordinal[st.term] = i
		g.Nodes = append(g.Nodes, common.GraphNode{
			ID:        fmt.Sprintf("n%d", i),
			Label:     st.label,
			Kind:      st.kind,
			Frequency: st.frequency,
			SourceIDs: st.sources,
		})
	}

	weights := make(map[edgeKey]float64)
	var edgeOrder []edgeKey
	for _, ex := range perDoc {
		for _, key := range b.cooccurrences(ex.cands, ordinal) {
			if _, ok := weights[key]; !ok {
				edgeOrder = append(edgeOrder, key)
			}
			weights[key]++
		}
	}

	for _, key := range edgeOrder {
		w := weights[key]
		if w < b.minEdgeWeight {
			continue
		}
		g.Edges = append(g.Edges, common.GraphEdge{
			ID:           fmt.Sprintf("e%d", len(g.Edges)),
			SourceNodeID: g.Nodes[key.a].ID,
			TargetNodeID: g.Nodes[key.b].ID,
			Label:        "co_occurs",
			Weight:       w,
		})
	}

	g.RefreshCounts()
	g.Metadata.Density = centrality.Density(len(g.Nodes), len(g.Edges))
	g.Metadata.Components = centrality.Components(g)

	logger.Info("[Graph] Built graph",
		"topic", topic,
		"documents", len(docs),
		"nodes", g.Metadata.NodeCount,
		"edges", g.Metadata.EdgeCount,
		"components", g.Metadata.Components,
	)
	return g, nil
}

// applyCaps keeps the most frequent concepts and entities, breaking ties by
// first-seen order, and returns the survivors in first-seen order.
func (b *Builder) applyCaps(order []*termStat) []*termStat {
	limits := map[common.NodeKind]int{
		common.NodeKindConcept: b.maxConcepts,
		common.NodeKindEntity:  b.maxEntities,
	}
	byKind := make(map[common.NodeKind][]*termStat)
	for _, st := range order {
		byKind[st.kind] = append(byKind[st.kind], st)
	}

	keep := make(map[*termStat]bool, len(order))
	for kind, list := range byKind {
		limit, ok := limits[kind]
		if !ok || len(list) <= limit {
			for _, st := range list {
				keep[st] = true
			}
			continue
		}
		ranked := slices.Clone(list)
		slices.SortStableFunc(ranked, func(x, y *termStat) int {
			if c := cmp.Compare(y.frequency, x.frequency); c != 0 {
				return c
			}
			return cmp.Compare(x.seen, y.seen)
		})
		for _, st := range ranked[:limit] {
			keep[st] = true
		}
	}

	out := make([]*termStat, 0, len(keep))
	for _, st := range order {
		if keep[st] {
			out = append(out, st)
		}
	}
	return out
}

// cooccurrences lists one edge key per co-occurrence event in a document:
// every pair of distinct terms in the same sentence, and every pair split
// across sentences at most window apart.
func (b *Builder) cooccurrences(cands []Candidate, ordinal map[string]int) []edgeKey {
	bySentence := make(map[int][]int)
	var sentences []int
	for _, c := range cands {
		ord, ok := ordinal[c.Term]
		if !ok {
			continue
		}
		for _, s := range c.Sentences {
			if _, seen := bySentence[s]; !seen {
				sentences = append(sentences, s)
			}
			bySentence[s] = append(bySentence[s], ord)
		}
	}
	slices.Sort(sentences)

	var keys []edgeKey
	pair := func(x, y int) {
		if x == y {
			return
		}
		if x > y {
			x, y = y, x
		}
		keys = append(keys, edgeKey{x, y})
	}
	for _, s := range sentences {
		terms := bySentence[s]
		for i := range terms {
			for j := i + 1; j < len(terms); j++ {
				pair(terms[i], terms[j])
			}
		}
		for d := 1; d <= b.window; d++ {
			for _, x := range terms {
				for _, y := range bySentence[s+d] {
					pair(x, y)
				}
			}
		}
	}
	return keys
}
