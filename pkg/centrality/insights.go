package centrality

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/dslunde/Glyph-sub000/pkg/common"
)

// Insight types.
const (
	InsightProximity = "unexpected_proximity"
	InsightCrossKind = "cross_kind"
	InsightHiddenHub = "hidden_hub"
)

const (
	maxProximityHops    = 3
	proximityAnchors    = 5
	maxInsightsPerType  = 3
	maxHiddenHubs       = 2
	crossKindPool       = 50
	minSharedNeighbours = 2
	hiddenHubNovelty    = 0.7
)

type insightGraph struct {
	adj   *adjacency
	full  *common.Graph
	order []int // adjacency indices in rank order
	rank  []int // adjacency index -> position in order
	core  []bool
}

func (ig *insightGraph) node(i int) *common.GraphNode {
	return &ig.full.Nodes[ig.adj.nodeAt[i]]
}

// AnalyzeInsights looks for structure in full that the minimal subgraph
// hides. It reports entities two or three hops from a core concept, a
// concept and an entity that share neighbours without being linked, and
// nodes outside the minimal subgraph whose betweenness beats the median
// core node. Results are deterministic. Nil or tiny inputs yield none.
func AnalyzeInsights(full *common.Graph, minimal *common.MinimalSubgraph, topic string) []common.Insight {
	insights := []common.Insight{}
	if full == nil || minimal == nil || len(full.Nodes) < 2 {
		return insights
	}
	adj, err := newAdjacency(sanitized(full))
	if err != nil {
		return insights
	}

	n := adj.size()
	ig := &insightGraph{
		adj:   adj,
		full:  full,
		order: make([]int, 0, n),
		rank:  make([]int, n),
		core:  make([]bool, n),
	}
	indexOf := make([]int, n)
	index := make(map[string]int, n)
	for i, pos := range adj.nodeAt {
		indexOf[pos] = i
		index[adj.ids[i]] = i
	}
	for r, pos := range Ranked(full) {
		ig.order = append(ig.order, indexOf[pos])
		ig.rank[indexOf[pos]] = r
	}
	for _, node := range minimal.Nodes {
		if i, ok := index[node.ID]; ok {
			ig.core[i] = true
		}
	}

	insights = append(insights, ig.proximity(topic)...)
	insights = append(insights, ig.crossKind(topic)...)
	insights = append(insights, ig.hiddenHubs(topic)...)
	return insights
}

// proximity pairs the top core concepts with entities they never co-occur
// with but reach within maxProximityHops.
func (ig *insightGraph) proximity(topic string) []common.Insight {
	var out []common.Insight
	dist := make([]int, ig.adj.size())
	for i := range dist {
		dist[i] = -1
	}

	anchors := 0
	for _, a := range ig.order {
		if len(out) == maxInsightsPerType || anchors == proximityAnchors {
			break
		}
		if !ig.core[a] || ig.node(a).Kind != common.NodeKindConcept {
			continue
		}
		anchors++

		reached := ig.within(a, maxProximityHops, dist)
		var found []int
		for _, v := range reached {
			if dist[v] >= 2 && ig.node(v).Kind == common.NodeKindEntity {
				found = append(found, v)
			}
		}
		slices.SortFunc(found, func(x, y int) int {
			if c := cmp.Compare(dist[x], dist[y]); c != 0 {
				return c
			}
			return cmp.Compare(ig.rank[x], ig.rank[y])
		})

		for _, e := range found {
			if len(out) == maxInsightsPerType {
				break
			}
			d := dist[e]
			from, to := ig.node(a).Label, ig.node(e).Label
			out = append(out, common.Insight{
				Type:         InsightProximity,
				ConceptA:     from,
				ConceptB:     to,
				Relationship: "unexpected proximity",
				Distance:     d,
				Strength:     max(0.5, 1-float64(d)/10),
				Novelty:      0.5 + 0.1*float64(d),
				Explanation: fmt.Sprintf("%q and %q never appear together but are only %d steps apart in the %s graph",
					from, to, d, topic),
			})
		}
		for _, v := range reached {
			dist[v] = -1
		}
	}
	return out
}

// within runs a BFS from src limited to hops and returns the visited nodes
// with their distance recorded in dist.
func (ig *insightGraph) within(src, hops int, dist []int) []int {
	dist[src] = 0
	queue := []int{src}
	for head := 0; head < len(queue); head++ {
		v := queue[head]
		if dist[v] == hops {
			continue
		}
		for _, w := range ig.adj.neighbours(v) {
			if dist[w] >= 0 {
				continue
			}
			dist[w] = dist[v] + 1
			queue = append(queue, w)
		}
	}
	return queue
}

// crossKind finds unlinked pairs of different kinds among the top ranked
// nodes whose neighbourhoods overlap, scored by Jaccard similarity.
func (ig *insightGraph) crossKind(topic string) []common.Insight {
	type pair struct {
		a, b, shared int
		jaccard      float64
	}

	pool := ig.order[:min(len(ig.order), crossKindPool)]
	var pairs []pair
	for x, a := range pool {
		na := ig.adj.neighbours(a)
		for _, b := range pool[x+1:] {
			if ig.node(a).Kind == ig.node(b).Kind {
				continue
			}
			if _, linked := slices.BinarySearch(na, b); linked {
				continue
			}
			nb := ig.adj.neighbours(b)
			shared := countShared(na, nb)
			if shared < minSharedNeighbours {
				continue
			}
			pairs = append(pairs, pair{
				a: a, b: b, shared: shared,
				jaccard: float64(shared) / float64(len(na)+len(nb)-shared),
			})
		}
	}
	slices.SortStableFunc(pairs, func(p, q pair) int {
		return cmp.Compare(q.jaccard, p.jaccard)
	})

	var out []common.Insight
	for _, p := range pairs[:min(len(pairs), maxInsightsPerType)] {
		a, b := ig.node(p.a), ig.node(p.b)
		out = append(out, common.Insight{
			Type:         InsightCrossKind,
			ConceptA:     a.Label,
			ConceptB:     b.Label,
			Relationship: "cross-domain connection",
			Distance:     2,
			Strength:     p.jaccard,
			Novelty:      1 - p.jaccard/2,
			Explanation: fmt.Sprintf("the %s %q and the %s %q share %d neighbours in the %s graph without being linked",
				a.Kind, a.Label, b.Kind, b.Label, p.shared, topic),
		})
	}
	return out
}

// hiddenHubs reports nodes left out of the minimal subgraph that lie on
// more shortest paths than the median core node.
func (ig *insightGraph) hiddenHubs(topic string) []common.Insight {
	var coreBtw []float64
	for _, i := range ig.order {
		if ig.core[i] {
			coreBtw = append(coreBtw, ig.node(i).Centrality.Betweenness)
		}
	}
	if len(coreBtw) == 0 {
		return nil
	}
	slices.Sort(coreBtw)
	median := coreBtw[len(coreBtw)/2]

	var out []common.Insight
	for _, i := range ig.order {
		if len(out) == maxHiddenHubs {
			break
		}
		node := ig.node(i)
		if ig.core[i] || node.Centrality.Betweenness <= median {
			continue
		}
		out = append(out, common.Insight{
			Type:         InsightHiddenHub,
			ConceptA:     node.Label,
			Relationship: "hidden hub",
			Strength:     node.Centrality.Betweenness,
			Novelty:      hiddenHubNovelty,
			Explanation: fmt.Sprintf("%q bridges more of the %s graph than most core concepts but is not one of them",
				node.Label, topic),
		})
	}
	return out
}

// countShared counts the common elements of two ascending slices.
func countShared(a, b []int) int {
	shared := 0
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			shared++
			i++
			j++
		}
	}
	return shared
}

// Summarize builds the analysis of a run from its gaps and insights.
func Summarize(topic string, gaps []common.KnowledgeGap, insights []common.Insight) common.Analysis {
	if insights == nil {
		insights = []common.Insight{}
	}
	a := common.Analysis{
		Insights: insights,
		Summary: fmt.Sprintf("Analysis of the %s graph found %d knowledge gaps and %d uncommon relationships.",
			topic, len(gaps), len(insights)),
		Recommendations: []string{},
		Confidence:      confidence(len(gaps) + len(insights)),
	}

	var hubs, pairs int
	for _, in := range insights {
		if in.Type == InsightHiddenHub {
			hubs++
		} else {
			pairs++
		}
	}
	if len(gaps) > 0 {
		a.Recommendations = append(a.Recommendations,
			fmt.Sprintf("Address the %d knowledge gaps to strengthen your understanding of %s", len(gaps), topic))
	}
	if hubs > 0 {
		a.Recommendations = append(a.Recommendations,
			"Study the hidden hubs, they connect areas the core concepts treat separately")
	}
	if pairs > 0 {
		a.Recommendations = append(a.Recommendations,
			"Explore the uncommon relationships between concepts and entities")
	}
	a.Recommendations = append(a.Recommendations,
		fmt.Sprintf("Add sources that target the gaps to extend the %s graph", topic))
	return a
}

// confidence grows with the number of findings and is capped at 0.95.
func confidence(findings int) float64 {
	c := 0.6
	switch {
	case findings >= 5:
		c += 0.2
	case findings >= 3:
		c += 0.1
	}
	return min(c, 0.95)
}
