package centrality

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/dslunde/Glyph-sub000/pkg/common"
	"github.com/dslunde/Glyph-sub000/pkg/logger"
)

// DefaultKeepFraction is the share of nodes seeded into the minimal subgraph.
const DefaultKeepFraction = 0.2

// compareRank orders nodes by combined score descending, then frequency
// descending, then ID ascending.
func compareRank(a, b *common.GraphNode) int {
	if c := cmp.Compare(b.CombinedScore, a.CombinedScore); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Frequency, a.Frequency); c != 0 {
		return c
	}
	return CompareIDs(a.ID, b.ID)
}

// Ranked returns the positions of g.Nodes in rank order.
func Ranked(g *common.Graph) []int {
	order := make([]int, len(g.Nodes))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(x, y int) int {
		return compareRank(&g.Nodes[x], &g.Nodes[y])
	})
	return order
}

// ExtractMinimal selects the top ceil(keepFraction*|V|) nodes of a ranked
// graph and repairs connectivity by adding bridge nodes. A keepFraction of 0
// means DefaultKeepFraction.
//
// Seeds are processed in rank order. The first seed of each connected
// component of g roots a BFS tree over that component and starts its
// cluster. Every later seed is joined along its shortest path to the root,
// stopping at the first node already in the cluster. Neighbours are
// expanded in ID order, so the result is deterministic.
func ExtractMinimal(g *common.Graph, keepFraction float64) (*common.MinimalSubgraph, error) {
	if keepFraction == 0 {
		keepFraction = DefaultKeepFraction
	}
	if keepFraction < 0 || keepFraction > 1 || math.IsNaN(keepFraction) {
		return nil, fmt.Errorf("keep fraction must be in (0,1], got %v", keepFraction)
	}
	if g == nil {
		return nil, fmt.Errorf("nil graph")
	}

	sub := &common.MinimalSubgraph{
		Name:  subgraphName(g.Metadata.Topic),
		Nodes: []common.GraphNode{},
		Edges: []common.GraphEdge{},
	}
	if len(g.Nodes) == 0 {
		return sub, nil
	}

	adj, err := newAdjacency(g)
	if err != nil {
		return nil, fmt.Errorf("failed to build adjacency: %w", err)
	}
	n := adj.size()

	indexOf := make([]int, n) // graph position -> adjacency index
	for i, pos := range adj.nodeAt {
		indexOf[pos] = i
	}

	k := int(math.Ceil(keepFraction*float64(n) - 1e-9))
	k = min(max(k, 1), n)

	seeds := make([]int, 0, k)
	selected := make([]bool, n)
	for _, pos := range Ranked(g)[:k] {
		v := indexOf[pos]
		seeds = append(seeds, v)
		selected[v] = true
	}

	bridges := newRepair(adj).connect(seeds, selected)

	sub.SeedCount = k
	sub.BridgeCount = bridges

	// adjacency indices are already in ID order
	for v := range n {
		if selected[v] {
			sub.Nodes = append(sub.Nodes, g.Nodes[adj.nodeAt[v]])
		}
	}
	kept := make(map[string]struct{}, len(sub.Nodes))
	for _, node := range sub.Nodes {
		kept[node.ID] = struct{}{}
	}
	for _, e := range g.Edges {
		_, okS := kept[e.SourceNodeID]
		_, okT := kept[e.TargetNodeID]
		if okS && okT {
			sub.Edges = append(sub.Edges, e)
		}
	}
	slices.SortFunc(sub.Edges, func(a, b common.GraphEdge) int {
		return CompareIDs(a.ID, b.ID)
	})

	logger.Debug("[Rank] Extracted minimal subgraph",
		"seeds", sub.SeedCount, "bridges", sub.BridgeCount, "edges", len(sub.Edges))
	return sub, nil
}

func subgraphName(topic string) string {
	if topic == "" {
		return "core"
	}
	return topic + " core"
}

// repair joins seeds through one BFS tree per component. Each component is
// searched once, from its highest ranked seed, and every node is walked at
// most once when later seeds are joined, so repair is linear in |V|+|E|.
type repair struct {
	adj     *adjacency
	parent  []int32
	visited []bool
	cluster []bool
	queue   []int
}

func newRepair(adj *adjacency) *repair {
	n := adj.size()
	return &repair{
		adj:     adj,
		parent:  make([]int32, n),
		visited: make([]bool, n),
		cluster: make([]bool, n),
		queue:   make([]int, 0, n),
	}
}

// connect grows one cluster per component from the seeds, in order, and
// marks bridge nodes in selected. It returns the number of bridges added.
func (r *repair) connect(seeds []int, selected []bool) int {
	bridges := 0
	for _, s := range seeds {
		if r.cluster[s] {
			continue
		}
		if !r.visited[s] {
			// first seed of its component
			r.cluster[s] = true
			r.tree(s)
			continue
		}
		for v := s; !r.cluster[v]; v = int(r.parent[v]) {
			r.cluster[v] = true
			if !selected[v] {
				selected[v] = true
				bridges++
			}
		}
	}
	return bridges
}

// tree records the BFS parent of every node reachable from root. Neighbours
// are expanded in ID order, so each parent chain is the same shortest path
// to root on every run.
func (r *repair) tree(root int) {
	r.visited[root] = true
	r.parent[root] = -1
	r.queue = append(r.queue[:0], root)
	for head := 0; head < len(r.queue); head++ {
		v := r.queue[head]
		for _, w := range r.adj.neighbours(v) {
			if r.visited[w] {
				continue
			}
			r.visited[w] = true
			r.parent[w] = int32(v)
			r.queue = append(r.queue, w)
		}
	}
}
