// Package centrality ranks graph nodes by a weighted blend of PageRank,
// eigenvector, betweenness and closeness centrality and extracts a minimal
// connected subgraph of the highest ranked nodes.
package centrality

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/dslunde/Glyph-sub000/pkg/common"
)

// CompareIDs orders node and edge IDs. IDs sharing a prefix with a numeric
// suffix compare numerically ("n2" < "n10"), everything else compares as
// strings.
func CompareIDs(a, b string) int {
	pa, na, okA := splitID(a)
	pb, nb, okB := splitID(b)
	if okA && okB && pa == pb {
		if c := cmp.Compare(na, nb); c != 0 {
			return c
		}
	}
	return strings.Compare(a, b)
}

func splitID(id string) (string, int, bool) {
	i := len(id)
	for i > 0 && id[i-1] >= '0' && id[i-1] <= '9' {
		i--
	}
	if i == len(id) {
		return id, 0, false
	}
	n, err := strconv.Atoi(id[i:])
	if err != nil {
		return id, 0, false
	}
	return id[:i], n, true
}

// adjacency is a compressed sparse row view of an undirected graph. Node
// indices follow ID order and every row is sorted by neighbour index, so
// iteration order is deterministic. Parallel edges are merged by summing
// their weights; self-loops are dropped.
type adjacency struct {
	ids      []string
	nodeAt   []int // adjacency index -> position in graph.Nodes
	offsets  []int
	targets  []int
	weights  []float64
	strength []float64
}

func newAdjacency(g *common.Graph) (*adjacency, error) {
	n := len(g.Nodes)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(x, y int) int {
		return CompareIDs(g.Nodes[x].ID, g.Nodes[y].ID)
	})

	adj := &adjacency{
		ids:      make([]string, n),
		nodeAt:   order,
		offsets:  make([]int, n+1),
		strength: make([]float64, n),
	}
	index := make(map[string]int, n)
	for i, pos := range order {
		id := g.Nodes[pos].ID
		if _, dup := index[id]; dup {
			return nil, fmt.Errorf("duplicate node id %q", id)
		}
		index[id] = i
		adj.ids[i] = id
	}

	type half struct {
		from, to int
		w        float64
	}
	halves := make([]half, 0, 2*len(g.Edges))
	for _, e := range g.Edges {
		u, ok := index[e.SourceNodeID]
		if !ok {
			return nil, fmt.Errorf("edge %s references unknown node %q", e.ID, e.SourceNodeID)
		}
		v, ok := index[e.TargetNodeID]
		if !ok {
			return nil, fmt.Errorf("edge %s references unknown node %q", e.ID, e.TargetNodeID)
		}
		if u == v {
			continue
		}
		w := max(e.Weight, 0)
		halves = append(halves, half{u, v, w}, half{v, u, w})
	}
	slices.SortFunc(halves, func(a, b half) int {
		if c := cmp.Compare(a.from, b.from); c != 0 {
			return c
		}
		return cmp.Compare(a.to, b.to)
	})

	adj.targets = make([]int, 0, len(halves))
	adj.weights = make([]float64, 0, len(halves))
	for i := 0; i < len(halves); {
		h := halves[i]
		w := h.w
		j := i + 1
		for j < len(halves) && halves[j].from == h.from && halves[j].to == h.to {
			w += halves[j].w
			j++
		}
		adj.targets = append(adj.targets, h.to)
		adj.weights = append(adj.weights, w)
		adj.offsets[h.from+1]++
		adj.strength[h.from] += w
		i = j
	}
	for i := 1; i <= n; i++ {
		adj.offsets[i] += adj.offsets[i-1]
	}
	return adj, nil
}

func (a *adjacency) size() int { return len(a.ids) }

func (a *adjacency) edgeCount() int { return len(a.targets) / 2 }

func (a *adjacency) neighbours(v int) []int {
	return a.targets[a.offsets[v]:a.offsets[v+1]]
}

func (a *adjacency) neighbourWeights(v int) []float64 {
	return a.weights[a.offsets[v]:a.offsets[v+1]]
}

// components labels every node with its connected component, numbered in
// index order, and returns the number of components.
func (a *adjacency) components() ([]int, int) {
	n := a.size()
	comp := make([]int, n)
	for i := range comp {
		comp[i] = -1
	}
	count := 0
	queue := make([]int, 0, n)
	for s := range n {
		if comp[s] >= 0 {
			continue
		}
		comp[s] = count
		queue = append(queue[:0], s)
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			for _, w := range a.neighbours(v) {
				if comp[w] < 0 {
					comp[w] = count
					queue = append(queue, w)
				}
			}
		}
		count++
	}
	return comp, count
}

// Components returns the number of connected components of g. Edges that
// reference unknown nodes are ignored.
func Components(g *common.Graph) int {
	if g == nil || len(g.Nodes) == 0 {
		return 0
	}
	adj, err := newAdjacency(sanitized(g))
	if err != nil {
		return 0
	}
	_, n := adj.components()
	return n
}

// Density is 2E/(V(V-1)) for an undirected simple graph.
func Density(nodes, edges int) float64 {
	if nodes < 2 {
		return 0
	}
	return 2 * float64(edges) / (float64(nodes) * float64(nodes-1))
}

// sanitized returns g without edges whose endpoints are missing.
func sanitized(g *common.Graph) *common.Graph {
	known := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		known[n.ID] = struct{}{}
	}
	clean := &common.Graph{Nodes: g.Nodes, Metadata: g.Metadata}
	for _, e := range g.Edges {
		_, okS := known[e.SourceNodeID]
		_, okT := known[e.TargetNodeID]
		if okS && okT {
			clean.Edges = append(clean.Edges, e)
		}
	}
	return clean
}
