package centrality

import "math"

const (
	// DefaultDampingFactor is the standard PageRank damping factor.
	DefaultDampingFactor = 0.85

	// DefaultMaxIterations bounds every power iteration.
	DefaultMaxIterations = 100

	// DefaultTolerance is the max-abs-diff convergence threshold.
	DefaultTolerance = 1e-6
)

// iterationResult reports how a power iteration ended.
type iterationResult struct {
	Iterations int
	Converged  bool
}

// pageRank computes weighted PageRank over the undirected adjacency.
// Each node splits its score among its neighbours in proportion to edge
// weight. Mass held by isolated nodes is spread uniformly, so the result
// always sums to 1.
func pageRank(adj *adjacency, damping, tolerance float64, maxIter int) ([]float64, iterationResult) {
	n := adj.size()
	if n == 0 {
		return nil, iterationResult{Converged: true}
	}

	nf := float64(n)
	scores := make([]float64, n)
	next := make([]float64, n)
	for i := range scores {
		scores[i] = 1 / nf
	}

	base := (1 - damping) / nf
	res := iterationResult{}
	for res.Iterations < maxIter {
		res.Iterations++

		sink := 0.0
		for v := range n {
			if adj.strength[v] == 0 {
				sink += scores[v]
			}
		}
		sinkShare := damping * sink / nf

		for v := range n {
			next[v] = base + sinkShare
		}
		for u := range n {
			if adj.strength[u] == 0 {
				continue
			}
			share := damping * scores[u] / adj.strength[u]
			ws := adj.neighbourWeights(u)
			for k, v := range adj.neighbours(u) {
				next[v] += share * ws[k]
			}
		}

		diff := 0.0
		for v := range n {
			diff = math.Max(diff, math.Abs(next[v]-scores[v]))
		}
		scores, next = next, scores
		if diff < tolerance {
			res.Converged = true
			break
		}
	}
	return scores, res
}
