package centrality

import "math"

// eigenvector computes eigenvector centrality by power iteration on A+I.
// The identity shift keeps the iteration from oscillating on bipartite
// graphs without changing the dominant eigenvector. Scores are L2
// normalized; a graph without edges scores 0 everywhere.
func eigenvector(adj *adjacency, tolerance float64, maxIter int) ([]float64, iterationResult) {
	n := adj.size()
	scores := make([]float64, n)
	if n == 0 || adj.edgeCount() == 0 {
		return scores, iterationResult{Converged: true}
	}

	next := make([]float64, n)
	for i := range scores {
		scores[i] = 1 / math.Sqrt(float64(n))
	}

	res := iterationResult{}
	for res.Iterations < maxIter {
		res.Iterations++

		for v := range n {
			sum := scores[v]
			ws := adj.neighbourWeights(v)
			for k, u := range adj.neighbours(v) {
				sum += ws[k] * scores[u]
			}
			next[v] = sum
		}

		norm := 0.0
		for _, x := range next {
			norm += x * x
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			clear(scores)
			return scores, res
		}

		diff := 0.0
		for v := range n {
			next[v] /= norm
			diff = math.Max(diff, math.Abs(next[v]-scores[v]))
		}
		scores, next = next, scores
		if diff < tolerance {
			res.Converged = true
			break
		}
	}

	// isolated nodes only keep the mass of their own self-loop; report them as 0
	for v := range n {
		if adj.offsets[v] == adj.offsets[v+1] {
			scores[v] = 0
		}
	}
	return scores, res
}
