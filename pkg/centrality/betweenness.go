package centrality

// pivots returns the BFS sources used for betweenness and closeness. With
// sample <= 0 or sample >= n every node is a source; otherwise every
// ceil(n/sample)-th node by index is.
func pivots(n, sample int) []int {
	if sample <= 0 || sample >= n {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	step := (n + sample - 1) / sample
	out := make([]int, 0, sample)
	for i := 0; i < n; i += step {
		out = append(out, i)
	}
	return out
}

// pathMeasures computes Brandes betweenness and Wasserman-Faust closeness on
// the unweighted graph from a single BFS per source. When sources is a
// sample the raw values are scaled by n/len(sources) before normalising.
//
// Distances are symmetric, so the distance from a source to v is also the
// distance from v to that source. Closeness of v is therefore accumulated
// from every source's BFS rather than from a BFS rooted at v.
func pathMeasures(adj *adjacency, sources []int) (btw, clo []float64) {
	n := adj.size()
	btw = make([]float64, n)
	clo = make([]float64, n)
	if n < 2 || adj.edgeCount() == 0 || len(sources) == 0 {
		return btw, clo
	}

	dist := make([]int32, n)
	sigma := make([]float64, n)
	delta := make([]float64, n)
	order := make([]int, 0, n)
	reach := make([]float64, n)
	dsum := make([]float64, n)

	for _, s := range sources {
		for i := range dist {
			dist[i] = -1
		}
		clear(sigma)
		clear(delta)
		order = order[:0]

		dist[s] = 0
		sigma[s] = 1
		order = append(order, s)
		for head := 0; head < len(order); head++ {
			v := order[head]
			for _, w := range adj.neighbours(v) {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					order = append(order, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
				}
			}
		}

		for i := len(order) - 1; i > 0; i-- {
			w := order[i]
			coeff := (1 + delta[w]) / sigma[w]
			for _, v := range adj.neighbours(w) {
				if dist[v] == dist[w]-1 {
					delta[v] += sigma[v] * coeff
				}
			}
			btw[w] += delta[w]
			reach[w]++
			dsum[w] += float64(dist[w])
		}
	}

	nf := float64(n)
	scale := nf / float64(len(sources))

	if n > 2 {
		norm := (nf - 1) * (nf - 2)
		for v := range btw {
			btw[v] = min(btw[v]*scale/norm, 1)
		}
	} else {
		clear(btw)
	}

	for v := range clo {
		if dsum[v] == 0 {
			continue
		}
		r := min(reach[v]*scale, nf-1)
		d := dsum[v] * scale
		clo[v] = min((r/(nf-1))*(r/d), 1)
	}
	return btw, clo
}
