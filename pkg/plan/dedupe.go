package plan

import (
	"slices"
	"strings"

	"github.com/dslunde/Glyph-sub000/pkg/common"
	"github.com/dslunde/Glyph-sub000/pkg/similarity"
)

// unionFind keeps the smallest index as the root of every set, so merged
// groups are ordered by their first member.
type unionFind []int

func newUnionFind(n int) unionFind {
	uf := make(unionFind, n)
	for i := range uf {
		uf[i] = i
	}
	return uf
}

func (uf unionFind) find(i int) int {
	for uf[i] != i {
		uf[i] = uf[uf[i]]
		i = uf[i]
	}
	return i
}

func (uf unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	switch {
	case ra < rb:
		uf[rb] = ra
	case rb < ra:
		uf[ra] = rb
	}
}

// Deduplicate merges concepts whose normalized names are equal or whose
// similarity reaches threshold. Similarity is transitive within a group:
// if A matches B and B matches C, all three merge. Groups are returned in
// the order of their first member, and deduplicating the result again
// returns it unchanged.
func Deduplicate(concepts []common.Concept, threshold float64) []common.Concept {
	if len(concepts) == 0 {
		return []common.Concept{}
	}

	names := make([]string, len(concepts))
	for i, c := range concepts {
		names[i] = similarity.Normalize(c.Name)
	}

	uf := newUnionFind(len(concepts))
	for i := range concepts {
		for j := i + 1; j < len(concepts); j++ {
			if uf.find(i) == uf.find(j) {
				continue
			}
			if names[i] == names[j] || similarity.ConceptSimilar(concepts[i].Name, concepts[j].Name, threshold) {
				uf.union(i, j)
			}
		}
	}

	out := make([]common.Concept, 0, len(concepts))
	slot := make(map[int]int, len(concepts))
	for i, c := range concepts {
		root := uf.find(i)
		k, ok := slot[root]
		if !ok {
			slot[root] = len(out)
			out = append(out, clone(c))
			continue
		}
		out[k] = merge(out[k], c)
	}
	return out
}

func clone(c common.Concept) common.Concept {
	c.Resources = slices.Clone(c.Resources)
	c.SourceReferences = slices.Clone(c.SourceReferences)
	return c
}

// merge folds b into a. The longer name wins, ties going to the
// lexicographically smaller one, and the description follows the name.
func merge(a, b common.Concept) common.Concept {
	if preferName(b.Name, a.Name) {
		a.Name = b.Name
		a.Kind = b.Kind
		a.Description = b.Description
	}
	a.ImportanceScore = max(a.ImportanceScore, b.ImportanceScore)
	a.TimeEstimateHours = max(a.TimeEstimateHours, b.TimeEstimateHours)
	for _, r := range b.Resources {
		a.Resources = appendCapped(a.Resources, maxResources, r)
	}
	for _, r := range b.SourceReferences {
		a.SourceReferences = appendCapped(a.SourceReferences, maxReferences, r)
	}
	return a
}

// preferName reports whether candidate should replace current.
func preferName(candidate, current string) bool {
	lc, lr := len([]rune(candidate)), len([]rune(current))
	if lc != lr {
		return lc > lr
	}
	return strings.Compare(candidate, current) < 0
}
