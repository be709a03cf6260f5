package plan

import (
	"cmp"
	"slices"
	"strings"

	"github.com/dslunde/Glyph-sub000/pkg/common"
	"github.com/dslunde/Glyph-sub000/pkg/similarity"
)

// Importance percentile boundaries between phases.
const (
	foundationPercentile   = 0.75
	intermediatePercentile = 0.40
)

var practicalWords = map[string]struct{}{
	"application":    {},
	"practice":       {},
	"case":           {},
	"tool":           {},
	"project":        {},
	"implementation": {},
	"deployment":     {},
}

func isPractical(name string) bool {
	for _, w := range strings.Fields(similarity.Normalize(name)) {
		if _, ok := practicalWords[similarity.Singular(w)]; ok {
			return true
		}
	}
	return false
}

func compareImportance(a, b common.Concept) int {
	if c := cmp.Compare(b.ImportanceScore, a.ImportanceScore); c != 0 {
		return c
	}
	return strings.Compare(a.Name, b.Name)
}

// bucket assigns concepts to phases by their importance percentile. The most
// important concept has percentile 1 and the least important 0. Practical
// concepts go to the practical phase whatever their rank. Every phase list
// is sorted by importance, then name.
func bucket(concepts []common.Concept) map[common.Phase][]common.Concept {
	ranked := slices.Clone(concepts)
	slices.SortStableFunc(ranked, compareImportance)

	out := make(map[common.Phase][]common.Concept, len(common.Phases))
	n := len(ranked)
	for r, c := range ranked {
		percentile := 1.0
		if n > 1 {
			percentile = float64(n-1-r) / float64(n-1)
		}

		var phase common.Phase
		switch {
		case isPractical(c.Name):
			phase = common.PhasePractical
		case percentile >= foundationPercentile:
			phase = common.PhaseFoundation
		case percentile >= intermediatePercentile:
			phase = common.PhaseIntermediate
		default:
			phase = common.PhaseAdvanced
		}
		out[phase] = append(out[phase], c)
	}
	return out
}
