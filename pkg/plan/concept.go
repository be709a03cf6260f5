package plan

import (
	"fmt"
	"math"
	"slices"

	"github.com/dslunde/Glyph-sub000/pkg/common"
)

// toConcepts maps nodes to concepts and reports how many nodes were dropped
// for lack of a resolvable source.
func toConcepts(nodes []common.GraphNode, docs []common.SourceDocument, base int) ([]common.Concept, int) {
	byID := make(map[string]*common.SourceDocument, len(docs))
	for i := range docs {
		if _, dup := byID[docs[i].ID]; !dup {
			byID[docs[i].ID] = &docs[i]
		}
	}

	top := 0.0
	for _, n := range nodes {
		top = math.Max(top, n.CombinedScore)
	}

	concepts := make([]common.Concept, 0, len(nodes))
	dropped := 0
	for _, n := range nodes {
		var refs, resources []string
		for _, id := range n.SourceIDs {
			doc, ok := byID[id]
			if !ok {
				continue
			}
			refs = appendCapped(refs, maxReferences, doc.Reference())
			if doc.URL != "" {
				resources = appendCapped(resources, maxResources, doc.URL)
			}
		}
		if len(refs) == 0 {
			dropped++
			continue
		}

		importance := 0.0
		if top > 0 {
			importance = n.CombinedScore / top
		}
		if resources == nil {
			resources = []string{}
		}
		concepts = append(concepts, common.Concept{
			Name:              n.Label,
			Kind:              n.Kind,
			Description:       describe(n),
			TimeEstimateHours: int(math.Ceil(float64(base) * (1 + 2*importance))),
			ImportanceScore:   n.CombinedScore,
			Resources:         resources,
			SourceReferences:  refs,
		})
	}
	return concepts, dropped
}

func describe(n common.GraphNode) string {
	switch n.Kind {
	case common.NodeKindEntity:
		return fmt.Sprintf("%s, a named entity mentioned %d times across the sources.", n.Label, n.Frequency)
	default:
		return fmt.Sprintf("The concept of %s, mentioned %d times across the sources.", n.Label, n.Frequency)
	}
}

// appendCapped appends v to list unless it is already present or the list
// holds limit entries.
func appendCapped(list []string, limit int, v string) []string {
	if len(list) >= limit || slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}
