package centrality

import (
	"fmt"

	"github.com/dslunde/Glyph-sub000/pkg/common"
)

const (
	// GapThreshold is the PageRank above which a node left out of the
	// minimal subgraph is reported as a gap.
	GapThreshold = 0.1

	highSeverityPageRank = 0.2
	maxConceptGaps       = 3
	maxRelated           = 5
)

// Gap types.
const (
	GapMissingConcept = "missing_concept"
	GapConnectivity   = "connectivity"
)

// AnalyzeGaps reports important areas of full that the minimal subgraph
// leaves out. Nil or empty inputs yield no gaps.
func AnalyzeGaps(full *common.Graph, minimal *common.MinimalSubgraph, topic string) []common.KnowledgeGap {
	gaps := []common.KnowledgeGap{}
	if full == nil || minimal == nil || len(full.Nodes) == 0 {
		return gaps
	}

	kept := make(map[string]struct{}, len(minimal.Nodes))
	for _, n := range minimal.Nodes {
		kept[n.ID] = struct{}{}
	}

	for _, pos := range Ranked(full) {
		if len(gaps) == maxConceptGaps {
			break
		}
		node := full.Nodes[pos]
		if _, ok := kept[node.ID]; ok || node.Centrality.PageRank <= GapThreshold {
			continue
		}
		severity := "medium"
		if node.Centrality.PageRank > highSeverityPageRank {
			severity = "high"
		}
		gaps = append(gaps, common.KnowledgeGap{
			Type:        GapMissingConcept,
			Description: fmt.Sprintf("%q is central to %s but is not covered by the core concepts", node.Label, topic),
			Severity:    severity,
			SuggestedSources: []string{
				fmt.Sprintf("%s %s tutorial", topic, node.Label),
				fmt.Sprintf("%s introduction", node.Label),
			},
			RelatedConcepts: []string{node.Label},
		})
	}

	if len(full.Edges) > 2*len(minimal.Edges) {
		related := make([]string, 0, maxRelated)
		for _, n := range minimal.Nodes {
			if len(related) == maxRelated {
				break
			}
			related = append(related, n.Label)
		}
		gaps = append(gaps, common.KnowledgeGap{
			Type: GapConnectivity,
			Description: fmt.Sprintf("the core concepts keep %d of %d relationships; how they connect to the wider topic is thin",
				len(minimal.Edges), len(full.Edges)),
			Severity: "medium",
			SuggestedSources: []string{
				fmt.Sprintf("%s overview", topic),
				fmt.Sprintf("%s survey", topic),
			},
			RelatedConcepts: related,
		})
	}
	return gaps
}
