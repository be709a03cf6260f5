// Package plan turns a minimal subgraph into a phased learning plan. Nodes
// become concepts with traceable sources, near duplicates are merged and
// the survivors are bucketed into phases with time estimates.
package plan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dslunde/Glyph-sub000/pkg/common"
	"github.com/dslunde/Glyph-sub000/pkg/logger"
	"github.com/dslunde/Glyph-sub000/pkg/similarity"
)

// Plan depths.
const (
	DepthOverview      = "overview"
	DepthModerate      = "moderate"
	DepthComprehensive = "comprehensive"
)

// ErrInvalidDepth is returned for a depth other than the three known ones.
var ErrInvalidDepth = errors.New("invalid plan depth")

const (
	maxResources  = 3
	maxReferences = 5
)

func baseHours(depth string) (int, error) {
	switch depth {
	case DepthOverview:
		return 1, nil
	case DepthModerate, "":
		return 2, nil
	case DepthComprehensive:
		return 3, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDepth, depth)
}

// ValidateDepth returns ErrInvalidDepth unless depth is one of the known
// depths or empty.
func ValidateDepth(depth string) error {
	_, err := baseHours(depth)
	return err
}

// Assembler builds learning plans.
//
// An Assembler should be created using NewAssembler.
type Assembler struct {
	threshold float64
}

// NewAssemblerParams configures an Assembler. Threshold is the concept
// similarity at which two concepts merge and defaults to
// similarity.DefaultConceptThreshold.
type NewAssemblerParams struct {
	Threshold float64
}

func NewAssembler(params NewAssemblerParams) *Assembler {
	if params.Threshold <= 0 || params.Threshold > 1 {
		params.Threshold = similarity.DefaultConceptThreshold
	}
	return &Assembler{threshold: params.Threshold}
}

// Assemble builds the learning plan for the nodes of minimal. Nodes whose
// sources cannot be found in docs are dropped, so every concept in the
// plan has at least one source reference. A plan without concepts is a
// valid result and carries a rationale saying why it is empty.
func (a *Assembler) Assemble(
	minimal *common.MinimalSubgraph,
	docs []common.SourceDocument,
	topic string,
	depth string,
) (*common.LearningPlan, error) {
	base, err := baseHours(depth)
	if err != nil {
		return nil, err
	}
	if depth == "" {
		depth = DepthModerate
	}

	plan := &common.LearningPlan{
		Topic:           topic,
		Depth:           depth,
		PhaseBreakdown:  make(map[common.Phase]int, len(common.Phases)),
		ConceptsByPhase: make(map[common.Phase][]common.Concept, len(common.Phases)),
	}
	for _, p := range common.Phases {
		plan.PhaseBreakdown[p] = 0
		plan.ConceptsByPhase[p] = []common.Concept{}
	}

	var nodes []common.GraphNode
	if minimal != nil {
		nodes = minimal.Nodes
	}
	concepts, dropped := toConcepts(nodes, docs, base)
	merged := Deduplicate(concepts, a.threshold)

	if len(merged) == 0 {
		plan.Rationale = emptyRationale(topic, len(nodes), dropped)
		logger.Info("[Plan] No concepts survived", "topic", topic, "nodes", len(nodes), "dropped", dropped)
		return plan, nil
	}

	for phase, list := range bucket(merged) {
		plan.ConceptsByPhase[phase] = list
		hours := 0
		for _, c := range list {
			hours += c.TimeEstimateHours
		}
		plan.PhaseBreakdown[phase] = hours
		plan.TotalEstimatedHours += hours
	}
	plan.Rationale = rationale(plan, len(nodes), dropped, len(concepts)-len(merged))

	logger.Info("[Plan] Assembled learning plan",
		"topic", topic,
		"concepts", len(merged),
		"merged", len(concepts)-len(merged),
		"dropped", dropped,
		"hours", plan.TotalEstimatedHours,
	)
	return plan, nil
}

func emptyRationale(topic string, nodes, dropped int) string {
	switch {
	case nodes == 0:
		return fmt.Sprintf("No core concepts were found for %q, so the plan is empty.", topic)
	default:
		return fmt.Sprintf("None of the %d core concepts for %q could be traced to a source document (%d dropped), so the plan is empty.",
			nodes, topic, dropped)
	}
}

func rationale(plan *common.LearningPlan, nodes, dropped, merged int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The plan for %q covers %d concepts drawn from the %d most central ideas of the source graph.",
		plan.Topic, plan.ConceptCount(), nodes)
	if merged > 0 {
		fmt.Fprintf(&b, " %d near-duplicate concepts were merged.", merged)
	}
	if dropped > 0 {
		fmt.Fprintf(&b, " %d concepts without a traceable source were left out.", dropped)
	}
	for _, p := range common.Phases {
		if n := len(plan.ConceptsByPhase[p]); n > 0 {
			fmt.Fprintf(&b, " %s: %d concepts, %dh.", p, n, plan.PhaseBreakdown[p])
		}
	}
	return b.String()
}
