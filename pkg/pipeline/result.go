package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dslunde/Glyph-sub000/internal/util"
	"github.com/dslunde/Glyph-sub000/pkg/common"
	"github.com/dslunde/Glyph-sub000/pkg/store"
)

// emitter forwards events to the caller. Sends give up once ctx is done.
type emitter struct {
	ctx    context.Context
	events chan<- common.ProgressEvent
}

func (em *emitter) send(ev common.ProgressEvent) bool {
	if em.events == nil {
		return true
	}
	select {
	case em.events <- ev:
		return true
	case <-em.ctx.Done():
		return false
	}
}

func (em *emitter) stage(stage util.PipelineStage, local float64, msg string) {
	em.send(common.ProgressEvent{
		Progress: util.ScaleProgress(stage, local),
		Message:  msg,
		Step:     string(stage),
	})
}

func (em *emitter) terminal(res *RunResult) {
	ev := common.ProgressEvent{
		Progress: 1.0,
		Message:  "Learning plan ready",
		Step:     string(util.StageComplete),
		Terminal: true,
		Payload:  res,
	}
	if !res.Success {
		ev.Message = "Pipeline failed"
		ev.Error = res.ErrorMessage
	}
	em.send(ev)
}

// StoredRun converts the result into the record kept by store.PlanStorage.
// Every graph node is stored; nodes of the minimal subgraph are flagged and
// carry their embedding.
func (r *RunResult) StoredRun(topic, depth string) (*store.Run, error) {
	meta, err := metadataMap(r.Metadata)
	if err != nil {
		return nil, err
	}

	status := store.RunStatusCompleted
	if !r.Success {
		status = store.RunStatusFailed
	}
	run := &store.Run{
		ID:           r.RunID,
		Topic:        topic,
		Depth:        depth,
		Status:       status,
		Success:      r.Success,
		ErrorMessage: r.ErrorMessage,
		Metadata:     meta,
		Gaps:         r.Gaps,
		Analysis:     &r.Analysis,
		Sources:      r.Sources,
		Nodes:        []store.StoredNode{},
		Plan:         r.Plan,
	}
	if r.Graph == nil {
		return run, nil
	}

	minimal := map[string]common.GraphNode{}
	if r.Minimal != nil {
		for _, n := range r.Minimal.Nodes {
			minimal[n.ID] = n
		}
	}
	run.Nodes = make([]store.StoredNode, 0, len(r.Graph.Nodes))
	for _, n := range r.Graph.Nodes {
		sn := store.StoredNode{GraphNode: n}
		if m, ok := minimal[n.ID]; ok {
			sn.Minimal = true
			sn.Embedding = m.Embedding
		}
		run.Nodes = append(run.Nodes, sn)
	}
	return run, nil
}

func metadataMap(m Metadata) (map[string]any, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run metadata: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode run metadata: %w", err)
	}
	return out, nil
}
