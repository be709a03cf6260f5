package store

import (
	"context"
	"errors"
	"time"

	"github.com/dslunde/Glyph-sub000/pkg/common"
)

// ErrNotFound is returned when a run or plan does not exist.
var ErrNotFound = errors.New("not found")

// RunStatus is the lifecycle state of a stored run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the persisted record of one pipeline run. Nodes holds the ranked
// graph nodes; the ones selected into the minimal subgraph have Minimal set
// and may carry an embedding.
type Run struct {
	ID           string                  `json:"id"`
	Topic        string                  `json:"topic"`
	Depth        string                  `json:"depth"`
	Status       RunStatus               `json:"status"`
	Success      bool                    `json:"success"`
	ErrorMessage string                  `json:"error_message,omitempty"`
	Metadata     map[string]any          `json:"metadata"`
	Gaps         []common.KnowledgeGap   `json:"gaps"`
	Analysis     *common.Analysis        `json:"analysis,omitempty"`
	Sources      []common.SourceDocument `json:"sources"`
	Nodes        []StoredNode            `json:"nodes"`
	Plan         *common.LearningPlan    `json:"plan,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// StoredNode is a graph node as kept in the graph_nodes table.
type StoredNode struct {
	common.GraphNode
	Minimal bool `json:"minimal"`
}

// NodeMatch is a minimal-subgraph node returned by a similarity search.
type NodeMatch struct {
	RunID    string  `json:"run_id"`
	NodeID   string  `json:"node_id"`
	Label    string  `json:"label"`
	Kind     string  `json:"kind"`
	Score    float64 `json:"combined_score"`
	Distance float64 `json:"distance"`
}

// PlanStorage persists pipeline runs, their sources, graph nodes and
// learning plans.
type PlanStorage interface {
	CreateRun(ctx context.Context, id, topic, depth string) error
	UpdateRunStatus(ctx context.Context, id string, status RunStatus, message string) error
	SaveRun(ctx context.Context, run *Run) error

	GetRun(ctx context.Context, id string) (*Run, error)
	GetPlan(ctx context.Context, id string) (*common.LearningPlan, error)
	SimilarNodes(ctx context.Context, runID string, embedding []float32, limit int) ([]NodeMatch, error)

	RecordDuration(ctx context.Context, sources int, d time.Duration) error
	PredictDuration(ctx context.Context, sources int) (time.Duration, error)
}
