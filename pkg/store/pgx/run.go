package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dslunde/Glyph-sub000/internal/util"
	"github.com/dslunde/Glyph-sub000/pkg/common"
	"github.com/dslunde/Glyph-sub000/pkg/logger"
	"github.com/dslunde/Glyph-sub000/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

const createRunSQL = `
INSERT INTO runs (id, topic, depth, status)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO NOTHING
`

const updateRunStatusSQL = `
UPDATE runs
SET status = $2, error_message = $3, updated_at = now()
WHERE id = $1
`

const upsertRunSQL = `
INSERT INTO runs (id, topic, depth, status, success, error_message, metadata, gaps, analysis)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
    topic = EXCLUDED.topic,
    depth = EXCLUDED.depth,
    status = EXCLUDED.status,
    success = EXCLUDED.success,
    error_message = EXCLUDED.error_message,
    metadata = EXCLUDED.metadata,
    gaps = EXCLUDED.gaps,
    analysis = EXCLUDED.analysis,
    updated_at = now()
`

const deleteRunSourcesSQL = `DELETE FROM run_sources WHERE run_id = $1`

const deleteRunNodesSQL = `DELETE FROM graph_nodes WHERE run_id = $1`

const upsertPlanSQL = `
INSERT INTO learning_plans (run_id, plan, total_hours)
VALUES ($1, $2, $3)
ON CONFLICT (run_id) DO UPDATE SET
    plan = EXCLUDED.plan,
    total_hours = EXCLUDED.total_hours
`

var sourceColumns = []string{
	"run_id", "source_id", "position", "title", "url", "content",
	"provider_score", "reliability_score", "published_date", "source_kind",
	"query", "categories",
}

var nodeColumns = []string{
	"run_id", "node_id", "label", "kind", "frequency",
	"pagerank", "eigenvector", "betweenness", "closeness", "combined_score",
	"source_ids", "minimal", "embedding",
}

// CreateRun records a queued run. Creating an existing run is a no-op.
func (s *PlanDBStorage) CreateRun(ctx context.Context, id, topic, depth string) error {
	if _, err := s.conn.Exec(ctx, createRunSQL, id, topic, depth, string(store.RunStatusPending)); err != nil {
		return fmt.Errorf("failed to create run %s: %w", id, err)
	}
	return nil
}

// UpdateRunStatus moves a run to status. It returns store.ErrNotFound when
// the run does not exist.
func (s *PlanDBStorage) UpdateRunStatus(ctx context.Context, id string, status store.RunStatus, message string) error {
	tag, err := s.conn.Exec(ctx, updateRunStatusSQL, id, string(status), message)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// SaveRun writes a finished run with its sources, nodes and plan in one
// transaction. Saving a run again replaces its sources and nodes.
func (s *PlanDBStorage) SaveRun(ctx context.Context, run *store.Run) error {
	if run == nil || run.ID == "" {
		return errors.New("run id is empty")
	}

	metadata, err := json.Marshal(nonNilMap(run.Metadata))
	if err != nil {
		return fmt.Errorf("failed to encode run metadata: %w", err)
	}
	gaps := run.Gaps
	if gaps == nil {
		gaps = []common.KnowledgeGap{}
	}
	gapsJSON, err := json.Marshal(gaps)
	if err != nil {
		return fmt.Errorf("failed to encode knowledge gaps: %w", err)
	}
	analysis := []byte("{}")
	if run.Analysis != nil {
		if analysis, err = json.Marshal(run.Analysis); err != nil {
			return fmt.Errorf("failed to encode analysis: %w", err)
		}
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, upsertRunSQL,
		run.ID, run.Topic, run.Depth, string(run.Status),
		run.Success, run.ErrorMessage, metadata, gapsJSON, analysis,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert run: %w", err)
	}
	if _, err := tx.Exec(ctx, deleteRunSourcesSQL, run.ID); err != nil {
		return fmt.Errorf("failed to clear run sources: %w", err)
	}
	if _, err := tx.Exec(ctx, deleteRunNodesSQL, run.ID); err != nil {
		return fmt.Errorf("failed to clear graph nodes: %w", err)
	}

	if err := s.copySources(ctx, tx, run.ID, run.Sources); err != nil {
		return err
	}
	if err := s.copyNodes(ctx, tx, run.ID, run.Nodes); err != nil {
		return err
	}

	if run.Plan != nil {
		plan, err := json.Marshal(run.Plan)
		if err != nil {
			return fmt.Errorf("failed to encode learning plan: %w", err)
		}
		if _, err := tx.Exec(ctx, upsertPlanSQL, run.ID, plan, run.Plan.TotalEstimatedHours); err != nil {
			return fmt.Errorf("failed to upsert learning plan: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Debug("[Store] Saved run", "id", run.ID, "sources", len(run.Sources), "nodes", len(run.Nodes), "plan", run.Plan != nil)
	return nil
}

func (s *PlanDBStorage) copySources(ctx context.Context, tx pgxv5.Tx, runID string, sources []common.SourceDocument) error {
	if len(sources) == 0 {
		return nil
	}
	rows := make([][]any, len(sources))
	for i, d := range sources {
		categories := d.Categories
		if categories == nil {
			categories = []string{}
		}
		rows[i] = []any{
			runID, d.ID, i, util.SanitizePostgresText(d.Title), d.URL, util.SanitizePostgresText(d.Content),
			d.ProviderScore, d.ReliabilityScore, d.PublishedDate, string(d.SourceKind),
			d.Query, categories,
		}
	}
	n, err := tx.CopyFrom(ctx, pgxv5.Identifier{"run_sources"}, sourceColumns, pgxv5.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy run sources: %w", err)
	}
	if int(n) != len(sources) {
		return fmt.Errorf("copied %d of %d run sources", n, len(sources))
	}
	return nil
}

func (s *PlanDBStorage) copyNodes(ctx context.Context, tx pgxv5.Tx, runID string, nodes []store.StoredNode) error {
	return store.ChunkRange(len(nodes), s.chunkSize, func(start, end int) error {
		rows := make([][]any, 0, end-start)
		for _, n := range nodes[start:end] {
			sourceIDs := n.SourceIDs
			if sourceIDs == nil {
				sourceIDs = []string{}
			}
			var embedding any
			if len(n.Embedding) > 0 {
				embedding = pgvector.NewVector(n.Embedding)
			}
			rows = append(rows, []any{
				runID, n.ID, n.Label, string(n.Kind), n.Frequency,
				n.Centrality.PageRank, n.Centrality.Eigenvector,
				n.Centrality.Betweenness, n.Centrality.Closeness, n.CombinedScore,
				sourceIDs, n.Minimal, embedding,
			})
		}
		copied, err := tx.CopyFrom(ctx, pgxv5.Identifier{"graph_nodes"}, nodeColumns, pgxv5.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to copy graph nodes: %w", err)
		}
		if int(copied) != len(rows) {
			return fmt.Errorf("copied %d of %d graph nodes", copied, len(rows))
		}
		return nil
	})
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
