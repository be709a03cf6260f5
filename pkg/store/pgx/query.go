package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dslunde/Glyph-sub000/pkg/common"
	"github.com/dslunde/Glyph-sub000/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

const getRunSQL = `
SELECT id, topic, depth, status, success, error_message, metadata, gaps, analysis, created_at, updated_at
FROM runs
WHERE id = $1
`

const getRunSourcesSQL = `
SELECT source_id, title, url, content, provider_score, reliability_score,
       published_date, source_kind, query, categories
FROM run_sources
WHERE run_id = $1
ORDER BY position
`

const getRunNodesSQL = `
SELECT node_id, label, kind, frequency, pagerank, eigenvector, betweenness,
       closeness, combined_score, source_ids, minimal
FROM graph_nodes
WHERE run_id = $1
ORDER BY combined_score DESC, node_id
`

const getPlanSQL = `SELECT plan FROM learning_plans WHERE run_id = $1`

const similarNodesSQL = `
SELECT run_id, node_id, label, kind, combined_score, embedding <=> $2 AS distance
FROM graph_nodes
WHERE ($1 = '' OR run_id = $1) AND minimal AND embedding IS NOT NULL
ORDER BY distance
LIMIT $3
`

const recordDurationSQL = `
INSERT INTO run_timings (source_count, duration_ms)
VALUES ($1, $2)
`

const predictDurationSQL = `
SELECT COALESCE(AVG(duration_ms::float8 / GREATEST(source_count, 1)), 0)
FROM (
    SELECT source_count, duration_ms
    FROM run_timings
    ORDER BY created_at DESC
    LIMIT 50
) recent
`

// GetRun loads a run with its sources, nodes and plan.
func (s *PlanDBStorage) GetRun(ctx context.Context, id string) (*store.Run, error) {
	var (
		run      store.Run
		status   string
		metadata []byte
		gaps     []byte
		analysis []byte
	)
	err := s.conn.QueryRow(ctx, getRunSQL, id).Scan(
		&run.ID, &run.Topic, &run.Depth, &status, &run.Success, &run.ErrorMessage,
		&metadata, &gaps, &analysis, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	run.Status = store.RunStatus(status)
	run.Metadata = map[string]any{}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &run.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode run metadata: %w", err)
		}
	}
	run.Gaps = []common.KnowledgeGap{}
	if len(gaps) > 0 {
		if err := json.Unmarshal(gaps, &run.Gaps); err != nil {
			return nil, fmt.Errorf("failed to decode knowledge gaps: %w", err)
		}
	}
	if len(analysis) > 0 && string(analysis) != "{}" {
		run.Analysis = &common.Analysis{}
		if err := json.Unmarshal(analysis, run.Analysis); err != nil {
			return nil, fmt.Errorf("failed to decode analysis: %w", err)
		}
	}

	if run.Sources, err = s.runSources(ctx, id); err != nil {
		return nil, err
	}
	if run.Nodes, err = s.runNodes(ctx, id); err != nil {
		return nil, err
	}

	plan, err := s.GetPlan(ctx, id)
	switch {
	case err == nil:
		run.Plan = plan
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}
	return &run, nil
}

func (s *PlanDBStorage) runSources(ctx context.Context, id string) ([]common.SourceDocument, error) {
	rows, err := s.conn.Query(ctx, getRunSourcesSQL, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run sources: %w", err)
	}
	defer rows.Close()

	docs := []common.SourceDocument{}
	for rows.Next() {
		var (
			d    common.SourceDocument
			kind string
		)
		if err := rows.Scan(
			&d.ID, &d.Title, &d.URL, &d.Content, &d.ProviderScore, &d.ReliabilityScore,
			&d.PublishedDate, &kind, &d.Query, &d.Categories,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run source: %w", err)
		}
		d.SourceKind = common.SourceKind(kind)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read run sources: %w", err)
	}
	return docs, nil
}

func (s *PlanDBStorage) runNodes(ctx context.Context, id string) ([]store.StoredNode, error) {
	rows, err := s.conn.Query(ctx, getRunNodesSQL, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query graph nodes: %w", err)
	}
	defer rows.Close()

	nodes := []store.StoredNode{}
	for rows.Next() {
		var (
			n    store.StoredNode
			kind string
		)
		if err := rows.Scan(
			&n.ID, &n.Label, &kind, &n.Frequency,
			&n.Centrality.PageRank, &n.Centrality.Eigenvector,
			&n.Centrality.Betweenness, &n.Centrality.Closeness,
			&n.CombinedScore, &n.SourceIDs, &n.Minimal,
		); err != nil {
			return nil, fmt.Errorf("failed to scan graph node: %w", err)
		}
		n.Kind = common.NodeKind(kind)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read graph nodes: %w", err)
	}
	return nodes, nil
}

// GetPlan loads the learning plan of a run.
func (s *PlanDBStorage) GetPlan(ctx context.Context, id string) (*common.LearningPlan, error) {
	var raw []byte
	if err := s.conn.QueryRow(ctx, getPlanSQL, id).Scan(&raw); err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return nil, fmt.Errorf("plan for run %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load plan for run %s: %w", id, err)
	}
	var plan common.LearningPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("failed to decode plan for run %s: %w", id, err)
	}
	return &plan, nil
}

// SimilarNodes returns the minimal-subgraph nodes closest to embedding by
// cosine distance. An empty runID searches every run.
func (s *PlanDBStorage) SimilarNodes(ctx context.Context, runID string, embedding []float32, limit int) ([]store.NodeMatch, error) {
	if len(embedding) == 0 {
		return nil, errors.New("embedding is empty")
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.conn.Query(ctx, similarNodesSQL, runID, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar nodes: %w", err)
	}
	defer rows.Close()

	matches := []store.NodeMatch{}
	for rows.Next() {
		var m store.NodeMatch
		if err := rows.Scan(&m.RunID, &m.NodeID, &m.Label, &m.Kind, &m.Score, &m.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan similar node: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read similar nodes: %w", err)
	}
	return matches, nil
}

// RecordDuration stores how long a run over sources documents took.
func (s *PlanDBStorage) RecordDuration(ctx context.Context, sources int, d time.Duration) error {
	if _, err := s.conn.Exec(ctx, recordDurationSQL, sources, d.Milliseconds()); err != nil {
		return fmt.Errorf("failed to record run duration: %w", err)
	}
	return nil
}

// PredictDuration estimates a run over sources documents from the per
// source average of recent runs. Without history it returns 0.
func (s *PlanDBStorage) PredictDuration(ctx context.Context, sources int) (time.Duration, error) {
	var perSource float64
	if err := s.conn.QueryRow(ctx, predictDurationSQL).Scan(&perSource); err != nil {
		return 0, fmt.Errorf("failed to predict run duration: %w", err)
	}
	return time.Duration(perSource*float64(max(sources, 1))) * time.Millisecond, nil
}
