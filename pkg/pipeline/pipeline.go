// Package pipeline runs the full topic-to-plan flow: source collection,
// manual ingestion, graph construction, ranking, minimal subgraph
// extraction, gap analysis, plan assembly and the optional persistence
// and export of the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dslunde/Glyph-sub000/internal/metrics"
	"github.com/dslunde/Glyph-sub000/internal/util"
	"github.com/dslunde/Glyph-sub000/pkg/ai"
	"github.com/dslunde/Glyph-sub000/pkg/centrality"
	"github.com/dslunde/Glyph-sub000/pkg/common"
	"github.com/dslunde/Glyph-sub000/pkg/graph"
	"github.com/dslunde/Glyph-sub000/pkg/loader"
	"github.com/dslunde/Glyph-sub000/pkg/logger"
	"github.com/dslunde/Glyph-sub000/pkg/plan"
	"github.com/dslunde/Glyph-sub000/pkg/store"
	"github.com/dslunde/Glyph-sub000/pkg/workflow"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	// ErrInvalidRequest is returned before any work is done.
	ErrInvalidRequest = errors.New("invalid pipeline request")
	// ErrPersist wraps a failure to store a finished run.
	ErrPersist = errors.New("failed to persist run")
)

const persistTimeout = 30 * time.Second

// Collector runs the source collection workflow.
type Collector interface {
	Run(ctx context.Context, req workflow.Request, events chan<- common.ProgressEvent) workflow.Result
}

// ManualLoader reads user supplied files and URLs.
type ManualLoader interface {
	ProcessManualSources(ctx context.Context, req loader.ManualSourcesRequest) (loader.ManualSourcesResult, error)
}

// GraphBuilder turns documents into a graph.
type GraphBuilder interface {
	Build(ctx context.Context, docs []common.SourceDocument, topic string) (*common.Graph, error)
}

// Exporter writes the artifacts of a finished run.
type Exporter interface {
	Export(ctx context.Context, runID string, g *common.Graph, minimal *common.MinimalSubgraph, lp *common.LearningPlan) ([]string, error)
}

// Request describes one pipeline run. An empty RunID gets a fresh nanoid.
type Request struct {
	RunID                string   `json:"run_id,omitempty"`
	Topic                string   `json:"topic" validate:"required,max=200"`
	SearchLimit          int      `json:"search_limit" validate:"gte=0,lte=50"`
	ReliabilityThreshold int      `json:"reliability_threshold" validate:"gte=0,lte=100"`
	SourcePreferences    []string `json:"source_preferences,omitempty"`
	Paths                []string `json:"paths,omitempty"`
	URLs                 []string `json:"urls,omitempty" validate:"dive,url"`
	MaxPages             int      `json:"max_pages,omitempty" validate:"gte=0,lte=50"`
	Depth                string   `json:"depth,omitempty"`
	KeepFraction         float64  `json:"keep_fraction,omitempty" validate:"gte=0,lte=1"`
	SkipSearch           bool     `json:"skip_search,omitempty"`
}

// Validate checks the request independently of any struct tag validator.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidRequest)
	}
	if r.KeepFraction < 0 || r.KeepFraction > 1 {
		return fmt.Errorf("%w: keep fraction %v outside [0,1]", ErrInvalidRequest, r.KeepFraction)
	}
	if err := plan.ValidateDepth(r.Depth); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if r.SkipSearch && len(r.Paths) == 0 && len(r.URLs) == 0 {
		return fmt.Errorf("%w: search is skipped and no manual sources were given", ErrInvalidRequest)
	}
	return nil
}

// Metadata summarises a run.
type Metadata struct {
	Workflow        *workflow.Metadata `json:"workflow,omitempty"`
	WorkflowSuccess bool               `json:"workflow_success"`
	FallbackUsed    bool               `json:"fallback_used"`

	ManualFiles  int      `json:"manual_files"`
	ManualURLs   int      `json:"manual_urls"`
	ManualErrors []string `json:"manual_errors,omitempty"`

	DocumentCount      int  `json:"document_count"`
	NodeCount          int  `json:"node_count"`
	EdgeCount          int  `json:"edge_count"`
	MinimalNodeCount   int  `json:"minimal_node_count"`
	SeedCount          int  `json:"seed_count"`
	BridgeCount        int  `json:"bridge_count"`
	Degraded           bool `json:"degraded"`
	PageRankIterations int  `json:"pagerank_iterations"`
	Embedded           int  `json:"embedded"`

	Artifacts    []string         `json:"artifacts,omitempty"`
	Warnings     []string         `json:"warnings,omitempty"`
	StageTimings map[string]int64 `json:"stage_timings_ms"`
	DurationMs   int64            `json:"duration_ms"`
}

// RunResult is the downstream record of a run.
type RunResult struct {
	RunID        string                  `json:"run_id"`
	Success      bool                    `json:"success"`
	Sources      []common.SourceDocument `json:"sources"`
	Graph        *common.Graph           `json:"graph,omitempty"`
	Minimal      *common.MinimalSubgraph `json:"minimal,omitempty"`
	Gaps         []common.KnowledgeGap   `json:"gaps"`
	Analysis     common.Analysis         `json:"analysis"`
	Plan         *common.LearningPlan    `json:"plan,omitempty"`
	Metadata     Metadata                `json:"metadata"`
	ErrorMessage string                  `json:"error_message,omitempty"`
}

// Pipeline wires the stages together. Only Builder and Assembler are
// required; every other collaborator is optional.
//
// A Pipeline should be created using New.
type Pipeline struct {
	collector     Collector
	manual        ManualLoader
	builder       GraphBuilder
	assembler     *plan.Assembler
	rankOpts      centrality.Options
	keepFraction  float64
	defaultDepth  string
	embedder      ai.GraphAIClient
	embedParallel int
	store         store.PlanStorage
	exporter      Exporter
}

// Params configures a Pipeline. A zero RankOptions means
// centrality.DefaultOptions, a zero KeepFraction means
// centrality.DefaultKeepFraction and a nil Builder or Assembler gets the
// package defaults.
type Params struct {
	Collector     Collector
	Manual        ManualLoader
	Builder       GraphBuilder
	Assembler     *plan.Assembler
	RankOptions   centrality.Options
	KeepFraction  float64
	DefaultDepth  string
	Embedder      ai.GraphAIClient
	EmbedParallel int
	Store         store.PlanStorage
	Exporter      Exporter
}

func New(params Params) (*Pipeline, error) {
	if params.RankOptions == (centrality.Options{}) {
		params.RankOptions = centrality.DefaultOptions()
	}
	if err := params.RankOptions.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rank options: %w", err)
	}
	if params.KeepFraction == 0 {
		params.KeepFraction = centrality.DefaultKeepFraction
	}
	if params.KeepFraction < 0 || params.KeepFraction > 1 {
		return nil, fmt.Errorf("keep fraction %v outside (0,1]", params.KeepFraction)
	}
	if err := plan.ValidateDepth(params.DefaultDepth); err != nil {
		return nil, err
	}
	if params.Builder == nil {
		params.Builder = graph.NewBuilder(graph.DefaultBuilderParams())
	}
	if params.Assembler == nil {
		params.Assembler = plan.NewAssembler(plan.NewAssemblerParams{})
	}
	if params.EmbedParallel <= 0 {
		params.EmbedParallel = 4
	}
	return &Pipeline{
		collector:     params.Collector,
		manual:        params.Manual,
		builder:       params.Builder,
		assembler:     params.Assembler,
		rankOpts:      params.RankOptions,
		keepFraction:  params.KeepFraction,
		defaultDepth:  params.DefaultDepth,
		embedder:      params.Embedder,
		embedParallel: params.EmbedParallel,
		store:         params.Store,
		exporter:      params.Exporter,
	}, nil
}

// Run executes the pipeline. Progress events are sent on events, followed
// by exactly one terminal event carrying the RunResult; the workflow's own
// terminal event is not forwarded. Run never closes events and a nil
// channel disables them.
//
// A returned error means the run failed; the RunResult is still returned
// and holds whatever was produced before the failure.
func (p *Pipeline) Run(ctx context.Context, req Request, events chan<- common.ProgressEvent) (*RunResult, error) {
	start := time.Now()
	em := &emitter{ctx: ctx, events: events}

	res := &RunResult{
		RunID:    req.RunID,
		Sources:  []common.SourceDocument{},
		Gaps:     []common.KnowledgeGap{},
		Analysis: common.Analysis{Insights: []common.Insight{}, Recommendations: []string{}},
		Metadata: Metadata{StageTimings: make(map[string]int64)},
	}
	if res.RunID == "" {
		res.RunID = newRunID()
	}

	logger.Info("[Pipeline] Starting run", "run_id", res.RunID, "topic", req.Topic,
		"paths", len(req.Paths), "urls", len(req.URLs), "skip_search", req.SkipSearch)

	err := p.run(ctx, req, res, em)
	if err != nil {
		res.Success = false
		res.ErrorMessage = err.Error()
	}

	if err == nil && p.exporter != nil {
		p.export(ctx, res, em)
	}
	if p.store != nil {
		if perr := p.persist(ctx, req, res, start, em); perr != nil && err == nil {
			err = perr
			res.Success = false
			res.ErrorMessage = perr.Error()
		}
	}

	elapsed := time.Since(start)
	res.Metadata.DurationMs = elapsed.Milliseconds()
	metrics.RunFinished(runStatus(ctx, err), elapsed)

	em.terminal(res)
	if err != nil {
		logger.Error("[Pipeline] Run failed", "run_id", res.RunID, "err", err, "duration_ms", res.Metadata.DurationMs)
	} else {
		logger.Info("[Pipeline] Run finished",
			"run_id", res.RunID,
			"sources", len(res.Sources),
			"nodes", res.Metadata.NodeCount,
			"minimal", res.Metadata.MinimalNodeCount,
			"concepts", res.Plan.ConceptCount(),
			"duration_ms", res.Metadata.DurationMs,
		)
	}
	return res, err
}

// RunStream runs the pipeline in a new goroutine and returns a channel
// that it owns and closes after the terminal event.
func (p *Pipeline) RunStream(ctx context.Context, req Request) <-chan common.ProgressEvent {
	events := make(chan common.ProgressEvent, 16)
	go func() {
		defer close(events)
		_, _ = p.Run(ctx, req, events)
	}()
	return events
}

func (p *Pipeline) run(ctx context.Context, req Request, res *RunResult, em *emitter) error {
	if err := req.Validate(); err != nil {
		return err
	}
	topic := strings.TrimSpace(req.Topic)
	depth := req.Depth
	if depth == "" {
		depth = p.defaultDepth
	}
	var docs []common.SourceDocument

	if !req.SkipSearch {
		if p.collector == nil {
			res.Metadata.Warnings = append(res.Metadata.Warnings, "search is not configured")
		} else {
			done := p.timeStage(res, util.StageCollect)
			wres := p.collect(ctx, req, topic, em)
			done()
			res.Metadata.Workflow = &wres.Metadata
			res.Metadata.WorkflowSuccess = wres.Success
			res.Metadata.FallbackUsed = wres.Metadata.FallbackUsed
			if wres.ErrorMessage != "" {
				res.Metadata.Warnings = append(res.Metadata.Warnings, wres.ErrorMessage)
			}
			if !wres.Success {
				logger.Warn("[Pipeline] Collection failed, continuing with partial results",
					"run_id", res.RunID, "results", len(wres.FinalResults), "err", wres.ErrorMessage)
			}
			docs = append(docs, wres.FinalResults...)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(req.Paths) > 0 || len(req.URLs) > 0 {
		if p.manual == nil {
			return fmt.Errorf("%w: manual sources are not configured", ErrInvalidRequest)
		}
		done := p.timeStage(res, util.StageIngest)
		em.stage(util.StageIngest, 0, fmt.Sprintf("Reading %d paths and %d URLs", len(req.Paths), len(req.URLs)))
		mres, err := p.manual.ProcessManualSources(ctx, loader.ManualSourcesRequest{
			Paths:    req.Paths,
			URLs:     req.URLs,
			Topic:    topic,
			MaxPages: req.MaxPages,
		})
		done()
		if err != nil {
			return fmt.Errorf("failed to read manual sources: %w", err)
		}
		res.Metadata.ManualFiles = mres.FileCount
		res.Metadata.ManualURLs = mres.URLCount
		res.Metadata.ManualErrors = mres.Errors
		docs = append(docs, mres.Documents...)
		em.stage(util.StageIngest, 1, fmt.Sprintf("Read %d manual documents", len(mres.Documents)))
	}
	if docs == nil {
		docs = []common.SourceDocument{}
	}
	res.Sources = docs
	res.Metadata.DocumentCount = len(docs)

	done := p.timeStage(res, util.StageGraph)
	em.stage(util.StageGraph, 0, fmt.Sprintf("Building graph from %d documents", len(docs)))
	g, err := p.builder.Build(ctx, docs, topic)
	done()
	if err != nil {
		return fmt.Errorf("failed to build graph: %w", err)
	}
	res.Graph = g
	em.stage(util.StageGraph, 1, fmt.Sprintf("Graph has %d nodes and %d edges", len(g.Nodes), len(g.Edges)))

	done = p.timeStage(res, util.StageRank)
	g, stats, err := centrality.Rank(g, p.rankOpts)
	if err != nil {
		done()
		return fmt.Errorf("failed to rank graph: %w", err)
	}
	res.Metadata.NodeCount = stats.Nodes
	res.Metadata.EdgeCount = stats.Edges
	res.Metadata.Degraded = stats.Degraded
	res.Metadata.PageRankIterations = stats.PageRankIterations

	keep := req.KeepFraction
	if keep == 0 {
		keep = p.keepFraction
	}
	minimal, err := centrality.ExtractMinimal(g, keep)
	if err != nil {
		done()
		return fmt.Errorf("failed to extract minimal subgraph: %w", err)
	}
	res.Minimal = minimal
	res.Metadata.MinimalNodeCount = len(minimal.Nodes)
	res.Metadata.SeedCount = minimal.SeedCount
	res.Metadata.BridgeCount = minimal.BridgeCount
	if gaps := centrality.AnalyzeGaps(g, minimal, topic); gaps != nil {
		res.Gaps = gaps
	}
	res.Analysis = centrality.Summarize(topic, res.Gaps, centrality.AnalyzeInsights(g, minimal, topic))
	done()
	em.stage(util.StageRank, 1, fmt.Sprintf("Selected %d core concepts", len(minimal.Nodes)))

	if err := ctx.Err(); err != nil {
		return err
	}

	done = p.timeStage(res, util.StagePlan)
	p.embed(ctx, minimal, res)
	lp, err := p.assembler.Assemble(minimal, docs, topic, depth)
	done()
	if err != nil {
		return fmt.Errorf("failed to assemble plan: %w", err)
	}
	res.Plan = lp
	res.Success = true
	em.stage(util.StagePlan, 1, fmt.Sprintf("Plan has %d concepts over %d hours", lp.ConceptCount(), lp.TotalEstimatedHours))
	return nil
}

// collect runs the workflow on its own channel, rescales its progress into
// the collection window and drops its terminal event.
func (p *Pipeline) collect(ctx context.Context, req Request, topic string, em *emitter) workflow.Result {
	inner := make(chan common.ProgressEvent, 16)
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for ev := range inner {
			if ev.Terminal {
				continue
			}
			ev.Progress = util.ScaleProgress(util.StageCollect, ev.Progress)
			em.send(ev)
		}
	}()

	wres := p.collector.Run(ctx, workflow.Request{
		Topic:                topic,
		SearchLimit:          req.SearchLimit,
		ReliabilityThreshold: req.ReliabilityThreshold,
		SourcePreferences:    req.SourcePreferences,
	}, inner)
	close(inner)
	<-forwarded
	return wres
}

func (p *Pipeline) embed(ctx context.Context, minimal *common.MinimalSubgraph, res *RunResult) {
	if p.embedder == nil || len(minimal.Nodes) == 0 {
		return
	}
	inputs := make([][]byte, len(minimal.Nodes))
	for i, n := range minimal.Nodes {
		inputs[i] = []byte(n.Label)
	}
	vectors, err := store.GenerateEmbeddings(ctx, p.embedder, inputs, p.embedParallel)
	if err != nil {
		logger.Warn("[Pipeline] Embedding minimal nodes failed", "run_id", res.RunID, "err", err)
		res.Metadata.Warnings = append(res.Metadata.Warnings, "embeddings unavailable: "+err.Error())
		return
	}
	for i := range minimal.Nodes {
		minimal.Nodes[i].Embedding = vectors[i]
	}
	res.Metadata.Embedded = len(vectors)
}

func (p *Pipeline) export(ctx context.Context, res *RunResult, em *emitter) {
	em.stage(util.StagePersist, 0, "Exporting artifacts")
	keys, err := p.exporter.Export(ctx, res.RunID, res.Graph, res.Minimal, res.Plan)
	res.Metadata.Artifacts = keys
	if err != nil {
		logger.Warn("[Pipeline] Artifact export failed", "run_id", res.RunID, "err", err)
		res.Metadata.Warnings = append(res.Metadata.Warnings, "export failed: "+err.Error())
	}
}

func (p *Pipeline) persist(ctx context.Context, req Request, res *RunResult, start time.Time, em *emitter) error {
	em.stage(util.StagePersist, 0.5, "Saving run")
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	depth := req.Depth
	if depth == "" {
		depth = p.defaultDepth
	}
	if depth == "" {
		depth = plan.DepthModerate
	}
	run, err := res.StoredRun(strings.TrimSpace(req.Topic), depth)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err := p.store.SaveRun(pctx, run); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if res.Success {
		if err := p.store.RecordDuration(pctx, len(res.Sources), time.Since(start)); err != nil {
			logger.Warn("[Pipeline] Failed to record run duration", "run_id", res.RunID, "err", err)
		}
	}
	return nil
}

func (p *Pipeline) timeStage(res *RunResult, stage util.PipelineStage) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		res.Metadata.StageTimings[string(stage)] += d.Milliseconds()
		metrics.ObserveStep("pipeline_"+string(stage), d)
	}
}

func runStatus(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "timeout"
	default:
		return "failure"
	}
}

func newRunID() string {
	id, _ := gonanoid.New()
	return id
}
