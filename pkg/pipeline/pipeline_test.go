package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dslunde/Glyph-sub000/pkg/common"
	"github.com/dslunde/Glyph-sub000/pkg/graph"
	"github.com/dslunde/Glyph-sub000/pkg/loader"
	"github.com/dslunde/Glyph-sub000/pkg/store"
	"github.com/dslunde/Glyph-sub000/pkg/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeCollector struct {
	result workflow.Result
	got    workflow.Request
}

func (f *fakeCollector) Run(ctx context.Context, req workflow.Request, events chan<- common.ProgressEvent) workflow.Result {
	f.got = req
	events <- common.ProgressEvent{Progress: 0.5, Message: "searching", Step: "search_sources"}
	events <- common.ProgressEvent{Progress: 1, Message: "done", Terminal: true, Payload: f.result}
	return f.result
}

type fakeManual struct {
	result loader.ManualSourcesResult
	err    error
	got    loader.ManualSourcesRequest
}

func (f *fakeManual) ProcessManualSources(ctx context.Context, req loader.ManualSourcesRequest) (loader.ManualSourcesResult, error) {
	f.got = req
	return f.result, f.err
}

type fakeExtractor struct{}

func (fakeExtractor) Extract(ctx context.Context, doc common.SourceDocument, topic string) ([]graph.Candidate, error) {
	c := func(term string, sentence int) graph.Candidate {
		return graph.Candidate{Term: term, Label: term, Kind: common.NodeKindConcept, Count: 1, Sentences: []int{sentence}}
	}
	return []graph.Candidate{c("vertex", 0), c("edge", 0), c("traversal", 0), c("shortest path", 1)}, nil
}

type fakeStore struct {
	mu        sync.Mutex
	saved     *store.Run
	saveErr   error
	durations []int
}

func (f *fakeStore) CreateRun(ctx context.Context, id, topic, depth string) error { return nil }
func (f *fakeStore) UpdateRunStatus(ctx context.Context, id string, status store.RunStatus, message string) error {
	return nil
}

func (f *fakeStore) SaveRun(ctx context.Context, run *store.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = run
	return nil
}

func (f *fakeStore) GetRun(ctx context.Context, id string) (*store.Run, error) {
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetPlan(ctx context.Context, id string) (*common.LearningPlan, error) {
	return nil, store.ErrNotFound
}

func (f *fakeStore) SimilarNodes(ctx context.Context, runID string, embedding []float32, limit int) ([]store.NodeMatch, error) {
	return nil, nil
}

func (f *fakeStore) RecordDuration(ctx context.Context, sources int, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.durations = append(f.durations, sources)
	return nil
}

func (f *fakeStore) PredictDuration(ctx context.Context, sources int) (time.Duration, error) {
	return 0, nil
}

type fakeExporter struct {
	err   error
	runID string
}

func (f *fakeExporter) Export(ctx context.Context, runID string, g *common.Graph, minimal *common.MinimalSubgraph, lp *common.LearningPlan) ([]string, error) {
	f.runID = runID
	if f.err != nil {
		return nil, f.err
	}
	return []string{"runs/" + runID + "/plan.json"}, nil
}

func searchDocs() []common.SourceDocument {
	return []common.SourceDocument{
		{ID: "s1", Title: "Graph basics", URL: "https://example.edu/graphs", Content: "Vertices and edges.", ReliabilityScore: 80, SourceKind: common.SourceKindSearch},
		{ID: "s2", Title: "Traversal", URL: "https://example.org/bfs", Content: "Breadth first search.", ReliabilityScore: 70, SourceKind: common.SourceKindSearch},
	}
}

func newTestPipeline(t *testing.T, params Params) *Pipeline {
	t.Helper()
	if params.Builder == nil {
		bp := graph.DefaultBuilderParams()
		bp.Extractor = fakeExtractor{}
		params.Builder = graph.NewBuilder(bp)
	}
	p, err := New(params)
	require.NoError(t, err)
	return p
}

func drain(events <-chan common.ProgressEvent) []common.ProgressEvent {
	var out []common.ProgressEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func terminals(evs []common.ProgressEvent) []common.ProgressEvent {
	var out []common.ProgressEvent
	for _, ev := range evs {
		if ev.Terminal {
			out = append(out, ev)
		}
	}
	return out
}

func TestRun_EndToEnd(t *testing.T) {
	collector := &fakeCollector{result: workflow.Result{Success: true, FinalResults: searchDocs()}}
	st := &fakeStore{}
	exp := &fakeExporter{}
	p := newTestPipeline(t, Params{Collector: collector, Store: st, Exporter: exp})

	evs := drain(p.RunStream(context.Background(), Request{
		RunID:                "run1",
		Topic:                "  graph theory ",
		SearchLimit:          5,
		ReliabilityThreshold: 60,
		KeepFraction:         1,
	}))

	term := terminals(evs)
	require.Len(t, term, 1)
	assert.True(t, evs[len(evs)-1].Terminal)
	assert.Empty(t, term[0].Error)

	res, ok := term[0].Payload.(*RunResult)
	require.True(t, ok)
	assert.True(t, res.Success)
	assert.Equal(t, "run1", res.RunID)
	assert.Len(t, res.Sources, 2)
	require.NotNil(t, res.Plan)
	assert.Positive(t, res.Plan.ConceptCount())
	assert.Equal(t, 4, res.Metadata.NodeCount)
	assert.Equal(t, 4, res.Metadata.MinimalNodeCount)
	assert.True(t, res.Metadata.WorkflowSuccess)
	assert.Equal(t, []string{"runs/run1/plan.json"}, res.Metadata.Artifacts)
	assert.NotNil(t, res.Analysis.Insights)
	assert.Contains(t, res.Analysis.Summary, "graph theory")
	assert.NotEmpty(t, res.Analysis.Recommendations)
	assert.GreaterOrEqual(t, res.Analysis.Confidence, 0.6)

	assert.Equal(t, "graph theory", collector.got.Topic)
	assert.Equal(t, 60, collector.got.ReliabilityThreshold)

	// the workflow's progress lands in the collection window
	assert.Equal(t, 0.25, evs[0].Progress)
	for i := 1; i < len(evs); i++ {
		assert.GreaterOrEqual(t, evs[i].Progress, evs[i-1].Progress)
	}

	require.NotNil(t, st.saved)
	assert.Equal(t, store.RunStatusCompleted, st.saved.Status)
	assert.Equal(t, "graph theory", st.saved.Topic)
	assert.Equal(t, "moderate", st.saved.Depth)
	assert.Len(t, st.saved.Nodes, 4)
	require.NotNil(t, st.saved.Analysis)
	assert.Equal(t, res.Analysis.Summary, st.saved.Analysis.Summary)
	for _, n := range st.saved.Nodes {
		assert.True(t, n.Minimal)
	}
	assert.Equal(t, []int{2}, st.durations)
	assert.Equal(t, "run1", exp.runID)
}

func TestRun_WorkflowFailureKeepsPartialResults(t *testing.T) {
	collector := &fakeCollector{result: workflow.Result{
		Success:      false,
		FinalResults: searchDocs()[:1],
		ErrorMessage: "error budget exceeded",
	}}
	p := newTestPipeline(t, Params{Collector: collector})

	res, err := p.Run(context.Background(), Request{Topic: "graphs"}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Metadata.WorkflowSuccess)
	assert.Len(t, res.Sources, 1)
	assert.Contains(t, res.Metadata.Warnings, "error budget exceeded")
	assert.NotEmpty(t, res.RunID)
}

func TestRun_ManualOnly(t *testing.T) {
	manual := &fakeManual{result: loader.ManualSourcesResult{
		Documents: []common.SourceDocument{{ID: "m1", Title: "notes.md", Content: "Vertices.", SourceKind: common.SourceKindFile}},
		Errors:    []string{"missing.pdf: not found"},
		FileCount: 2,
	}}
	collector := &fakeCollector{}
	p := newTestPipeline(t, Params{Collector: collector, Manual: manual})

	res, err := p.Run(context.Background(), Request{
		Topic:      "graphs",
		Paths:      []string{"notes.md", "missing.pdf"},
		MaxPages:   3,
		SkipSearch: true,
	}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, collector.got.Topic)
	assert.Equal(t, 3, manual.got.MaxPages)
	assert.Equal(t, 2, res.Metadata.ManualFiles)
	assert.Equal(t, []string{"missing.pdf: not found"}, res.Metadata.ManualErrors)
	assert.Len(t, res.Sources, 1)
}

func TestRun_InvalidRequests(t *testing.T) {
	p := newTestPipeline(t, Params{})
	tests := []struct {
		name string
		req  Request
	}{
		{"empty topic", Request{Topic: "  "}},
		{"unknown depth", Request{Topic: "graphs", Depth: "deep"}},
		{"keep fraction", Request{Topic: "graphs", KeepFraction: 2}},
		{"nothing to read", Request{Topic: "graphs", SkipSearch: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evs := drain(p.RunStream(context.Background(), tt.req))
			require.Len(t, evs, 1)
			assert.True(t, evs[0].Terminal)
			assert.NotEmpty(t, evs[0].Error)

			res, err := p.Run(context.Background(), tt.req, nil)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.False(t, res.Success)
		})
	}
}

func TestRun_ManualNotConfigured(t *testing.T) {
	p := newTestPipeline(t, Params{})
	_, err := p.Run(context.Background(), Request{Topic: "graphs", URLs: []string{"https://example.com"}, SkipSearch: true}, nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRun_PersistFailure(t *testing.T) {
	st := &fakeStore{saveErr: errors.New("connection refused")}
	p := newTestPipeline(t, Params{
		Collector: &fakeCollector{result: workflow.Result{Success: true, FinalResults: searchDocs()}},
		Store:     st,
	})

	res, err := p.Run(context.Background(), Request{Topic: "graphs"}, nil)
	assert.ErrorIs(t, err, ErrPersist)
	assert.False(t, res.Success)
	assert.NotNil(t, res.Plan)
	assert.Empty(t, st.durations)
}

func TestRun_ExportFailureIsWarning(t *testing.T) {
	p := newTestPipeline(t, Params{
		Collector: &fakeCollector{result: workflow.Result{Success: true, FinalResults: searchDocs()}},
		Exporter:  &fakeExporter{err: errors.New("access denied")},
	})

	res, err := p.Run(context.Background(), Request{Topic: "graphs"}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Metadata.Warnings, "export failed: access denied")
}

func TestRun_StoresFailedRun(t *testing.T) {
	st := &fakeStore{}
	p := newTestPipeline(t, Params{Store: st})

	_, err := p.Run(context.Background(), Request{RunID: "bad", Topic: "graphs", Depth: "deep"}, nil)
	require.Error(t, err)
	require.NotNil(t, st.saved)
	assert.Equal(t, store.RunStatusFailed, st.saved.Status)
	assert.Contains(t, st.saved.ErrorMessage, "deep")
}

func TestNew_Validates(t *testing.T) {
	_, err := New(Params{KeepFraction: 1.5})
	assert.Error(t, err)
	_, err = New(Params{DefaultDepth: "deep"})
	assert.Error(t, err)

	p, err := New(Params{})
	require.NoError(t, err)
	assert.NotNil(t, p.builder)
	assert.NotNil(t, p.assembler)
}

func TestStoredRun_MarksMinimalNodes(t *testing.T) {
	res := &RunResult{
		RunID:   "r",
		Success: true,
		Graph: &common.Graph{Nodes: []common.GraphNode{
			{ID: "concept_a", Label: "a"},
			{ID: "concept_b", Label: "b"},
		}},
		Minimal: &common.MinimalSubgraph{Nodes: []common.GraphNode{
			{ID: "concept_b", Label: "b", Embedding: []float32{0.1, 0.2}},
		}},
		Metadata: Metadata{NodeCount: 2, StageTimings: map[string]int64{"graph": 3}},
	}

	run, err := res.StoredRun("t", "overview")
	require.NoError(t, err)
	require.Len(t, run.Nodes, 2)
	assert.False(t, run.Nodes[0].Minimal)
	assert.True(t, run.Nodes[1].Minimal)
	assert.Equal(t, []float32{0.1, 0.2}, run.Nodes[1].Embedding)
	assert.Equal(t, float64(2), run.Metadata["node_count"])
	assert.Equal(t, store.RunStatusCompleted, run.Status)
}
