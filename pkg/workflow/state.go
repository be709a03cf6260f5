package workflow

import (
	"sync"
	"time"

	"github.com/dslunde/Glyph-sub000/pkg/common"
)

// Step names a node of the workflow state machine.
type Step string

const (
	StepInitialize      Step = "initialize"
	StepGenerateQueries Step = "generate_queries"
	StepSearchSources   Step = "search_sources"
	StepDeduplicate     Step = "deduplicate"
	StepScore           Step = "score_reliability"
	StepStreamResults   Step = "stream_results"
	StepFilterResults   Step = "filter_results"
	StepFinalize        Step = "finalize"
	StepErrorHandler    Step = "error_handler"

	stepDone Step = ""
)

// Request describes a single collection run.
type Request struct {
	Topic                string   `json:"topic"`
	SearchLimit          int      `json:"search_limit"`
	ReliabilityThreshold int      `json:"reliability_threshold"`
	SourcePreferences    []string `json:"source_preferences,omitempty"`
}

// Metadata summarises a finished run.
type Metadata struct {
	TotalQueries        int   `json:"total_queries"`
	RawResultCount      int   `json:"raw_result_count"`
	ScoredResultCount   int   `json:"scored_result_count"`
	FilteredResultCount int   `json:"filtered_result_count"`
	ErrorCount          int   `json:"error_count"`
	FallbackUsed        bool  `json:"fallback_used"`
	StreamedCount       int   `json:"streamed_count"`
	DurationMs          int64 `json:"duration_ms"`
}

// Result is the outcome of Engine.Run.
type Result struct {
	Success      bool                    `json:"success"`
	FinalResults []common.SourceDocument `json:"final_results"`
	ErrorMessage string                  `json:"error_message,omitempty"`
	Metadata     Metadata                `json:"metadata"`
}

// State is the record threaded through the state machine. One State exists
// per run and only the engine goroutine touches it; the scoring workers
// write to their own slots and deliver through the stream tracker.
type State struct {
	Topic                string
	SearchLimit          int
	ReliabilityThreshold int
	SourcePreferences    []string

	CurrentStep Step
	Progress    float64
	ErrorCount  int
	RetryCount  int

	SearchQueries   []string
	RawResults      []common.SourceDocument
	UniqueResults   []common.SourceDocument
	ScoredResults   []common.SourceDocument
	FilteredResults []common.SourceDocument
	StreamedResults []common.SourceDocument

	Success      bool
	FinalResults []common.SourceDocument
	ErrorMessage string
	FallbackUsed bool
	StepTimings  map[Step]time.Duration

	failure error
	stream  *streamTracker
}

func newState(req Request) *State {
	return &State{
		Topic:                req.Topic,
		SearchLimit:          req.SearchLimit,
		ReliabilityThreshold: req.ReliabilityThreshold,
		SourcePreferences:    req.SourcePreferences,
		StepTimings:          make(map[Step]time.Duration),
		stream:               newStreamTracker(),
	}
}

// next is the transition function. Failures recorded by a step and the
// error budget take precedence over the regular order.
func next(st *State, budget int) Step {
	if st.CurrentStep == StepErrorHandler || st.CurrentStep == StepFinalize {
		return stepDone
	}
	if st.failure != nil || st.ErrorCount >= budget {
		return StepErrorHandler
	}
	switch st.CurrentStep {
	case StepInitialize:
		return StepGenerateQueries
	case StepGenerateQueries:
		return StepSearchSources
	case StepSearchSources:
		return StepDeduplicate
	case StepDeduplicate:
		return StepScore
	case StepScore:
		return StepStreamResults
	case StepStreamResults:
		return StepFilterResults
	case StepFilterResults:
		return StepFinalize
	}
	return stepDone
}

func (st *State) result(elapsed time.Duration) Result {
	final := st.FinalResults
	if final == nil {
		final = []common.SourceDocument{}
	}
	return Result{
		Success:      st.Success,
		FinalResults: final,
		ErrorMessage: st.ErrorMessage,
		Metadata: Metadata{
			TotalQueries:        len(st.SearchQueries),
			RawResultCount:      len(st.RawResults),
			ScoredResultCount:   len(st.ScoredResults),
			FilteredResultCount: len(st.FilteredResults),
			ErrorCount:          st.ErrorCount,
			FallbackUsed:        st.FallbackUsed,
			StreamedCount:       len(st.StreamedResults),
			DurationMs:          elapsed.Milliseconds(),
		},
	}
}

// streamTracker records which documents reached the caller so every scored
// document is delivered at most once, whichever goroutine gets there first.
type streamTracker struct {
	mu        sync.Mutex
	delivered map[string]struct{}
	order     []common.SourceDocument
}

func newStreamTracker() *streamTracker {
	return &streamTracker{delivered: make(map[string]struct{})}
}

// deliver calls send for doc unless it was already delivered. The document
// only counts as delivered when send succeeds.
func (t *streamTracker) deliver(doc common.SourceDocument, send func(common.SourceDocument) bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.delivered[doc.ID]; ok {
		return false
	}
	if !send(doc) {
		return false
	}
	t.delivered[doc.ID] = struct{}{}
	t.order = append(t.order, doc)
	return true
}

func (t *streamTracker) snapshot() []common.SourceDocument {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]common.SourceDocument, len(t.order))
	copy(out, t.order)
	return out
}
