// Package workflow implements the source collection state machine: query
// generation, parallel search, deduplication, parallel reliability scoring
// with streaming delivery, preference filtering and error handling under a
// global error budget and run deadline.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dslunde/Glyph-sub000/internal/metrics"
	"github.com/dslunde/Glyph-sub000/pkg/ai"
	"github.com/dslunde/Glyph-sub000/pkg/common"
	"github.com/dslunde/Glyph-sub000/pkg/logger"
	"github.com/dslunde/Glyph-sub000/pkg/search"
)

// Engine runs collection workflows. An Engine holds no per-run state and
// may serve concurrent runs.
type Engine struct {
	cfg    Config
	search search.Provider
	llm    ai.GraphAIClient
}

// New creates an Engine. Zero fields of cfg take their defaults.
func New(cfg Config, provider search.Provider, llm ai.GraphAIClient) *Engine {
	return &Engine{
		cfg:    cfg.withDefaults(),
		search: provider,
		llm:    llm,
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// emitter forwards events to the caller's channel. Sends give up when the
// caller's context is done, so a reader that went away never blocks a run.
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

func (em *emitter) progress(st *State, p float64, msg string) {
	st.Progress = p
	em.send(common.ProgressEvent{Progress: p, Message: msg, Step: string(st.CurrentStep)})
}

// Run executes one workflow. Progress events and streamed results are sent
// on events, followed by exactly one terminal event carrying the Result.
// Run never closes events; a nil channel disables events.
func (e *Engine) Run(ctx context.Context, req Request, events chan<- common.ProgressEvent) Result {
	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, e.cfg.RunTimeout)
	defer cancel()

	st := newState(req)
	em := &emitter{ctx: ctx, events: events}

	logger.Info("[Workflow] Starting run", "topic", req.Topic, "search_limit", req.SearchLimit, "threshold", req.ReliabilityThreshold)

	st.CurrentStep = StepInitialize
	for st.CurrentStep != stepDone {
		stepStart := time.Now()
		e.runStep(runCtx, st, em)
		elapsed := time.Since(stepStart)
		st.StepTimings[st.CurrentStep] = elapsed
		metrics.ObserveStep(string(st.CurrentStep), elapsed)

		if err := runCtx.Err(); st.failure == nil && err != nil && st.CurrentStep != StepErrorHandler {
			if errors.Is(err, context.DeadlineExceeded) {
				st.failure = fmt.Errorf("%w after %s: %v", ErrWorkflowTimeout, e.cfg.RunTimeout, err)
			} else {
				st.failure = fmt.Errorf("%w: %v", ErrWorkflowCancelled, err)
			}
		}
		if st.failure == nil && st.ErrorCount >= e.cfg.ErrorBudget {
			st.failure = fmt.Errorf("%w: %d errors", ErrBudgetExceeded, st.ErrorCount)
		}
		st.CurrentStep = next(st, e.cfg.ErrorBudget)
	}

	res := st.result(time.Since(start))
	terminal := common.ProgressEvent{
		Progress: 1.0,
		Message:  "Workflow finished",
		Step:     string(StepFinalize),
		Terminal: true,
		Payload:  res,
	}
	if !res.Success {
		terminal.Message = "Workflow failed"
		terminal.Step = string(StepErrorHandler)
		terminal.Error = res.ErrorMessage
	}
	em.send(terminal)

	logger.Info("[Workflow] Run finished",
		"topic", req.Topic,
		"success", res.Success,
		"results", len(res.FinalResults),
		"errors", res.Metadata.ErrorCount,
		"fallback", res.Metadata.FallbackUsed,
		"duration_ms", res.Metadata.DurationMs,
	)
	return res
}

// RunStream runs the workflow in a new goroutine and returns a channel that
// it owns and closes after the terminal event.
func (e *Engine) RunStream(ctx context.Context, req Request) <-chan common.ProgressEvent {
	events := make(chan common.ProgressEvent, 16)
	go func() {
		defer close(events)
		e.Run(ctx, req, events)
	}()
	return events
}

func (e *Engine) runStep(ctx context.Context, st *State, em *emitter) {
	switch st.CurrentStep {
	case StepInitialize:
		e.initialize(st, em)
	case StepGenerateQueries:
		e.generateQueries(ctx, st, em)
	case StepSearchSources:
		e.searchSources(ctx, st, em)
	case StepDeduplicate:
		e.deduplicate(st, em)
	case StepScore:
		e.scoreReliability(ctx, st, em)
	case StepStreamResults:
		e.streamResults(st, em)
	case StepFilterResults:
		e.filterResults(st, em)
	case StepFinalize:
		e.finalize(st, em)
	case StepErrorHandler:
		e.handleError(st, em)
	}
}

// recordError counts err against the budget unless the run itself was
// cancelled, in which case the failure belongs to the run deadline.
func (e *Engine) recordError(ctx context.Context, st *State, provider string, err error) {
	if ctx.Err() != nil {
		return
	}
	st.ErrorCount++
	metrics.ProviderError(provider, errorKind(err))
}
