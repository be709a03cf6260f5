package workflow

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dslunde/Glyph-sub000/internal/metrics"
	"github.com/dslunde/Glyph-sub000/pkg/ai"
	"github.com/dslunde/Glyph-sub000/pkg/common"
	"github.com/dslunde/Glyph-sub000/pkg/logger"
	"github.com/dslunde/Glyph-sub000/pkg/search"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"
)

func (e *Engine) initialize(st *State, em *emitter) {
	var missing []string
	if e.cfg.SearchAPIKey == "" || e.search == nil {
		missing = append(missing, "search")
	}
	if (e.cfg.LLMAPIKey == "" && !e.cfg.LLMKeyless) || e.llm == nil {
		missing = append(missing, "llm")
	}
	if len(missing) > 0 {
		st.failure = fmt.Errorf("%w: %v", ErrMissingCredential, missing)
		logger.Error("[Workflow] Missing credentials", "providers", missing)
		return
	}
	em.progress(st, 0.1, "Initialized workflow")
}

func (e *Engine) generateQueries(ctx context.Context, st *State, em *emitter) {
	n := e.cfg.QueryCount
	templates := QueryTemplates(st.Topic)

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	queries, err := ai.GenerateSearchQueries(callCtx, e.llm, st.Topic, st.SourcePreferences, n)
	cancel()
	if err != nil {
		e.recordError(ctx, st, "llm", err)
		st.FallbackUsed = true
		metrics.Fallback("queries")
		logger.Warn("[Workflow] Query generation failed, using templates", "err", err)
		queries = nil
	}

	for i := len(queries); i < n && i < len(templates); i++ {
		queries = append(queries, templates[i])
	}
	if len(queries) > n {
		queries = queries[:n]
	}
	st.SearchQueries = queries
	em.progress(st, 0.2, fmt.Sprintf("Generated %d search queries", len(queries)))
}

func (e *Engine) searchSources(ctx context.Context, st *State, em *emitter) {
	queries := st.SearchQueries
	slots := make([][]search.Result, len(queries))
	errs := make([]error, len(queries))

	var g errgroup.Group
	g.SetLimit(max(1, e.cfg.QueryCount))
	for i, q := range queries {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
			defer cancel()
			res, err := e.search.Search(callCtx, q, st.SearchLimit)
			if err != nil {
				errs[i] = err
				return nil
			}
			slots[i] = res
			return nil
		})
	}
	_ = g.Wait()

	raw := make([]common.SourceDocument, 0, len(queries)*max(1, st.SearchLimit))
	for i, q := range queries {
		if errs[i] != nil {
			e.recordError(ctx, st, "search", errs[i])
			logger.Warn("[Workflow] Search failed", "query", q, "err", errs[i])
			continue
		}
		for _, r := range slots[i] {
			raw = append(raw, common.SourceDocument{
				ID:            newDocumentID(),
				Title:         r.Title,
				URL:           r.URL,
				Content:       r.Content,
				ProviderScore: r.Score,
				PublishedDate: r.PublishedDate,
				SourceKind:    common.SourceKindSearch,
				Query:         q,
			})
		}
	}
	st.RawResults = raw
	em.progress(st, 0.4, fmt.Sprintf("Found %d raw results", len(raw)))
}

func (e *Engine) deduplicate(st *State, em *emitter) {
	st.UniqueResults = Deduplicate(st.RawResults, e.cfg.TitleThreshold)
	logger.Debug("[Workflow] Deduplicated results", "before", len(st.RawResults), "after", len(st.UniqueResults))
	em.progress(st, 0.5, fmt.Sprintf("%d unique results", len(st.UniqueResults)))
}

// scoreReliability scores every unique result concurrently and streams each
// one as soon as its score is known.
func (e *Engine) scoreReliability(ctx context.Context, st *State, em *emitter) {
	docs := st.UniqueResults
	scored := make([]common.SourceDocument, len(docs))
	errs := make([]error, len(docs))

	var g errgroup.Group
	g.SetLimit(e.cfg.ScoreConcurrency)
	for i, doc := range docs {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
			defer cancel()
			score, err := ai.ScoreReliability(callCtx, e.llm, doc.Title, doc.URL, doc.Content)
			if err != nil {
				errs[i] = err
				score = HeuristicScore(doc.URL)
			}
			doc.ReliabilityScore = score
			doc.Categories = Categories(doc)
			scored[i] = doc

			if ctx.Err() == nil {
				st.stream.deliver(doc, func(d common.SourceDocument) bool {
					return em.send(resultEvent(d, 0.6, StepScore))
				})
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range errs {
		if err == nil {
			continue
		}
		e.recordError(ctx, st, "llm", err)
		st.FallbackUsed = true
		metrics.Fallback("reliability")
		logger.Debug("[Workflow] Reliability scoring fell back to heuristic", "url", docs[i].URL, "err", err)
	}
	st.ScoredResults = scored
	em.progress(st, 0.6, fmt.Sprintf("Scored %d results", len(scored)))
}

func (e *Engine) streamResults(st *State, em *emitter) {
	e.flushStream(st, em, 0.7)
	em.progress(st, 0.7, fmt.Sprintf("Streamed %d results", len(st.StreamedResults)))
}

// flushStream delivers every scored result that has not reached the caller
// yet and refreshes StreamedResults.
func (e *Engine) flushStream(st *State, em *emitter, p float64) {
	for _, doc := range st.ScoredResults {
		st.stream.deliver(doc, func(d common.SourceDocument) bool {
			return em.send(resultEvent(d, p, StepStreamResults))
		})
	}
	st.StreamedResults = st.stream.snapshot()
}

func (e *Engine) filterResults(st *State, em *emitter) {
	st.FilteredResults = Filter(st.StreamedResults, st.ReliabilityThreshold, st.SourcePreferences)
	em.progress(st, 0.8, fmt.Sprintf("%d results passed filtering", len(st.FilteredResults)))
}

func (e *Engine) finalize(st *State, em *emitter) {
	st.Success = true
	st.FinalResults = st.FilteredResults
	em.progress(st, 1.0, fmt.Sprintf("Workflow completed with %d results", len(st.FinalResults)))
}

// handleError ends a failed run. Scored results are always flushed and
// filtered so the caller keeps whatever was collected. A run deadline
// still counts as success: unscored results get heuristic scores and the
// fallback flag is set.
func (e *Engine) handleError(st *State, em *emitter) {
	st.RetryCount++
	cause := st.failure
	if cause == nil {
		cause = fmt.Errorf("%w: %d errors", ErrBudgetExceeded, st.ErrorCount)
	}

	timedOut := errors.Is(cause, ErrWorkflowTimeout)
	if timedOut && st.ScoredResults == nil {
		unique := st.UniqueResults
		if unique == nil {
			unique = Deduplicate(st.RawResults, e.cfg.TitleThreshold)
		}
		st.ScoredResults = make([]common.SourceDocument, len(unique))
		for i, doc := range unique {
			doc.ReliabilityScore = HeuristicScore(doc.URL)
			doc.Categories = Categories(doc)
			st.ScoredResults[i] = doc
		}
	}

	e.flushStream(st, em, 0.9)
	st.FilteredResults = Filter(st.StreamedResults, st.ReliabilityThreshold, st.SourcePreferences)
	st.FinalResults = st.FilteredResults

	if timedOut {
		st.Success = true
		st.FallbackUsed = true
		st.ErrorMessage = fmt.Sprintf("%v; returning %d partial results", cause, len(st.FinalResults))
		logger.Warn("[Workflow] Run deadline exceeded", "partial_results", len(st.FinalResults))
	} else {
		st.Success = false
		st.ErrorMessage = cause.Error()
		logger.Error("[Workflow] Run failed", "err", cause, "partial_results", len(st.FinalResults))
	}
	em.progress(st, 1.0, st.ErrorMessage)
}

// Filter keeps documents at or above threshold whose categories intersect
// preferences, when any are given, sorted by reliability descending and
// then by URL.
func Filter(docs []common.SourceDocument, threshold int, preferences []string) []common.SourceDocument {
	out := make([]common.SourceDocument, 0, len(docs))
	for _, d := range docs {
		if d.ReliabilityScore < threshold {
			continue
		}
		if len(preferences) > 0 && !intersects(d.Categories, preferences) {
			continue
		}
		out = append(out, d)
	}
	slices.SortStableFunc(out, func(a, b common.SourceDocument) int {
		if c := cmp.Compare(b.ReliabilityScore, a.ReliabilityScore); c != 0 {
			return c
		}
		return cmp.Compare(a.URL, b.URL)
	})
	return out
}

func intersects(a, b []string) bool {
	for _, x := range a {
		if slices.Contains(b, x) {
			return true
		}
	}
	return false
}

func resultEvent(doc common.SourceDocument, p float64, step Step) common.ProgressEvent {
	return common.ProgressEvent{
		Progress: p,
		Message:  "Scored " + doc.Reference(),
		Step:     string(step),
		Result:   &doc,
	}
}

func newDocumentID() string {
	id, _ := gonanoid.New()
	return id
}
