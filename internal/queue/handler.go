package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dslunde/Glyph-sub000/pkg/common"
	"github.com/dslunde/Glyph-sub000/pkg/leaselock"
	"github.com/dslunde/Glyph-sub000/pkg/logger"
	"github.com/dslunde/Glyph-sub000/pkg/pipeline"
	"github.com/dslunde/Glyph-sub000/pkg/store"
)

// Runner executes a pipeline run.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request, events chan<- common.ProgressEvent) (*pipeline.RunResult, error)
}

// Locker serialises work on a key across workers.
type Locker interface {
	WithLease(ctx context.Context, key string, opts leaselock.Options, fn func(ctx context.Context) error) error
}

// Handler processes pipeline jobs.
type Handler struct {
	runner Runner
	store  store.PlanStorage
	locks  Locker
	lease  leaselock.Options
}

// NewHandler creates a Handler. locks may be nil when only one worker
// consumes the queue.
func NewHandler(runner Runner, s store.PlanStorage, locks Locker) *Handler {
	return &Handler{
		runner: runner,
		store:  s,
		locks:  locks,
		lease:  leaselock.Options{TTL: 2 * time.Minute},
	}
}

// Process runs the job in body. A nil error acknowledges the message; any
// other error sends it to the retry queue, except ErrMalformedJob which is
// never retried.
//
// Runs rejected as invalid by the pipeline are stored as failed and not
// retried, and a run whose lease is held elsewhere is skipped.
func (h *Handler) Process(ctx context.Context, body []byte) error {
	job, err := DecodeJob(body)
	if err != nil {
		return err
	}

	if h.locks == nil {
		return h.process(ctx, job)
	}
	err = h.locks.WithLease(ctx, leaselock.RunKey(job.RunID), h.lease, func(ctx context.Context) error {
		return h.process(ctx, job)
	})
	if errors.Is(err, leaselock.ErrBusy) {
		logger.Info("[Queue] Run is already being processed, skipping", "run_id", job.RunID)
		return nil
	}
	return err
}

func (h *Handler) process(ctx context.Context, job Job) error {
	if err := h.store.UpdateRunStatus(ctx, job.RunID, store.RunStatusRunning, ""); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if err := h.store.CreateRun(ctx, job.RunID, job.Request.Topic, job.Request.Depth); err != nil {
				return fmt.Errorf("failed to create run: %w", err)
			}
		} else {
			return fmt.Errorf("failed to mark run running: %w", err)
		}
	}

	res, err := h.runner.Run(ctx, job.Request, nil)
	switch {
	case err == nil:
		logger.Info("[Queue] Run completed", "run_id", job.RunID, "concepts", res.Plan.ConceptCount())
		return nil
	case errors.Is(err, pipeline.ErrInvalidRequest):
		logger.Warn("[Queue] Dropping invalid run", "run_id", job.RunID, "err", err)
		return nil
	default:
		return fmt.Errorf("run %s failed: %w", job.RunID, err)
	}
}
