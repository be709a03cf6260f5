package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dslunde/Glyph-sub000/internal/util"
	"github.com/dslunde/Glyph-sub000/pkg/logger"
	"github.com/dslunde/Glyph-sub000/pkg/pipeline"
	"github.com/dslunde/Glyph-sub000/pkg/plan"
	"github.com/dslunde/Glyph-sub000/pkg/store"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrMalformedJob marks a message that can never be processed.
var ErrMalformedJob = errors.New("malformed pipeline job")

const (
	publishTries = 3
	publishDelay = 100 * time.Millisecond
)

// Job is the body of a PipelineQueue message.
type Job struct {
	RunID   string           `json:"run_id"`
	Request pipeline.Request `json:"request"`
}

// DecodeJob parses a message body.
func DecodeJob(body []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return Job{}, fmt.Errorf("%w: %w", ErrMalformedJob, err)
	}
	if job.RunID == "" {
		return Job{}, fmt.Errorf("%w: missing run id", ErrMalformedJob)
	}
	job.Request.RunID = job.RunID
	return job, nil
}

// Enqueue records a pending run for req and publishes its job. The run ID
// is returned so callers can poll the run.
func Enqueue(ctx context.Context, pub Publisher, s store.PlanStorage, req pipeline.Request) (string, error) {
	if req.RunID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return "", fmt.Errorf("failed to generate run id: %w", err)
		}
		req.RunID = id
	}
	depth := req.Depth
	if depth == "" {
		depth = plan.DepthModerate
	}

	if err := s.CreateRun(ctx, req.RunID, req.Topic, depth); err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}

	body, err := json.Marshal(Job{RunID: req.RunID, Request: req})
	if err != nil {
		return "", fmt.Errorf("failed to encode job: %w", err)
	}
	err = util.RetryErrWithContext(ctx, publishTries, publishDelay, func(ctx context.Context) error {
		return PublishFIFO(ctx, pub, PipelineQueue, body)
	})
	if err != nil {
		if uerr := s.UpdateRunStatus(context.WithoutCancel(ctx), req.RunID, store.RunStatusFailed, "failed to enqueue run"); uerr != nil {
			logger.Warn("[Queue] Failed to mark unqueued run", "run_id", req.RunID, "err", uerr)
		}
		return "", fmt.Errorf("failed to publish job: %w", err)
	}

	logger.Info("[Queue] Enqueued run", "run_id", req.RunID, "topic", req.Topic)
	return req.RunID, nil
}
