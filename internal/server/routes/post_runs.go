package routes

import (
	"encoding/json"
	"net/http"

	"github.com/dslunde/Glyph-sub000/internal/queue"
	"github.com/dslunde/Glyph-sub000/internal/server/middleware"
	"github.com/dslunde/Glyph-sub000/pkg/logger"
	"github.com/dslunde/Glyph-sub000/pkg/pipeline"

	"github.com/labstack/echo/v4"
)

// Paths are limited to object storage; the API never reads the server's
// own file system.
type runRequest struct {
	Topic                string   `json:"topic" validate:"required,max=200"`
	SearchLimit          int      `json:"search_limit" validate:"gte=0,lte=50"`
	ReliabilityThreshold int      `json:"reliability_threshold" validate:"gte=0,lte=100"`
	SourcePreferences    []string `json:"source_preferences"`
	Paths                []string `json:"paths" validate:"dive,startswith=s3://"`
	URLs                 []string `json:"urls" validate:"dive,url"`
	MaxPages             int      `json:"max_pages" validate:"gte=0,lte=50"`
	Depth                string   `json:"depth" validate:"omitempty,oneof=overview moderate comprehensive"`
	KeepFraction         float64  `json:"keep_fraction" validate:"gte=0,lte=1"`
	SkipSearch           bool     `json:"skip_search"`
}

func (r *runRequest) pipelineRequest() pipeline.Request {
	return pipeline.Request{
		Topic:                r.Topic,
		SearchLimit:          r.SearchLimit,
		ReliabilityThreshold: r.ReliabilityThreshold,
		SourcePreferences:    r.SourcePreferences,
		Paths:                r.Paths,
		URLs:                 r.URLs,
		MaxPages:             r.MaxPages,
		Depth:                r.Depth,
		KeepFraction:         r.KeepFraction,
		SkipSearch:           r.SkipSearch,
	}
}

func bindRunRequest(c echo.Context) (pipeline.Request, error) {
	data := new(runRequest)
	if err := c.Bind(data); err != nil {
		return pipeline.Request{}, err
	}
	if err := c.Validate(data); err != nil {
		return pipeline.Request{}, err
	}
	req := data.pipelineRequest()
	if err := req.Validate(); err != nil {
		return pipeline.Request{}, err
	}
	return req, nil
}

type createRunResponse struct {
	RunID            string  `json:"run_id"`
	Status           string  `json:"status"`
	EstimatedSeconds float64 `json:"estimated_seconds,omitempty"`
}

// expectedSources guesses how many sources a run will collect, for the
// duration estimate.
func expectedSources(req pipeline.Request) int {
	n := len(req.Paths) + len(req.URLs)
	if !req.SkipSearch {
		n += max(req.SearchLimit, 1) * 5
	}
	return n
}

func CreateRunHandler(c echo.Context) error {
	req, err := bindRunRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	if app.Queue == nil || app.Store == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Queue is not configured"})
	}
	ctx := c.Request().Context()

	runID, err := queue.Enqueue(ctx, app.Queue, app.Store, req)
	if err != nil {
		logger.Error("[Server] Failed to enqueue run", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	resp := createRunResponse{RunID: runID, Status: "pending"}
	eta, err := app.Store.PredictDuration(ctx, expectedSources(req))
	if err != nil {
		logger.Debug("[Server] No duration estimate", "err", err)
	} else {
		resp.EstimatedSeconds = eta.Seconds()
	}

	return c.JSON(http.StatusAccepted, resp)
}

// StreamRunHandler runs the pipeline inside the request and writes every
// progress event as one JSON line.
func StreamRunHandler(c echo.Context) error {
	req, err := bindRunRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	if app.Pipeline == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Pipeline is not configured"})
	}
	ctx := c.Request().Context()

	c.Response().Header().Set(echo.HeaderContentType, "application/x-ndjson")
	c.Response().WriteHeader(http.StatusOK)

	enc := json.NewEncoder(c.Response())
	var writeErr error
	for ev := range app.Pipeline.RunStream(ctx, req) {
		// keep draining after a write error so the run can finish
		if writeErr != nil {
			continue
		}
		if writeErr = enc.Encode(ev); writeErr != nil {
			logger.Warn("[Server] Stream client went away", "err", writeErr)
			continue
		}
		c.Response().Flush()
	}
	return nil
}
