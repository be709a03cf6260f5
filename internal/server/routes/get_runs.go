package routes

import (
	"errors"
	"net/http"

	"github.com/dslunde/Glyph-sub000/internal/server/middleware"
	"github.com/dslunde/Glyph-sub000/internal/storage"
	"github.com/dslunde/Glyph-sub000/pkg/logger"
	"github.com/dslunde/Glyph-sub000/pkg/store"

	"github.com/labstack/echo/v4"
)

type runParams struct {
	RunID string `param:"id" validate:"required,max=64"`
}

func GetRunHandler(c echo.Context) error {
	params := new(runParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	app := c.(*middleware.AppContext).App
	if app.Store == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Storage is not configured"})
	}

	run, err := app.Store.GetRun(c.Request().Context(), params.RunID)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Run not found"})
	}
	if err != nil {
		logger.Error("[Server] Failed to load run", "run_id", params.RunID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, run)
}

func GetRunPlanHandler(c echo.Context) error {
	params := new(runParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	app := c.(*middleware.AppContext).App
	if app.Store == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Storage is not configured"})
	}

	lp, err := app.Store.GetPlan(c.Request().Context(), params.RunID)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Plan not found"})
	}
	if err != nil {
		logger.Error("[Server] Failed to load plan", "run_id", params.RunID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, lp)
}

// GetSimilarNodesHandler embeds the query text and returns the closest core
// concepts of the run.
func GetSimilarNodesHandler(c echo.Context) error {
	type similarParams struct {
		RunID string `param:"id" validate:"required,max=64"`
		Query string `query:"q" validate:"required,max=500"`
		Limit int    `query:"limit" validate:"gte=0,lte=100"`
	}

	params := new(similarParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	app := c.(*middleware.AppContext).App
	if app.Store == nil || app.Embedder == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Similarity search is not configured"})
	}
	ctx := c.Request().Context()

	embedding, err := app.Embedder.GenerateEmbedding(ctx, []byte(params.Query))
	if err != nil {
		logger.Error("[Server] Failed to embed query", "err", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Embedding failed"})
	}

	matches, err := app.Store.SimilarNodes(ctx, params.RunID, embedding, params.Limit)
	if err != nil {
		logger.Error("[Server] Similarity search failed", "run_id", params.RunID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if matches == nil {
		matches = []store.NodeMatch{}
	}

	return c.JSON(http.StatusOK, matches)
}

type artifactLink struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// GetRunArtifactsHandler returns presigned download links for the exported
// artifacts recorded on the run.
func GetRunArtifactsHandler(c echo.Context) error {
	params := new(runParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	app := c.(*middleware.AppContext).App
	if app.Store == nil || app.S3 == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Artifact export is not configured"})
	}
	ctx := c.Request().Context()

	run, err := app.Store.GetRun(ctx, params.RunID)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Run not found"})
	}
	if err != nil {
		logger.Error("[Server] Failed to load run", "run_id", params.RunID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	links := []artifactLink{}
	keys, _ := run.Metadata["artifacts"].([]any)
	for _, k := range keys {
		key, ok := k.(string)
		if !ok {
			continue
		}
		link, err := storage.GenerateDownloadLink(ctx, app.S3, app.Bucket, app.PublicEndpoint, key)
		if err != nil {
			logger.Error("[Server] Failed to presign artifact", "key", key, "err", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		}
		links = append(links, artifactLink{Key: key, URL: link})
	}

	return c.JSON(http.StatusOK, links)
}
