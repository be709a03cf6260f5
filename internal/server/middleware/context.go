package middleware

import (
	"context"

	"github.com/dslunde/Glyph-sub000/internal/queue"
	"github.com/dslunde/Glyph-sub000/pkg/ai"
	"github.com/dslunde/Glyph-sub000/pkg/common"
	"github.com/dslunde/Glyph-sub000/pkg/pipeline"
	"github.com/dslunde/Glyph-sub000/pkg/store"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type AppUser struct {
	UserID      string
	Role        string
	Permissions []string
}

// Streamer starts a pipeline run and streams its events.
type Streamer interface {
	RunStream(ctx context.Context, req pipeline.Request) <-chan common.ProgressEvent
}

// App holds the dependencies shared by every request. Any of Store, Queue,
// Pipeline, Embedder and S3 may be nil; the routes needing them answer
// 503 Service Unavailable.
type App struct {
	Store    store.PlanStorage
	Queue    queue.Publisher
	Pipeline Streamer
	Embedder ai.GraphAIClient

	S3             *s3.Client
	Bucket         string
	PublicEndpoint string

	Keyfunc      jwt.Keyfunc
	MasterAPIKey string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
