// Package server is the HTTP API: run submission, progress streaming and
// access to stored runs.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/dslunde/Glyph-sub000/internal/config"
	mid "github.com/dslunde/Glyph-sub000/internal/server/middleware"
	"github.com/dslunde/Glyph-sub000/pkg/logger"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// New creates the echo instance serving app.
func New(app *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	RegisterRoutes(e)
	return e
}

// Start serves e on port until ctx is done, then shuts down gracefully.
func Start(ctx context.Context, e *echo.Echo, port string) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("[Server] Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("[Server] Failed to shutdown server", "err", err)
		return err
	}
	logger.Info("[Server] Server stopped")
	return nil
}
