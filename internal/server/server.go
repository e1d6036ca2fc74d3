package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mohammad-safakhou/briefer/internal/agent"
	"github.com/mohammad-safakhou/briefer/internal/briefing"
	"github.com/mohammad-safakhou/briefer/internal/sources"
	"github.com/mohammad-safakhou/briefer/internal/vault"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

//go:embed console.html
var consoleHTML string

const shutdownTimeout = 10 * time.Second

// Runner executes one briefing run.
type Runner interface {
	Run(ctx context.Context, extra ...agent.Listener) (briefing.Result, error)
}

type Options struct {
	Registry *sources.Registry
	Vault    *vault.Writer
	Runner   Runner
	Logger   *zap.Logger
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// New builds the console: the HTML page, the JSON API and the probes.
func New(opts Options) *echo.Echo {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))
	// Unified HTTP error handler with structured JSON and logging
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		he := toHTTPError(err)
		req := c.Request()
		fields := []zap.Field{
			zap.Int("status", he.Code),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.String("remote", c.RealIP()),
			zap.Error(err),
		}
		if he.Code >= http.StatusInternalServerError {
			logger.Error("request failed", fields...)
		} else {
			logger.Info("request rejected", fields...)
		}
		if !c.Response().Committed {
			_ = c.JSON(he.Code, HTTPError{Error: fmt.Sprint(he.Message)})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))

	e.GET("/", func(c echo.Context) error { return c.HTML(http.StatusOK, consoleHTML) })
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := e.Group("/api")
	sh := &SourcesHandler{Registry: opts.Registry}
	sh.Register(api.Group("/sources"))
	rh := &ReportsHandler{Vault: opts.Vault}
	rh.Register(api.Group("/reports"))
	bh := &RunHandler{Runner: opts.Runner, Logger: logger}
	bh.Register(api)
	return e
}

// Serve runs e on addr until ctx ends, then shuts it down gracefully.
func Serve(ctx context.Context, e *echo.Echo, addr string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("control panel listening", zap.String("addr", addr))
		errCh <- e.Start(addr)
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// toHTTPError maps domain errors onto status codes.
func toHTTPError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	var argErr *sources.ArgumentError
	switch {
	case errors.As(err, &argErr):
		return echo.NewHTTPError(http.StatusBadRequest, strings.TrimPrefix(argErr.Text, "Error: "))
	case errors.Is(err, sources.ErrMissingField), errors.Is(err, sources.ErrInvalidArgument):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, sources.ErrDuplicateSource):
		return echo.NewHTTPError(http.StatusConflict, "source already exists")
	case errors.Is(err, sources.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "source not found")
	case errors.Is(err, vault.ErrInvalidFilename):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, fs.ErrNotExist):
		return echo.NewHTTPError(http.StatusNotFound, "report not found")
	case errors.Is(err, briefing.ErrRunInProgress):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
