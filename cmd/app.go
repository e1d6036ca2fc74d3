package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohammad-safakhou/briefer/config"
	"github.com/mohammad-safakhou/briefer/internal/agent"
	"github.com/mohammad-safakhou/briefer/internal/briefing"
	"github.com/mohammad-safakhou/briefer/internal/logging"
	"github.com/mohammad-safakhou/briefer/internal/shell"
	"github.com/mohammad-safakhou/briefer/internal/sources"
	"github.com/mohammad-safakhou/briefer/internal/telemetry"
	"github.com/mohammad-safakhou/briefer/internal/vault"
	"github.com/mohammad-safakhou/briefer/provider"
	"github.com/mohammad-safakhou/briefer/tools"
	"github.com/mohammad-safakhou/briefer/tools/web_fetch"
	"go.uber.org/zap"
)

// base is what every command needs: settings, logger, registry and vault.
type base struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *sources.Registry
	vault    *vault.Writer
}

func loadBase(ctx context.Context, cfgPath string, logOutputs ...string) (*base, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log, logOutputs...)
	if err != nil {
		return nil, err
	}
	store, err := sources.NewStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	return &base{
		cfg:      cfg,
		logger:   logger,
		registry: sources.NewRegistry(store, logger.Named("sources")),
		vault:    vault.New(cfg.ObsidianPath),
	}, nil
}

// app adds the briefing pipeline: fetcher, tool catalog, model factory,
// metrics and tracing.
type app struct {
	*base
	briefing *briefing.Service
	metrics  *telemetry.Metrics
	tracing  *telemetry.Tracing
}

func newApp(ctx context.Context, cfgPath string, logOutputs ...string) (*app, error) {
	b, err := loadBase(ctx, cfgPath, logOutputs...)
	if err != nil {
		return nil, err
	}
	cfg := b.cfg

	tracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry, version)
	if err != nil {
		return nil, err
	}

	fetcher, err := web_fetch.NewWebFetcher(web_fetch.FetcherType(cfg.Fetch.Renderer), web_fetch.Options{
		Timeout:   cfg.Fetch.Timeout,
		MaxChars:  cfg.Fetch.MaxChars,
		UserAgent: cfg.Fetch.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	dispatcher, err := tools.NewDispatcher(tools.Deps{
		Fetcher:    fetcher,
		Registry:   b.registry,
		Vault:      b.vault,
		Shell:      &shell.Executor{},
		AllowShell: cfg.Agent.AllowShell,
		Timeout:    cfg.Agent.ToolTimeout,
		Logger:     b.logger.Named("tools"),
	})
	if err != nil {
		return nil, err
	}

	// Settings are re-read per run so edits from the terminal menu apply.
	models := provider.Factory(func() (*config.Config, error) {
		return config.LoadConfig(cfg.Path)
	})
	svc, err := briefing.NewService(briefing.Options{
		Models:   models,
		Tools:    dispatcher,
		MaxTurns: cfg.Agent.MaxTurns,
		Logger:   b.logger.Named("briefing"),
	})
	if err != nil {
		return nil, err
	}

	return &app{base: b, briefing: svc, metrics: telemetry.Default(), tracing: tracing}, nil
}

// Run executes one briefing with a fresh metrics listener.
func (a *app) Run(ctx context.Context, extra ...agent.Listener) (briefing.Result, error) {
	return a.briefing.Run(ctx, append(extra, a.metrics.Listener())...)
}

func (a *app) Close(ctx context.Context) error {
	var errs []error
	if err := a.tracing.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	_ = a.logger.Sync()
	return errors.Join(errs...)
}

func describeRunError(err error) string {
	var runErr *agent.RunError
	if errors.As(err, &runErr) {
		return fmt.Sprintf("briefing failed at turn %d: %v", runErr.Turn, runErr.Err)
	}
	return err.Error()
}
