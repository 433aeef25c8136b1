package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vinodismyname/salesdash/config"
	"github.com/vinodismyname/salesdash/internal/dashboard"
	"github.com/vinodismyname/salesdash/internal/dataset"
	"github.com/vinodismyname/salesdash/internal/loader"
	"github.com/vinodismyname/salesdash/internal/runtime"
	"github.com/vinodismyname/salesdash/internal/security"
	"github.com/vinodismyname/salesdash/internal/telemetry"
)

// app holds the components shared by every command.
type app struct {
	cfg        *config.Config
	logger     zerolog.Logger
	limits     runtime.Limits
	controller *runtime.Controller
	guard      *runtime.Middleware
	metrics    *telemetry.Metrics
	loader     *loader.Loader
	service    *dashboard.Service
}

func newApp(cfg *config.Config, logger zerolog.Logger) (*app, error) {
	sec, err := security.NewManager(cfg.Loader.AllowedDirs, nil)
	if err != nil {
		return nil, fmt.Errorf("security: %w", err)
	}
	if err := sec.ValidateConfig(); err != nil {
		logger.Info().Msg("no allowed directories configured; local file sources are disabled")
	} else {
		logger.Info().Strs("allowed_dirs", sec.AllowedDirectories()).Msg("security allow-list configured")
	}

	limits := runtime.FromConfig(cfg.Limits)
	controller := runtime.NewController(limits)
	metrics := telemetry.NewMetrics()
	schema := schemaFrom(cfg.Schema)

	cache := loader.NewCache(cfg.Loader.CacheTTL, cfg.Loader.CleanupEvery, nil)
	cache.Start()
	ld := loader.New(loader.Options{
		Cache:     cache,
		Fetcher:   loader.NewFetcher(loader.NewHTTPClient(cfg.Loader.FetchTimeout), cfg.Loader.MaxBytes),
		Validator: sec,
		Gate:      controller,
		Observer:  metrics,
		Schema:    schema,
		MaxBytes:  cfg.Loader.MaxBytes,
	})

	svc := dashboard.New(dashboard.Options{
		Loader:      ld,
		Schema:      schema,
		Source:      cfg.Source,
		Title:       cfg.Title,
		Subtitle:    cfg.Subtitle,
		PreviewRows: cfg.PreviewRows,
		Observer:    metrics,
	})

	logger.Info().
		Str("source", cfg.Source).
		Int("max_concurrent_requests", limits.MaxConcurrentRequests).
		Int("max_concurrent_loads", limits.MaxConcurrentLoads).
		Dur("cache_ttl", cfg.Loader.CacheTTL).
		Msg("application configured")

	return &app{
		cfg:        cfg,
		logger:     logger,
		limits:     limits,
		controller: controller,
		guard:      runtime.NewMiddleware(controller),
		metrics:    metrics,
		loader:     ld,
		service:    svc,
	}, nil
}

// close stops the cache janitor.
func (a *app) close(ctx context.Context) error {
	return a.loader.Cache().Close(ctx)
}

func schemaFrom(c config.Schema) dataset.Schema {
	return dataset.Schema{Measure: c.Measure, Country: c.Country, Segment: c.Segment, Date: c.Date}
}
