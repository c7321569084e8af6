package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/issuesync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/issuesync/internal/adapters/driven/index/typesense"
	"github.com/custodia-labs/issuesync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/issuesync/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/issuesync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/issuesync/internal/adapters/driving/cli"
	"github.com/custodia-labs/issuesync/internal/connectors/github"
	"github.com/custodia-labs/issuesync/internal/core/domain"
	"github.com/custodia-labs/issuesync/internal/core/ports/driven"
	"github.com/custodia-labs/issuesync/internal/core/services"
	"github.com/custodia-labs/issuesync/internal/logger"
	ghnorm "github.com/custodia-labs/issuesync/internal/normalisers/github"
)

// bootstrap loads the configuration and wires the services. The GitHub and
// index clients are created once and shared by every repository run.
func bootstrap(ctx context.Context, opts cli.Options, otel bool, serviceName string) (*cli.Services, error) {
	cfg, err := file.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Setup(logger.Options{
		Verbose:     opts.Verbose,
		Format:      logger.Format(cfg.Log.Format),
		OTel:        otel,
		ServiceName: serviceName,
	})

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	source, installation, err := newSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	wmStore, schedStore, closeStore, err := newStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	closers = append(closers, closeStore)

	index, err := newIndex(cfg)
	if err != nil {
		return nil, errors.Join(err, closeAll())
	}

	repos := cfg.Repos()
	syncOrch := services.NewSyncOrchestrator(
		services.SyncConfig{
			Mode:         cfg.Mode,
			Concurrency:  cfg.Concurrency,
			Repositories: repos,
			Directory:    source,
		},
		source,
		wmStore,
		index,
		ghnorm.NewIssue(),
		services.NewEnricher(source, cfg.EnrichWorkers),
	)
	reconciler := services.NewReconciler(services.ReconcilerConfig{
		StaleAfter:        cfg.StaleAfter(),
		BatchSize:         cfg.ReconcileBatch,
		RelocatedStatuses: cfg.RelocatedStatuses,
	}, source, index)

	slog.DebugContext(ctx, "services ready",
		"mode", cfg.Mode,
		"repositories", len(repos),
		"store", cfg.Store.Driver,
		"index", cfg.Index.Driver,
		"installation", installation,
	)

	return &cli.Services{
		Sync:       syncOrch,
		Reconciler: reconciler,
		Watermarks: services.NewWatermarkService(wmStore),
		Repos:      services.NewRepositoryService(source),
		Scheduler:  services.NewScheduler(cfg.SchedulerConfig(), schedStore, syncOrch, reconciler),
		Configured: repos,
		Close:      closeAll,
	}, nil
}

// newSource builds the authenticated GitHub connector.
func newSource(ctx context.Context, cfg *file.Config) (*github.Connector, bool, error) {
	auth, err := cfg.Auth()
	if err != nil {
		return nil, false, err
	}
	ghCfg := github.Config{
		BaseURL:           cfg.GitHub.BaseURL,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Timeout:           cfg.GitHubTimeout(),
	}
	httpClient, err := github.NewHTTPClient(ctx, auth, ghCfg)
	if err != nil {
		return nil, false, err
	}
	client, err := github.NewClient(httpClient, ghCfg)
	if err != nil {
		return nil, false, err
	}
	_, installation := auth.(domain.AppAuth)
	return github.New(client, installation), installation, nil
}

// newStores opens the watermark store and the scheduler store. Redis and
// memory watermarks keep scheduler state in memory.
func newStores(ctx context.Context, cfg *file.Config) (driven.WatermarkStore, driven.SchedulerStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Driver {
	case file.DriverSQLite:
		store, err := sqlite.NewStore(cfg.Store.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return store.WatermarkStore(), store.SchedulerStore(), store.Close, nil

	case file.DriverRedis:
		redisOpts, err := goredis.ParseURL(cfg.Store.RedisURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%w: redis_url: %w", domain.ErrInvalidConfig, err)
		}
		client := goredis.NewClient(redisOpts)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, nil, errors.Join(fmt.Errorf("connect redis: %w", err), client.Close())
		}
		return redis.NewWatermarkStore(client, cfg.Store.RedisPrefix), memory.NewSchedulerStore(), client.Close, nil

	case file.DriverMemory:
		return memory.NewWatermarkStore(), memory.NewSchedulerStore(), noop, nil
	}
	return nil, nil, nil, fmt.Errorf("%w: unknown store driver %q", domain.ErrInvalidConfig, cfg.Store.Driver)
}

// newIndex builds the document index.
func newIndex(cfg *file.Config) (driven.DocumentIndex, error) {
	switch cfg.Index.Driver {
	case file.DriverTypesense:
		return typesense.New(typesense.Config{
			URL:        cfg.Index.URL,
			APIKey:     cfg.Secrets.TypesenseAPIKey,
			Collection: cfg.Index.Collection,
			Timeout:    cfg.IndexTimeout(),
		})
	case file.DriverMemory:
		return memory.NewDocumentIndex(), nil
	}
	return nil, fmt.Errorf("%w: unknown index driver %q", domain.ErrInvalidConfig, cfg.Index.Driver)
}
