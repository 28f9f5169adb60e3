package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/clever-edge/internal/config"
	"github.com/yourusername/clever-edge/internal/database"
	"github.com/yourusername/clever-edge/internal/health"
	"github.com/yourusername/clever-edge/internal/logger"
	"github.com/yourusername/clever-edge/internal/patterns"
	"github.com/yourusername/clever-edge/internal/provider"
	"github.com/yourusername/clever-edge/internal/reporting"
	"github.com/yourusername/clever-edge/internal/repository"
	"github.com/yourusername/clever-edge/internal/service"
)

// application owns every long-lived dependency of one command invocation
type application struct {
	cfg      *config.Config
	strategy config.StrategyConfig
	logger   *logrus.Logger

	client   *provider.RateLimitedHTTPClient
	source   *provider.HTTPProvider
	db       *database.DB
	sink     *repository.PostgresSink
	redis    *reporting.RedisSink
	closers  []io.Closer
	pipeline *service.Pipeline
}

func newApplication(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*application, error) {
	strategy, err := cfg.Strategy()
	if err != nil {
		return nil, err
	}

	audit := logger.NewAuditLogger(log)
	app := &application{cfg: cfg, strategy: strategy, logger: log}

	app.client = provider.NewRateLimitedHTTPClient(provider.HTTPClientConfigFrom(cfg.Providers), log, audit)
	app.closers = append(app.closers, app.client)
	app.source = provider.NewHTTPProvider(app.client, cfg.Providers.BaseURL, cfg.Providers.APIKey, log)

	deps := service.Dependencies{
		Markets:  app.source,
		Context:  app.source,
		History:  app.source,
		Outcomes: app.source,
	}

	if cfg.Database.Enabled {
		app.db, err = database.Initialize(ctx, cfg)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		app.sink = repository.NewPostgresSink(app.db.GetPool())
		deps.Persistence = app.sink
		log.Info("Database connection established")
	}

	sinks, err := app.reportingSinks()
	if err != nil {
		app.Close()
		return nil, err
	}
	if sinks.Len() > 0 {
		deps.Reporting = sinks
	}

	cache := patterns.NewCache(time.Duration(strategy.Discovery.CacheTTLMinutes) * time.Minute)
	app.pipeline, err = service.NewPipeline(strategy, deps, cache, cfg.App.Workers, log)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	app.warmPatternCache(ctx, cache)
	audit.LogStrategyActivated(strategy.Version, strategy.Weights)
	return app, nil
}

func (a *application) reportingSinks() (*reporting.MultiSink, error) {
	var named []reporting.NamedSink
	if a.cfg.Redis.Enabled {
		a.redis = reporting.NewRedisSink(a.cfg.Redis, a.logger)
		a.closers = append(a.closers, a.redis)
		named = append(named, reporting.NamedSink{Name: "redis", Sink: a.redis})
	}
	if a.cfg.Kafka.Enabled {
		kafkaSink, err := reporting.NewKafkaSink(a.cfg.Kafka, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka sink: %w", err)
		}
		a.closers = append(a.closers, kafkaSink)
		named = append(named, reporting.NamedSink{Name: "kafka", Sink: kafkaSink})
	}
	return reporting.NewMultiSink(named...), nil
}

// warmPatternCache restores the last persisted pattern set of every configured corpus
func (a *application) warmPatternCache(ctx context.Context, cache *patterns.Cache) {
	if a.sink == nil {
		return
	}
	for _, corpus := range a.cfg.Scheduler.Corpora {
		set, ok, err := a.sink.LatestPatternSet(ctx, corpus)
		if err != nil {
			a.logger.WithError(err).WithField("corpus", corpus).Warn("Failed to restore pattern set")
			continue
		}
		if !ok {
			continue
		}
		cache.Replace(set)
		a.logger.WithFields(logrus.Fields{
			"corpus":   corpus,
			"version":  set.Version,
			"patterns": len(set.Patterns),
		}).Info("Restored pattern set")
	}
}

// healthChecks lists the readiness probes of the configured backends
func (a *application) healthChecks() map[string]health.Pinger {
	checks := map[string]health.Pinger{
		"providers": health.PingFunc(func(ctx context.Context) error {
			if a.client.IsOpen() {
				return provider.ErrCircuitOpen
			}
			return nil
		}),
	}
	if a.db != nil {
		checks["database"] = health.PingFunc(a.db.HealthCheck)
	}
	if a.redis != nil {
		checks["redis"] = health.PingFunc(a.redis.Ping)
	}
	return checks
}

// closeAndLog closes the application from a defer, logging what Close collected
func (a *application) closeAndLog() {
	if err := a.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close backends cleanly")
	}
}

// Close releases every backend; close errors are joined
func (a *application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	return errors.Join(errs...)
}
