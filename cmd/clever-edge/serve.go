package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/clever-edge/internal/health"
	"github.com/yourusername/clever-edge/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve health and metrics while re-discovering patterns and running cycles on schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := newApplication(ctx, cfg, appLogger)
		if err != nil {
			return err
		}
		defer app.closeAndLog()

		sched := scheduler.NewScheduler(app.pipeline, appLogger)
		timeout := time.Duration(cfg.Scheduler.TimeoutMinutes) * time.Minute
		if cfg.Scheduler.RediscoveryCron != "" && len(cfg.Scheduler.Corpora) > 0 {
			if err := sched.ScheduleRediscovery(cfg.Scheduler.RediscoveryCron, cfg.Scheduler.Corpora, timeout); err != nil {
				return fmt.Errorf("failed to schedule re-discovery: %w", err)
			}
		}
		if cfg.Scheduler.CycleCron != "" {
			if cfg.Scheduler.MarketsFile == "" {
				return fmt.Errorf("scheduler.cycle_cron requires scheduler.markets_file")
			}
			if err := sched.ScheduleCycle(cfg.Scheduler.CycleCron, runCycleFunc(app, cfg.Scheduler.MarketsFile), timeout); err != nil {
				return fmt.Errorf("failed to schedule cycles: %w", err)
			}
		}

		healthServer := health.NewServer(health.Config{
			ServiceName: cfg.App.Name,
			Version:     Version,
			Commit:      GitCommit,
			Port:        strconv.Itoa(cfg.Metrics.Port),
			MetricsPath: cfg.Metrics.Path,
			Logger:      appLogger,
			Checks:      app.healthChecks(),
			Status: func() map[string]any {
				hits, misses, ratio := app.pipeline.Cache().Stats()
				details := map[string]any{
					"strategy":           app.strategy.Version,
					"pattern_cache_hits": hits,
					"pattern_cache_miss": misses,
					"pattern_cache_rate": ratio,
				}
				if next := sched.GetNextRun(); !next.IsZero() {
					details["next_run"] = next.Format(time.RFC3339)
				}
				return details
			},
		})
		if cfg.Metrics.Enabled {
			if err := healthServer.Start(ctx); err != nil {
				return fmt.Errorf("failed to start health server: %w", err)
			}
		}

		if len(sched.Entries()) > 0 {
			if err := sched.Start(); err != nil {
				return err
			}
			defer func() {
				if err := sched.Stop(); err != nil {
					appLogger.WithError(err).Warn("Scheduler did not stop cleanly")
				}
			}()
		} else {
			appLogger.Warn("No scheduled jobs configured; serving health endpoints only")
		}

		healthServer.SetReady(true)
		appLogger.WithFields(logrus.Fields{
			"strategy": app.strategy.Version,
			"jobs":     len(sched.Entries()),
		}).Info("Clever Edge serving")

		<-ctx.Done()
		healthServer.SetReady(false)
		appLogger.Info("Shutting down")
		return nil
	},
}
