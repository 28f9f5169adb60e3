package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var discoverCorpora []string

func init() {
	discoverCmd.Flags().StringSliceVar(&discoverCorpora, "corpus", nil, "Corpus to rediscover (defaults to scheduler.corpora)")
	walkForwardCmd.Flags().StringVar(&corpus, "corpus", "", "Corpus to validate")
	_ = walkForwardCmd.MarkFlagRequired("corpus")
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Rebuild the pattern sets of the given corpora",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		corpora := discoverCorpora
		if len(corpora) == 0 {
			corpora = cfg.Scheduler.Corpora
		}
		if len(corpora) == 0 {
			return fmt.Errorf("no corpora given: use --corpus or scheduler.corpora")
		}

		app, err := newApplication(ctx, cfg, appLogger)
		if err != nil {
			return err
		}
		defer app.closeAndLog()

		reports, err := app.pipeline.RediscoverFromProvider(ctx, corpora)
		if err != nil {
			return err
		}

		fmt.Println("\n=== Pattern Discovery Report ===")
		for _, r := range reports {
			if r.Error != "" {
				fmt.Printf("  %s: failed (%s), keeping version %d\n", r.Corpus, r.Error, app.pipeline.Cache().NextVersion(r.Corpus)-1)
				continue
			}
			fmt.Printf("  %s: version %d, %d patterns from %d records (replaced: %v)\n",
				r.Corpus, r.Version, r.Patterns, r.Records, r.Replaced)
		}
		return nil
	},
}

var walkForwardCmd = &cobra.Command{
	Use:   "walk-forward",
	Short: "Validate pattern-based estimates on rolling train/test windows",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := newApplication(ctx, cfg, appLogger)
		if err != nil {
			return err
		}
		defer app.closeAndLog()

		records, err := app.source.GetOutcomeRecords(ctx, corpus)
		if err != nil {
			return fmt.Errorf("failed to load records for %s: %w", corpus, err)
		}

		result, status, reasons, err := app.pipeline.WalkForward(ctx, corpus, records)
		if err != nil {
			return err
		}

		fmt.Println("\n=== Walk-Forward Report ===")
		fmt.Printf("Corpus: %s (%d records)\n", corpus, len(records))
		for _, w := range result.Windows {
			fmt.Printf("  window %d: train acc %.3f roi %.3f | test acc %.3f roi %.3f (%d bets)\n",
				w.Index, w.TrainAccuracy, w.TrainROI, w.TestAccuracy, w.TestROI, w.TestBets)
		}
		fmt.Printf("Overfit: %.3f  Consistency: %.3f  Stability: %.3f\n",
			result.OverfitScore, result.ConsistencyScore, result.StabilityScore)
		fmt.Printf("Status: %s\n", status)
		for _, reason := range reasons {
			fmt.Printf("  - %s\n", reason)
		}
		return nil
	},
}
