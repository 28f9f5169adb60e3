package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yourusername/clever-edge/internal/service"
)

var (
	marketsFile string
	marketIDs   []string
	corpus      string
	jsonOutput  bool
)

func init() {
	runCmd.Flags().StringVar(&marketsFile, "markets-file", "", "JSON file listing the markets to evaluate")
	runCmd.Flags().StringSliceVar(&marketIDs, "market", nil, "Market id to evaluate (repeatable)")
	runCmd.Flags().StringVar(&corpus, "corpus", "", "Pattern corpus for markets given with --market")
	runCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the cycle report as JSON")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one analysis cycle and print the ranked recommendations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		path := marketsFile
		if path == "" && len(marketIDs) == 0 {
			path = cfg.Scheduler.MarketsFile
		}
		requests, err := loadMarketRequests(path, marketIDs, corpus)
		if err != nil {
			return err
		}

		app, err := newApplication(ctx, cfg, appLogger)
		if err != nil {
			return err
		}
		defer app.closeAndLog()

		report, err := app.pipeline.RunCycle(ctx, requests)
		if err != nil {
			return fmt.Errorf("cycle failed: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		printCycleReport(report)
		return nil
	},
}

func runCycleFunc(app *application, path string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		requests, err := loadMarketRequests(path, nil, "")
		if err != nil {
			return err
		}
		_, err = app.pipeline.RunCycle(ctx, requests)
		return err
	}
}

func printCycleReport(report *service.CycleReport) {
	fmt.Println("\n=== Analysis Cycle Report ===")
	fmt.Printf("Cycle ID: %s\n", report.CycleID)
	fmt.Printf("Strategy: %s\n", report.StrategyVersion)
	fmt.Printf("Status: %s\n", report.Status)
	for _, reason := range report.StatusReasons {
		fmt.Printf("  - %s\n", reason)
	}
	fmt.Printf("Decisions: %d\n", len(report.Decisions))
	fmt.Printf("Skipped: %d\n", len(report.Skipped))
	if report.Simulation != nil {
		fmt.Printf("Simulation: mean ROI %.4f, P(profit) %.2f, VaR95 %.4f, CVaR95 %.4f\n",
			report.Simulation.ROIMean, report.Simulation.ProfitProbability,
			report.Simulation.VaR95, report.Simulation.CVaR95)
	}

	fmt.Printf("\nRecommendations:\n")
	for _, rec := range report.Recommendations {
		fmt.Printf("  %d. %s [%s] stake %s (EV %.4f)\n",
			rec.Rank, rec.SelectionID, rec.Bucket, rec.Stake.StringFixed(2), rec.Decision.ExpectedValue)
	}
	for _, h := range report.Allocation.Hedges {
		fmt.Printf("  hedge %s / %s: %s (correlation %.2f)\n", h.First, h.Second, h.Amount.StringFixed(2), h.Correlation)
	}
	fmt.Printf("\nCompleted at: %s\n", report.CompletedAt)
}
