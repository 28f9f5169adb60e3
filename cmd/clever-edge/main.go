// Package main provides the clever-edge command line entry point.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/clever-edge/internal/config"
	"github.com/yourusername/clever-edge/internal/logger"
	"github.com/yourusername/clever-edge/internal/metrics"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	logLevel   string
	appLogger  *logrus.Logger
	cfg        *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(runCmd, discoverCmd, walkForwardCmd, serveCmd, versionCmd)
}

var rootCmd = &cobra.Command{
	Use:   "clever-edge",
	Short: "Risk-adjusted betting recommendation engine",
	Long: `Normalizes market quotes, estimates probabilities from weighted factors and
discovered patterns, sizes stakes with adaptive Kelly, allocates them across risk
buckets and validates the batch with Monte Carlo simulation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		if err := loadConfig(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		setupLogging()
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("clever-edge %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig(ctx context.Context) error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}

	// Load AWS secrets if enabled
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if ctx == nil {
			ctx = context.Background()
		}
		if err := config.LoadSecretsFromAWS(ctx, cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if logLevel != "" {
		cfg.App.LogLevel = logLevel
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func setupLogging() {
	appLogger = logger.NewLogger(cfg.App.LogLevel)
	metrics.InitRegistry()

	appLogger.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"strategy":    cfg.ActiveStrategy,
		"version":     Version,
	}).Debug("Configuration loaded")
}
