package cmd

import (
	"fmt"
	"os"

	"log/slog"

	"github.com/arthspark/etl/config"
	"github.com/arthspark/etl/logger"
	"github.com/arthspark/etl/pipeline"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "etl",
	Short: "Batch ETL for FRED economic time series",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newBackfillCmd())
	rootCmd.AddCommand(newMetadataCmd())
}

func isRunningOnGitHubActions() bool {
	return os.Getenv("GITHUB_ACTIONS") == "true"
}

func initializeConfigAndLogger() (*config.Config, *slog.Logger, error) {
	log := logger.NewLogger()
	if !isRunningOnGitHubActions() {
		err := godotenv.Load()
		if err != nil {
			log.Error("Error loading .env file")
			return nil, nil, err
		}
	}

	baseConfigFile, err := os.Open("config.base.yaml")
	if err != nil {
		return nil, nil, fmt.Errorf("error opening base config file: %w", err)
	}
	defer baseConfigFile.Close()

	env := os.Getenv("APP_ENV")

	// The environment overlay is optional; without it the base config runs as is.
	var envConfigFile *os.File
	if env != "" {
		envConfigFile, err = os.Open(fmt.Sprintf("config.%s.yaml", env))
		if err != nil && !os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("error opening env config file: %w", err)
		}
		if envConfigFile != nil {
			defer envConfigFile.Close()
		}
	}

	var cfg *config.Config
	if envConfigFile != nil {
		cfg, err = config.NewConfig(baseConfigFile, envConfigFile, env)
	} else {
		cfg, err = config.NewConfig(baseConfigFile, nil, env)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("error reading config: %w", err)
	}

	return cfg, log, nil
}

func logSummary(log *slog.Logger, summary *pipeline.Summary) {
	log.Info("Run summary",
		"series_total", len(summary.Results),
		"series_succeeded", summary.Succeeded(),
		"series_failed", summary.Failed(),
		"rows_inserted", summary.Inserted(),
		"rows_updated", summary.Updated(),
		"rows_discarded", summary.Discarded())
}
