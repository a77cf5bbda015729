package main

import (
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// config is loaded once by the root command before any subcommand runs.
var config *Config

var (
	configPath string
	logFile    *os.File

	rootCmd = &cobra.Command{
		Use:   "tweet-classifier",
		Short: "Train, tune and serve an n-gram tweet classifier",
		Long: `tweet-classifier learns per-label n-gram probability tables from
labelled tweets, prunes and tunes them against a validation set, and
classifies new tweets from files or a RabbitMQ queue.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadRuntime,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logFile != nil {
				logFile.Close()
			}
		},
	}
)

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to YAML config file")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

// loadRuntime reads the config and installs the file logger.
func loadRuntime(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, f, err := setupLogger(cfg.LogDir)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}
	slog.SetDefault(logger)
	logFile = f
	config = cfg

	slog.Info("Configuration loaded", "command", cmd.Name(), "config", configPath)
	return nil
}

// setupLogger creates the log directory if needed and returns a slog.Logger that writes to a file.
func setupLogger(logDir string) (*slog.Logger, *os.File, error) {
	// No default! logDir must be set by config
	if logDir == "" {
		return nil, nil, fmt.Errorf("logDir must be set in config; refusing to use a default")
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, err
	}
	logPath := filepath.Join(logDir, "classifier.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(f, nil))
	return logger, f, nil
}

// percent renders a fraction as a percentage rounded up to two decimals.
func percent(fraction float64) float64 {
	return math.Ceil(fraction*10000) / 100
}
