package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pevans/issuewatch/config"
	"github.com/pevans/issuewatch/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	version = "dev"

	// Global flags
	configFile string
	logLevel   string
	logFormat  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "issuewatch",
	Short: "Track newly published issues of a periodical",
	Long: `issuewatch visits a periodical's issue listing, extracts every issue in the
years that may have changed since the last run, and merges them into a
record file. Issues that were not known before are reported as new.

Configuration is read from ~/.issuewatch/config.yaml (or --config), then
ISSUEWATCH_* environment variables, then flags.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadDotEnv()
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.issuewatch/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig resolves the configuration and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	return cfg, nil
}

func newLogger(cfg *config.Config) (zerolog.Logger, error) {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("failed to initialize logging: %w", err)
	}
	return logger, nil
}
