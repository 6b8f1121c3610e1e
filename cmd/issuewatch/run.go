package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pevans/issuewatch/browser"
	"github.com/pevans/issuewatch/config"
	"github.com/pevans/issuewatch/discovery"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Run command flags
	storageType      string
	headless         bool
	currentYear      int
	midyearThreshold int
	githubOutput     string
)

// launchBrowser starts the browser for a run. Tests replace it with a
// fixture.
var launchBrowser = func(ctx context.Context, cfg browser.LaunchConfig, logger zerolog.Logger) (browser.Session, error) {
	return browser.Launch(ctx, cfg, logger)
}

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <records-path>",
	Short: "Discover new issues and update the records",
	Long: `Discover new issues and merge them into the records at <records-path>.

On the first run (missing or empty records) every year offered by the
listing page is visited. Later runs revisit the year of the latest known
issue, and also the current year once that issue is past midyear.

When $GITHUB_OUTPUT (or --github-output) names a file, new_issues_count,
has_new_issues and new_issues are appended to it.`,
	Example: `  # Update the JSON records file
  issuewatch run data/previous_issues.json

  # Use an SQLite database and show the browser window
  issuewatch run issues.db --storage-type sqlite --headless=false`,
	Args: cobra.ExactArgs(1),
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&storageType, "storage-type", "", "record storage: file or sqlite (default from config)")
	runCmd.Flags().BoolVar(&headless, "headless", true, "run the browser without a window")
	runCmd.Flags().IntVar(&currentYear, "current-year", 0, "calendar year used for planning (default is the clock's year)")
	runCmd.Flags().IntVar(&midyearThreshold, "midyear-threshold", 0, "month from which the following year is also visited (default from config)")
	runCmd.Flags().StringVar(&githubOutput, "github-output", "", "file receiving step outputs (default is $GITHUB_OUTPUT)")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, cfg); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	// Fail before launching the browser if the results could not be saved
	backend, closeBackend, err := openBackend(cfg.StorageType, args[0])
	if err != nil {
		return err
	}
	defer func() {
		if err := closeBackend(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close issues backend")
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	launchCfg := cfg.Browser
	launchCfg.NavigationTimeout = cfg.Site.Timeouts.Navigation
	launch := func(ctx context.Context) (browser.Session, error) {
		return launchBrowser(ctx, launchCfg, logger)
	}

	svc := discovery.NewService(launch, backend, &discovery.Config{
		Site:             cfg.Site,
		MidyearThreshold: cfg.MidyearThreshold,
		Now:              clock(),
	}, logger)

	result, err := svc.Run(ctx)
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), result)

	outputPath := githubOutput
	if outputPath == "" {
		outputPath = os.Getenv("GITHUB_OUTPUT")
	}
	if outputPath != "" {
		if err := appendGitHubOutput(outputPath, result.Inserted); err != nil {
			return err
		}
	}

	return nil
}

// applyRunFlags overlays explicitly set run flags onto cfg.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("storage-type") {
		cfg.StorageType = storageType
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless = headless
	}
	if flags.Changed("midyear-threshold") {
		cfg.MidyearThreshold = midyearThreshold
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

func clock() func() time.Time {
	if currentYear <= 0 {
		return time.Now
	}
	year := currentYear
	return func() time.Time {
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
}
