// Package config resolves run settings with precedence: environment
// variables, then the config file, then built-in defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pevans/issuewatch/browser"
	"github.com/pevans/issuewatch/discovery"
	"github.com/pevans/issuewatch/logging"
	"github.com/pevans/issuewatch/scraper"
)

// Storage types.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// Environment variables read by Load.
const (
	EnvListingURL       = "ISSUEWATCH_LISTING_URL"
	EnvMidyearThreshold = "ISSUEWATCH_MIDYEAR_THRESHOLD"
	EnvStorageType      = "ISSUEWATCH_STORAGE_TYPE"
	EnvHeadless         = "ISSUEWATCH_HEADLESS"
	EnvBrowserBin       = "ISSUEWATCH_BROWSER_BIN"
	EnvUserAgent        = "ISSUEWATCH_USER_AGENT"
	EnvLogLevel         = "ISSUEWATCH_LOG_LEVEL"
	EnvLogFormat        = "ISSUEWATCH_LOG_FORMAT"
)

// Config is the resolved configuration of a run.
type Config struct {
	Site             *scraper.SiteConfig
	MidyearThreshold int
	StorageType      string
	Browser          browser.LaunchConfig
	Logging          logging.Config
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Site:             scraper.DefaultSiteConfig(),
		MidyearThreshold: discovery.DefaultMidyearThreshold,
		StorageType:      StorageFile,
		Browser:          browser.DefaultLaunchConfig(),
		Logging: logging.Config{
			Level:  "info",
			Format: logging.FormatConsole,
		},
	}
}

// Load resolves the configuration from path (or the default config file
// location when empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	file, err := LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyFile(file)

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyFile(file *FileConfig) {
	if file == nil {
		return
	}

	c.Site = c.Site.Merge(file.Site)
	if file.Planner.MidyearThreshold != 0 {
		c.MidyearThreshold = file.Planner.MidyearThreshold
	}
	if file.Storage.Type != "" {
		c.StorageType = file.Storage.Type
	}
	if file.Browser.Headless != nil {
		c.Browser.Headless = *file.Browser.Headless
	}
	if file.Browser.Bin != "" {
		c.Browser.Bin = file.Browser.Bin
	}
	if file.Browser.UserAgent != "" {
		c.Browser.UserAgent = file.Browser.UserAgent
	}
	if file.Logging.Level != "" {
		c.Logging.Level = file.Logging.Level
	}
	if file.Logging.Format != "" {
		c.Logging.Format = file.Logging.Format
	}
	if file.Logging.File != "" {
		c.Logging.File = file.Logging.File
	}
}

func (c *Config) applyEnv() error {
	c.Site.ListingURL = getEnv(EnvListingURL, c.Site.ListingURL)
	c.StorageType = getEnv(EnvStorageType, c.StorageType)
	c.Browser.Bin = getEnv(EnvBrowserBin, c.Browser.Bin)
	c.Browser.UserAgent = getEnv(EnvUserAgent, c.Browser.UserAgent)
	c.Logging.Level = getEnv(EnvLogLevel, c.Logging.Level)
	c.Logging.Format = getEnv(EnvLogFormat, c.Logging.Format)

	if val := os.Getenv(EnvMidyearThreshold); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMidyearThreshold, err)
		}
		c.MidyearThreshold = n
	}
	if val := os.Getenv(EnvHeadless); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		c.Browser.Headless = b
	}

	return nil
}

// Validate checks that the resolved settings are usable.
func (c *Config) Validate() error {
	if err := c.Site.Validate(); err != nil {
		return fmt.Errorf("invalid site config: %w", err)
	}
	if c.MidyearThreshold < 1 || c.MidyearThreshold > 12 {
		return fmt.Errorf("midyear threshold must be between 1 and 12, got %d", c.MidyearThreshold)
	}
	switch strings.ToLower(c.StorageType) {
	case StorageFile, StorageSQLite:
	default:
		return fmt.Errorf("unknown storage type: %s", c.StorageType)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
