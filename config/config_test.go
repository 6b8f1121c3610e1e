package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pevans/issuewatch/discovery"
	"github.com/pevans/issuewatch/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: write a config file and return its path
func createTestConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// TestLoad_Defaults verifies built-in values when nothing is configured
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, scraper.DefaultSiteConfig(), cfg.Site)
	assert.Equal(t, discovery.DefaultMidyearThreshold, cfg.MidyearThreshold)
	assert.Equal(t, StorageFile, cfg.StorageType)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "info", cfg.Logging.Level)
}

// TestLoad_FileOverridesDefaults verifies file values win over defaults and
// unset keys keep their defaults
func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := createTestConfigFile(t, `site:
  selectors:
    issue_details: "h2.details"
  timeouts:
    settle: 10s
planner:
  midyear_threshold: 9
storage:
  type: sqlite
browser:
  headless: false
logging:
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	defaults := scraper.DefaultSiteConfig()
	assert.Equal(t, defaults.ListingURL, cfg.Site.ListingURL)
	assert.Equal(t, "h2.details", cfg.Site.Selector(scraper.RoleIssueDetails))
	assert.Equal(t, defaults.Selector(scraper.RoleYearTab), cfg.Site.Selector(scraper.RoleYearTab))
	assert.Equal(t, 10*time.Second, cfg.Site.Timeouts.Settle)
	assert.Equal(t, defaults.Timeouts.Navigation, cfg.Site.Timeouts.Navigation)
	assert.Equal(t, 9, cfg.MidyearThreshold)
	assert.Equal(t, StorageSQLite, cfg.StorageType)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
}

// TestLoad_EnvOverridesFile verifies environment variables have the highest
// priority
func TestLoad_EnvOverridesFile(t *testing.T) {
	path := createTestConfigFile(t, `planner:
  midyear_threshold: 9
storage:
  type: sqlite
`)

	t.Setenv(EnvMidyearThreshold, "4")
	t.Setenv(EnvStorageType, "file")
	t.Setenv(EnvHeadless, "false")
	t.Setenv(EnvListingURL, "https://journal.example/issues")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.MidyearThreshold)
	assert.Equal(t, StorageFile, cfg.StorageType)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "https://journal.example/issues", cfg.Site.ListingURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

// TestLoad_InvalidEnv verifies malformed environment values are rejected
func TestLoad_InvalidEnv(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	t.Run("threshold", func(t *testing.T) {
		t.Setenv(EnvMidyearThreshold, "June")
		_, err := Load(missing)
		assert.ErrorContains(t, err, EnvMidyearThreshold)
	})

	t.Run("headless", func(t *testing.T) {
		t.Setenv(EnvHeadless, "maybe")
		_, err := Load(missing)
		assert.ErrorContains(t, err, EnvHeadless)
	})
}

// TestLoad_Invalid verifies validation of resolved values
func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{"threshold too large", "planner:\n  midyear_threshold: 13\n", "midyear threshold"},
		{"unknown storage", "storage:\n  type: postgres\n", "unknown storage type"},
		{"unknown log level", "logging:\n  level: loud\n", "unknown log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(createTestConfigFile(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

// TestLoad_InvalidFile verifies parse errors are surfaced
func TestLoad_InvalidFile(t *testing.T) {
	_, err := Load(createTestConfigFile(t, "site: [1, 2]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}
