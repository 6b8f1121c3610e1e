package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pevans/issuewatch/logging"
	"github.com/pevans/issuewatch/scraper"
	"gopkg.in/yaml.v3"
)

// PlannerConfig represents discovery planning settings from config file.
type PlannerConfig struct {
	MidyearThreshold int `yaml:"midyear_threshold"`
}

// StorageConfig represents storage configuration from config file.
type StorageConfig struct {
	// Type is "file" (JSON array) or "sqlite".
	Type string `yaml:"type"`
}

// BrowserConfig represents headless browser configuration from config file.
type BrowserConfig struct {
	// Headless is a pointer so that an explicit false can be told apart from
	// an absent key.
	Headless  *bool  `yaml:"headless"`
	Bin       string `yaml:"bin"`
	UserAgent string `yaml:"user_agent"`
}

// FileConfig represents the structure of ~/.issuewatch/config.yaml.
type FileConfig struct {
	Site    *scraper.SiteConfig `yaml:"site"`
	Planner PlannerConfig       `yaml:"planner"`
	Storage StorageConfig       `yaml:"storage"`
	Browser BrowserConfig       `yaml:"browser"`
	Logging logging.Config      `yaml:"logging"`
}

// ConfigFilePath returns the default config file location,
// ~/.issuewatch/config.yaml.
func ConfigFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".issuewatch", "config.yaml"), nil
}

// LoadConfigFile loads configuration from path, or from ConfigFilePath when
// path is empty. Returns nil if the file doesn't exist (not an error).
// Returns error if the file exists but cannot be parsed.
func LoadConfigFile(path string) (*FileConfig, error) {
	if path == "" {
		var err error
		path, err = ConfigFilePath()
		if err != nil {
			return nil, err
		}
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil // File doesn't exist -- not an error
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}
