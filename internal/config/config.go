package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default Scryfall endpoints, overridable for testing.
const (
	defaultRandomCardURL = "https://api.scryfall.com/cards/random"
	defaultSearchURL     = "https://api.scryfall.com/cards/search"
)

// TwitterConfig holds the OAuth 1.0a credentials for the contest account.
type TwitterConfig struct {
	ConsumerKey       string `yaml:"consumer_key"`
	ConsumerSecret    string `yaml:"consumer_secret"`
	AccessTokenKey    string `yaml:"access_token_key"`
	AccessTokenSecret string `yaml:"access_token_secret"`
	APIBaseURL        string `yaml:"api_base_url,omitempty"` // Override for testing
}

// ScryfallConfig holds the card database endpoints.
type ScryfallConfig struct {
	RandomCardURL string `yaml:"random_card_url,omitempty"`
	SearchURL     string `yaml:"search_url,omitempty"`
}

// Config represents the top-level cardgolf.yml configuration.
type Config struct {
	LoggingDir    string         `yaml:"logging_dir"`
	TempCardDir   string         `yaml:"temp_card_dir"`
	TweetDatabase string         `yaml:"tweet_database"` // JSON round store path
	WinningDir    string         `yaml:"winning_dir"`    // Per-round results files
	Scryfall      ScryfallConfig `yaml:"scryfall,omitempty"`
	Twitter       TwitterConfig  `yaml:"twitter"`
}

// Validate performs strict validation on the configuration.
// Missing Twitter credentials are a startup-fatal configuration error;
// missing directories are created on demand by EnsureDirs.
func (c *Config) Validate() error {
	if c.TweetDatabase == "" {
		return fmt.Errorf("tweet_database is required")
	}
	if c.WinningDir == "" {
		return fmt.Errorf("winning_dir is required")
	}
	if c.TempCardDir == "" {
		return fmt.Errorf("temp_card_dir is required")
	}
	if c.LoggingDir == "" {
		return fmt.Errorf("logging_dir is required")
	}

	if c.Twitter.ConsumerKey == "" || c.Twitter.ConsumerSecret == "" {
		return fmt.Errorf("twitter: consumer_key and consumer_secret are required")
	}
	if c.Twitter.AccessTokenKey == "" || c.Twitter.AccessTokenSecret == "" {
		return fmt.Errorf("twitter: access_token_key and access_token_secret are required")
	}

	// Apply endpoint defaults
	if c.Scryfall.RandomCardURL == "" {
		c.Scryfall.RandomCardURL = defaultRandomCardURL
	}
	if c.Scryfall.SearchURL == "" {
		c.Scryfall.SearchURL = defaultSearchURL
	}

	return nil
}

// EnsureDirs creates the working directories if they do not exist yet.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.LoggingDir, c.TempCardDir, c.WinningDir, filepath.Dir(c.TweetDatabase)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Load reads and validates cardgolf.yml from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
