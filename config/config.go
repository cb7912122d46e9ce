package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// AppName names the config directory under $XDG_CONFIG_HOME.
const AppName = "collection-scraper"

// Output channel names accepted for the primary delivery channel.
const (
	OutputClipboard = "clipboard"
	OutputStdout    = "stdout"
)

// Config holds scraper configuration.
type Config struct {
	BaseURL        string `yaml:"base_url"`
	CollectionPath string `yaml:"collection_path"`
	CategoryPath   string `yaml:"category_path"`

	Member       string `yaml:"member"`
	Cookie       string `yaml:"cookie"`
	Filter       string `yaml:"filter"`
	Mode         string `yaml:"mode"`
	Type         string `yaml:"type"`
	CollectionID int    `yaml:"collection_id"`

	SeedRecords int `yaml:"seed_records"`
	PageSize    int `yaml:"page_size"`
	MaxPages    int `yaml:"max_pages"`

	PageDelay       time.Duration `yaml:"page_delay"`
	CategoryDelay   time.Duration `yaml:"category_delay"`
	RandomDelay     time.Duration `yaml:"random_delay"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
	RetryBackoffMax time.Duration `yaml:"retry_backoff_max"`

	Output       string `yaml:"output"`
	OutputDir    string `yaml:"output_dir"`
	FallbackFile string `yaml:"fallback_file"`

	UserAgent   string `yaml:"user_agent"`
	Verbose     bool   `yaml:"verbose"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// DefaultConfig returns polite defaults for the catalog site.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         "https://www.tcdb.com",
		CollectionPath:  "/ViewCollectionMode.cfm",
		CategoryPath:    "/ViewSet.cfm/sid",
		Filter:          "G",
		Mode:            "",
		Type:            "Baseball",
		CollectionID:    1,
		SeedRecords:     10000,
		PageSize:        100,
		MaxPages:        200,
		PageDelay:       2 * time.Second,
		CategoryDelay:   4 * time.Second,
		RandomDelay:     0,
		Timeout:         30 * time.Second,
		MaxRetries:      2,
		RetryBackoff:    5 * time.Second,
		RetryBackoffMax: 60 * time.Second,
		Output:          OutputClipboard,
		OutputDir:       "output",
		FallbackFile:    "collection-import.json",
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if !strings.HasPrefix(c.CollectionPath, "/") {
		return fmt.Errorf("collection path must start with /")
	}
	if !strings.HasPrefix(c.CategoryPath, "/") {
		return fmt.Errorf("category path must start with /")
	}

	if strings.TrimSpace(c.Member) == "" {
		return fmt.Errorf("member cannot be empty")
	}
	if c.CollectionID <= 0 {
		return fmt.Errorf("collection id must be positive")
	}
	if c.SeedRecords <= 0 {
		return fmt.Errorf("seed records must be positive")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.PageDelay < 0 {
		return fmt.Errorf("page delay cannot be negative")
	}
	if c.CategoryDelay < 0 {
		return fmt.Errorf("category delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.Output != OutputClipboard && c.Output != OutputStdout {
		return fmt.Errorf("output must be clipboard or stdout")
	}
	if c.FallbackFile == "" {
		return fmt.Errorf("fallback file cannot be empty")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
