package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer when it is set.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, true, nil
}

// EnvDuration parses key as a Go duration ("4s", "1m30s") when it is set.
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, true, nil
}

// ApplyEnv overlays SCRAPER_* environment variables onto c.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"SCRAPER_BASE_URL":     &c.BaseURL,
		"SCRAPER_MEMBER":       &c.Member,
		"SCRAPER_COOKIE":       &c.Cookie,
		"SCRAPER_TYPE":         &c.Type,
		"SCRAPER_OUTPUT":       &c.Output,
		"SCRAPER_OUTPUT_DIR":   &c.OutputDir,
		"SCRAPER_METRICS_ADDR": &c.MetricsAddr,
	}
	for key, dst := range strs {
		if value, ok := EnvString(key); ok {
			*dst = value
		}
	}

	ints := map[string]*int{
		"SCRAPER_PAGES":       &c.MaxPages,
		"SCRAPER_PAGE_SIZE":   &c.PageSize,
		"SCRAPER_MAX_RETRIES": &c.MaxRetries,
	}
	for key, dst := range ints {
		value, ok, err := EnvInt(key)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}

	durations := map[string]*time.Duration{
		"SCRAPER_PAGE_DELAY":     &c.PageDelay,
		"SCRAPER_CATEGORY_DELAY": &c.CategoryDelay,
		"SCRAPER_TIMEOUT":        &c.Timeout,
	}
	for key, dst := range durations {
		value, ok, err := EnvDuration(key)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}
	return nil
}
