// Package config loads qualmon settings from a YAML file and QUALMON_*
// environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/steveyegge/qualmon/internal/enrich"
	"github.com/steveyegge/qualmon/internal/learning"
	"github.com/steveyegge/qualmon/internal/quality"
)

// DefaultPath is where `qualmon config init` writes and where the CLI looks
// when --config is not given.
const DefaultPath = ".qualmon.yaml"

// Config holds every qualmon setting.
type Config struct {
	// Checker thresholds sit at the top level of the YAML document.
	quality.Config `yaml:",inline"`

	Learning learning.Config `yaml:"learning"`

	// StatePath is the learning state document. Empty keeps state in memory.
	// Default: monitor_data/learning_history.json
	StatePath string `yaml:"state_path"`

	// HistoryDB is the SQLite run log. Empty disables it.
	// Default: monitor_data/history.db
	HistoryDB string `yaml:"history_db"`

	// Workers bounds concurrent analysis in batch checks. Default: 4
	Workers int `yaml:"workers"`

	// WatchDebounce is how long a file must stay quiet before the watcher
	// checks it. Default: 300ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	Enrichment enrich.Config `yaml:"enrichment"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Config:        quality.DefaultConfig(),
		Learning:      learning.DefaultConfig(),
		StatePath:     learning.DefaultStatePath,
		HistoryDB:     filepath.Join(filepath.Dir(learning.DefaultStatePath), "history.db"),
		Workers:       4,
		WatchDebounce: 300 * time.Millisecond,
		Enrichment:    enrich.DefaultConfig(),
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if err := c.Config.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Learning.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("learning: %w", err))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1 (got %d)", c.Workers))
	}
	if c.WatchDebounce < 0 {
		errs = append(errs, fmt.Errorf("watch_debounce cannot be negative (got %v)", c.WatchDebounce))
	}
	if c.Enrichment.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("enrichment.requests_per_second cannot be negative (got %g)",
			c.Enrichment.RequestsPerSecond))
	}
	if c.Enrichment.MaxConcurrent < 0 {
		errs = append(errs, fmt.Errorf("enrichment.max_concurrent cannot be negative (got %d)",
			c.Enrichment.MaxConcurrent))
	}
	return errors.Join(errs...)
}

// LearningConfig returns the learning configuration with the checker
// thresholds attached as tunables.
func (c Config) LearningConfig() learning.Config {
	lc := c.Learning
	lc.Tunables = c.Config.Tunables()
	return lc
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file at DefaultPath is not an error; any
// other missing path is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing YAML %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// Defaults only
	default:
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables.
//
// Environment variables:
//   - QUALMON_MAX_FUNCTION_LINES: Statement limit per function (default: 25)
//   - QUALMON_MAX_NESTED_DEPTH: Nesting limit (default: 3)
//   - QUALMON_NESTING_SEVERITY: Severity for deep nesting (default: IMPORTANT)
//   - QUALMON_MIN_DOCSTRING_WORDS: Words below which a doc comment is brief (default: 10)
//   - QUALMON_MAX_LINE_LENGTH: Column limit, 0 disables (default: 80)
//   - QUALMON_MIN_COMMENT_RATIO: Comment line share, 0 disables (default: 0.12)
//   - QUALMON_VALUE_MARKERS: Comma-separated marker words
//   - QUALMON_STATE_PATH: Learning state document
//   - QUALMON_HISTORY_DB: SQLite run log
//   - QUALMON_WORKERS: Concurrent analysis workers (default: 4)
//   - QUALMON_WATCH_DEBOUNCE: Watcher quiet period, e.g. 500ms
//   - QUALMON_HIGH_CONFIDENCE_CUTOFF: Confidence that triggers threshold suggestions (default: 0.8)
//   - QUALMON_MAX_HISTORY_PER_FILE: Records kept per file, 0 for unlimited (default: 0)
//   - QUALMON_ENRICH_MODEL: Anthropic model for enrichment
//   - QUALMON_ENRICH_RPS: Enrichment requests per second (default: 1)
//
// Returns an error if any environment variable has an invalid value.
func (c *Config) ApplyEnv() error {
	ints := []struct {
		key  string
		dest *int
	}{
		{"QUALMON_MAX_FUNCTION_LINES", &c.MaxFunctionLines},
		{"QUALMON_MAX_NESTED_DEPTH", &c.MaxNestedDepth},
		{"QUALMON_MIN_DOCSTRING_WORDS", &c.MinDocstringWords},
		{"QUALMON_MAX_LINE_LENGTH", &c.MaxLineLength},
		{"QUALMON_WORKERS", &c.Workers},
		{"QUALMON_MAX_HISTORY_PER_FILE", &c.Learning.MaxHistoryPerFile},
	}
	for _, v := range ints {
		if err := parseEnvInt(v.key, v.dest); err != nil {
			return err
		}
	}

	floats := []struct {
		key  string
		dest *float64
	}{
		{"QUALMON_MIN_COMMENT_RATIO", &c.MinCommentRatio},
		{"QUALMON_HIGH_CONFIDENCE_CUTOFF", &c.Learning.HighConfidenceCutoff},
		{"QUALMON_ENRICH_RPS", &c.Enrichment.RequestsPerSecond},
	}
	for _, v := range floats {
		if err := parseEnvFloat(v.key, v.dest); err != nil {
			return err
		}
	}

	strs := []struct {
		key  string
		dest *string
	}{
		{"QUALMON_STATE_PATH", &c.StatePath},
		{"QUALMON_HISTORY_DB", &c.HistoryDB},
		{"QUALMON_ENRICH_MODEL", &c.Enrichment.Model},
	}
	for _, v := range strs {
		if err := parseEnvString(v.key, v.dest); err != nil {
			return err
		}
	}

	if value := os.Getenv("QUALMON_NESTING_SEVERITY"); value != "" {
		sev, err := quality.ParseSeverity(value)
		if err != nil {
			return fmt.Errorf("invalid value for QUALMON_NESTING_SEVERITY: %w", err)
		}
		c.NestingSeverity = sev
	}
	if value := os.Getenv("QUALMON_VALUE_MARKERS"); value != "" {
		var markers []string
		for _, m := range strings.Split(value, ",") {
			if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
				markers = append(markers, m)
			}
		}
		c.ValueMarkers = markers
	}
	if value := os.Getenv("QUALMON_WATCH_DEBOUNCE"); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid value for QUALMON_WATCH_DEBOUNCE: %w", err)
		}
		c.WatchDebounce = d
	}
	return nil
}

// Write encodes the configuration as YAML to w.
func (c Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

// Save writes the configuration as YAML, creating parent directories.
func (c Config) Save(path string) error {
	var buf bytes.Buffer
	if err := c.Write(&buf); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvFloat parses a float64 from an environment variable
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvString parses a string from an environment variable
func parseEnvString(key string, dest *string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	*dest = value
	return nil
}
