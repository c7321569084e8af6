package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

// Defaults applied to unset keys.
const (
	DefaultMode              = domain.SyncModeSince
	DefaultConcurrency       = 4
	DefaultEnrichWorkers     = 4
	DefaultRequestsPerSecond = 1.2
	DefaultStaleAfterDays    = 60
	DefaultReconcileBatch    = 500
	DefaultIndexURL          = "http://localhost:8108"
	DefaultCollection        = "issues"
	DefaultSyncInterval      = "1h"
	DefaultReconcileInterval = "24h"
)

// Store drivers.
const (
	DriverSQLite    = "sqlite"
	DriverRedis     = "redis"
	DriverMemory    = "memory"
	DriverTypesense = "typesense"
)

// Config is the process configuration.
type Config struct {
	Mode              domain.SyncMode `toml:"mode"`
	Concurrency       int             `toml:"concurrency"`
	EnrichWorkers     int             `toml:"enrich_workers"`
	RequestsPerSecond float64         `toml:"requests_per_second"`
	StaleAfterDays    int             `toml:"stale_after_days"`
	ReconcileBatch    int             `toml:"reconcile_batch"`

	// RelocatedStatuses are the probe answers treated as relocation.
	RelocatedStatuses []int `toml:"relocated_statuses"`

	Repositories []RepositoryConfig `toml:"repositories"`

	GitHub   GitHubConfig   `toml:"github"`
	Index    IndexConfig    `toml:"index"`
	Store    StoreConfig    `toml:"store"`
	Schedule ScheduleConfig `toml:"schedule"`
	Log      LogConfig      `toml:"log"`

	// Secrets, populated from the environment only.
	Secrets Secrets `toml:"-"`
}

// RepositoryConfig names one repository to synchronise.
type RepositoryConfig struct {
	Owner string `toml:"owner"`
	Name  string `toml:"name"`

	// Private selects the index namespace. When unset the visibility is
	// looked up from the source at startup.
	Private *bool `toml:"private,omitempty"`
}

// GitHubConfig configures the source client.
type GitHubConfig struct {
	// BaseURL targets GitHub Enterprise. Empty uses api.github.com.
	BaseURL string `toml:"base_url,omitempty"`

	// Timeout bounds one HTTP request, e.g. "30s".
	Timeout string `toml:"timeout,omitempty"`
}

// IndexConfig configures the document index.
type IndexConfig struct {
	// Driver is "typesense" or "memory".
	Driver     string `toml:"driver"`
	URL        string `toml:"url"`
	Collection string `toml:"collection"`
	Timeout    string `toml:"timeout,omitempty"`
}

// StoreConfig configures the watermark store.
type StoreConfig struct {
	// Driver is "sqlite", "redis" or "memory".
	Driver string `toml:"driver"`

	// Path is the SQLite data directory. Empty uses ~/.issuesync/data.
	Path string `toml:"path,omitempty"`

	RedisURL    string `toml:"redis_url,omitempty"`
	RedisPrefix string `toml:"redis_prefix,omitempty"`
}

// ScheduleConfig configures the serve loop.
type ScheduleConfig struct {
	SyncInterval      string `toml:"sync_interval"`
	ReconcileInterval string `toml:"reconcile_interval"`
}

// LogConfig configures local log output.
type LogConfig struct {
	// Format is "text" or "json".
	Format string `toml:"format"`
}

// Default returns a configuration with every default applied and no
// repositories.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// DefaultPath returns ~/.issuesync/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".issuesync", "config.toml"), nil
}

// Load reads the TOML file at path, applies defaults and reads secrets
// from the environment. An empty path uses DefaultPath; a missing default
// file is not an error. The result is not validated.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrInvalidConfig, path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No config file yet, run on defaults and environment.
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyDefaults()
	cfg.Secrets = SecretsFromEnv()
	return cfg, nil
}

// Write stores cfg as TOML at path, creating the directory. Secrets are
// never written.
func Write(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = DefaultMode
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.EnrichWorkers == 0 {
		c.EnrichWorkers = DefaultEnrichWorkers
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.StaleAfterDays == 0 {
		c.StaleAfterDays = DefaultStaleAfterDays
	}
	if c.ReconcileBatch == 0 {
		c.ReconcileBatch = DefaultReconcileBatch
	}
	if len(c.RelocatedStatuses) == 0 {
		c.RelocatedStatuses = []int{404, 301}
	}
	if c.Index.Driver == "" {
		c.Index.Driver = DriverTypesense
	}
	if c.Index.URL == "" {
		c.Index.URL = DefaultIndexURL
	}
	if c.Index.Collection == "" {
		c.Index.Collection = DefaultCollection
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverSQLite
	}
	if c.Schedule.SyncInterval == "" {
		c.Schedule.SyncInterval = DefaultSyncInterval
	}
	if c.Schedule.ReconcileInterval == "" {
		c.Schedule.ReconcileInterval = DefaultReconcileInterval
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate reports every problem that makes the configuration unusable.
// The returned error wraps domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !c.Mode.Valid() {
		add("mode %q must be %q or %q", c.Mode, domain.SyncModeSince, domain.SyncModeETag)
	}
	if c.Concurrency < 1 {
		add("concurrency must be at least 1")
	}
	if c.EnrichWorkers < 1 {
		add("enrich_workers must be at least 1")
	}
	if c.RequestsPerSecond <= 0 {
		add("requests_per_second must be positive")
	}
	if c.StaleAfterDays < 1 {
		add("stale_after_days must be at least 1")
	}
	if c.ReconcileBatch < 1 {
		add("reconcile_batch must be at least 1")
	}
	for _, code := range c.RelocatedStatuses {
		if code < 100 || code > 599 {
			add("relocated_statuses: %d is not an HTTP status", code)
		}
	}

	if len(c.Repositories) == 0 {
		add("no repositories configured")
	}
	seen := make(map[string]bool, len(c.Repositories))
	for i, r := range c.Repositories {
		if r.Owner == "" || r.Name == "" {
			add("repositories[%d]: owner and name are required", i)
			continue
		}
		full := r.Owner + "/" + r.Name
		if seen[full] {
			add("repositories[%d]: %s listed twice", i, full)
		}
		seen[full] = true
	}

	switch c.Index.Driver {
	case DriverTypesense:
		if c.Secrets.TypesenseAPIKey == "" {
			add("%s is not set", EnvTypesenseAPIKey)
		}
	case DriverMemory:
	default:
		add("index.driver %q must be %q or %q", c.Index.Driver, DriverTypesense, DriverMemory)
	}

	switch c.Store.Driver {
	case DriverSQLite, DriverMemory:
	case DriverRedis:
		if c.Store.RedisURL == "" {
			add("store.redis_url is required for the redis driver")
		}
	default:
		add("store.driver %q must be %q, %q or %q", c.Store.Driver, DriverSQLite, DriverRedis, DriverMemory)
	}

	for key, value := range map[string]string{
		"github.timeout":              c.GitHub.Timeout,
		"index.timeout":               c.Index.Timeout,
		"schedule.sync_interval":      c.Schedule.SyncInterval,
		"schedule.reconcile_interval": c.Schedule.ReconcileInterval,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			add("%s: %w", key, err)
		}
	}

	if _, err := c.Auth(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{domain.ErrInvalidConfig}, errs...)...)
}

// Repos returns the configured repositories. Entries without a private
// flag are marked Unresolved.
func (c *Config) Repos() []domain.Repository {
	repos := make([]domain.Repository, 0, len(c.Repositories))
	for _, r := range c.Repositories {
		repos = append(repos, domain.Repository{
			Owner:      r.Owner,
			Name:       r.Name,
			Private:    r.Private != nil && *r.Private,
			Unresolved: r.Private == nil,
		})
	}
	return repos
}

// StaleAfter returns the reconciliation age threshold.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterDays) * 24 * time.Hour
}

// GitHubTimeout returns the source request timeout, zero when unset.
func (c *Config) GitHubTimeout() time.Duration {
	return parseDurationOrZero(c.GitHub.Timeout)
}

// IndexTimeout returns the index request timeout, zero when unset.
func (c *Config) IndexTimeout() time.Duration {
	return parseDurationOrZero(c.Index.Timeout)
}

// SchedulerConfig returns the serve loop task configuration.
func (c *Config) SchedulerConfig() domain.SchedulerConfig {
	cfg := domain.DefaultSchedulerConfig()
	if d := parseDurationOrZero(c.Schedule.SyncInterval); d > 0 {
		cfg.TaskConfigs[domain.TaskIDSync] = domain.TaskConfig{Enabled: true, Interval: d}
	}
	if d := parseDurationOrZero(c.Schedule.ReconcileInterval); d > 0 {
		cfg.TaskConfigs[domain.TaskIDReconcile] = domain.TaskConfig{Enabled: true, Interval: d}
	}
	return cfg
}

func parseDurationOrZero(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
