// Package config provides unified configuration management for wbstrack.
// Configuration is loaded from multiple sources with the following precedence:
// embedded defaults → global file → env vars → local file → CLI flags
package config

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/alexander-akhmetov/wbstrack/internal/dirs"
)

//go:embed defaults/config.yaml
var defaultsFS embed.FS

// LocalDirName is the per-directory override folder.
const LocalDirName = ".wbstrack"

// RetryConfig bounds retries of external writes.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Delay       time.Duration `yaml:"delay"`

	// Set tracking for merge
	MaxAttemptsSet bool `yaml:"-"`
	DelaySet       bool `yaml:"-"`
}

// PointsConfig holds the reward for each event. 0 disables it.
type PointsConfig struct {
	TaskCompletion int `yaml:"task_completion"`
	TaskReview     int `yaml:"task_review"`
	SubPackage     int `yaml:"subpackage"`
	Package        int `yaml:"package"`
	Project        int `yaml:"project"`

	// Set tracking for merge
	TaskCompletionSet bool `yaml:"-"`
	TaskReviewSet     bool `yaml:"-"`
	SubPackageSet     bool `yaml:"-"`
	PackageSet        bool `yaml:"-"`
	ProjectSet        bool `yaml:"-"`
}

// CascadeConfig tunes level completion.
type CascadeConfig struct {
	AllowEmptyLevels bool `yaml:"allow_empty_levels"`

	AllowEmptyLevelsSet bool `yaml:"-"`
}

// WorkflowConfig tunes task transitions.
type WorkflowConfig struct {
	AllowResubmitApproved bool `yaml:"allow_resubmit_approved"`

	AllowResubmitApprovedSet bool `yaml:"-"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Endpoint string `yaml:"endpoint"` // OTLP/HTTP URL; empty disables tracing
}

// Config holds all configuration settings for wbstrack.
// Fields ending in *Set track whether that field was explicitly set in config.
// This allows distinguishing explicit false/0 from "not set", enabling proper
// merge behavior where local config can override global config with zero values.
type Config struct {
	DBPath     string `yaml:"db_path"`
	OutboxPath string `yaml:"outbox_path"`
	LogsDir    string `yaml:"logs_dir"`

	MaxConflicts int `yaml:"max_conflicts"`

	Retry     RetryConfig     `yaml:"retry"`
	Points    PointsConfig    `yaml:"points"`
	Cascade   CascadeConfig   `yaml:"cascade"`
	Workflow  WorkflowConfig  `yaml:"workflow"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	MaxConflictsSet bool `yaml:"-"`

	// Private: track where config was loaded from
	configDir string
	localDir  string
	sources   []string // ordered list of sources that contributed to this config
}

// Sources returns the ordered list of sources that contributed to this config.
func (c *Config) Sources() []string {
	return c.sources
}

// LocalDir returns the local project config directory if one was detected.
func (c *Config) LocalDir() string {
	return c.localDir
}

// ConfigDir returns the global config directory.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// Load loads all configuration from the default locations.
// It auto-detects .wbstrack/ in the current working directory for local overrides.
// It installs defaults if needed.
func Load() (*Config, error) {
	globalDir := dirs.ConfigDir()

	var localDir string
	if cwd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(cwd, LocalDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			localDir = candidate
		}
	}

	return LoadWithDirs(globalDir, localDir)
}

// LoadWithDirs loads configuration with explicit global and local directories.
// Local config (.wbstrack/) overrides global config (~/.config/wbstrack/) per-field.
// If localDir is empty, only global config is used.
func LoadWithDirs(globalDir, localDir string) (*Config, error) {
	if err := InstallDefaults(globalDir); err != nil {
		return nil, fmt.Errorf("install defaults: %w", err)
	}

	// 1. Start with embedded defaults
	cfg, err := loadEmbedded()
	if err != nil {
		return nil, fmt.Errorf("load embedded defaults: %w", err)
	}
	cfg.sources = append(cfg.sources, "embedded")

	// 2. Merge global config
	globalPath := filepath.Join(globalDir, "config.yaml")
	if globalCfg, err := loadFile(globalPath); err == nil {
		cfg.mergeFrom(globalCfg)
		cfg.sources = append(cfg.sources, globalPath)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("load global config: %w", err)
	}

	// 3. Apply environment variables (between global and local)
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	// 4. Merge local config (highest file precedence)
	if localDir != "" {
		localPath := filepath.Join(localDir, "config.yaml")
		if localCfg, err := loadFile(localPath); err == nil {
			cfg.mergeFrom(localCfg)
			cfg.sources = append(cfg.sources, localPath)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load local config: %w", err)
		}
	}

	cfg.configDir = globalDir
	cfg.localDir = localDir
	cfg.fillPaths()

	return cfg, nil
}

// InstallDefaults creates the config directory and installs default config if not exists.
func InstallDefaults(configDir string) error {
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		data, err := defaultsFS.ReadFile("defaults/config.yaml")
		if err != nil {
			return fmt.Errorf("read embedded config: %w", err)
		}
		if err := os.WriteFile(configPath, data, 0o600); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}
	}

	return nil
}

// Validate reports settings the workflow cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxConflicts < 1 {
		errs = append(errs, fmt.Errorf("max_conflicts must be at least 1, got %d", c.MaxConflicts))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts))
	}
	if c.Retry.Delay < 0 {
		errs = append(errs, fmt.Errorf("retry.delay must not be negative, got %s", c.Retry.Delay))
	}
	for name, v := range map[string]int{
		"points.task_completion": c.Points.TaskCompletion,
		"points.task_review":     c.Points.TaskReview,
		"points.subpackage":      c.Points.SubPackage,
		"points.package":         c.Points.Package,
		"points.project":         c.Points.Project,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %d", name, v))
		}
	}
	return errors.Join(errs...)
}

// loadEmbedded loads config from the embedded defaults.
func loadEmbedded() (*Config, error) {
	data, err := defaultsFS.ReadFile("defaults/config.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded defaults: %w", err)
	}
	return parseConfig(data)
}

// loadFile loads config from a file path.
func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user's config file
	if err != nil {
		return nil, err
	}
	return parseConfigWithTracking(data)
}

// parseConfig parses YAML config data into a Config struct.
func parseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// parseConfigWithTracking parses YAML config and tracks which fields were set.
func parseConfigWithTracking(data []byte) (*Config, error) {
	cfg, err := parseConfig(data)
	if err != nil {
		return nil, err
	}

	// Parse into a map to detect which fields were explicitly set
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	cfg.MaxConflictsSet = has(raw, "max_conflicts")

	cfg.Retry.MaxAttemptsSet = has(raw, "retry", "max_attempts")
	cfg.Retry.DelaySet = has(raw, "retry", "delay")

	cfg.Points.TaskCompletionSet = has(raw, "points", "task_completion")
	cfg.Points.TaskReviewSet = has(raw, "points", "task_review")
	cfg.Points.SubPackageSet = has(raw, "points", "subpackage")
	cfg.Points.PackageSet = has(raw, "points", "package")
	cfg.Points.ProjectSet = has(raw, "points", "project")

	cfg.Cascade.AllowEmptyLevelsSet = has(raw, "cascade", "allow_empty_levels")
	cfg.Workflow.AllowResubmitApprovedSet = has(raw, "workflow", "allow_resubmit_approved")

	return cfg, nil
}

// has reports whether the nested key path exists in raw.
func has(raw map[string]any, keys ...string) bool {
	cur := raw
	for i, k := range keys {
		v, ok := cur[k]
		if !ok {
			return false
		}
		if i == len(keys)-1 {
			return true
		}
		if cur, ok = v.(map[string]any); !ok {
			return false
		}
	}
	return false
}

// envOverrides lists the WBSTRACK_* variables. Unset variables leave their
// pointer nil.
type envOverrides struct {
	DBPath                *string        `env:"WBSTRACK_DB_PATH"`
	OutboxPath            *string        `env:"WBSTRACK_OUTBOX_PATH"`
	LogsDir               *string        `env:"WBSTRACK_LOGS_DIR"`
	MaxConflicts          *int           `env:"WBSTRACK_MAX_CONFLICTS"`
	RetryMaxAttempts      *int           `env:"WBSTRACK_RETRY_MAX_ATTEMPTS"`
	RetryDelay            *time.Duration `env:"WBSTRACK_RETRY_DELAY"`
	AllowEmptyLevels      *bool          `env:"WBSTRACK_CASCADE_ALLOW_EMPTY_LEVELS"`
	AllowResubmitApproved *bool          `env:"WBSTRACK_ALLOW_RESUBMIT_APPROVED"`
	TelemetryEndpoint     *string        `env:"WBSTRACK_OTEL_ENDPOINT"`
}

// applyEnv applies environment variables to the config.
// Env vars sit between global and local config in precedence.
func (c *Config) applyEnv() error {
	var e envOverrides
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if e.DBPath != nil {
		c.DBPath = *e.DBPath
		c.sources = append(c.sources, "env:WBSTRACK_DB_PATH")
	}
	if e.OutboxPath != nil {
		c.OutboxPath = *e.OutboxPath
		c.sources = append(c.sources, "env:WBSTRACK_OUTBOX_PATH")
	}
	if e.LogsDir != nil {
		c.LogsDir = *e.LogsDir
		c.sources = append(c.sources, "env:WBSTRACK_LOGS_DIR")
	}
	if e.MaxConflicts != nil {
		c.MaxConflicts = *e.MaxConflicts
		c.MaxConflictsSet = true
		c.sources = append(c.sources, "env:WBSTRACK_MAX_CONFLICTS")
	}
	if e.RetryMaxAttempts != nil {
		c.Retry.MaxAttempts = *e.RetryMaxAttempts
		c.Retry.MaxAttemptsSet = true
		c.sources = append(c.sources, "env:WBSTRACK_RETRY_MAX_ATTEMPTS")
	}
	if e.RetryDelay != nil {
		c.Retry.Delay = *e.RetryDelay
		c.Retry.DelaySet = true
		c.sources = append(c.sources, "env:WBSTRACK_RETRY_DELAY")
	}
	if e.AllowEmptyLevels != nil {
		c.Cascade.AllowEmptyLevels = *e.AllowEmptyLevels
		c.Cascade.AllowEmptyLevelsSet = true
		c.sources = append(c.sources, "env:WBSTRACK_CASCADE_ALLOW_EMPTY_LEVELS")
	}
	if e.AllowResubmitApproved != nil {
		c.Workflow.AllowResubmitApproved = *e.AllowResubmitApproved
		c.Workflow.AllowResubmitApprovedSet = true
		c.sources = append(c.sources, "env:WBSTRACK_ALLOW_RESUBMIT_APPROVED")
	}
	if e.TelemetryEndpoint != nil {
		c.Telemetry.Endpoint = *e.TelemetryEndpoint
		c.sources = append(c.sources, "env:WBSTRACK_OTEL_ENDPOINT")
	}
	return nil
}

// mergeFrom merges non-empty/set values from src into c.
func (c *Config) mergeFrom(src *Config) {
	if src.DBPath != "" {
		c.DBPath = src.DBPath
	}
	if src.OutboxPath != "" {
		c.OutboxPath = src.OutboxPath
	}
	if src.LogsDir != "" {
		c.LogsDir = src.LogsDir
	}
	if src.MaxConflictsSet {
		c.MaxConflicts = src.MaxConflicts
		c.MaxConflictsSet = true
	}

	// Retry config merge
	if src.Retry.MaxAttemptsSet {
		c.Retry.MaxAttempts = src.Retry.MaxAttempts
		c.Retry.MaxAttemptsSet = true
	}
	if src.Retry.DelaySet {
		c.Retry.Delay = src.Retry.Delay
		c.Retry.DelaySet = true
	}

	// Points config merge
	if src.Points.TaskCompletionSet {
		c.Points.TaskCompletion = src.Points.TaskCompletion
		c.Points.TaskCompletionSet = true
	}
	if src.Points.TaskReviewSet {
		c.Points.TaskReview = src.Points.TaskReview
		c.Points.TaskReviewSet = true
	}
	if src.Points.SubPackageSet {
		c.Points.SubPackage = src.Points.SubPackage
		c.Points.SubPackageSet = true
	}
	if src.Points.PackageSet {
		c.Points.Package = src.Points.Package
		c.Points.PackageSet = true
	}
	if src.Points.ProjectSet {
		c.Points.Project = src.Points.Project
		c.Points.ProjectSet = true
	}

	if src.Cascade.AllowEmptyLevelsSet {
		c.Cascade.AllowEmptyLevels = src.Cascade.AllowEmptyLevels
		c.Cascade.AllowEmptyLevelsSet = true
	}
	if src.Workflow.AllowResubmitApprovedSet {
		c.Workflow.AllowResubmitApproved = src.Workflow.AllowResubmitApproved
		c.Workflow.AllowResubmitApprovedSet = true
	}
	if src.Telemetry.Endpoint != "" {
		c.Telemetry.Endpoint = src.Telemetry.Endpoint
	}
}

// fillPaths resolves empty paths to the state directory defaults.
func (c *Config) fillPaths() {
	if c.DBPath == "" {
		c.DBPath = dirs.DBPath()
	}
	if c.OutboxPath == "" {
		c.OutboxPath = dirs.OutboxPath()
	}
	if c.LogsDir == "" {
		c.LogsDir = dirs.LogsDir()
	}
}

// ApplyCLIFlags applies CLI flag overrides to the config.
// CLI flags have the highest precedence. Empty values do not override.
func (c *Config) ApplyCLIFlags(dbPath, outboxPath string) {
	if dbPath != "" {
		c.DBPath = dbPath
		c.sources = append(c.sources, "cli:db")
	}
	if outboxPath != "" {
		c.OutboxPath = outboxPath
		c.sources = append(c.sources, "cli:outbox")
	}
}
