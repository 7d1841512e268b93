package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the recall configuration.
type Config struct {
	History     HistoryConfig     `yaml:"history"`
	Predict     PredictConfig     `yaml:"predict"`
	Search      SearchConfig      `yaml:"search"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Log         LogConfig         `yaml:"log"`
}

// HistoryConfig holds write-path settings.
type HistoryConfig struct {
	DBPath        string `yaml:"db_path"`         // Database path (empty = XDG default)
	BusyTimeoutMs int    `yaml:"busy_timeout_ms"` // SQLite busy timeout
	RetryAttempts int    `yaml:"retry_attempts"`  // Write retry attempts on lock contention
	RetryDelayMs  int    `yaml:"retry_delay_ms"`  // Delay between write retries
	ImportMax     int    `yaml:"import_max"`      // Max entries per histfile import
}

// PredictConfig holds prediction settings.
type PredictConfig struct {
	Enabled    bool `yaml:"enabled"`     // Master toggle for shell integration
	MaxResults int  `yaml:"max_results"` // Max predictions returned
	PoolSize   int  `yaml:"pool_size"`   // Read connection pool size
	CacheSize  int  `yaml:"cache_size"`  // Prefix cache entries
}

// SearchConfig holds search settings.
type SearchConfig struct {
	Limit      int  `yaml:"limit"`       // Default result page size
	FTSEnabled bool `yaml:"fts_enabled"` // Use the full-text index when available
}

// MaintenanceConfig holds background maintenance settings.
type MaintenanceConfig struct {
	RetentionDays  int `yaml:"retention_days"`   // Prune records older than this (0 = keep forever)
	PruneBatchSize int `yaml:"prune_batch_size"` // Rows deleted per prune transaction
	VacuumRatio    int `yaml:"vacuum_ratio"`     // Free-page percent that triggers VACUUM (0 = never)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		History: HistoryConfig{
			BusyTimeoutMs: 5000,
			RetryAttempts: 3,
			RetryDelayMs:  100,
			ImportMax:     25000,
		},
		Predict: PredictConfig{
			Enabled:    true,
			MaxResults: 5,
			PoolSize:   5,
			CacheSize:  100,
		},
		Search: SearchConfig{
			Limit:      50,
			FTSEnabled: true,
		},
		Maintenance: MaintenanceConfig{
			RetentionDays:  0,
			PruneBatchSize: 1000,
			VacuumRatio:    25,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration from the default path.
// A missing file yields defaults, not an error.
func Load() (*Config, error) {
	return LoadFromFile(DefaultPaths().ConfigFile())
}

// LoadFromFile reads the configuration from path, filling unset fields
// with defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveToFile(DefaultPaths().ConfigFile())
}

// SaveToFile writes the configuration as YAML to path.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// normalize clamps nonsense values back to defaults.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.History.BusyTimeoutMs <= 0 {
		c.History.BusyTimeoutMs = def.History.BusyTimeoutMs
	}
	if c.History.RetryAttempts <= 0 {
		c.History.RetryAttempts = def.History.RetryAttempts
	}
	if c.History.RetryDelayMs <= 0 {
		c.History.RetryDelayMs = def.History.RetryDelayMs
	}
	if c.History.ImportMax <= 0 {
		c.History.ImportMax = def.History.ImportMax
	}
	if c.Predict.MaxResults <= 0 {
		c.Predict.MaxResults = def.Predict.MaxResults
	}
	if c.Predict.PoolSize <= 0 {
		c.Predict.PoolSize = def.Predict.PoolSize
	}
	if c.Predict.CacheSize <= 0 {
		c.Predict.CacheSize = def.Predict.CacheSize
	}
	if c.Search.Limit <= 0 {
		c.Search.Limit = def.Search.Limit
	}
	if c.Maintenance.PruneBatchSize <= 0 {
		c.Maintenance.PruneBatchSize = def.Maintenance.PruneBatchSize
	}
	if c.Maintenance.RetentionDays < 0 {
		c.Maintenance.RetentionDays = 0
	}
	if c.Maintenance.VacuumRatio < 0 {
		c.Maintenance.VacuumRatio = 0
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// DBPath resolves the configured database path, falling back to the XDG
// default.
func (c *Config) DBPath() string {
	if c.History.DBPath != "" {
		return c.History.DBPath
	}
	return DefaultPaths().DatabaseFile()
}
