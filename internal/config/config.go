// Package config loads the dashboard configuration from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	Cache     CacheConfig     `yaml:"cache"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// WarehouseConfig selects the query executor.
type WarehouseConfig struct {
	Driver          string `yaml:"driver"` // bigquery, sqlite, postgres
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
	DSN             string `yaml:"dsn"`
	Table           string `yaml:"table"`
	// MaxQueriesPerMinute throttles warehouse calls. 0 = unlimited.
	MaxQueriesPerMinute int `yaml:"max_queries_per_minute"`
}

type CacheConfig struct {
	TTL          string `yaml:"ttl"`
	QueryTimeout string `yaml:"query_timeout"`
}

type RefreshConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: "10s",
		},
		Warehouse: WarehouseConfig{
			Driver:              "bigquery",
			Table:               "bigquery-public-data.world_bank_wdi.indicators_data",
			MaxQueriesPerMinute: 6,
		},
		Cache: CacheConfig{
			TTL:          "10m",
			QueryTimeout: "60s",
		},
		Refresh: RefreshConfig{
			Enabled:  true,
			Schedule: "@every 10m",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
// Credentials come from the process environment, never from code.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("POPMETRICS_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("POPMETRICS_WAREHOUSE_DRIVER"); v != "" {
		c.Warehouse.Driver = v
	}
	if v := os.Getenv("POPMETRICS_WAREHOUSE_DSN"); v != "" {
		c.Warehouse.DSN = v
	}
	if v := os.Getenv("POPMETRICS_WAREHOUSE_TABLE"); v != "" {
		c.Warehouse.Table = v
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		c.Warehouse.ProjectID = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		c.Warehouse.CredentialsFile = v
	}
	if v := os.Getenv("POPMETRICS_CACHE_TTL"); v != "" {
		c.Cache.TTL = v
	}
	if v := os.Getenv("POPMETRICS_REFRESH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Refresh.Enabled = b
		}
	}
	if v := os.Getenv("POPMETRICS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Warehouse.Driver {
	case "bigquery":
		if c.Warehouse.ProjectID == "" {
			return fmt.Errorf("warehouse.project_id is required for bigquery")
		}
	case "sqlite", "postgres":
		if c.Warehouse.DSN == "" {
			return fmt.Errorf("warehouse.dsn is required for %s", c.Warehouse.Driver)
		}
	default:
		return fmt.Errorf("unknown warehouse.driver %q", c.Warehouse.Driver)
	}
	if c.Warehouse.Table == "" {
		return fmt.Errorf("warehouse.table is required")
	}
	if c.Warehouse.MaxQueriesPerMinute < 0 {
		return fmt.Errorf("warehouse.max_queries_per_minute must not be negative")
	}
	for name, v := range map[string]string{
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"cache.ttl":               c.Cache.TTL,
		"cache.query_timeout":     c.Cache.QueryTimeout,
	} {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.Refresh.Enabled && c.Refresh.Schedule == "" {
		return fmt.Errorf("refresh.schedule is required when refresh is enabled")
	}
	return nil
}

// GetCacheTTL returns the cache TTL as a duration.
func (c *Config) GetCacheTTL() time.Duration {
	return parseOr(c.Cache.TTL, 10*time.Minute)
}

// GetQueryTimeout returns the warehouse call timeout as a duration.
func (c *Config) GetQueryTimeout() time.Duration {
	return parseOr(c.Cache.QueryTimeout, 60*time.Second)
}

func (c *Config) GetShutdownTimeout() time.Duration {
	return parseOr(c.Server.ShutdownTimeout, 10*time.Second)
}

// TableRef is the table reference as the driver's SQL dialect expects it.
func (c *Config) TableRef() string {
	if c.Warehouse.Driver == "bigquery" {
		return "`" + c.Warehouse.Table + "`"
	}
	return c.Warehouse.Table
}

func parseOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
