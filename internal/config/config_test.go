package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"POPMETRICS_ADDR", "POPMETRICS_WAREHOUSE_DRIVER", "POPMETRICS_WAREHOUSE_DSN",
		"POPMETRICS_WAREHOUSE_TABLE", "GOOGLE_CLOUD_PROJECT", "GOOGLE_APPLICATION_CREDENTIALS",
		"POPMETRICS_CACHE_TTL", "POPMETRICS_REFRESH", "POPMETRICS_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10*time.Minute, cfg.GetCacheTTL())
	assert.Equal(t, 60*time.Second, cfg.GetQueryTimeout())
	assert.Equal(t, "`bigquery-public-data.world_bank_wdi.indicators_data`", cfg.TableRef())

	// bigquery needs a billing project
	assert.Error(t, cfg.Validate())
	cfg.Warehouse.ProjectID = "demo"
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaultsAndEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_CLOUD_PROJECT", "wdi-demo")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/secrets/sa.json")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "wdi-demo", cfg.Warehouse.ProjectID)
	assert.Equal(t, "/secrets/sa.json", cfg.Warehouse.CredentialsFile)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "popmetrics.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
warehouse:
  driver: sqlite
  dsn: /tmp/wdi.db
  table: indicators_data
cache:
  ttl: 5m
refresh:
  enabled: false
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Warehouse.Driver)
	assert.Equal(t, "indicators_data", cfg.TableRef())
	assert.Equal(t, 5*time.Minute, cfg.GetCacheTTL())
	assert.Equal(t, 60*time.Second, cfg.GetQueryTimeout(), "unset keys keep defaults")
	assert.False(t, cfg.Refresh.Enabled)

	t.Setenv("POPMETRICS_CACHE_TTL", "30s")
	t.Setenv("POPMETRICS_REFRESH", "true")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.GetCacheTTL())
	assert.True(t, cfg.Refresh.Enabled)
}

func TestValidateRejects(t *testing.T) {
	base := func() *Config {
		c := DefaultConfig()
		c.Warehouse.Driver = "postgres"
		c.Warehouse.DSN = "postgres://localhost/wdi"
		return c
	}
	require.NoError(t, base().Validate())

	cases := map[string]func(*Config){
		"driver":   func(c *Config) { c.Warehouse.Driver = "mysql" },
		"dsn":      func(c *Config) { c.Warehouse.DSN = "" },
		"ttl":      func(c *Config) { c.Cache.TTL = "soon" },
		"negative": func(c *Config) { c.Cache.QueryTimeout = "-1s" },
		"schedule": func(c *Config) { c.Refresh.Schedule = "" },
		"rate":     func(c *Config) { c.Warehouse.MaxQueriesPerMinute = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "popmetrics.yaml")
	cfg := DefaultConfig()
	cfg.Warehouse.ProjectID = "demo"
	cfg.Server.Addr = ":7000"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
