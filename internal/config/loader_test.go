package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  user: prazo
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultServerMode, cfg.Server.Mode)
	assert.Equal(t, DefaultDBHost, cfg.Database.Host)
	assert.Equal(t, DefaultDBName, cfg.Database.DBName)
	assert.Equal(t, DefaultScope, cfg.Engine.DefaultScope)
	assert.Equal(t, DefaultPollInterval, cfg.Scheduler.PollInterval)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
}

func TestLoadExplicitValuesWin(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  mode: release
database:
  user: prazo
  db_name: prazo_test
engine:
  default_scope: BR-SP
  recompute_concurrency: 2
scheduler:
  poll_interval: 30s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "prazo_test", cfg.Database.DBName)
	assert.Equal(t, "BR-SP", cfg.Engine.DefaultScope)
	assert.Equal(t, 2, cfg.Engine.RecomputeConcurrency)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.PollInterval)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PRAZO_DATABASE_USER", "prazo")
	t.Setenv("PRAZO_SERVER_PORT", "7070")
	t.Setenv("PRAZO_ENGINE_DEFAULT_SCOPE", "BR-RJ")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "prazo", cfg.Database.User)
	assert.Equal(t, "BR-RJ", cfg.Engine.DefaultScope)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestValidateRejections(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.Database.User = "prazo"
		ApplyDefaults(cfg)
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"bad mode", func(c *Config) { c.Server.Mode = "prod" }},
		{"missing db user", func(c *Config) { c.Database.User = "" }},
		{"no brokers", func(c *Config) { c.Kafka.Brokers = nil }},
		{"empty scope", func(c *Config) { c.Engine.DefaultScope = "" }},
		{"tiny poll interval", func(c *Config) { c.Scheduler.PollInterval = time.Millisecond }},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			require.NoError(t, cfg.Validate())
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
