package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Database.User = "capline"
	return cfg
}

func TestApplyDefaults_FillsZeroValues(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultDBHost, cfg.Database.Host)
	assert.Equal(t, DefaultRedisAddr, cfg.Redis.Addr)
	assert.Equal(t, []string{DefaultKafkaBroker}, cfg.Kafka.Brokers)
	assert.Equal(t, DefaultKafkaGroupID, cfg.Kafka.GroupID)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
	assert.Equal(t, DefaultRecalcInterval, cfg.Worker.RecalcInterval)
	assert.Equal(t, DefaultSnapshotWindow, cfg.Engine.SnapshotWindow)
	assert.Equal(t, DefaultForecastYears, cfg.Engine.DefaultForecastYears)
	assert.InDelta(t, DefaultDiscountRate, cfg.Engine.DefaultDiscountRate, 1e-9)
}

func TestApplyDefaults_ExplicitValuesWin(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Engine.SnapshotWindow = 12
	cfg.Worker.RecalcInterval = time.Minute

	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 12, cfg.Engine.SnapshotWindow)
	assert.Equal(t, time.Minute, cfg.Worker.RecalcInterval)
}

func TestApplyDefaults_NilConfig(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"bad server mode", func(c *Config) { c.Server.Mode = "production" }},
		{"missing db host", func(c *Config) { c.Database.Host = "" }},
		{"missing db user", func(c *Config) { c.Database.User = "" }},
		{"missing redis addr", func(c *Config) { c.Redis.Addr = "" }},
		{"no kafka brokers", func(c *Config) { c.Kafka.Brokers = nil }},
		{"snapshot window too small", func(c *Config) { c.Engine.SnapshotWindow = 1 }},
		{"zero forecast years", func(c *Config) { c.Engine.DefaultForecastYears = -1 }},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }},
		{"bad log format", func(c *Config) { c.Log.Format = "logfmt" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "db.internal", Port: 5433, User: "capline", Password: "s3cret",
		DBName: "capline", SSLMode: "require",
	}
	assert.Equal(t,
		"host=db.internal port=5433 user=capline password=s3cret dbname=capline sslmode=require",
		d.DSN())
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 8081
database:
  user: capline
  password: pw
engine:
  default_forecast_years: 20
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("CAPLINE_DATABASE_HOST", "pg.svc.cluster.local")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "pg.svc.cluster.local", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Engine.DefaultForecastYears)
	// Unset fields fall back to defaults.
	assert.Equal(t, DefaultRedisAddr, cfg.Redis.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromEnv_DefaultsOnly(t *testing.T) {
	t.Setenv("CAPLINE_DATABASE_USER", "capline")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, "capline", cfg.Database.User)
}
