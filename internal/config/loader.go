package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all engine settings.
const envPrefix = "CAPLINE"

// newViper builds a pre-configured Viper instance: YAML file type, CAPLINE_
// env prefix, automatic env binding, and a key replacer that maps "." to
// "_" so that nested keys like "database.host" resolve to
// "CAPLINE_DATABASE_HOST".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerKeys(v)
	return v
}

// registerKeys declares every config key to viper.  AutomaticEnv only
// resolves keys viper already knows about, so without this an env-only
// deployment would silently ignore its CAPLINE_* variables.
func registerKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.port", "server.mode", "server.read_timeout", "server.write_timeout",
		"server.max_body_size", "server.shutdown_timeout",
		"database.host", "database.port", "database.user", "database.password",
		"database.db_name", "database.ssl_mode", "database.max_conns",
		"database.max_idle_conns", "database.conn_max_lifetime",
		"database.conn_max_idle_time", "database.migration_path",
		"redis.addr", "redis.password", "redis.db", "redis.pool_size",
		"redis.min_idle_conns", "redis.dial_timeout", "redis.read_timeout",
		"redis.write_timeout", "redis.default_ttl", "redis.key_prefix",
		"kafka.brokers", "kafka.group_id", "kafka.auto_offset_reset",
		"kafka.producer_retries", "kafka.batch_size",
		"worker.recalc_interval", "worker.max_retries", "worker.retry_backoff",
		"log.level", "log.format", "log.output", "log.enable_caller",
		"log.enable_stacktrace",
		"metrics.enabled", "metrics.path",
		"engine.snapshot_window", "engine.default_forecast_years",
		"engine.default_discount_rate", "engine.default_inflation_rate",
	} {
		v.SetDefault(key, nil)
	}
}

// Load reads the YAML file at configPath, merges any CAPLINE_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from CAPLINE_* environment
// variables, with no config file required.  This is the preferred loading
// strategy for containerised deployments.
//
// Naming convention:
//
//	CAPLINE_<SECTION>_<FIELD>   e.g.  CAPLINE_DATABASE_HOST, CAPLINE_REDIS_ADDR
func LoadFromEnv() (*Config, error) {
	v := newViper()
	return unmarshalAndFinalize(v)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed Config whenever the file is modified on disk.  It is intended for
// hot-reloading non-critical settings such as log level; callers are
// responsible for applying only the safe subset of changes at runtime.
//
// Watch is non-blocking; it starts a background goroutine managed by viper.
// A change that fails to parse or validate is dropped without invoking
// onChange.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read; callers should have called Load first.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
}

// MustLoad wraps Load and panics on any error.  Intended for main() where a
// config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
