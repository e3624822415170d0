package config

import "time"

const (
	DefaultServerPort = 8080
	DefaultServerMode = "release"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "capline"
	DefaultDBMaxConns = 25

	DefaultMigrationPath = "migrations"

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "capline"
	DefaultRedisTTL       = 24 * time.Hour

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "capline-workers"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsPath = "/metrics"

	DefaultRecalcInterval = 15 * time.Minute

	DefaultSnapshotWindow = 60
	DefaultForecastYears  = 10
	DefaultDiscountRate   = 8.0  // percent
	DefaultInflationRate  = 0.03 // fraction
)

// ApplyDefaults fills every zero-value field in cfg with the platform
// default.  Fields already set by the caller are left unchanged so that
// explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// Server
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = DefaultMigrationPath
	}

	// Redis
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = DefaultRedisTTL
	}

	// Kafka
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}

	// Worker
	if cfg.Worker.RecalcInterval == 0 {
		cfg.Worker.RecalcInterval = DefaultRecalcInterval
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Worker.RetryBackoff == 0 {
		cfg.Worker.RetryBackoff = 5 * time.Second
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// Metrics
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// Engine
	if cfg.Engine.SnapshotWindow == 0 {
		cfg.Engine.SnapshotWindow = DefaultSnapshotWindow
	}
	if cfg.Engine.DefaultForecastYears == 0 {
		cfg.Engine.DefaultForecastYears = DefaultForecastYears
	}
	if cfg.Engine.DefaultDiscountRate == 0 {
		cfg.Engine.DefaultDiscountRate = DefaultDiscountRate
	}
	if cfg.Engine.DefaultInflationRate == 0 {
		cfg.Engine.DefaultInflationRate = DefaultInflationRate
	}
}
