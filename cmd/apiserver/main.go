// Command apiserver runs the capital planning decision engine HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/planva/capline/internal/application/analysis"
	"github.com/planva/capline/internal/application/forecasting"
	"github.com/planva/capline/internal/application/planning"
	"github.com/planva/capline/internal/config"
	"github.com/planva/capline/internal/infrastructure/database/postgres"
	"github.com/planva/capline/internal/infrastructure/database/postgres/repositories"
	"github.com/planva/capline/internal/infrastructure/database/redis"
	"github.com/planva/capline/internal/infrastructure/messaging/kafka"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/internal/infrastructure/monitoring/prometheus"
	httpapi "github.com/planva/capline/internal/interfaces/http"
	"github.com/planva/capline/internal/interfaces/http/handlers"
)

const defaultConfigPath = "configs/config.yaml"

// Version is injected via ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	migrateUp := flag.Bool("migrate", false, "apply pending database migrations before serving")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.NewLogger(toLogConfig(cfg.Log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("apiserver")

	logger.Info("starting capline API server",
		logging.String("version", Version),
		logging.Int("port", cfg.Server.Port))

	if *migrateUp {
		dbURL := postgres.BuildDSN(cfg.Database)
		if err := postgres.RunMigrations(dbURL, "file://"+cfg.Database.MigrationPath); err != nil {
			logger.Fatal("migrations failed", logging.Err(err))
		}
		logger.Info("migrations applied")
	}

	pg, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		logger.Fatal("postgres connection failed", logging.Err(err))
	}
	defer pg.Close()

	rd, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("redis connection failed", logging.Err(err))
	}
	defer rd.Close()

	producer, err := kafka.NewProducer(cfg.Kafka, logger)
	if err != nil {
		logger.Fatal("kafka producer init failed", logging.Err(err))
	}
	defer producer.Close()

	metrics := prometheus.NewMetrics(prom.NewRegistry())

	planningSvc := planning.NewService(
		repositories.NewPostgresCriteriaRepo(pg, logger),
		repositories.NewPostgresScoreRepo(pg, logger),
		repositories.NewPostgresProjectRepo(pg, logger),
		repositories.NewPostgresResultRepo(pg, logger),
		redis.NewRankCache(rd, logger),
		producer,
		logger,
		metrics,
	)
	analysisSvc := analysis.NewService(repositories.NewPostgresAnalysisRepo(pg, logger), logger, metrics)
	forecastingSvc := forecasting.NewService(
		repositories.NewPostgresSnapshotRepo(pg, logger),
		repositories.NewPostgresForecastRepo(pg, logger),
		producer,
		logger,
		metrics,
		forecasting.Options{
			SnapshotWindow:       cfg.Engine.SnapshotWindow,
			DefaultInflationRate: cfg.Engine.DefaultInflationRate,
		},
	)

	router := httpapi.NewRouter(httpapi.RouterDeps{
		Planning:    planningSvc,
		Analysis:    analysisSvc,
		Forecasting: forecastingSvc,
		Metrics:     metrics,
		Logger:      logger,
		Version:     Version,
		MetricsCfg:  cfg.Metrics,
		Checkers: []handlers.HealthChecker{
			namedChecker{"postgres", pg.HealthCheck},
			namedChecker{"redis", rd.HealthCheck},
		},
	})

	srv := httpapi.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", logging.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("http server error", logging.Err(err))
		}
	}

	if err := srv.Stop(context.Background()); err != nil {
		logger.Error("shutdown failed", logging.Err(err))
	}
	logger.Info("server stopped")
}

// loadConfig reads the config file when present, otherwise falls back to
// environment variables only.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err == nil {
		return config.Load(path)
	}
	fmt.Fprintf(os.Stderr, "config file %s not found, using environment\n", path)
	return config.LoadFromEnv()
}
