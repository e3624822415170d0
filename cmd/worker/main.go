// Command worker runs the background recalculation worker: it drives
// periodic ranking passes and reacts to score invalidation events from
// Kafka.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/planva/capline/internal/application/planning"
	"github.com/planva/capline/internal/config"
	"github.com/planva/capline/internal/infrastructure/database/postgres"
	"github.com/planva/capline/internal/infrastructure/database/postgres/repositories"
	"github.com/planva/capline/internal/infrastructure/database/redis"
	"github.com/planva/capline/internal/infrastructure/messaging/kafka"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/internal/infrastructure/monitoring/prometheus"
)

const defaultConfigPath = "configs/config.yaml"

// Version is injected via ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(toLogConfig(cfg.Log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("worker")

	logger.Info("starting capline worker",
		logging.String("version", Version),
		logging.Duration("recalc_interval", cfg.Worker.RecalcInterval))

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

	consumer, err := kafka.NewConsumer(cfg.Kafka, kafka.TopicScoresInvalidated, logger)
	if err != nil {
		logger.Fatal("kafka consumer init failed", logging.Err(err))
	}
	defer consumer.Close()

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

	w := &worker{
		planning: planningSvc,
		logger:   logger,
		retries:  cfg.Worker.MaxRetries,
		backoff:  cfg.Worker.RetryBackoff,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.runTicker(gctx, cfg.Worker.RecalcInterval)
	})
	g.Go(func() error {
		return consumer.Run(gctx, w.handleInvalidation)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("worker stopped with error", logging.Err(err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

// worker owns the recalculation loop.
type worker struct {
	planning *planning.Service
	logger   logging.Logger
	retries  int
	backoff  time.Duration
}

// runTicker triggers a full pass at startup and then at every interval.
func (w *worker) runTicker(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.recalculate(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.recalculate(ctx)
		}
	}
}

// handleInvalidation reacts to a score invalidation event by running a
// fresh pass.  A failed pass is retried with backoff; the final error
// stops the consumer with the message uncommitted, so the restarted
// worker resumes from the last commit and sees the event again.
func (w *worker) handleInvalidation(ctx context.Context, env kafka.EventEnvelope) error {
	w.logger.Info("score invalidation received", logging.String("event_id", env.EventID.String()))
	return w.recalculate(ctx)
}

func (w *worker) recalculate(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt <= w.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.backoff * time.Duration(attempt)):
			}
		}

		summary, err := w.planning.RecalculateAll(ctx)
		if err == nil {
			w.logger.Info("recalculation pass complete",
				logging.String("epoch", summary.Epoch.String()),
				logging.Int("processed", summary.Processed),
				logging.Int("failed", summary.Failed))
			return nil
		}

		lastErr = err
		w.logger.Warn("recalculation pass failed",
			logging.Int("attempt", attempt+1), logging.Err(err))
	}
	return lastErr
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

// toLogConfig translates the app-level log config into the logging
// package's shape.
func toLogConfig(cfg config.LogConfig) logging.LogConfig {
	format := cfg.Format
	if format == "text" {
		format = "console"
	}

	out := cfg.Output
	if out == "" {
		out = "stdout"
	}

	return logging.LogConfig{
		Level:            cfg.Level,
		Format:           format,
		OutputPaths:      []string{out},
		ErrorOutputPaths: []string{"stderr"},
	}
}
