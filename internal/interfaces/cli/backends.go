package cli

import (
	"github.com/planva/capline/internal/application/analysis"
	"github.com/planva/capline/internal/application/forecasting"
	"github.com/planva/capline/internal/application/planning"
	"github.com/planva/capline/internal/config"
	"github.com/planva/capline/internal/infrastructure/database/postgres"
	"github.com/planva/capline/internal/infrastructure/database/postgres/repositories"
	"github.com/planva/capline/internal/infrastructure/database/redis"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
)

// backends bundles the live connections a backend-dependent command needs.
// Pure commands (rate, analyze without --persist) never open one.
type backends struct {
	cfg    *config.Config
	pg     *postgres.Connection
	rd     *redis.Client
	logger logging.Logger
}

// openBackends connects to PostgreSQL and Redis from the loaded config.
func openBackends(cliCtx *CLIContext) (*backends, error) {
	pg, err := postgres.NewConnection(cliCtx.Config.Database, cliCtx.Logger)
	if err != nil {
		return nil, err
	}

	rd, err := redis.NewClient(cliCtx.Config.Redis, cliCtx.Logger)
	if err != nil {
		pg.Close()
		return nil, err
	}

	return &backends{cfg: cliCtx.Config, pg: pg, rd: rd, logger: cliCtx.Logger}, nil
}

func (b *backends) Close() {
	if b.rd != nil {
		b.rd.Close()
	}
	if b.pg != nil {
		b.pg.Close()
	}
}

// planningService assembles the ranking coordinator over the open
// connections.  The CLI publishes no events; passes triggered manually are
// visible to the operator already.
func (b *backends) planningService() *planning.Service {
	return planning.NewService(
		repositories.NewPostgresCriteriaRepo(b.pg, b.logger),
		repositories.NewPostgresScoreRepo(b.pg, b.logger),
		repositories.NewPostgresProjectRepo(b.pg, b.logger),
		repositories.NewPostgresResultRepo(b.pg, b.logger),
		redis.NewRankCache(b.rd, b.logger),
		nil,
		b.logger,
		nil,
	)
}

func (b *backends) forecastingService() *forecasting.Service {
	return forecasting.NewService(
		repositories.NewPostgresSnapshotRepo(b.pg, b.logger),
		repositories.NewPostgresForecastRepo(b.pg, b.logger),
		nil,
		b.logger,
		nil,
		forecasting.Options{
			SnapshotWindow:       b.cfg.Engine.SnapshotWindow,
			DefaultInflationRate: b.cfg.Engine.DefaultInflationRate,
		},
	)
}

func (b *backends) analysisService() *analysis.Service {
	return analysis.NewService(
		repositories.NewPostgresAnalysisRepo(b.pg, b.logger),
		b.logger,
		nil,
	)
}
