// Package integration holds full-stack tests that run against real
// PostgreSQL and Redis instances.  They are skipped unless
// CAPLINE_INTEGRATION_TEST is set; connection parameters come from the
// usual CAPLINE_* environment variables.
package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/planva/capline/internal/config"
	"github.com/planva/capline/internal/infrastructure/database/postgres"
	"github.com/planva/capline/internal/infrastructure/database/redis"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/pkg/types/common"
)

// envEnabled gates the whole package.
const envEnabled = "CAPLINE_INTEGRATION_TEST"

// migrationsPath is relative to this package.
const migrationsPath = "file://../../migrations"

// testEnv bundles live connections for one test.
type testEnv struct {
	cfg *config.Config
	pg  *postgres.Connection
	rd  *redis.Client
}

// setup skips unless integration testing is enabled, then connects,
// migrates, and wipes all tables.  Teardown is registered via t.Cleanup.
func setup(t *testing.T) *testEnv {
	t.Helper()

	if os.Getenv(envEnabled) == "" {
		t.Skipf("set %s=1 to run integration tests", envEnabled)
	}

	cfg, err := config.LoadFromEnv()
	require.NoError(t, err)

	logger := logging.NewNopLogger()

	require.NoError(t, postgres.RunMigrations(postgres.BuildDSN(cfg.Database), migrationsPath))

	pg, err := postgres.NewConnection(cfg.Database, logger)
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })

	rd, err := redis.NewClient(cfg.Redis, logger)
	require.NoError(t, err)
	t.Cleanup(func() { rd.Close() })

	env := &testEnv{cfg: cfg, pg: pg, rd: rd}
	env.truncateAll(t)
	env.flushCache(t)
	return env
}

func (e *testEnv) truncateAll(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := e.pg.DB().ExecContext(ctx, `
		TRUNCATE investment_analyses, financial_forecasts, portfolio_snapshots,
			composite_score_results, criterion_scores, criteria, projects CASCADE
	`)
	require.NoError(t, err)
}

func (e *testEnv) flushCache(t *testing.T) {
	t.Helper()
	require.NoError(t, e.rd.Redis().FlushDB(context.Background()).Err())
}

func (e *testEnv) insertProject(t *testing.T, name string, totalCost *float64) common.ID {
	t.Helper()

	id := common.NewID()
	_, err := e.pg.DB().ExecContext(context.Background(),
		`INSERT INTO projects (id, name, total_cost) VALUES ($1, $2, $3)`,
		id.String(), name, totalCost)
	require.NoError(t, err)
	return id
}

func (e *testEnv) insertCriterion(t *testing.T, name string, weight float64, order int) common.ID {
	t.Helper()

	id := common.NewID()
	_, err := e.pg.DB().ExecContext(context.Background(),
		`INSERT INTO criteria (id, name, weight, is_active, display_order) VALUES ($1, $2, $3, TRUE, $4)`,
		id.String(), name, weight, order)
	require.NoError(t, err)
	return id
}

func (e *testEnv) insertScore(t *testing.T, projectID, criterionID common.ID, score float64) {
	t.Helper()

	_, err := e.pg.DB().ExecContext(context.Background(),
		`INSERT INTO criterion_scores (project_id, criterion_id, score) VALUES ($1, $2, $3)`,
		projectID.String(), criterionID.String(), score)
	require.NoError(t, err)
}
