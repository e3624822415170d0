package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/suite"

	"github.com/planva/capline/internal/application/planning"
	"github.com/planva/capline/internal/infrastructure/database/postgres"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/pkg/types/common"
)

type ResultRepoTestSuite struct {
	suite.Suite
	mock sqlmock.Sqlmock
	db   *sql.DB
	repo planning.ResultStore
}

func (s *ResultRepoTestSuite) SetupTest() {
	var err error
	s.db, s.mock, err = sqlmock.New()
	s.NoError(err)

	logger := logging.NewNopLogger()
	s.repo = NewPostgresResultRepo(postgres.NewConnectionWithDB(s.db, logger), logger)
}

func (s *ResultRepoTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *ResultRepoTestSuite) TestUpsert_ReplacesRowByProject() {
	cost := 2_000_000.0
	effectiveness := 3.5
	p := &planning.RankedProject{
		ProjectID:              common.NewID(),
		ProjectName:            "Roof Replacement",
		CompositeScore:         7.0,
		Rank:                   1,
		Epoch:                  common.NewID(),
		CriterionScores:        map[string]float64{"Urgency": 8},
		TotalCost:              &cost,
		CostEffectivenessScore: &effectiveness,
		CalculatedAt:           time.Now(),
	}
	scores, _ := json.Marshal(p.CriterionScores)

	s.mock.ExpectExec("INSERT INTO composite_score_results").
		WithArgs(p.ProjectID.String(), p.ProjectName, p.CompositeScore, p.Rank, p.Epoch.String(),
			scores, p.TotalCost, p.CostEffectivenessScore, p.CalculatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(s.repo.Upsert(context.Background(), p))
}

func (s *ResultRepoTestSuite) TestListLatest_OnlyNewestEpoch() {
	epoch := common.NewID()
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"project_id", "project_name", "composite_score", "rank", "epoch",
		"criterion_scores", "total_cost", "cost_effectiveness_score", "calculated_at",
	}).
		AddRow(common.NewID().String(), "A", 9.1, 1, epoch.String(), []byte(`{"Urgency":10}`), 1_000_000.0, 9.1, now).
		AddRow(common.NewID().String(), "B", 6.4, 2, epoch.String(), []byte(`{"Urgency":7}`), nil, nil, now)

	s.mock.ExpectQuery("SELECT project_id, project_name, composite_score, rank, epoch").
		WillReturnRows(rows)

	got, err := s.repo.ListLatest(context.Background())
	s.NoError(err)
	s.Len(got, 2)
	s.Equal(1, got[0].Rank)
	s.Equal(epoch, got[0].Epoch)
	s.Equal(10.0, got[0].CriterionScores["Urgency"])
	s.NotNil(got[0].TotalCost)
	s.Nil(got[1].TotalCost)
	s.Nil(got[1].CostEffectivenessScore)
}

func TestResultRepoTestSuite(t *testing.T) {
	suite.Run(t, new(ResultRepoTestSuite))
}
