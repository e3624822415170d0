package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/suite"

	"github.com/planva/capline/internal/domain/criteria"
	"github.com/planva/capline/internal/infrastructure/database/postgres"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/pkg/errors"
	"github.com/planva/capline/pkg/types/common"
)

type CriteriaRepoTestSuite struct {
	suite.Suite
	mock   sqlmock.Sqlmock
	db     *sql.DB
	repo   criteria.Repository
	scores criteria.ScoreRepository
}

func (s *CriteriaRepoTestSuite) SetupTest() {
	var err error
	s.db, s.mock, err = sqlmock.New()
	s.NoError(err)

	logger := logging.NewNopLogger()
	conn := postgres.NewConnectionWithDB(s.db, logger)
	s.repo = NewPostgresCriteriaRepo(conn, logger)
	s.scores = NewPostgresScoreRepo(conn, logger)
}

func (s *CriteriaRepoTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *CriteriaRepoTestSuite) criterionCols() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "category", "weight", "is_active", "display_order", "created_at", "updated_at",
	})
}

func (s *CriteriaRepoTestSuite) TestListActive_OrderedByDisplayOrder() {
	now := time.Now()
	rows := s.criterionCols().
		AddRow(common.NewID().String(), "Urgency", "risk", 40.0, true, 1, now, now).
		AddRow(common.NewID().String(), "Condition", "asset", 60.0, true, 2, now, now)

	s.mock.ExpectQuery("SELECT id, name, category, weight, is_active, display_order, created_at, updated_at FROM criteria").
		WillReturnRows(rows)

	got, err := s.repo.ListActive(context.Background())
	s.NoError(err)
	s.Len(got, 2)
	s.Equal("Urgency", got[0].Name)
	s.Equal(40.0, got[0].Weight)
}

func (s *CriteriaRepoTestSuite) TestGetByID_NotFound() {
	id := common.NewID()
	s.mock.ExpectQuery("SELECT id, name, category, weight, is_active, display_order, created_at, updated_at").
		WithArgs(id.String()).
		WillReturnError(sql.ErrNoRows)

	_, err := s.repo.GetByID(context.Background(), id)
	s.Error(err)
	s.True(errors.IsNotFound(err))
}

func (s *CriteriaRepoTestSuite) TestUpdateWeights_CommitsAllRows() {
	items := []criteria.Criterion{
		{ID: common.NewID(), Weight: 55},
		{ID: common.NewID(), Weight: 45},
	}

	s.mock.ExpectBegin()
	for _, c := range items {
		s.mock.ExpectExec("UPDATE criteria SET weight").
			WithArgs(c.Weight, c.ID.String()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	s.mock.ExpectCommit()

	s.NoError(s.repo.UpdateWeights(context.Background(), items))
}

func (s *CriteriaRepoTestSuite) TestUpdateWeights_MissingCriterionRollsBack() {
	items := []criteria.Criterion{{ID: common.NewID(), Weight: 100}}

	s.mock.ExpectBegin()
	s.mock.ExpectExec("UPDATE criteria SET weight").
		WithArgs(items[0].Weight, items[0].ID.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectRollback()

	err := s.repo.UpdateWeights(context.Background(), items)
	s.Error(err)
	s.True(errors.IsNotFound(err))
}

func (s *CriteriaRepoTestSuite) TestScoreUpsert_OnConflictUpdates() {
	score := &criteria.CriterionScore{
		ProjectID:   common.NewID(),
		CriterionID: common.NewID(),
		Score:       8.5,
	}

	s.mock.ExpectExec("INSERT INTO criterion_scores").
		WithArgs(score.ProjectID.String(), score.CriterionID.String(), score.Score, score.Justification).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(s.scores.Upsert(context.Background(), score))
}

func (s *CriteriaRepoTestSuite) TestScoreUpsert_RejectsOutOfRange() {
	score := &criteria.CriterionScore{
		ProjectID:   common.NewID(),
		CriterionID: common.NewID(),
		Score:       11,
	}
	err := s.scores.Upsert(context.Background(), score)
	s.Error(err)
	s.True(errors.IsValidation(err))
}

func (s *CriteriaRepoTestSuite) TestListByProject_EmptyIsNotAnError() {
	projectID := common.NewID()
	s.mock.ExpectQuery("SELECT project_id, criterion_id, score, justification").
		WithArgs(projectID.String()).
		WillReturnRows(sqlmock.NewRows([]string{
			"project_id", "criterion_id", "score", "justification", "created_at", "updated_at",
		}))

	got, err := s.scores.ListByProject(context.Background(), projectID)
	s.NoError(err)
	s.Empty(got)
}

func TestCriteriaRepoTestSuite(t *testing.T) {
	suite.Run(t, new(CriteriaRepoTestSuite))
}
