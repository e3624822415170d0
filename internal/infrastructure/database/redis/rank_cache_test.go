package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/suite"

	"github.com/planva/capline/internal/application/planning"
	"github.com/planva/capline/internal/config"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/pkg/errors"
	"github.com/planva/capline/pkg/types/common"
)

type RankCacheTestSuite struct {
	suite.Suite
	mock  redismock.ClientMock
	cache *RankCache
}

func (s *RankCacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock

	client := NewClientWithRedis(db, config.RedisConfig{
		KeyPrefix:  "capline",
		DefaultTTL: time.Hour,
	}, logging.NewNopLogger())
	s.cache = NewRankCache(client, logging.NewNopLogger())
}

func (s *RankCacheTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func rankedFixture(epoch common.ID) []planning.RankedProject {
	return []planning.RankedProject{
		{ProjectID: common.NewID(), ProjectName: "A", CompositeScore: 9.1, Rank: 1, Epoch: epoch},
		{ProjectID: common.NewID(), ProjectName: "B", CompositeScore: 6.4, Rank: 2, Epoch: epoch},
	}
}

func (s *RankCacheTestSuite) TestWriteEpoch_RowsBeforePointer() {
	epoch := common.NewID()
	projects := rankedFixture(epoch)
	payload, _ := json.Marshal(projects)

	// Row key first, pointer flip second.  Ordering is part of the
	// contract: readers following the pointer must find complete rows.
	s.mock.ExpectSet("capline:rank:epoch:"+epoch.String(), payload, time.Hour).SetVal("OK")
	s.mock.ExpectGetSet("capline:rank:current", epoch.String()).RedisNil()

	s.NoError(s.cache.WriteEpoch(context.Background(), epoch, projects))
}

func (s *RankCacheTestSuite) TestWriteEpoch_DeletesSupersededEpoch() {
	oldEpoch := common.NewID()
	epoch := common.NewID()
	projects := rankedFixture(epoch)
	payload, _ := json.Marshal(projects)

	s.mock.ExpectSet("capline:rank:epoch:"+epoch.String(), payload, time.Hour).SetVal("OK")
	s.mock.ExpectGetSet("capline:rank:current", epoch.String()).SetVal(oldEpoch.String())
	s.mock.ExpectDel("capline:rank:epoch:" + oldEpoch.String()).SetVal(1)

	s.NoError(s.cache.WriteEpoch(context.Background(), epoch, projects))
}

func (s *RankCacheTestSuite) TestReadCurrent_ReturnsPublishedEpoch() {
	epoch := common.NewID()
	projects := rankedFixture(epoch)
	payload, _ := json.Marshal(projects)

	s.mock.ExpectGet("capline:rank:current").SetVal(epoch.String())
	s.mock.ExpectGet("capline:rank:epoch:" + epoch.String()).SetVal(string(payload))

	got, err := s.cache.ReadCurrent(context.Background())
	s.NoError(err)
	s.Len(got, 2)
	s.Equal(1, got[0].Rank)
	s.Equal(epoch, got[0].Epoch)
}

func (s *RankCacheTestSuite) TestReadCurrent_NoEpochPublished() {
	s.mock.ExpectGet("capline:rank:current").RedisNil()

	_, err := s.cache.ReadCurrent(context.Background())
	s.Error(err)
	s.True(errors.IsCode(err, errors.ErrCodeCacheEpochMissing))
}

func (s *RankCacheTestSuite) TestReadCurrent_PointerOutlivedRows() {
	epoch := common.NewID()
	s.mock.ExpectGet("capline:rank:current").SetVal(epoch.String())
	s.mock.ExpectGet("capline:rank:epoch:" + epoch.String()).RedisNil()

	_, err := s.cache.ReadCurrent(context.Background())
	s.Error(err)
	s.True(errors.IsCode(err, errors.ErrCodeCacheEpochMissing))
}

func TestRankCacheTestSuite(t *testing.T) {
	suite.Run(t, new(RankCacheTestSuite))
}
