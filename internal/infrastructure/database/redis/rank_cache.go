package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/planva/capline/internal/application/planning"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/pkg/errors"
	"github.com/planva/capline/pkg/types/common"
)

// RankCache is the Redis-backed fast read path for ranked project lists.
//
// Each epoch lives under its own key; the current-epoch pointer is set only
// after the epoch's row key is fully written, so readers following the
// pointer always see one complete epoch and never a mix of two passes.
type RankCache struct {
	client *Client
	logger logging.Logger
}

// NewRankCache builds the rank cache on top of an established client.
func NewRankCache(client *Client, log logging.Logger) *RankCache {
	return &RankCache{client: client, logger: log}
}

func (c *RankCache) epochKey(epoch common.ID) string {
	return fmt.Sprintf("%s:rank:epoch:%s", c.client.cfg.KeyPrefix, epoch.String())
}

func (c *RankCache) currentKey() string {
	return c.client.cfg.KeyPrefix + ":rank:current"
}

// WriteEpoch stores the epoch's rows, then flips the current pointer.  The
// pointer write happens last; a crash in between leaves the previous epoch
// intact and current.
func (c *RankCache) WriteEpoch(ctx context.Context, epoch common.ID, projects []planning.RankedProject) error {
	payload, err := json.Marshal(projects)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal ranked projects")
	}

	ttl := c.client.cfg.DefaultTTL
	if err := c.client.rdb.Set(ctx, c.epochKey(epoch), payload, ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to write rank epoch")
	}

	old, err := c.client.rdb.GetSet(ctx, c.currentKey(), epoch.String()).Result()
	if err != nil && err != redis.Nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to publish rank epoch pointer")
	}

	// Drop the superseded epoch eagerly; its TTL would reclaim it anyway.
	if old != "" && old != epoch.String() {
		if err := c.client.rdb.Del(ctx, c.epochKey(common.ID(old))).Err(); err != nil {
			c.logger.Warn("failed to delete superseded rank epoch",
				logging.String("epoch", old), logging.Err(err))
		}
	}

	c.logger.Debug("published rank epoch",
		logging.String("epoch", epoch.String()),
		logging.Int("projects", len(projects)))
	return nil
}

// ReadCurrent returns the rows of the current complete epoch, rank
// ascending, or an ErrCodeCacheEpochMissing error when no epoch has been
// published yet.
func (c *RankCache) ReadCurrent(ctx context.Context) ([]planning.RankedProject, error) {
	epoch, err := c.client.rdb.Get(ctx, c.currentKey()).Result()
	if err == redis.Nil {
		return nil, errors.New(errors.ErrCodeCacheEpochMissing, "no rank epoch published")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to read rank epoch pointer")
	}

	payload, err := c.client.rdb.Get(ctx, c.epochKey(common.ID(epoch))).Bytes()
	if err == redis.Nil {
		// Pointer outlived its rows (TTL expiry); treat as a cold cache.
		return nil, errors.New(errors.ErrCodeCacheEpochMissing, "rank epoch rows expired").
			WithDetail("epoch=" + epoch)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to read rank epoch rows")
	}

	var projects []planning.RankedProject
	if err := json.Unmarshal(payload, &projects); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal ranked projects")
	}
	return projects, nil
}
