package directory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"investor-matching/internal/common/logger"
	"investor-matching/internal/models"

	"github.com/redis/go-redis/v9"
)

const profileKeyPrefix = "startup:profile:"

// ProfileCache keeps startup profiles in redis. Every failure is a miss: the cache never decides
// the outcome of a request.
type ProfileCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewProfileCache(client redis.Cmdable, ttl time.Duration, log logger.Logger) *ProfileCache {
	return &ProfileCache{client: client, ttl: ttl, logger: log}
}

func (c *ProfileCache) Get(ctx context.Context, id string) (*models.Startup, bool) {
	val, err := c.client.Get(ctx, profileKeyPrefix+id).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("profile cache read failed", map[string]interface{}{"startupId": id, "error": err.Error()})
		}
		return nil, false
	}
	var s models.Startup
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return nil, false
	}
	return &s, true
}

func (c *ProfileCache) Set(ctx context.Context, s *models.Startup) {
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, profileKeyPrefix+s.ID, data, c.ttl).Err(); err != nil {
		c.logger.Warn("profile cache write failed", map[string]interface{}{"startupId": s.ID, "error": err.Error()})
	}
}
