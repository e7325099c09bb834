package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

const DefaultTTL = 5 * time.Minute

// Source is the origin a QuizCache reads through to.
type Source interface {
	FetchQuiz(ctx context.Context, activityID string) (quiz.Config, error)
}

// Store is the subset of *redis.Client the cache uses.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// QuizCache is a read-through cache of quiz definitions. A broken cache
// never fails a fetch: errors are logged and the origin is used.
type QuizCache struct {
	origin Source
	client Store
	ttl    time.Duration
	log    *zap.Logger
}

func NewQuizCache(origin Source, client Store, ttl time.Duration, log *zap.Logger) *QuizCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &QuizCache{origin: origin, client: client, ttl: ttl, log: log}
}

func (c *QuizCache) key(activityID string) string {
	return fmt.Sprintf("quiz:config:%s", activityID)
}

func (c *QuizCache) FetchQuiz(ctx context.Context, activityID string) (quiz.Config, error) {
	if cfg, ok := c.get(ctx, activityID); ok {
		return cfg, nil
	}
	cfg, err := c.origin.FetchQuiz(ctx, activityID)
	if err != nil {
		return quiz.Config{}, err
	}
	c.set(ctx, activityID, cfg)
	return cfg, nil
}

// Invalidate drops a cached definition.
func (c *QuizCache) Invalidate(ctx context.Context, activityID string) error {
	return c.client.Del(ctx, c.key(activityID)).Err()
}

func (c *QuizCache) get(ctx context.Context, activityID string) (quiz.Config, bool) {
	data, err := c.client.Get(ctx, c.key(activityID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return quiz.Config{}, false
	}
	if err != nil {
		c.log.Warn("quiz cache read failed", zap.String("activity_id", activityID), zap.Error(err))
		return quiz.Config{}, false
	}
	var cfg quiz.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		c.log.Warn("quiz cache entry corrupt", zap.String("activity_id", activityID), zap.Error(err))
		return quiz.Config{}, false
	}
	return cfg, true
}

func (c *QuizCache) set(ctx context.Context, activityID string, cfg quiz.Config) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(activityID), data, c.ttl).Err(); err != nil {
		c.log.Warn("quiz cache write failed", zap.String("activity_id", activityID), zap.Error(err))
	}
}
