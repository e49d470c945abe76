package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"live-quiz-service/internal/domain"
)

// QuizLoader fetches the sorted quiz list from the record store.
type QuizLoader interface {
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
}

// QuizCatalog caches the quiz list in Redis and falls back to a loader on cache miss.
// The list is stored as JSON under a versioned key:
//
//	GET  quiz:catalog:version        -> n
//	GET  quiz:catalog:list:{n}       -> [quiz, ...]
//
// Invalidate bumps the version, so every instance sharing the Redis sees the change.
// Redis errors degrade to loading from the store.
type QuizCatalog struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizCatalog(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizCatalog {
	return &QuizCatalog{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizCatalog) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	version, err := c.version(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("catalog version lookup failed, loading from store")
		return c.loader.ListQuizzes(ctx)
	}
	listKey := c.listKey(version)

	if quizzes, ok := c.cached(ctx, listKey); ok {
		return quizzes, nil
	}

	result, err, _ := c.sf.Do(listKey, func() (interface{}, error) {
		// Re-check cache in case another instance filled it.
		if quizzes, ok := c.cached(ctx, listKey); ok {
			return quizzes, nil
		}

		quizzes, err := c.loader.ListQuizzes(ctx)
		if err != nil {
			return nil, err
		}
		if c.ttl <= 0 {
			return quizzes, nil
		}

		data, err := json.Marshal(quizzes)
		if err != nil {
			return quizzes, nil
		}
		// only cache if nobody invalidated while we were loading
		current, err := c.version(ctx)
		if err == nil && current == version {
			if err := c.client.Set(ctx, listKey, data, c.ttlWithJitter()).Err(); err != nil {
				log.Warn().Err(err).Msg("catalog cache write failed")
			}
		}
		return quizzes, nil
	})
	if err != nil {
		return nil, err
	}
	quizzes := result.([]domain.Quiz)
	out := make([]domain.Quiz, len(quizzes))
	copy(out, quizzes)
	return out, nil
}

// Invalidate moves readers to a fresh version key; the old list expires on its own.
func (c *QuizCatalog) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, c.versionKey()).Err(); err != nil {
		log.Warn().Err(err).Msg("catalog invalidate failed")
	}
}

func (c *QuizCatalog) cached(ctx context.Context, key string) ([]domain.Quiz, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
		}
		return nil, false
	}
	var quizzes []domain.Quiz
	if err := json.Unmarshal(data, &quizzes); err != nil {
		return nil, false
	}
	return quizzes, true
}

func (c *QuizCatalog) version(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, c.versionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *QuizCatalog) versionKey() string {
	return "quiz:catalog:version"
}

func (c *QuizCatalog) listKey(version int64) string {
	return "quiz:catalog:list:" + strconv.FormatInt(version, 10)
}

func (c *QuizCatalog) ttlWithJitter() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
