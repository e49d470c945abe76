package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"live-quiz-service/internal/domain"
)

// QuizLoader fetches the sorted quiz list from the record store.
type QuizLoader interface {
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
}

// QuizCatalog caches the quiz list with a TTL so polling clients do not hit the store
// on every request. Invalidate bumps a generation; loads started before the bump are not cached.
type QuizCatalog struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu         sync.Mutex
	generation uint64
	cached     []domain.Quiz
	valid      bool
	expiresAt  time.Time
}

func NewQuizCatalog(loader QuizLoader, ttl time.Duration) *QuizCatalog {
	return &QuizCatalog{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizCatalog) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	if quizzes, ok := c.fresh(); ok {
		return quizzes, nil
	}

	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	// keyed by generation so callers arriving after Invalidate never join a stale load
	result, err, _ := c.sf.Do(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		quizzes, err := c.loader.ListQuizzes(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if gen == c.generation && c.ttl > 0 {
			c.cached = quizzes
			c.valid = true
			c.expiresAt = c.clock().Add(c.ttlWithJitter())
		}
		c.mu.Unlock()
		return quizzes, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneQuizzes(result.([]domain.Quiz)), nil
}

// Invalidate drops the cached list.
func (c *QuizCatalog) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.cached = nil
	c.valid = false
}

func (c *QuizCatalog) fresh() ([]domain.Quiz, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid || !c.expiresAt.After(c.clock()) {
		return nil, false
	}
	return cloneQuizzes(c.cached), true
}

func (c *QuizCatalog) ttlWithJitter() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func cloneQuizzes(in []domain.Quiz) []domain.Quiz {
	out := make([]domain.Quiz, len(in))
	copy(out, in)
	return out
}
