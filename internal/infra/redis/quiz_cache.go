package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"campus-quiz-service/internal/app"
	"campus-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuizCache is a read-through cache over any app.QuizRepository. Reads are
// served from Redis when possible; every write goes to the inner store first
// and then drops the cached entry.
type QuizCache struct {
	client *redis.Client
	inner  app.QuizRepository
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

// cachedQuiz carries the password alongside the quiz, since the domain JSON
// encoding deliberately omits it.
type cachedQuiz struct {
	Quiz     domain.Quiz `json:"quiz"`
	Password string      `json:"password"`
}

func NewQuizCache(client *redis.Client, inner app.QuizRepository, ttl time.Duration) *QuizCache {
	return &QuizCache{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizCache) Get(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := c.cached(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if quiz, ok := c.cached(ctx, quizID); ok {
			return quiz, nil
		}
		quiz, err := c.inner.Get(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		c.fill(ctx, quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *QuizCache) Insert(ctx context.Context, quiz *domain.Quiz) error {
	if err := c.inner.Insert(ctx, quiz); err != nil {
		return err
	}
	c.invalidate(ctx, quiz.ID)
	return nil
}

func (c *QuizCache) ListByOwner(ctx context.Context, ownerID string) ([]domain.Quiz, error) {
	return c.inner.ListByOwner(ctx, ownerID)
}

func (c *QuizCache) Update(ctx context.Context, quiz *domain.Quiz) error {
	if err := c.inner.Update(ctx, quiz); err != nil {
		return err
	}
	c.invalidate(ctx, quiz.ID)
	return nil
}

func (c *QuizCache) SetActive(ctx context.Context, quizID, ownerID string, active bool, at time.Time) (domain.Quiz, error) {
	quiz, err := c.inner.SetActive(ctx, quizID, ownerID, active, at)
	if err != nil {
		return domain.Quiz{}, err
	}
	c.invalidate(ctx, quizID)
	return quiz, nil
}

func (c *QuizCache) Delete(ctx context.Context, quizID, ownerID string) error {
	if err := c.inner.Delete(ctx, quizID, ownerID); err != nil {
		return err
	}
	c.invalidate(ctx, quizID)
	return nil
}

func (c *QuizCache) UpdateStats(ctx context.Context, quizID string, stats domain.QuizStats) error {
	if err := c.inner.UpdateStats(ctx, quizID, stats); err != nil {
		return err
	}
	c.invalidate(ctx, quizID)
	return nil
}

func (c *QuizCache) cached(ctx context.Context, quizID string) (domain.Quiz, bool) {
	raw, err := c.client.Get(ctx, c.key(quizID)).Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	var entry cachedQuiz
	if err := json.Unmarshal(raw, &entry); err != nil {
		return domain.Quiz{}, false
	}
	entry.Quiz.Password = entry.Password
	return entry.Quiz, true
}

// fill and invalidate are best-effort; a cache miss only costs a store read.
func (c *QuizCache) fill(ctx context.Context, quiz domain.Quiz) {
	raw, err := json.Marshal(cachedQuiz{Quiz: quiz, Password: quiz.Password})
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.key(quiz.ID), raw, c.ttlWithJitter()).Err()
}

func (c *QuizCache) invalidate(ctx context.Context, quizID string) {
	_ = c.client.Del(ctx, c.key(quizID)).Err()
}

func (c *QuizCache) key(quizID string) string {
	return "quiz:doc:" + quizID
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
