package redis

import (
	"context"
	"testing"
	"time"

	"campus-quiz-service/internal/domain"
	"campus-quiz-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type countingStore struct {
	*memory.QuizStore
	gets int
}

func (s *countingStore) Get(ctx context.Context, quizID string) (domain.Quiz, error) {
	s.gets++
	return s.QuizStore.Get(ctx, quizID)
}

func newCacheFixture(t *testing.T) (*QuizCache, *countingStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inner := &countingStore{QuizStore: memory.NewQuizStore()}
	return NewQuizCache(client, inner, time.Minute), inner, mr
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:       "quiz-1",
		OwnerID:  "prof-1",
		Name:     "Sample",
		Password: "XYZ123",
		IsActive: true,
		Questions: []domain.Question{
			{ID: 1, Text: "2+2?", Type: domain.QuestionTypeMultipleChoice, Options: []string{"3", "4"}, CorrectAnswer: "4", Points: 1},
		},
		TotalPoints:    1,
		TotalQuestions: 1,
	}
}

func TestQuizCacheReadThrough(t *testing.T) {
	ctx := context.Background()
	cache, inner, _ := newCacheFixture(t)

	quiz := sampleQuiz()
	if err := cache.Insert(ctx, &quiz); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := cache.Get(ctx, "quiz-1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if inner.gets != 1 {
		t.Fatalf("expected one inner read, got %d", inner.gets)
	}

	// Second read is served from Redis.
	got, err := cache.Get(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get 2: %v", err)
	}
	if inner.gets != 1 {
		t.Fatalf("expected cache hit, inner reads %d", inner.gets)
	}
	if got.Password != "XYZ123" {
		t.Fatalf("password must survive the cache roundtrip, got %q", got.Password)
	}
	if got.Questions[0].CorrectAnswer != "4" {
		t.Fatalf("cached quiz lost content: %+v", got.Questions[0])
	}
}

func TestQuizCacheInvalidatesOnWrite(t *testing.T) {
	ctx := context.Background()
	cache, inner, mr := newCacheFixture(t)

	quiz := sampleQuiz()
	if err := cache.Insert(ctx, &quiz); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := cache.Get(ctx, "quiz-1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if !mr.Exists("quiz:doc:quiz-1") {
		t.Fatal("expected cached entry")
	}

	if _, err := cache.SetActive(ctx, "quiz-1", "prof-1", false, time.Now()); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if mr.Exists("quiz:doc:quiz-1") {
		t.Fatal("write must drop the cached entry")
	}

	got, err := cache.Get(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get after write: %v", err)
	}
	if got.IsActive {
		t.Fatal("stale active flag served after invalidation")
	}
	if inner.gets != 2 {
		t.Fatalf("expected re-read after invalidation, inner reads %d", inner.gets)
	}
}

func TestQuizCacheMissPropagatesNotFound(t *testing.T) {
	ctx := context.Background()
	cache, _, _ := newCacheFixture(t)

	if _, err := cache.Get(ctx, "missing"); err != domain.ErrQuizNotFound {
		t.Fatalf("expected not-found, got %v", err)
	}
}
