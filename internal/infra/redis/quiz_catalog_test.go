package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"live-quiz-service/internal/domain"
)

type stubLoader struct {
	calls   int
	quizzes []domain.Quiz
	err     error
}

func (l *stubLoader) ListQuizzes(context.Context) ([]domain.Quiz, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	out := make([]domain.Quiz, len(l.quizzes))
	copy(out, l.quizzes)
	return out, nil
}

func sampleQuiz(id int64, question string) domain.Quiz {
	return domain.Quiz{
		ID:            id,
		Question:      question,
		OptionA:       "a",
		OptionB:       "b",
		OptionC:       "c",
		OptionD:       "d",
		CorrectAnswer: domain.SelectionB,
		Order:         int(id),
		TimeLimit:     domain.DefaultTimeLimit,
	}
}

func TestQuizCatalogCachesInRedis(t *testing.T) {
	mr, client := newTestClient(t)
	loader := &stubLoader{quizzes: []domain.Quiz{sampleQuiz(1, "first")}}
	catalog := NewQuizCatalog(client, loader, time.Minute)
	ctx := context.Background()

	if _, err := catalog.ListQuizzes(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !mr.Exists("quiz:catalog:list:0") {
		t.Fatalf("expected list key to be written")
	}

	quizzes, err := catalog.ListQuizzes(ctx)
	if err != nil {
		t.Fatalf("list 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
	if len(quizzes) != 1 || quizzes[0].Question != "first" || quizzes[0].CorrectAnswer != domain.SelectionB {
		t.Fatalf("unexpected cached quizzes %+v", quizzes)
	}
}

func TestQuizCatalogInvalidateBumpsVersion(t *testing.T) {
	mr, client := newTestClient(t)
	loader := &stubLoader{quizzes: []domain.Quiz{sampleQuiz(1, "first")}}
	catalog := NewQuizCatalog(client, loader, time.Minute)
	ctx := context.Background()

	_, _ = catalog.ListQuizzes(ctx)
	loader.quizzes = append(loader.quizzes, sampleQuiz(2, "second"))
	catalog.Invalidate(ctx)

	if v, _ := mr.Get("quiz:catalog:version"); v != "1" {
		t.Fatalf("expected version 1, got %q", v)
	}
	quizzes, err := catalog.ListQuizzes(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if loader.calls != 2 || len(quizzes) != 2 {
		t.Fatalf("expected reload with 2 quizzes, got calls=%d quizzes=%d", loader.calls, len(quizzes))
	}
}

func TestQuizCatalogCachesEmptyList(t *testing.T) {
	_, client := newTestClient(t)
	loader := &stubLoader{}
	catalog := NewQuizCatalog(client, loader, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		quizzes, err := catalog.ListQuizzes(ctx)
		if err != nil || len(quizzes) != 0 {
			t.Fatalf("expected empty list, got %v (%v)", quizzes, err)
		}
	}
	if loader.calls != 1 {
		t.Fatalf("expected empty list to be cached, loader calls %d", loader.calls)
	}
}

func TestQuizCatalogExpires(t *testing.T) {
	mr, client := newTestClient(t)
	loader := &stubLoader{quizzes: []domain.Quiz{sampleQuiz(1, "first")}}
	catalog := NewQuizCatalog(client, loader, time.Minute)
	ctx := context.Background()

	_, _ = catalog.ListQuizzes(ctx)
	mr.FastForward(2 * time.Minute)
	_, _ = catalog.ListQuizzes(ctx)
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls %d", loader.calls)
	}
}

func TestQuizCatalogPropagatesLoaderError(t *testing.T) {
	_, client := newTestClient(t)
	boom := errors.New("boom")
	catalog := NewQuizCatalog(client, &stubLoader{err: boom}, time.Minute)

	if _, err := catalog.ListQuizzes(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}
}

func TestQuizCatalogFallsBackWhenRedisDown(t *testing.T) {
	// nothing listens on port 1
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()
	loader := &stubLoader{quizzes: []domain.Quiz{sampleQuiz(1, "first")}}
	catalog := NewQuizCatalog(client, loader, time.Minute)

	quizzes, err := catalog.ListQuizzes(context.Background())
	if err != nil || len(quizzes) != 1 {
		t.Fatalf("expected store fallback, got %v (%v)", quizzes, err)
	}
}
