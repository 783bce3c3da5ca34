package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"weekly-quiz/internal/domain"
	"weekly-quiz/internal/infra/memory"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(client, loader, time.Minute)

	quiz, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:quiz-1") {
		t.Fatalf("expected quiz cached in redis")
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get cached quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if cached.Questions[0].CorrectOption != quiz.Questions[0].CorrectOption || cached.Title != "Week 47" {
		t.Fatalf("cached quiz lost content: %+v", cached)
	}

	mr.FastForward(2 * time.Minute)
	if mr.Exists("quiz:quiz-1") {
		t.Fatalf("expected cache entry to expire")
	}
}

func TestQuizRepositoryActiveQuiz(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	active := sampleQuiz()
	active.Active = true
	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": active}),
	}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute)

	for i := 0; i < 2; i++ {
		quiz, err := repo.ActiveQuiz(context.Background())
		if err != nil {
			t.Fatalf("active quiz: %v", err)
		}
		if quiz.ID != "quiz-1" {
			t.Fatalf("unexpected quiz %s", quiz.ID)
		}
	}
	if got, _ := mr.Get("quiz:active"); got != "quiz-1" {
		t.Fatalf("expected active id cached, got %q", got)
	}
	if loader.activeCalls != 1 || loader.calls != 0 {
		t.Fatalf("expected one active lookup, got active=%d get=%d", loader.activeCalls, loader.calls)
	}
}

func TestQuizRepositoryNoActiveQuiz(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewQuizRepository(newClient(mr), memory.NewStaticQuizLoader(nil), time.Minute)
	if _, err := repo.ActiveQuiz(context.Background()); !errors.Is(err, domain.ErrNoActiveQuiz) {
		t.Fatalf("expected ErrNoActiveQuiz, got %v", err)
	}
}

type countingLoader struct {
	QuizLoader
	calls       int
	activeCalls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func (l *countingLoader) LoadActiveQuiz(ctx context.Context) (domain.Quiz, error) {
	l.activeCalls++
	return l.QuizLoader.LoadActiveQuiz(ctx)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:             "quiz-1",
		Title:          "Week 47",
		MaxTimeSeconds: 300,
		Questions: []domain.Question{
			{
				ID:            "q1",
				Prompt:        "What is 2 + 2?",
				Options:       [4]string{"3", "4", "5", "22"},
				CorrectOption: domain.OptionB,
				OrderIndex:    1,
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
