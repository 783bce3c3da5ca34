package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"weekly-quiz/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryExpires(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(loader, time.Minute)
	now := time.Date(2024, 11, 18, 9, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz after ttl: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryActiveQuiz(t *testing.T) {
	older := sampleQuiz()
	older.ID = "quiz-0"
	older.WeekStart = time.Date(2024, 11, 11, 0, 0, 0, 0, time.UTC)
	older.Active = true
	current := sampleQuiz()
	current.Active = true

	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{
			older.ID:   older,
			current.ID: current,
		}),
	}
	repo := NewQuizRepository(loader, time.Minute)

	for i := 0; i < 2; i++ {
		quiz, err := repo.ActiveQuiz(context.Background())
		if err != nil {
			t.Fatalf("active quiz: %v", err)
		}
		if quiz.ID != "quiz-1" {
			t.Fatalf("expected newest active quiz, got %s", quiz.ID)
		}
	}
	if loader.activeCalls != 1 {
		t.Fatalf("expected active lookup once, got %d", loader.activeCalls)
	}
	if loader.calls != 0 {
		t.Fatalf("expected quiz served from cache, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryNoActiveQuiz(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz-1": sampleQuiz(),
	}), time.Minute)

	if _, err := repo.ActiveQuiz(context.Background()); !errors.Is(err, domain.ErrNoActiveQuiz) {
		t.Fatalf("expected ErrNoActiveQuiz, got %v", err)
	}
	if _, err := repo.GetQuiz(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
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
		WeekStart:      time.Date(2024, 11, 18, 0, 0, 0, 0, time.UTC),
		Questions: []domain.Question{
			{ID: "q2", Prompt: "Capital of France?", Options: [4]string{"Rome", "Paris", "Berlin", "Madrid"}, CorrectOption: "B", OrderIndex: 2},
			{ID: "q1", Prompt: "What is 2 + 2?", Options: [4]string{"3", "4", "5", "22"}, CorrectOption: "B", OrderIndex: 1},
		},
	}
}
