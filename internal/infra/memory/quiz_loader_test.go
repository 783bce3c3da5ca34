package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"weekly-quiz/internal/domain"
)

const quizYAML = `
quizzes:
  - id: week-47
    title: Week 47
    maxTimeSeconds: 240
    active: true
    weekStart: 2024-11-18T00:00:00Z
    weekEnd: 2024-11-24T23:59:59Z
    questions:
      - id: q2
        order: 2
        prompt: Capital of France?
        options: [Rome, Paris, Berlin, Madrid]
        correct: B
      - id: q1
        order: 1
        prompt: What is 2 + 2?
        options: ["3", "4", "5", "22"]
        correct: B
`

func TestLoadQuizFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quizzes.yaml")
	if err := os.WriteFile(path, []byte(quizYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	loader, err := LoadQuizFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	quiz, err := loader.LoadActiveQuiz(context.Background())
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if quiz.ID != "week-47" || quiz.TimeLimit() != 240 {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	if len(quiz.Questions) != 2 || quiz.Questions[0].ID != "q1" {
		t.Fatalf("expected questions sorted by order, got %+v", quiz.Questions)
	}
	if quiz.Questions[1].QuizID != "week-47" {
		t.Fatalf("expected quiz id stamped on questions, got %q", quiz.Questions[1].QuizID)
	}
	if quiz.Questions[1].OptionText("B") != "Paris" {
		t.Fatalf("unexpected option text %q", quiz.Questions[1].OptionText("B"))
	}
	if quiz.WeekStart.Day() != 18 {
		t.Fatalf("unexpected week start %v", quiz.WeekStart)
	}
}

func TestLoadQuizFileRejectsBadOption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	body := "quizzes:\n  - id: x\n    questions:\n      - id: q1\n        options: [a, b, c, d]\n        correct: E\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadQuizFile(path); !errors.Is(err, domain.ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}
}
