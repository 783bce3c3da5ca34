package memory

import (
	"context"
	"fmt"
	"os"
	"sort"

	"weekly-quiz/internal/domain"

	"gopkg.in/yaml.v3"
)

// StaticQuizLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	normalized := make(map[string]domain.Quiz, len(quizzes))
	for id, quiz := range quizzes {
		normalized[id] = normalizeQuiz(quiz)
	}
	return &StaticQuizLoader{quizzes: normalized}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// LoadActiveQuiz returns the active quiz with the latest week start.
func (l *StaticQuizLoader) LoadActiveQuiz(ctx context.Context) (domain.Quiz, error) {
	quizzes, _ := l.LoadQuizzes(ctx)
	for _, quiz := range quizzes {
		if quiz.Active {
			return quiz, nil
		}
	}
	return domain.Quiz{}, domain.ErrNoActiveQuiz
}

// LoadQuizzes lists quizzes newest week first.
func (l *StaticQuizLoader) LoadQuizzes(_ context.Context) ([]domain.Quiz, error) {
	out := make([]domain.Quiz, 0, len(l.quizzes))
	for _, quiz := range l.quizzes {
		out = append(out, quiz)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].WeekStart.Equal(out[j].WeekStart) {
			return out[i].WeekStart.After(out[j].WeekStart)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type quizFile struct {
	Quizzes []domain.Quiz `yaml:"quizzes"`
}

// LoadQuizFile reads quizzes from a YAML file.
func LoadQuizFile(path string) (*StaticQuizLoader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file quizFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse quiz file %s: %w", path, err)
	}
	quizzes := make(map[string]domain.Quiz, len(file.Quizzes))
	for _, quiz := range file.Quizzes {
		if quiz.ID == "" {
			return nil, fmt.Errorf("parse quiz file %s: quiz without id", path)
		}
		for _, q := range quiz.Questions {
			if !domain.ValidOption(q.CorrectOption) {
				return nil, fmt.Errorf("quiz %s question %s: %w", quiz.ID, q.ID, domain.ErrInvalidOption)
			}
		}
		quizzes[quiz.ID] = quiz
	}
	return NewStaticQuizLoader(quizzes), nil
}

func normalizeQuiz(quiz domain.Quiz) domain.Quiz {
	questions := make([]domain.Question, len(quiz.Questions))
	copy(questions, quiz.Questions)
	for i := range questions {
		questions[i].QuizID = quiz.ID
	}
	domain.SortQuestions(questions)
	quiz.Questions = questions
	return quiz
}
