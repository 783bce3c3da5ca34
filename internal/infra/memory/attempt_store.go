package memory

import (
	"context"
	"sort"
	"sync"

	"weekly-quiz/internal/domain"
)

// AttemptStore keeps attempts in process memory, one per user per quiz.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]map[string]domain.Attempt // userID -> quizID -> attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{attempts: make(map[string]map[string]domain.Attempt)}
}

func (s *AttemptStore) CreateAttempt(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byQuiz, ok := s.attempts[attempt.UserID]
	if !ok {
		byQuiz = make(map[string]domain.Attempt)
		s.attempts[attempt.UserID] = byQuiz
	}
	if _, exists := byQuiz[attempt.QuizID]; exists {
		return domain.ErrAlreadyAttempted
	}
	attempt.Answers = attempt.Answers.Clone()
	byQuiz[attempt.QuizID] = attempt
	return nil
}

func (s *AttemptStore) GetAttempt(_ context.Context, userID, quizID string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[userID][quizID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	attempt.Answers = attempt.Answers.Clone()
	return attempt, nil
}

// ListAttempts returns the user's attempts, newest first.
func (s *AttemptStore) ListAttempts(_ context.Context, userID string) ([]domain.Attempt, error) {
	s.mu.RLock()
	out := make([]domain.Attempt, 0, len(s.attempts[userID]))
	for _, attempt := range s.attempts[userID] {
		attempt.Answers = attempt.Answers.Clone()
		out = append(out, attempt)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}
