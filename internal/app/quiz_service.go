package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"weekly-quiz/internal/domain"
	"weekly-quiz/internal/metrics"
	"weekly-quiz/internal/scoring"
	"weekly-quiz/internal/session"

	"github.com/google/uuid"
)

// DefaultLeaderboardLimit matches the leaderboard page size.
const DefaultLeaderboardLimit = 50

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ActiveQuiz(ctx context.Context) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
}

// AttemptRepository persists attempts. CreateAttempt returns domain.ErrAlreadyAttempted
// when the user already has an attempt for the quiz.
type AttemptRepository interface {
	CreateAttempt(ctx context.Context, attempt domain.Attempt) error
	GetAttempt(ctx context.Context, userID, quizID string) (domain.Attempt, error)
	ListAttempts(ctx context.Context, userID string) ([]domain.Attempt, error)
}

// LeaderboardRepository ranks submitted attempts per quiz.
type LeaderboardRepository interface {
	Record(ctx context.Context, quizID string, entry domain.LeaderboardEntry) error
	Top(ctx context.Context, quizID string, limit int) ([]domain.LeaderboardEntry, error)
}

// EventPublisher announces submitted attempts to other services.
type EventPublisher interface {
	PublishAttemptSubmitted(ctx context.Context, attempt domain.Attempt) error
}

// SubmitRequest is the submission contract input.
type SubmitRequest struct {
	UserID           string
	QuizID           string
	Answers          domain.Answers
	TimeTakenSeconds int
	Questions        []domain.Question
}

// QuizService contains the quiz read and submission use cases.
type QuizService struct {
	quizzes   QuizRepository
	attempts  AttemptRepository
	board     LeaderboardRepository
	users     UserRepository
	feed      *LeaderboardFeed
	publisher EventPublisher
	now       func() time.Time
}

type ServiceOption func(*QuizService)

// WithFeed pushes fresh leaderboards to live subscribers after each submission.
func WithFeed(feed *LeaderboardFeed) ServiceOption {
	return func(s *QuizService) { s.feed = feed }
}

func WithPublisher(publisher EventPublisher) ServiceOption {
	return func(s *QuizService) { s.publisher = publisher }
}

// WithClock is used by tests for deterministic submission timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *QuizService) { s.now = now }
}

func NewQuizService(quizzes QuizRepository, attempts AttemptRepository, board LeaderboardRepository, users UserRepository, opts ...ServiceOption) *QuizService {
	s := &QuizService{
		quizzes:  quizzes,
		attempts: attempts,
		board:    board,
		users:    users,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ActiveQuiz returns this week's quiz or domain.ErrNoActiveQuiz.
func (s *QuizService) ActiveQuiz(ctx context.Context) (domain.Quiz, error) {
	return s.quizzes.ActiveQuiz(ctx)
}

func (s *QuizService) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return s.quizzes.GetQuiz(ctx, quizID)
}

func (s *QuizService) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.quizzes.ListQuizzes(ctx)
}

// Leaderboard returns ranked entries; limit <= 0 uses DefaultLeaderboardLimit.
func (s *QuizService) Leaderboard(ctx context.Context, quizID string, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	return s.board.Top(ctx, quizID, limit)
}

// UserAttempt returns the user's attempt for quizID or domain.ErrAttemptNotFound.
func (s *QuizService) UserAttempt(ctx context.Context, userID, quizID string) (domain.Attempt, error) {
	return s.attempts.GetAttempt(ctx, userID, quizID)
}

// PreviousAttempts lists the user's attempts, newest first, with quiz titles.
func (s *QuizService) PreviousAttempts(ctx context.Context, userID string) ([]domain.PastAttempt, error) {
	attempts, err := s.attempts.ListAttempts(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PastAttempt, 0, len(attempts))
	for _, attempt := range attempts {
		past := domain.PastAttempt{Attempt: attempt}
		if quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizID); err == nil {
			past.QuizTitle = quiz.Title
			past.QuizWeekStart = quiz.WeekStart
		}
		out = append(out, past)
	}
	return out, nil
}

// Submit scores the answers, persists the attempt and updates the leaderboard.
func (s *QuizService) Submit(ctx context.Context, req SubmitRequest) (domain.Attempt, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, req.QuizID)
	if err != nil {
		metrics.Submissions.WithLabelValues("failure").Inc()
		return domain.Attempt{}, err
	}
	questions := req.Questions
	if len(questions) == 0 {
		questions = quiz.Questions
	}

	correct := scoring.CountCorrect(req.Answers, questions)
	score := scoring.Calculate(correct, len(questions), req.TimeTakenSeconds, quiz.TimeLimit())

	attempt := domain.Attempt{
		ID:               uuid.NewString(),
		UserID:           req.UserID,
		QuizID:           req.QuizID,
		Score:            score.Final,
		TimeTakenSeconds: req.TimeTakenSeconds,
		CorrectAnswers:   correct,
		TotalQuestions:   len(questions),
		Answers:          req.Answers.Clone(),
		SubmittedAt:      s.now().UTC(),
	}

	if err := s.attempts.CreateAttempt(ctx, attempt); err != nil {
		if errors.Is(err, domain.ErrAlreadyAttempted) {
			metrics.Submissions.WithLabelValues("duplicate").Inc()
			return domain.Attempt{}, err
		}
		metrics.Submissions.WithLabelValues("failure").Inc()
		return domain.Attempt{}, fmt.Errorf("create attempt: %w", err)
	}
	metrics.Submissions.WithLabelValues("success").Inc()
	metrics.FinalScores.Observe(float64(attempt.Score))

	s.recordLeaderboard(ctx, attempt)

	if s.publisher != nil {
		if err := s.publisher.PublishAttemptSubmitted(ctx, attempt); err != nil {
			log.Printf("submit: publish attempt %s: %v", attempt.ID, err)
		}
	}
	return attempt, nil
}

// SessionSubmitter adapts Submit to the session completion contract for one user and quiz.
func (s *QuizService) SessionSubmitter(userID string, quiz domain.Quiz) session.Submitter {
	return session.SubmitterFunc(func(ctx context.Context, completion session.Completion) (domain.Attempt, error) {
		metrics.Completions.WithLabelValues(string(completion.Reason)).Inc()
		return s.Submit(ctx, SubmitRequest{
			UserID:           userID,
			QuizID:           quiz.ID,
			Answers:          completion.Answers,
			TimeTakenSeconds: completion.TimeTakenSeconds,
			Questions:        quiz.Questions,
		})
	})
}

// recordLeaderboard is best effort: the attempt is already persisted.
func (s *QuizService) recordLeaderboard(ctx context.Context, attempt domain.Attempt) {
	entry := domain.LeaderboardEntry{
		UserID:           attempt.UserID,
		Username:         attempt.UserID,
		Score:            attempt.Score,
		TimeTakenSeconds: attempt.TimeTakenSeconds,
		CorrectAnswers:   attempt.CorrectAnswers,
		SubmittedAt:      attempt.SubmittedAt,
	}
	if s.users != nil {
		if user, err := s.users.GetUser(ctx, attempt.UserID); err == nil {
			entry.Username = user.Username
			entry.AvatarURL = user.AvatarURL
		}
	}
	if err := s.board.Record(ctx, attempt.QuizID, entry); err != nil {
		log.Printf("submit: record leaderboard for quiz %s: %v", attempt.QuizID, err)
		return
	}
	if s.feed == nil {
		return
	}
	top, err := s.board.Top(ctx, attempt.QuizID, DefaultLeaderboardLimit)
	if err != nil {
		log.Printf("submit: refresh leaderboard for quiz %s: %v", attempt.QuizID, err)
		return
	}
	s.feed.Publish(attempt.QuizID, top)
}
