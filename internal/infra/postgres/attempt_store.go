package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"weekly-quiz/internal/domain"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const uniqueViolation = "23505"

const attemptColumns = `id, user_id, quiz_id, score, time_taken_seconds, correct_answers, total_questions, answers, submitted_at`

// AttemptStore persists attempts; the (user_id, quiz_id) unique key enforces one attempt per quiz.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

func (s *AttemptStore) CreateAttempt(ctx context.Context, attempt domain.Attempt) error {
	answers, err := json.Marshal(attempt.Answers.Clone())
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO attempts (`+attemptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		attempt.ID, attempt.UserID, attempt.QuizID, attempt.Score, attempt.TimeTakenSeconds,
		attempt.CorrectAnswers, attempt.TotalQuestions, answers, attempt.SubmittedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyAttempted
	}
	return err
}

func (s *AttemptStore) GetAttempt(ctx context.Context, userID, quizID string) (domain.Attempt, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE user_id=$1 AND quiz_id=$2`, userID, quizID)
	attempt, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return attempt, err
}

func (s *AttemptStore) ListAttempts(ctx context.Context, userID string) ([]domain.Attempt, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE user_id=$1 ORDER BY submitted_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []domain.Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, attempt)
	}
	return out, rows.Err()
}

func scanAttempt(row pgx.Row) (domain.Attempt, error) {
	var (
		attempt domain.Attempt
		answers []byte
	)
	err := row.Scan(&attempt.ID, &attempt.UserID, &attempt.QuizID, &attempt.Score, &attempt.TimeTakenSeconds,
		&attempt.CorrectAnswers, &attempt.TotalQuestions, &answers, &attempt.SubmittedAt)
	if err != nil {
		return domain.Attempt{}, err
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &attempt.Answers); err != nil {
			return domain.Attempt{}, fmt.Errorf("unmarshal answers: %w", err)
		}
	}
	return attempt, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
