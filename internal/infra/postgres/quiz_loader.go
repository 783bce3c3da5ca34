package postgres

import (
	"context"
	"errors"
	"fmt"

	"weekly-quiz/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const quizColumns = `id, title, description, max_time_seconds, active, week_start, week_end, created_at`

// QuizLoader loads quizzes and their questions from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	row := l.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id=$1`, quizID)
	quiz, err := scanQuiz(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	return l.withQuestions(ctx, quiz)
}

// LoadActiveQuiz returns the active quiz with the latest week start.
func (l *QuizLoader) LoadActiveQuiz(ctx context.Context) (domain.Quiz, error) {
	row := l.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE active ORDER BY week_start DESC LIMIT 1`)
	quiz, err := scanQuiz(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrNoActiveQuiz
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load active quiz: %w", err)
	}
	return l.withQuestions(ctx, quiz)
}

// LoadQuizzes lists quizzes newest week first, without questions.
func (l *QuizLoader) LoadQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := l.pool.Query(ctx, `SELECT `+quizColumns+` FROM quizzes ORDER BY week_start DESC`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var out []domain.Quiz
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		out = append(out, quiz)
	}
	return out, rows.Err()
}

func (l *QuizLoader) withQuestions(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, prompt, option_a, option_b, option_c, option_d, correct_option, order_index
		FROM questions WHERE quiz_id=$1 ORDER BY order_index, id`, quiz.ID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		q := domain.Question{QuizID: quiz.ID}
		if err := rows.Scan(&q.ID, &q.Prompt, &q.Options[0], &q.Options[1], &q.Options[2], &q.Options[3], &q.CorrectOption, &q.OrderIndex); err != nil {
			return domain.Quiz{}, fmt.Errorf("scan question: %w", err)
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	return quiz, nil
}

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := row.Scan(&quiz.ID, &quiz.Title, &quiz.Description, &quiz.MaxTimeSeconds, &quiz.Active, &quiz.WeekStart, &quiz.WeekEnd, &quiz.CreatedAt)
	return quiz, err
}

// SaveQuiz upserts a quiz and replaces its questions; used by seeding.
func (l *QuizLoader) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	return l.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO quizzes (id, title, description, max_time_seconds, active, week_start, week_end)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, description=EXCLUDED.description,
				max_time_seconds=EXCLUDED.max_time_seconds, active=EXCLUDED.active,
				week_start=EXCLUDED.week_start, week_end=EXCLUDED.week_end`,
			quiz.ID, quiz.Title, quiz.Description, quiz.TimeLimit(), quiz.Active, quiz.WeekStart, quiz.WeekEnd)
		if err != nil {
			return fmt.Errorf("save quiz: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE quiz_id=$1`, quiz.ID); err != nil {
			return fmt.Errorf("clear questions: %w", err)
		}
		for _, q := range quiz.Questions {
			_, err := tx.Exec(ctx, `
				INSERT INTO questions (id, quiz_id, prompt, option_a, option_b, option_c, option_d, correct_option, order_index)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				q.ID, quiz.ID, q.Prompt, q.Options[0], q.Options[1], q.Options[2], q.Options[3], q.CorrectOption, q.OrderIndex)
			if err != nil {
				return fmt.Errorf("save question %s: %w", q.ID, err)
			}
		}
		return nil
	})
}
