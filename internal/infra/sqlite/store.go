// Package sqlite keeps attempts and leaderboards in a local SQLite file for offline play.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"weekly-quiz/internal/domain"

	"github.com/mattn/go-sqlite3"
)

type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at path; an empty path uses quiz.db.
func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		path = "quiz.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &Store{db: db}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS attempts (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	quiz_id TEXT NOT NULL,
	score INTEGER NOT NULL,
	time_taken_seconds INTEGER NOT NULL,
	correct_answers INTEGER NOT NULL,
	total_questions INTEGER NOT NULL,
	answers TEXT NOT NULL,
	submitted_at INTEGER NOT NULL,
	UNIQUE (user_id, quiz_id)
);
CREATE TABLE IF NOT EXISTS leaderboard (
	quiz_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	username TEXT NOT NULL,
	avatar_url TEXT NOT NULL DEFAULT '',
	score INTEGER NOT NULL,
	time_taken_seconds INTEGER NOT NULL,
	correct_answers INTEGER NOT NULL,
	submitted_at INTEGER NOT NULL,
	PRIMARY KEY (quiz_id, user_id)
);`)
	return err
}

func (s *Store) CreateAttempt(ctx context.Context, attempt domain.Attempt) error {
	answers, err := json.Marshal(attempt.Answers.Clone())
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO attempts (id, user_id, quiz_id, score, time_taken_seconds, correct_answers, total_questions, answers, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.ID, attempt.UserID, attempt.QuizID, attempt.Score, attempt.TimeTakenSeconds,
		attempt.CorrectAnswers, attempt.TotalQuestions, string(answers), attempt.SubmittedAt.UnixNano())
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return domain.ErrAlreadyAttempted
	}
	return err
}

func (s *Store) GetAttempt(ctx context.Context, userID, quizID string) (domain.Attempt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, quiz_id, score, time_taken_seconds, correct_answers, total_questions, answers, submitted_at
		FROM attempts WHERE user_id = ? AND quiz_id = ?`, userID, quizID)
	attempt, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return attempt, err
}

func (s *Store) ListAttempts(ctx context.Context, userID string) ([]domain.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, quiz_id, score, time_taken_seconds, correct_answers, total_questions, answers, submitted_at
		FROM attempts WHERE user_id = ? ORDER BY submitted_at DESC`, userID)
	if err != nil {
		return nil, err
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

// Record upserts the user's entry for the quiz.
func (s *Store) Record(ctx context.Context, quizID string, entry domain.LeaderboardEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leaderboard (quiz_id, user_id, username, avatar_url, score, time_taken_seconds, correct_answers, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (quiz_id, user_id) DO UPDATE SET
			username = excluded.username, avatar_url = excluded.avatar_url, score = excluded.score,
			time_taken_seconds = excluded.time_taken_seconds, correct_answers = excluded.correct_answers,
			submitted_at = excluded.submitted_at`,
		quizID, entry.UserID, entry.Username, entry.AvatarURL, entry.Score,
		entry.TimeTakenSeconds, entry.CorrectAnswers, entry.SubmittedAt.UnixNano())
	return err
}

// Top returns up to limit entries; limit <= 0 returns all of them.
func (s *Store) Top(ctx context.Context, quizID string, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, username, avatar_url, score, time_taken_seconds, correct_answers, submitted_at
		FROM leaderboard WHERE quiz_id = ?
		ORDER BY score DESC, time_taken_seconds ASC, submitted_at ASC
		LIMIT ?`, quizID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.LeaderboardEntry{}
	for rows.Next() {
		var (
			entry       domain.LeaderboardEntry
			submittedAt int64
		)
		if err := rows.Scan(&entry.UserID, &entry.Username, &entry.AvatarURL, &entry.Score,
			&entry.TimeTakenSeconds, &entry.CorrectAnswers, &submittedAt); err != nil {
			return nil, err
		}
		entry.Rank = len(entries) + 1
		entry.SubmittedAt = time.Unix(0, submittedAt).UTC()
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAttempt(row scanner) (domain.Attempt, error) {
	var (
		attempt     domain.Attempt
		answers     string
		submittedAt int64
	)
	err := row.Scan(&attempt.ID, &attempt.UserID, &attempt.QuizID, &attempt.Score, &attempt.TimeTakenSeconds,
		&attempt.CorrectAnswers, &attempt.TotalQuestions, &answers, &submittedAt)
	if err != nil {
		return domain.Attempt{}, err
	}
	if err := json.Unmarshal([]byte(answers), &attempt.Answers); err != nil {
		return domain.Attempt{}, fmt.Errorf("unmarshal answers: %w", err)
	}
	attempt.SubmittedAt = time.Unix(0, submittedAt).UTC()
	return attempt, nil
}
