package postgres

import (
	"context"
	"fmt"

	"weekly-quiz/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Leaderboard ranks attempts straight from the attempts table.
type Leaderboard struct {
	pool *pgxpool.Pool
}

func NewLeaderboard(pool *pgxpool.Pool) *Leaderboard {
	return &Leaderboard{pool: pool}
}

// Record is a no-op: the attempt row written by AttemptStore is the ranking source.
func (l *Leaderboard) Record(context.Context, string, domain.LeaderboardEntry) error {
	return nil
}

// Top returns up to limit entries; limit <= 0 returns all of them.
func (l *Leaderboard) Top(ctx context.Context, quizID string, limit int) ([]domain.LeaderboardEntry, error) {
	query := `
		SELECT a.user_id, COALESCE(u.username, a.user_id), COALESCE(u.avatar_url, ''),
			a.score, a.time_taken_seconds, a.correct_answers, a.submitted_at
		FROM attempts a
		LEFT JOIN users u ON u.id = a.user_id
		WHERE a.quiz_id = $1
		ORDER BY a.score DESC, a.time_taken_seconds ASC, a.submitted_at ASC`
	args := []interface{}{quizID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []domain.LeaderboardEntry{}
	for rows.Next() {
		entry := domain.LeaderboardEntry{Rank: len(entries) + 1}
		if err := rows.Scan(&entry.UserID, &entry.Username, &entry.AvatarURL, &entry.Score,
			&entry.TimeTakenSeconds, &entry.CorrectAnswers, &entry.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
