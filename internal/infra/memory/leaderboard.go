package memory

import (
	"context"
	"sync"

	"weekly-quiz/internal/domain"
)

// Leaderboard ranks entries per quiz in memory. A user holds one entry per quiz;
// recording again replaces it.
type Leaderboard struct {
	mu      sync.RWMutex
	entries map[string]map[string]domain.LeaderboardEntry // quizID -> userID -> entry
}

func NewLeaderboard() *Leaderboard {
	return &Leaderboard{entries: make(map[string]map[string]domain.LeaderboardEntry)}
}

func (l *Leaderboard) Record(_ context.Context, quizID string, entry domain.LeaderboardEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	byUser, ok := l.entries[quizID]
	if !ok {
		byUser = make(map[string]domain.LeaderboardEntry)
		l.entries[quizID] = byUser
	}
	entry.Rank = 0
	byUser[entry.UserID] = entry
	return nil
}

// Top returns up to limit ranked entries; limit <= 0 returns all of them.
func (l *Leaderboard) Top(_ context.Context, quizID string, limit int) ([]domain.LeaderboardEntry, error) {
	l.mu.RLock()
	out := make([]domain.LeaderboardEntry, 0, len(l.entries[quizID]))
	for _, entry := range l.entries[quizID] {
		out = append(out, entry)
	}
	l.mu.RUnlock()

	domain.RankEntries(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
