package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"weekly-quiz/internal/domain"

	"github.com/redis/go-redis/v9"
)

const maxRankedSeconds = 99999

// Leaderboard ranks entries in a sorted set per quiz.
// Ranking is stored as: ZADD leaderboard:{quizID} {composite} {userID}
// Entries are stored as: HSET leaderboard:{quizID}:entries {userID} {json}
type Leaderboard struct {
	client *redis.Client
}

func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{client: client}
}

func (l *Leaderboard) Record(ctx context.Context, quizID string, entry domain.LeaderboardEntry) error {
	entry.Rank = 0
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	pipe := l.client.TxPipeline()
	pipe.ZAdd(ctx, rankKey(quizID), redis.Z{Score: compositeScore(entry), Member: entry.UserID})
	pipe.HSet(ctx, entriesKey(quizID), entry.UserID, raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record leaderboard entry: %w", err)
	}
	return nil
}

// Top returns up to limit entries; limit <= 0 returns all of them.
func (l *Leaderboard) Top(ctx context.Context, quizID string, limit int) ([]domain.LeaderboardEntry, error) {
	stop := int64(limit) - 1
	if limit <= 0 {
		stop = -1
	}
	userIDs, err := l.client.ZRevRange(ctx, rankKey(quizID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	if len(userIDs) == 0 {
		return []domain.LeaderboardEntry{}, nil
	}
	raws, err := l.client.HMGet(ctx, entriesKey(quizID), userIDs...).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard entries: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(raws))
	for _, raw := range raws {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		var entry domain.LeaderboardEntry
		if err := json.Unmarshal([]byte(s), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	// composite ties (same score and time) are settled by submission time
	domain.RankEntries(entries)
	return entries, nil
}

// compositeScore orders by score desc, then time taken asc.
func compositeScore(entry domain.LeaderboardEntry) float64 {
	taken := entry.TimeTakenSeconds
	if taken > maxRankedSeconds {
		taken = maxRankedSeconds
	}
	if taken < 0 {
		taken = 0
	}
	return float64(entry.Score)*(maxRankedSeconds+1) + float64(maxRankedSeconds-taken)
}

func rankKey(quizID string) string {
	return "leaderboard:" + quizID
}

func entriesKey(quizID string) string {
	return "leaderboard:" + quizID + ":entries"
}
