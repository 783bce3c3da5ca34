package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"weekly-quiz/internal/domain"

	"github.com/redis/go-redis/v9"
)

// SessionRegistry marks live quiz sessions in Redis so every instance sees them.
// The TTL bounds how long a crashed instance can hold a claim.
type SessionRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionRegistry(client *redis.Client, ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{client: client, ttl: ttl}
}

func (s *SessionRegistry) Claim(ctx context.Context, quizID, userID string) error {
	ok, err := s.client.SetNX(ctx, s.key(quizID, userID), "1", s.ttl).Result()
	if err != nil {
		return fmt.Errorf("claim session: %w", err)
	}
	if !ok {
		return domain.ErrSessionClaimed
	}
	return nil
}

func (s *SessionRegistry) Release(ctx context.Context, quizID, userID string) {
	if err := s.client.Del(ctx, s.key(quizID, userID)).Err(); err != nil {
		log.Printf("redis: release session %s/%s: %v", quizID, userID, err)
	}
}

func (s *SessionRegistry) key(quizID, userID string) string {
	return "quiz:session:" + quizID + ":" + userID
}
