package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"weekly-quiz/internal/domain"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches quiz content from a backing store (e.g., Postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	LoadActiveQuiz(ctx context.Context) (domain.Quiz, error)
	LoadQuizzes(ctx context.Context) ([]domain.Quiz, error)
}

const activeQuizKey = "quiz:active"

// QuizRepository caches quizzes in Redis and falls back to a loader on cache miss.
// Quizzes are stored as: SET quiz:{quizID} {json}
// The active quiz ID as: SET quiz:active {quizID}
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.cached(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.cached(ctx, quizID); ok {
			return quiz, nil
		}
		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		r.store(ctx, quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (r *QuizRepository) ActiveQuiz(ctx context.Context) (domain.Quiz, error) {
	quizID, err := r.client.Get(ctx, activeQuizKey).Result()
	if err == nil && quizID != "" {
		return r.GetQuiz(ctx, quizID)
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Printf("redis: read active quiz: %v", err)
	}

	result, err, _ := r.sf.Do(activeQuizKey, func() (interface{}, error) {
		quiz, err := r.loader.LoadActiveQuiz(ctx)
		if err != nil {
			return domain.Quiz{}, err
		}
		r.store(ctx, quiz)
		_ = r.client.Set(ctx, activeQuizKey, quiz.ID, r.ttlWithJitter()).Err()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (r *QuizRepository) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return r.loader.LoadQuizzes(ctx)
}

func (r *QuizRepository) cached(ctx context.Context, quizID string) (domain.Quiz, bool) {
	raw, err := r.client.Get(ctx, quizKey(quizID)).Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		log.Printf("redis: drop corrupt cache entry for quiz %s: %v", quizID, err)
		return domain.Quiz{}, false
	}
	return quiz, true
}

// store is best effort; a failed write only costs a reload.
func (r *QuizRepository) store(ctx context.Context, quiz domain.Quiz) {
	raw, err := json.Marshal(quiz)
	if err != nil {
		return
	}
	_ = r.client.Set(ctx, quizKey(quiz.ID), raw, r.ttlWithJitter()).Err()
}

func quizKey(quizID string) string {
	return "quiz:" + quizID
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
