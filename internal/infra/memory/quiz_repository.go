package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"weekly-quiz/internal/domain"

	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches quiz content from a backing store (e.g., Postgres or a YAML file).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	LoadActiveQuiz(ctx context.Context) (domain.Quiz, error)
	LoadQuizzes(ctx context.Context) ([]domain.Quiz, error)
}

const activeKey = "\x00active"

// QuizRepository caches quizzes with TTL to avoid repeated DB hits.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu       sync.RWMutex
	cache    map[string]cachedQuiz
	activeID cachedActive
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

type cachedActive struct {
	quizID    string
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.cached(quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		if quiz, ok := r.cached(quizID); ok {
			return quiz, nil
		}
		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		r.store(quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// ActiveQuiz caches the active quiz ID alongside the quiz itself.
func (r *QuizRepository) ActiveQuiz(ctx context.Context) (domain.Quiz, error) {
	now := r.clock()
	r.mu.RLock()
	active := r.activeID
	r.mu.RUnlock()
	if active.quizID != "" && active.expiresAt.After(now) {
		return r.GetQuiz(ctx, active.quizID)
	}

	result, err, _ := r.sf.Do(activeKey, func() (interface{}, error) {
		quiz, err := r.loader.LoadActiveQuiz(ctx)
		if err != nil {
			return domain.Quiz{}, err
		}
		r.store(quiz)
		r.mu.Lock()
		r.activeID = cachedActive{quizID: quiz.ID, expiresAt: r.clock().Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// ListQuizzes is not cached; it backs the history page only.
func (r *QuizRepository) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return r.loader.LoadQuizzes(ctx)
}

func (r *QuizRepository) cached(quizID string) (domain.Quiz, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[quizID]; ok && entry.expiresAt.After(now) {
		return entry.quiz, true
	}
	return domain.Quiz{}, false
}

func (r *QuizRepository) store(quiz domain.Quiz) {
	expiresAt := r.clock().Add(r.ttlWithJitter())
	r.mu.Lock()
	r.cache[quiz.ID] = cachedQuiz{quiz: quiz, expiresAt: expiresAt}
	r.mu.Unlock()
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
