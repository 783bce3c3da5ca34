package memory

import (
	"context"
	"sync"

	"weekly-quiz/internal/domain"
)

// SessionRegistry tracks live quiz sessions in process memory.
type SessionRegistry struct {
	mu   sync.Mutex
	live map[string]struct{}
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{live: make(map[string]struct{})}
}

func (r *SessionRegistry) Claim(_ context.Context, quizID, userID string) error {
	key := quizID + "/" + userID
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live[key]; ok {
		return domain.ErrSessionClaimed
	}
	r.live[key] = struct{}{}
	return nil
}

func (r *SessionRegistry) Release(_ context.Context, quizID, userID string) {
	r.mu.Lock()
	delete(r.live, quizID+"/"+userID)
	r.mu.Unlock()
}
