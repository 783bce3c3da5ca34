package app

import "context"

// SessionRegistry tracks live quiz sessions so a user runs at most one per quiz at a time.
type SessionRegistry interface {
	// Claim returns domain.ErrSessionClaimed when the pair already has a live session.
	Claim(ctx context.Context, quizID, userID string) error
	Release(ctx context.Context, quizID, userID string)
}
