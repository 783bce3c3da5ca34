package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"weekly-quiz/internal/domain"
)

func TestAttemptStoreOnePerQuiz(t *testing.T) {
	store := NewAttemptStore()
	ctx := context.Background()
	base := time.Date(2024, 11, 18, 9, 0, 0, 0, time.UTC)

	first := domain.Attempt{ID: "a1", UserID: "u1", QuizID: "quiz-1", Score: 700, Answers: domain.Answers{"q1": "B"}, SubmittedAt: base}
	if err := store.CreateAttempt(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateAttempt(ctx, first); !errors.Is(err, domain.ErrAlreadyAttempted) {
		t.Fatalf("expected ErrAlreadyAttempted, got %v", err)
	}
	second := domain.Attempt{ID: "a2", UserID: "u1", QuizID: "quiz-2", SubmittedAt: base.Add(time.Hour)}
	if err := store.CreateAttempt(ctx, second); err != nil {
		t.Fatalf("create second: %v", err)
	}

	got, err := store.GetAttempt(ctx, "u1", "quiz-1")
	if err != nil || got.Score != 700 || got.Answers["q1"] != "B" {
		t.Fatalf("unexpected attempt %+v err=%v", got, err)
	}
	if _, err := store.GetAttempt(ctx, "u2", "quiz-1"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected ErrAttemptNotFound, got %v", err)
	}

	list, _ := store.ListAttempts(ctx, "u1")
	if len(list) != 2 || list[0].ID != "a2" {
		t.Fatalf("expected newest first, got %+v", list)
	}
}

func TestLeaderboardRanks(t *testing.T) {
	board := NewLeaderboard()
	ctx := context.Background()
	at := time.Date(2024, 11, 18, 9, 0, 0, 0, time.UTC)

	_ = board.Record(ctx, "quiz-1", domain.LeaderboardEntry{UserID: "slow", Score: 900, TimeTakenSeconds: 200, SubmittedAt: at})
	_ = board.Record(ctx, "quiz-1", domain.LeaderboardEntry{UserID: "fast", Score: 900, TimeTakenSeconds: 100, SubmittedAt: at})
	_ = board.Record(ctx, "quiz-1", domain.LeaderboardEntry{UserID: "top", Score: 1060, TimeTakenSeconds: 120, SubmittedAt: at})
	_ = board.Record(ctx, "quiz-2", domain.LeaderboardEntry{UserID: "other", Score: 5000})

	top, err := board.Top(ctx, "quiz-1", 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].UserID != "top" || top[1].UserID != "fast" {
		t.Fatalf("unexpected ranking %+v", top)
	}
	if top[0].Rank != 1 || top[1].Rank != 2 {
		t.Fatalf("unexpected ranks %+v", top)
	}
}

func TestSessionRegistryClaim(t *testing.T) {
	reg := NewSessionRegistry()
	ctx := context.Background()

	if err := reg.Claim(ctx, "quiz-1", "u1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := reg.Claim(ctx, "quiz-1", "u1"); !errors.Is(err, domain.ErrSessionClaimed) {
		t.Fatalf("expected ErrSessionClaimed, got %v", err)
	}
	if err := reg.Claim(ctx, "quiz-1", "u2"); err != nil {
		t.Fatalf("other user claim: %v", err)
	}
	reg.Release(ctx, "quiz-1", "u1")
	if err := reg.Claim(ctx, "quiz-1", "u1"); err != nil {
		t.Fatalf("claim after release: %v", err)
	}
}

func TestUserStoreDuplicate(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()
	if _, err := store.GetUser(ctx, "u1"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := store.CreateUser(ctx, domain.User{ID: "u1", Username: "ada"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateUser(ctx, domain.User{ID: "u1"}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}
