package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"weekly-quiz/internal/domain"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestSessionRegistrySetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	reg := NewSessionRegistry(newClient(mr), time.Minute)
	ctx := context.Background()

	if err := reg.Claim(ctx, "quiz-1", "u1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !mr.Exists("quiz:session:quiz-1:u1") {
		t.Fatalf("expected redis key to be set")
	}
	if err := reg.Claim(ctx, "quiz-1", "u1"); !errors.Is(err, domain.ErrSessionClaimed) {
		t.Fatalf("expected ErrSessionClaimed, got %v", err)
	}

	reg.Release(ctx, "quiz-1", "u1")
	if mr.Exists("quiz:session:quiz-1:u1") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestSessionRegistryClaimExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	reg := NewSessionRegistry(newClient(mr), time.Minute)
	ctx := context.Background()
	if err := reg.Claim(ctx, "quiz-1", "u1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if err := reg.Claim(ctx, "quiz-1", "u1"); err != nil {
		t.Fatalf("expected claim after ttl, got %v", err)
	}
}
