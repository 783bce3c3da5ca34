package app_test

import (
	"testing"

	"weekly-quiz/internal/app"
	"weekly-quiz/internal/domain"
)

func TestLeaderboardFeedPrimesLatest(t *testing.T) {
	feed := app.NewLeaderboardFeed()
	feed.Publish("quiz-1", []domain.LeaderboardEntry{{UserID: "u1", Rank: 1}})

	ch, cancel := feed.Subscribe("quiz-1")
	defer cancel()

	select {
	case entries := <-ch:
		if len(entries) != 1 || entries[0].UserID != "u1" {
			t.Fatalf("unexpected snapshot %+v", entries)
		}
	default:
		t.Fatal("expected primed snapshot")
	}
}

func TestLeaderboardFeedKeepsNewestForSlowSubscriber(t *testing.T) {
	feed := app.NewLeaderboardFeed()
	ch, cancel := feed.Subscribe("quiz-1")
	defer cancel()

	for i := 0; i < 20; i++ {
		feed.Publish("quiz-1", []domain.LeaderboardEntry{{Score: i}})
	}

	var last []domain.LeaderboardEntry
	for {
		select {
		case entries := <-ch:
			last = entries
			continue
		default:
		}
		break
	}
	if len(last) != 1 || last[0].Score != 19 {
		t.Fatalf("expected newest snapshot last, got %+v", last)
	}
}

func TestLeaderboardFeedCancelCloses(t *testing.T) {
	feed := app.NewLeaderboardFeed()
	ch, cancel := feed.Subscribe("quiz-1")
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
	// publishing to a quiz with no subscribers must not block
	feed.Publish("quiz-1", nil)
}
