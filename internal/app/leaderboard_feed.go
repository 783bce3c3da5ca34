package app

import (
	"sync"

	"weekly-quiz/internal/domain"
)

// LeaderboardFeed fans out leaderboard snapshots to live subscribers per quiz.
type LeaderboardFeed struct {
	mu          sync.Mutex
	latest      map[string][]domain.LeaderboardEntry
	subscribers map[string]map[chan []domain.LeaderboardEntry]struct{}
}

func NewLeaderboardFeed() *LeaderboardFeed {
	return &LeaderboardFeed{
		latest:      make(map[string][]domain.LeaderboardEntry),
		subscribers: make(map[string]map[chan []domain.LeaderboardEntry]struct{}),
	}
}

// Subscribe returns a channel of snapshots for quizID, primed with the latest one if known.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *LeaderboardFeed) Subscribe(quizID string) (<-chan []domain.LeaderboardEntry, func()) {
	ch := make(chan []domain.LeaderboardEntry, 8)

	f.mu.Lock()
	subs, ok := f.subscribers[quizID]
	if !ok {
		subs = make(map[chan []domain.LeaderboardEntry]struct{})
		f.subscribers[quizID] = subs
	}
	subs[ch] = struct{}{}
	if initial, ok := f.latest[quizID]; ok {
		ch <- initial
	}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs := f.subscribers[quizID]
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(f.subscribers, quizID)
		}
	}
	return ch, cancel
}

// Publish stores entries as the latest snapshot and delivers it to every subscriber.
func (f *LeaderboardFeed) Publish(quizID string, entries []domain.LeaderboardEntry) {
	snapshot := append([]domain.LeaderboardEntry(nil), entries...)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest[quizID] = snapshot
	for ch := range f.subscribers[quizID] {
		select {
		case ch <- snapshot:
		default:
			// slow subscriber: drop the stale snapshot so the newest one fits
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}
