package http

import (
	"log"
	"net/http"

	"weekly-quiz/internal/app"
	"weekly-quiz/internal/domain"

	"github.com/gorilla/websocket"
)

// LeaderboardHandler streams leaderboard snapshots for one quiz.
type LeaderboardHandler struct {
	service  *app.QuizService
	feed     *app.LeaderboardFeed
	upgrader websocket.Upgrader
}

func NewLeaderboardHandler(service *app.QuizService, feed *app.LeaderboardFeed) *LeaderboardHandler {
	return &LeaderboardHandler{
		service: service,
		feed:    feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *LeaderboardHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		quiz, err := h.service.ActiveQuiz(ctx)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		quizID = quiz.ID
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.feed.Subscribe(quizID)
	defer cancel()

	initial, err := h.service.Leaderboard(ctx, quizID, 0)
	if err != nil {
		log.Printf("ws: leaderboard for %s: %v", quizID, err)
		initial = []domain.LeaderboardEntry{}
	}
	if err := conn.WriteJSON(outboundMessage[leaderboardPayload]{Type: "leaderboard", Payload: leaderboardPayload{QuizID: quizID, Entries: initial}}); err != nil {
		return
	}

	// The reader only detects the client going away; inbound messages are ignored.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case entries, ok := <-updates:
			if !ok {
				return
			}
			msg := outboundMessage[leaderboardPayload]{Type: "leaderboard", Payload: leaderboardPayload{QuizID: quizID, Entries: entries}}
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-gone:
			return
		}
	}
}
