package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"weekly-quiz/internal/app"
	"weekly-quiz/internal/domain"
)

func newTestAPI(t *testing.T) (*app.QuizService, *httptest.Server) {
	t.Helper()
	service := newTestService(sampleQuiz(300))
	mux := http.NewServeMux()
	NewAPI(service, nil).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return service, server
}

func TestAPIActiveQuizHidesAnswers(t *testing.T) {
	_, server := newTestAPI(t)

	resp, err := http.Get(server.URL + "/api/quizzes/active")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	raw, _ := json.Marshal(body)
	if strings.Contains(string(raw), "correct") {
		t.Fatalf("response leaks correct options: %s", raw)
	}
	if len(body["questions"].([]any)) != 2 {
		t.Fatalf("expected questions, got %+v", body)
	}
}

func TestAPIQuizNotFound(t *testing.T) {
	_, server := newTestAPI(t)
	resp, err := http.Get(server.URL + "/api/quizzes/missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAPILeaderboardAndAttempts(t *testing.T) {
	service, server := newTestAPI(t)
	_, err := service.Submit(context.Background(), app.SubmitRequest{
		UserID: "u1", QuizID: "quiz-1", Answers: domain.Answers{"q1": "B"}, TimeTakenSeconds: 120,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	resp, err := http.Get(server.URL + "/api/quizzes/quiz-1/leaderboard?limit=10")
	if err != nil {
		t.Fatalf("get leaderboard: %v", err)
	}
	var board []map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&board)
	resp.Body.Close()
	if len(board) != 1 || board[0]["rankLabel"] != "1st" || board[0]["badge"] != "gold" || board[0]["displayScore"] != "460" {
		t.Fatalf("unexpected leaderboard %+v", board)
	}

	resp, err = http.Get(server.URL + "/api/me/attempts")
	if err != nil {
		t.Fatalf("get attempts: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/api/me/attempts/quiz-1?userId=u1")
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	var attempt domain.Attempt
	_ = json.NewDecoder(resp.Body).Decode(&attempt)
	resp.Body.Close()
	if attempt.Score != 460 || attempt.CorrectAnswers != 1 {
		t.Fatalf("unexpected attempt %+v", attempt)
	}
}
