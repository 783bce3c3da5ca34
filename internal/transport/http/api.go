package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"weekly-quiz/internal/app"
	"weekly-quiz/internal/auth"
	"weekly-quiz/internal/domain"
	"weekly-quiz/internal/scoring"
)

// API serves the read-only REST endpoints.
type API struct {
	service  *app.QuizService
	verifier *auth.Verifier
}

func NewAPI(service *app.QuizService, verifier *auth.Verifier) *API {
	return &API{service: service, verifier: verifier}
}

// Register mounts the routes on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/quizzes", a.listQuizzes)
	mux.HandleFunc("GET /api/quizzes/active", a.activeQuiz)
	mux.HandleFunc("GET /api/quizzes/{id}", a.getQuiz)
	mux.HandleFunc("GET /api/quizzes/{id}/leaderboard", a.leaderboard)
	mux.HandleFunc("GET /api/me/attempts", a.myAttempts)
	mux.HandleFunc("GET /api/me/attempts/{quizId}", a.myAttempt)
}

type rankedEntry struct {
	domain.LeaderboardEntry
	RankLabel    string        `json:"rankLabel"`
	Badge        scoring.Badge `json:"badge"`
	DisplayScore string        `json:"displayScore"`
}

func (a *API) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := a.service.ListQuizzes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]publicQuiz, 0, len(quizzes))
	for _, quiz := range quizzes {
		pq := toPublicQuiz(quiz)
		pq.Questions = nil
		out = append(out, pq)
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) activeQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := a.service.ActiveQuiz(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPublicQuiz(quiz))
}

func (a *API) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := a.service.GetQuiz(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPublicQuiz(quiz))
}

func (a *API) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := a.service.Leaderboard(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]rankedEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, rankedEntry{
			LeaderboardEntry: e,
			RankLabel:        scoring.FormatRank(e.Rank),
			Badge:            scoring.RankBadge(e.Rank),
			DisplayScore:     scoring.FormatScore(e.Score),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) myAttempts(w http.ResponseWriter, r *http.Request) {
	identity, err := identify(r, a.verifier)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	attempts, err := a.service.PreviousAttempts(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (a *API) myAttempt(w http.ResponseWriter, r *http.Request) {
	identity, err := identify(r, a.verifier)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	attempt, err := a.service.UserAttempt(r.Context(), identity.UserID, r.PathValue("quizId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("http: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrNoActiveQuiz),
		errors.Is(err, domain.ErrAttemptNotFound):
		status = http.StatusNotFound
	default:
		log.Printf("http: %v", err)
	}
	writeJSON(w, status, errorPayload{Message: err.Error()})
}
