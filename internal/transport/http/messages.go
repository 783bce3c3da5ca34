package http

import (
	"encoding/json"
	"time"

	"weekly-quiz/internal/domain"
	"weekly-quiz/internal/scoring"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Option     string `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type startedPayload struct {
	QuizID    string `json:"quizId"`
	Title     string `json:"title"`
	Total     int    `json:"total"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
}

type questionPayload struct {
	Index    int            `json:"index"`
	Total    int            `json:"total"`
	Question publicQuestion `json:"question"`
	Selected string         `json:"selected,omitempty"`
}

type tickPayload struct {
	Remaining int           `json:"remaining"`
	Display   string        `json:"display"`
	Level     scoring.Level `json:"level"`
}

type confirmPayload struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

type completedPayload struct {
	Reason           string `json:"reason"`
	TimeTakenSeconds int    `json:"timeTakenSeconds"`
}

type resultPayload struct {
	Attempt      domain.Attempt `json:"attempt"`
	Score        scoring.Score  `json:"score"`
	DisplayScore string         `json:"displayScore"`
	Accuracy     string         `json:"accuracy"`
}

type submitErrorPayload struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type leaderboardPayload struct {
	QuizID  string                    `json:"quizId"`
	Entries []domain.LeaderboardEntry `json:"entries"`
}

// publicQuestion omits the correct option; it is never sent to clients.
type publicQuestion struct {
	ID         string    `json:"id"`
	Prompt     string    `json:"prompt"`
	Options    [4]string `json:"options"`
	OrderIndex int       `json:"orderIndex"`
}

type publicQuiz struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	MaxTimeSeconds int              `json:"maxTimeSeconds"`
	Active         bool             `json:"active"`
	WeekStart      time.Time        `json:"weekStart"`
	WeekEnd        time.Time        `json:"weekEnd"`
	WeekLabel      string           `json:"weekLabel"`
	Questions      []publicQuestion `json:"questions,omitempty"`
}

func toPublicQuestion(q domain.Question) publicQuestion {
	return publicQuestion{ID: q.ID, Prompt: q.Prompt, Options: q.Options, OrderIndex: q.OrderIndex}
}

func toPublicQuiz(quiz domain.Quiz) publicQuiz {
	out := publicQuiz{
		ID:             quiz.ID,
		Title:          quiz.Title,
		Description:    quiz.Description,
		MaxTimeSeconds: quiz.TimeLimit(),
		Active:         quiz.Active,
		WeekStart:      quiz.WeekStart,
		WeekEnd:        quiz.WeekEnd,
		WeekLabel:      scoring.FormatQuizWeek(quiz.WeekStart),
	}
	for _, q := range quiz.Questions {
		out.Questions = append(out.Questions, toPublicQuestion(q))
	}
	return out
}
