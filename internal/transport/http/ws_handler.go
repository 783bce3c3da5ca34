package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"weekly-quiz/internal/app"
	"weekly-quiz/internal/auth"
	"weekly-quiz/internal/domain"
	"weekly-quiz/internal/metrics"
	"weekly-quiz/internal/scoring"
	"weekly-quiz/internal/session"

	"github.com/gorilla/websocket"
)

// WSHandler runs one timed quiz session per WebSocket connection.
type WSHandler struct {
	service  *app.QuizService
	users    *app.UserService
	registry app.SessionRegistry
	verifier *auth.Verifier
	clock    session.Clock
	interval time.Duration
	upgrader websocket.Upgrader
}

type WSOption func(*WSHandler)

// WithVerifier requires a valid bearer token; without it the userId query parameter is trusted.
func WithVerifier(v *auth.Verifier) WSOption {
	return func(h *WSHandler) { h.verifier = v }
}

// WithUsers creates the player's profile on first connect.
func WithUsers(users *app.UserService) WSOption {
	return func(h *WSHandler) { h.users = users }
}

func WithRegistry(registry app.SessionRegistry) WSOption {
	return func(h *WSHandler) { h.registry = registry }
}

func WithTickInterval(d time.Duration) WSOption {
	return func(h *WSHandler) { h.interval = d }
}

func WithSessionClock(clock session.Clock) WSOption {
	return func(h *WSHandler) { h.clock = clock }
}

func NewWSHandler(service *app.QuizService, opts ...WSOption) *WSHandler {
	h := &WSHandler{
		service:  service,
		clock:    session.SystemClock,
		interval: session.DefaultTickInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// connection serialises writes through send; the writer goroutine owns conn writes.
type connection struct {
	send   chan outboundMessage[any]
	closed chan struct{}
}

func (c *connection) push(typ string, payload any) {
	select {
	case c.send <- outboundMessage[any]{Type: typ, Payload: payload}:
	case <-c.closed:
	}
}

// ServeWS upgrades HTTP requests to websockets and drives a session controller from client messages.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	identity, err := identify(r, h.verifier)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	quiz, err := h.resolveQuiz(ctx, r.URL.Query().Get("quizId"))
	if errors.Is(err, domain.ErrNoActiveQuiz) || errors.Is(err, domain.ErrQuizNotFound) {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "unavailable", Payload: errorPayload{Message: err.Error()}})
		return
	}
	if err != nil {
		log.Printf("ws: load quiz: %v", err)
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "failed to load quiz"}})
		return
	}

	if h.users != nil {
		if _, err := h.users.EnsureProfile(ctx, identity); err != nil {
			log.Printf("ws: profile for %s: %v", identity.UserID, err)
		}
	}

	if _, err := h.service.UserAttempt(ctx, identity.UserID, quiz.ID); err == nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: domain.ErrAlreadyAttempted.Error()}})
		return
	}

	if h.registry != nil {
		if err := h.registry.Claim(ctx, quiz.ID, identity.UserID); err != nil {
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			return
		}
		defer h.registry.Release(context.Background(), quiz.ID, identity.UserID)
	}

	c := &connection{
		send:   make(chan outboundMessage[any], 32),
		closed: make(chan struct{}),
	}
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	state := session.NewState(quiz.TimeLimit(), h.clock.Now)
	controller := session.NewController(quiz, state, h.service.SessionSubmitter(identity.UserID, quiz),
		session.WithClock(h.clock),
		session.WithTickInterval(h.interval),
		session.WithListener(func(ev session.Event) { h.forward(c, quiz, state, ev) }),
	)

	if !controller.Start() {
		c.push("unavailable", errorPayload{Message: "quiz has no questions"})
		close(c.closed)
		close(c.send)
		<-writerDone
		return
	}
	metrics.SessionsStarted.Inc()
	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	// Detached from the request so an in-flight timeout submission survives the disconnect.
	runCtx, cancelRun := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		controller.Run(runCtx)
	}()

	h.readLoop(runCtx, conn, controller, c)

	// Disconnect abandons an unfinished session.
	controller.Abandon()
	close(c.closed)
	<-runDone
	cancelRun()
	close(c.send)
	<-writerDone
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, controller *session.Controller, c *connection) {
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				c.push("error", errorPayload{Message: "invalid answer payload"})
				continue
			}
			if err := controller.SelectAnswer(payload.QuestionID, payload.Option); err != nil {
				c.push("error", errorPayload{Message: err.Error()})
				continue
			}
			c.push("question", questionView(controller.View()))
		case "next":
			if controller.Next() == session.StepBlocked {
				c.push("error", errorPayload{Message: "select an answer before continuing"})
			}
		case "cancel":
			controller.CancelConfirm()
			c.push("question", questionView(controller.View()))
		case "submit":
			if _, err := controller.Submit(ctx); errors.Is(err, session.ErrNotReady) || errors.Is(err, session.ErrSessionClosed) {
				c.push("error", errorPayload{Message: err.Error()})
			}
		case "retry":
			if _, err := controller.Retry(ctx); errors.Is(err, session.ErrNotReady) {
				c.push("error", errorPayload{Message: err.Error()})
			}
		case "abandon":
			return
		default:
			c.push("error", errorPayload{Message: "unsupported message type"})
		}
	}
}

// forward turns controller events into client messages. It runs outside the controller lock.
func (h *WSHandler) forward(c *connection, quiz domain.Quiz, state *session.State, ev session.Event) {
	switch ev.Type {
	case session.EventStarted:
		c.push("started", startedPayload{
			QuizID:    quiz.ID,
			Title:     quiz.Title,
			Total:     len(quiz.Questions),
			Limit:     quiz.TimeLimit(),
			Remaining: ev.Remaining,
		})
		c.push("question", questionAt(quiz, state, ev.Index))
	case session.EventTick:
		c.push("tick", tickPayload{
			Remaining: ev.Remaining,
			Display:   scoring.FormatTimeRemaining(ev.Remaining),
			Level:     scoring.TimerLevel(ev.Remaining, quiz.TimeLimit()),
		})
	case session.EventAdvanced:
		c.push("question", questionAt(quiz, state, ev.Index))
	case session.EventConfirmRequired:
		c.push("confirm", confirmPayload{Answered: len(state.Answers()), Total: len(quiz.Questions)})
	case session.EventCompleted:
		c.push("completed", completedPayload{Reason: string(ev.Completion.Reason), TimeTakenSeconds: ev.Completion.TimeTakenSeconds})
	case session.EventSubmitted:
		attempt := *ev.Attempt
		score := scoring.Calculate(attempt.CorrectAnswers, attempt.TotalQuestions, attempt.TimeTakenSeconds, quiz.TimeLimit())
		c.push("result", resultPayload{
			Attempt:      attempt,
			Score:        score,
			DisplayScore: scoring.FormatScore(score.Final),
			Accuracy:     scoring.FormatPercentage(attempt.CorrectAnswers, attempt.TotalQuestions),
		})
	case session.EventSubmitFailed:
		c.push("submitError", submitErrorPayload{
			Message:   ev.Err.Error(),
			Retryable: !errors.Is(ev.Err, domain.ErrAlreadyAttempted),
		})
	}
}

func (h *WSHandler) resolveQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quizID == "" {
		return h.service.ActiveQuiz(ctx)
	}
	return h.service.GetQuiz(ctx, quizID)
}

func questionAt(quiz domain.Quiz, state *session.State, index int) questionPayload {
	q := quiz.Questions[index]
	selected, _ := state.Answer(q.ID)
	return questionPayload{Index: index, Total: len(quiz.Questions), Question: toPublicQuestion(q), Selected: selected}
}

func questionView(v session.View) questionPayload {
	if v.Question == nil {
		return questionPayload{Index: v.Index, Total: v.Total}
	}
	return questionPayload{
		Index:    v.Index,
		Total:    v.Total,
		Question: toPublicQuestion(*v.Question),
		Selected: v.Answers[v.Question.ID],
	}
}
