// Package session runs one timed quiz attempt: question navigation, answer capture,
// a countdown derived from the start instant, and a single completion handed to a Submitter.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"weekly-quiz/internal/domain"
	"weekly-quiz/internal/scoring"
)

var (
	// ErrSessionClosed is returned for actions after the session completed or was abandoned.
	ErrSessionClosed = errors.New("quiz session closed")
	// ErrNotReady is returned when submit or retry is requested from the wrong phase.
	ErrNotReady = errors.New("quiz session not ready to submit")
)

// DefaultTickInterval is the nominal countdown cadence.
const DefaultTickInterval = time.Second

type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseUnavailable   Phase = "unavailable"
	PhaseRunning       Phase = "running"
	PhaseConfirming    Phase = "confirming"
	PhaseCompleting    Phase = "completing"
	PhaseFailed        Phase = "failed"
	PhaseTerminal      Phase = "terminal"
)

// Reason records which path completed the session.
type Reason string

const (
	ReasonTimeout Reason = "timeout"
	ReasonManual  Reason = "manual"
)

// Completion is the terminal event of a session.
type Completion struct {
	Answers          domain.Answers `json:"answers"`
	TimeTakenSeconds int            `json:"timeTakenSeconds"`
	Reason           Reason         `json:"reason"`
	CompletedAt      time.Time      `json:"completedAt"`
}

// Submitter persists a completion. It may be called again with the same completion after a failure.
type Submitter interface {
	Submit(ctx context.Context, completion Completion) (domain.Attempt, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, completion Completion) (domain.Attempt, error)

func (f SubmitterFunc) Submit(ctx context.Context, completion Completion) (domain.Attempt, error) {
	return f(ctx, completion)
}

type EventType string

const (
	EventStarted         EventType = "started"
	EventTick            EventType = "tick"
	EventAdvanced        EventType = "advanced"
	EventConfirmRequired EventType = "confirm"
	EventCompleted       EventType = "completed"
	EventSubmitted       EventType = "submitted"
	EventSubmitFailed    EventType = "submitFailed"
	EventAbandoned       EventType = "abandoned"
)

// Event is delivered to the listener after the controller has released its lock.
type Event struct {
	Type       EventType
	Index      int
	Remaining  int
	Completion *Completion
	Attempt    *domain.Attempt
	Err        error
}

// Step is the outcome of a Next request.
type Step int

const (
	// StepBlocked means the current question has no answer; nothing changed.
	StepBlocked Step = iota
	// StepAdvanced means the pointer moved to the next question.
	StepAdvanced
	// StepConfirm means the last question is answered and submission awaits confirmation.
	StepConfirm
)

// View is a read-only picture of the session for presentation.
type View struct {
	Phase     Phase
	Index     int
	Total     int
	Question  *domain.Question
	Answers   domain.Answers
	Remaining int
	Limit     int
	Pending   *Completion
}

type Option func(*Controller)

func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

func WithTickInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithListener registers the event callback. It may be invoked from the tick goroutine.
func WithListener(fn func(Event)) Option {
	return func(c *Controller) { c.listener = fn }
}

// Controller binds a State to wall-clock time and produces exactly one completion per session.
// Tick and user actions are serialised by mu, so State has a single writer at any instant.
type Controller struct {
	quiz     domain.Quiz
	state    *State
	submit   Submitter
	clock    Clock
	interval time.Duration
	listener func(Event)

	mu      sync.Mutex
	phase   Phase
	pending *Completion
	done    chan struct{}
}

func NewController(quiz domain.Quiz, state *State, submitter Submitter, opts ...Option) *Controller {
	c := &Controller{
		quiz:     quiz,
		state:    state,
		submit:   submitter,
		clock:    SystemClock,
		interval: DefaultTickInterval,
		phase:    PhaseUninitialized,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins the session if the state has no start instant yet. It returns false when
// the quiz has no questions; that is a display state, not an error.
func (c *Controller) Start() bool {
	c.mu.Lock()
	switch c.phase {
	case PhaseRunning, PhaseConfirming:
		c.mu.Unlock()
		return true
	case PhaseCompleting, PhaseFailed:
		c.mu.Unlock()
		return false
	}
	if len(c.quiz.Questions) == 0 {
		c.phase = PhaseUnavailable
		c.mu.Unlock()
		return false
	}
	if _, started := c.state.StartTime(); !started {
		c.state.StartQuiz(c.quiz.TimeLimit())
	}
	c.state.SetCurrentQuestionIndex(c.clampIndex(c.state.CurrentQuestionIndex()))
	c.phase = PhaseRunning
	c.pending = nil
	c.done = make(chan struct{})
	ev := Event{Type: EventStarted, Index: c.state.CurrentQuestionIndex(), Remaining: c.state.TimeRemaining()}
	c.mu.Unlock()

	c.emit(ev)
	return true
}

// Run ticks the countdown until the session leaves the running phases or ctx ends.
func (c *Controller) Run(ctx context.Context) {
	c.mu.Lock()
	done := c.done
	live := c.phase == PhaseRunning || c.phase == PhaseConfirming
	c.mu.Unlock()
	if !live || done == nil {
		return
	}

	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C():
			c.Tick(ctx)
		}
	}
}

// Tick recomputes the remaining time from the start instant and completes the session
// when it reaches zero. Stale ticks after completion or reset are ignored.
func (c *Controller) Tick(ctx context.Context) int {
	c.mu.Lock()
	if c.phase != PhaseRunning && c.phase != PhaseConfirming {
		remaining := c.state.TimeRemaining()
		c.mu.Unlock()
		return remaining
	}
	start, started := c.state.StartTime()
	if !started {
		c.mu.Unlock()
		return c.state.TimeRemaining()
	}

	remaining := scoring.RemainingSeconds(start, c.clock.Now(), c.quiz.TimeLimit())
	c.state.UpdateTimeRemaining(remaining)
	tick := Event{Type: EventTick, Index: c.state.CurrentQuestionIndex(), Remaining: remaining}

	if remaining > 0 {
		c.mu.Unlock()
		c.emit(tick)
		return remaining
	}

	completion := c.beginCompletionLocked(ReasonTimeout)
	c.mu.Unlock()

	c.emit(tick)
	_, _ = c.finish(ctx, completion)
	return 0
}

// SelectAnswer records option for questionID, overwriting a previous choice.
func (c *Controller) SelectAnswer(questionID, option string) error {
	label := domain.NormalizeOption(option)
	if label == "" {
		return domain.ErrInvalidOption
	}
	if c.quiz.QuestionIndex(questionID) < 0 {
		return domain.ErrQuestionNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseRunning && c.phase != PhaseConfirming {
		return ErrSessionClosed
	}
	c.state.SetAnswer(questionID, label)
	return nil
}

// Next advances to the following question only when the current one is answered.
// On the last question it asks for confirmation instead of advancing.
func (c *Controller) Next() Step {
	c.mu.Lock()
	switch c.phase {
	case PhaseConfirming:
		c.mu.Unlock()
		return StepConfirm
	case PhaseRunning:
	default:
		c.mu.Unlock()
		return StepBlocked
	}

	index := c.clampIndex(c.state.CurrentQuestionIndex())
	current := c.quiz.Questions[index]
	if _, answered := c.state.Answer(current.ID); !answered {
		c.mu.Unlock()
		return StepBlocked
	}

	if index == len(c.quiz.Questions)-1 {
		c.phase = PhaseConfirming
		ev := Event{Type: EventConfirmRequired, Index: index, Remaining: c.state.TimeRemaining()}
		c.mu.Unlock()
		c.emit(ev)
		return StepConfirm
	}

	c.state.SetCurrentQuestionIndex(index + 1)
	ev := Event{Type: EventAdvanced, Index: index + 1, Remaining: c.state.TimeRemaining()}
	c.mu.Unlock()
	c.emit(ev)
	return StepAdvanced
}

// CancelConfirm returns from the confirmation step to answering.
func (c *Controller) CancelConfirm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseConfirming {
		c.phase = PhaseRunning
	}
}

// Submit is the manual completion path, valid once the last question awaits confirmation.
func (c *Controller) Submit(ctx context.Context) (domain.Attempt, error) {
	c.mu.Lock()
	switch c.phase {
	case PhaseConfirming:
	case PhaseRunning:
		c.mu.Unlock()
		return domain.Attempt{}, ErrNotReady
	default:
		c.mu.Unlock()
		return domain.Attempt{}, ErrSessionClosed
	}
	completion := c.beginCompletionLocked(ReasonManual)
	c.mu.Unlock()

	return c.finish(ctx, completion)
}

// Retry resubmits the identical completion after a failed submission.
func (c *Controller) Retry(ctx context.Context) (domain.Attempt, error) {
	c.mu.Lock()
	if c.phase != PhaseFailed || c.pending == nil {
		c.mu.Unlock()
		return domain.Attempt{}, ErrNotReady
	}
	c.phase = PhaseCompleting
	completion := *c.pending
	c.mu.Unlock()

	return c.submitCompletion(ctx, completion)
}

// Abandon stops the countdown and clears the state. An in-flight submission is left alone.
func (c *Controller) Abandon() {
	c.mu.Lock()
	switch c.phase {
	case PhaseRunning, PhaseConfirming, PhaseFailed:
	default:
		c.mu.Unlock()
		return
	}
	c.stopTickerLocked()
	c.state.ResetQuiz()
	c.phase = PhaseTerminal
	c.pending = nil
	c.mu.Unlock()

	c.emit(Event{Type: EventAbandoned})
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) Quiz() domain.Quiz {
	return c.quiz
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.state.Snapshot()
	v := View{
		Phase:     c.phase,
		Index:     snap.CurrentQuestionIndex,
		Total:     len(c.quiz.Questions),
		Answers:   snap.Answers,
		Remaining: snap.TimeRemaining,
		Limit:     c.quiz.TimeLimit(),
	}
	if len(c.quiz.Questions) > 0 {
		q := c.quiz.Questions[c.clampIndex(snap.CurrentQuestionIndex)]
		v.Question = &q
	}
	if c.pending != nil {
		p := *c.pending
		v.Pending = &p
	}
	return v
}

// beginCompletionLocked moves to Completing, cancels the ticker and freezes the answers.
// Callers hold mu and have checked the session is running.
func (c *Controller) beginCompletionLocked(reason Reason) Completion {
	c.phase = PhaseCompleting
	c.stopTickerLocked()

	now := c.clock.Now()
	start, _ := c.state.StartTime()
	completion := Completion{
		Answers:          c.state.Answers(),
		TimeTakenSeconds: scoring.ElapsedSeconds(start, now),
		Reason:           reason,
		CompletedAt:      now,
	}
	c.pending = &completion
	return completion
}

func (c *Controller) finish(ctx context.Context, completion Completion) (domain.Attempt, error) {
	c.emit(Event{Type: EventCompleted, Completion: &completion})
	return c.submitCompletion(ctx, completion)
}

func (c *Controller) submitCompletion(ctx context.Context, completion Completion) (domain.Attempt, error) {
	attempt, err := c.submit.Submit(ctx, completion)

	c.mu.Lock()
	if err != nil {
		c.phase = PhaseFailed
		c.mu.Unlock()
		log.Printf("session: submit failed for quiz %s: %v", c.quiz.ID, err)
		c.emit(Event{Type: EventSubmitFailed, Completion: &completion, Err: err})
		return domain.Attempt{}, err
	}
	c.state.ResetQuiz()
	c.phase = PhaseTerminal
	c.pending = nil
	c.mu.Unlock()

	c.emit(Event{Type: EventSubmitted, Completion: &completion, Attempt: &attempt})
	return attempt, nil
}

func (c *Controller) stopTickerLocked() {
	if c.done == nil {
		return
	}
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

func (c *Controller) clampIndex(index int) int {
	last := len(c.quiz.Questions) - 1
	if index > last {
		index = last
	}
	if index < 0 {
		index = 0
	}
	return index
}

func (c *Controller) emit(ev Event) {
	if c.listener != nil {
		c.listener(ev)
	}
}
