package session

import (
	"sync"
	"time"

	"weekly-quiz/internal/domain"
)

// State holds the progress of exactly one quiz session.
// All mutators are total: they never fail and perform no validation.
type State struct {
	mu           sync.RWMutex
	now          func() time.Time
	defaultLimit int

	index     int
	answers   domain.Answers
	startTime time.Time
	started   bool
	remaining int
}

// Snapshot is a copy of the state at one instant.
type Snapshot struct {
	CurrentQuestionIndex int
	Answers              domain.Answers
	StartTime            time.Time
	Started              bool
	TimeRemaining        int
}

// NewState returns an unstarted state. now supplies the start instant; nil means time.Now.
func NewState(defaultLimit int, now func() time.Time) *State {
	if defaultLimit <= 0 {
		defaultLimit = domain.DefaultMaxTimeSeconds
	}
	if now == nil {
		now = time.Now
	}
	return &State{
		now:          now,
		defaultLimit: defaultLimit,
		answers:      make(domain.Answers),
		remaining:    defaultLimit,
	}
}

// StartQuiz overwrites any prior session: index 0, no answers, start now, full time.
func (s *State) StartQuiz(limitSeconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = 0
	s.answers = make(domain.Answers)
	s.startTime = s.now()
	s.started = true
	s.remaining = limitSeconds
}

// SetAnswer inserts or overwrites the answer for questionID.
func (s *State) SetAnswer(questionID, option string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[questionID] = option
}

// SetCurrentQuestionIndex overwrites the question pointer unconditionally.
func (s *State) SetCurrentQuestionIndex(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = index
}

// UpdateTimeRemaining overwrites the remaining seconds; the caller keeps it non-negative.
func (s *State) UpdateTimeRemaining(seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remaining = seconds
}

// ResetQuiz restores the unstarted defaults.
func (s *State) ResetQuiz() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = 0
	s.answers = make(domain.Answers)
	s.startTime = time.Time{}
	s.started = false
	s.remaining = s.defaultLimit
}

func (s *State) CurrentQuestionIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// Answers returns a copy of the recorded answers.
func (s *State) Answers() domain.Answers {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.answers.Clone()
}

// Answer returns the recorded option for questionID.
func (s *State) Answer(questionID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	option, ok := s.answers[questionID]
	return option, ok
}

// StartTime reports the start instant; ok is false before StartQuiz or after ResetQuiz.
func (s *State) StartTime() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startTime, s.started
}

func (s *State) TimeRemaining() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remaining
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		CurrentQuestionIndex: s.index,
		Answers:              s.answers.Clone(),
		StartTime:            s.startTime,
		Started:              s.started,
		TimeRemaining:        s.remaining,
	}
}
