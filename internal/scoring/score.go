// Package scoring holds the pure scoring rules and display helpers for quiz results.
package scoring

import (
	"time"

	"weekly-quiz/internal/domain"
)

const (
	pointsPerCorrect    = 100
	bonusPerSecondSaved = 2
)

// Score is the breakdown of a finished attempt.
type Score struct {
	Accuracy  int `json:"accuracyScore"`
	TimeBonus int `json:"timeBonus"`
	Final     int `json:"finalScore"`
}

// Calculate scores an attempt: 100 points per correct answer plus 2 points per second left
// on the clock. totalQuestions is part of the contract but the weekly policy does not
// normalise by quiz length. A non-positive maxTimeSeconds falls back to the policy default.
func Calculate(correctAnswers, totalQuestions, timeTakenSeconds, maxTimeSeconds int) Score {
	if maxTimeSeconds <= 0 {
		maxTimeSeconds = domain.DefaultMaxTimeSeconds
	}
	accuracy := correctAnswers * pointsPerCorrect
	bonus := (maxTimeSeconds - timeTakenSeconds) * bonusPerSecondSaved
	if bonus < 0 {
		bonus = 0
	}
	return Score{
		Accuracy:  accuracy,
		TimeBonus: bonus,
		Final:     accuracy + bonus,
	}
}

// CountCorrect counts questions whose recorded answer matches the correct option.
func CountCorrect(answers domain.Answers, questions []domain.Question) int {
	correct := 0
	for _, q := range questions {
		if selected, ok := answers[q.ID]; ok && selected == q.CorrectOption {
			correct++
		}
	}
	return correct
}

// ElapsedSeconds is floor((now-start)/1s), never negative.
func ElapsedSeconds(start, now time.Time) int {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// RemainingSeconds derives the countdown from the start instant: max(0, limit-elapsed).
func RemainingSeconds(start, now time.Time, limitSeconds int) int {
	remaining := limitSeconds - ElapsedSeconds(start, now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
