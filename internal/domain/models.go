package domain

import (
	"sort"
	"strings"
	"time"
)

// DefaultMaxTimeSeconds is the weekly quiz time limit policy (5 minutes).
const DefaultMaxTimeSeconds = 300

// Option labels for the four answer slots of a question.
const (
	OptionA = "A"
	OptionB = "B"
	OptionC = "C"
	OptionD = "D"
)

// OptionLabels lists the answer slots in display order.
var OptionLabels = [4]string{OptionA, OptionB, OptionC, OptionD}

// ValidOption reports whether label is one of A-D.
func ValidOption(label string) bool {
	switch label {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// NormalizeOption trims and upper-cases raw input, returning "" when it is not A-D.
func NormalizeOption(raw string) string {
	label := strings.ToUpper(strings.TrimSpace(raw))
	if !ValidOption(label) {
		return ""
	}
	return label
}

func optionSlot(label string) int {
	for i, l := range OptionLabels {
		if l == label {
			return i
		}
	}
	return -1
}

// Question models a multiple-choice item with exactly one correct option.
type Question struct {
	ID            string    `json:"id" yaml:"id"`
	QuizID        string    `json:"quizId" yaml:"-"`
	Prompt        string    `json:"prompt" yaml:"prompt"`
	Options       [4]string `json:"options" yaml:"options"`
	CorrectOption string    `json:"correctOption" yaml:"correct"`
	OrderIndex    int       `json:"orderIndex" yaml:"order"`
}

// OptionText returns the text shown for label, or "" for an unknown label.
func (q Question) OptionText(label string) string {
	slot := optionSlot(label)
	if slot < 0 {
		return ""
	}
	return q.Options[slot]
}

// SortQuestions orders questions by OrderIndex, keeping input order for ties.
func SortQuestions(questions []Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].OrderIndex < questions[j].OrderIndex
	})
}

// Quiz is one weekly challenge.
type Quiz struct {
	ID             string     `json:"id" yaml:"id"`
	Title          string     `json:"title" yaml:"title"`
	Description    string     `json:"description" yaml:"description"`
	Questions      []Question `json:"questions" yaml:"questions"`
	MaxTimeSeconds int        `json:"maxTimeSeconds" yaml:"maxTimeSeconds"`
	Active         bool       `json:"active" yaml:"active"`
	WeekStart      time.Time  `json:"weekStart" yaml:"weekStart"`
	WeekEnd        time.Time  `json:"weekEnd" yaml:"weekEnd"`
	CreatedAt      time.Time  `json:"createdAt" yaml:"-"`
}

// TimeLimit returns the configured limit in seconds, falling back to the policy default.
func (q Quiz) TimeLimit() int {
	if q.MaxTimeSeconds <= 0 {
		return DefaultMaxTimeSeconds
	}
	return q.MaxTimeSeconds
}

// QuestionIndex returns the position of the question with id, or -1.
func (q Quiz) QuestionIndex(id string) int {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return i
		}
	}
	return -1
}

// Answers maps question IDs to the selected option label.
type Answers map[string]string

// Clone returns an independent copy; a nil receiver yields an empty map.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Attempt is the persisted result of one completed session.
type Attempt struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	QuizID           string    `json:"quizId"`
	Score            int       `json:"score"`
	TimeTakenSeconds int       `json:"timeTakenSeconds"`
	CorrectAnswers   int       `json:"correctAnswers"`
	TotalQuestions   int       `json:"totalQuestions"`
	Answers          Answers   `json:"answers"`
	SubmittedAt      time.Time `json:"submittedAt"`
}

// PastAttempt is an attempt joined with the quiz it belongs to.
type PastAttempt struct {
	Attempt
	QuizTitle     string    `json:"quizTitle"`
	QuizWeekStart time.Time `json:"quizWeekStart"`
}

// LeaderboardEntry is a ranked, display-only view of an attempt.
type LeaderboardEntry struct {
	Rank             int       `json:"rank"`
	UserID           string    `json:"userId"`
	Username         string    `json:"username"`
	AvatarURL        string    `json:"avatarUrl,omitempty"`
	Score            int       `json:"score"`
	TimeTakenSeconds int       `json:"timeTakenSeconds"`
	CorrectAnswers   int       `json:"correctAnswers"`
	SubmittedAt      time.Time `json:"submittedAt"`
}

// RankEntries sorts by score desc, then time asc, then earliest submission, and assigns 1-based ranks.
func RankEntries(entries []LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].TimeTakenSeconds != entries[j].TimeTakenSeconds {
			return entries[i].TimeTakenSeconds < entries[j].TimeTakenSeconds
		}
		return entries[i].SubmittedAt.Before(entries[j].SubmittedAt)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

// User is a player profile owned by the identity collaborator.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	Provider    string    `json:"provider"`
	CreatedAt   time.Time `json:"createdAt"`
}
