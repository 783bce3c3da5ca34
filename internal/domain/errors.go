package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNoActiveQuiz is returned when no quiz is active this week.
	ErrNoActiveQuiz = errors.New("no active quiz")
	// ErrQuestionNotFound indicates a submitted question ID is not part of the quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidOption indicates an answer label outside A-D.
	ErrInvalidOption = errors.New("option must be one of A, B, C, D")
	// ErrAttemptNotFound is returned when a user has not attempted a quiz.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAlreadyAttempted enforces one attempt per user per quiz.
	ErrAlreadyAttempted = errors.New("quiz already attempted")
	// ErrUserNotFound is returned when a profile does not exist yet.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned on a duplicate profile insert.
	ErrUserExists = errors.New("user already exists")
	// ErrSessionClaimed is returned when the user already has a live session for the quiz.
	ErrSessionClaimed = errors.New("quiz session already in progress")
)
