package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"weekly-quiz/internal/app"
	"weekly-quiz/internal/config"
	"weekly-quiz/internal/domain"
	"weekly-quiz/internal/infra/memory"
	"weekly-quiz/internal/infra/sqlite"
	"weekly-quiz/internal/scoring"
	"weekly-quiz/internal/session"

	"github.com/spf13/cobra"
)

const maxInvalidInputs = 3

var errTooManyInvalid = errors.New("too many invalid answers")

type playOptions struct {
	quizFile string
	quizID   string
	userID   string
	dbPath   string
	inMemory bool
	interval time.Duration
}

// NewPlayCmd runs one quiz session in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var opts playOptions
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Take a quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg, err := config.Load(*configPath); err == nil {
				if opts.quizFile == "" {
					opts.quizFile = cfg.Quiz.File
				}
				if opts.dbPath == "" {
					opts.dbPath = cfg.SQLite.Path
				}
				opts.interval = config.TTLDuration(cfg.Quiz.TickInterval, time.Second)
			}
			if opts.userID == "" {
				opts.userID = os.Getenv("USER")
			}
			return runPlay(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.quizFile, "quiz-file", "", "YAML quiz file (defaults to quiz.file)")
	cmd.Flags().StringVar(&opts.quizID, "quiz", "", "quiz id (defaults to the active quiz)")
	cmd.Flags().StringVar(&opts.userID, "user", "", "player id (defaults to $USER)")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "SQLite results file (defaults to sqlite.path)")
	cmd.Flags().BoolVar(&opts.inMemory, "memory", false, "keep results in memory only")
	return cmd
}

func runPlay(ctx context.Context, opts playOptions, in io.Reader, out io.Writer) error {
	if opts.quizFile == "" {
		return fmt.Errorf("no quiz file: pass --quiz-file or set quiz.file")
	}
	if opts.userID == "" {
		opts.userID = "player"
	}
	loader, err := memory.LoadQuizFile(opts.quizFile)
	if err != nil {
		return err
	}

	var (
		attempts app.AttemptRepository
		board    app.LeaderboardRepository
	)
	if opts.inMemory {
		attempts, board = memory.NewAttemptStore(), memory.NewLeaderboard()
	} else {
		store, err := sqlite.NewStore(opts.dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		attempts, board = store, store
	}
	service := app.NewQuizService(memory.NewQuizRepository(loader, 0), attempts, board, nil)

	quiz, err := loadPlayQuiz(ctx, service, opts.quizID)
	if err != nil {
		return err
	}
	if _, err := service.UserAttempt(ctx, opts.userID, quiz.ID); err == nil {
		return fmt.Errorf("%s: %w", opts.userID, domain.ErrAlreadyAttempted)
	}

	p := newPlayer(quiz, in, out)
	controller := session.NewController(quiz, session.NewState(quiz.TimeLimit(), time.Now),
		service.SessionSubmitter(opts.userID, quiz),
		session.WithTickInterval(opts.interval),
		session.WithListener(p.onEvent),
	)
	if !controller.Start() {
		p.printf("No questions available for %s.\n", quiz.Title)
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go controller.Run(runCtx)

	attempt, err := p.play(runCtx, controller)
	if err != nil {
		controller.Abandon()
		return err
	}

	top, err := service.Leaderboard(ctx, quiz.ID, 10)
	if err != nil {
		return err
	}
	p.printResult(attempt, top)
	return nil
}

func loadPlayQuiz(ctx context.Context, service *app.QuizService, quizID string) (domain.Quiz, error) {
	if quizID != "" {
		return service.GetQuiz(ctx, quizID)
	}
	return service.ActiveQuiz(ctx)
}

// player renders the session on a line-oriented terminal.
type player struct {
	quiz  domain.Quiz
	lines <-chan string

	outMu sync.Mutex
	out   io.Writer

	mu        sync.Mutex
	attempt   *domain.Attempt
	submitErr error
	settled   chan struct{}
}

func newPlayer(quiz domain.Quiz, in io.Reader, out io.Writer) *player {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return &player{quiz: quiz, lines: lines, out: out, settled: make(chan struct{}, 1)}
}

func (p *player) printf(format string, args ...any) {
	p.outMu.Lock()
	defer p.outMu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

func (p *player) onEvent(ev session.Event) {
	switch ev.Type {
	case session.EventStarted:
		p.printf("%s: %d questions, %s on the clock.\n", p.quiz.Title, len(p.quiz.Questions), scoring.FormatTimeRemaining(ev.Remaining))
	case session.EventCompleted:
		if ev.Completion.Reason == session.ReasonTimeout {
			p.printf("\nTime's up! Submitting your answers...\n")
		}
	case session.EventSubmitted:
		p.mu.Lock()
		attempt := *ev.Attempt
		p.attempt, p.submitErr = &attempt, nil
		p.mu.Unlock()
		p.settle()
	case session.EventSubmitFailed:
		p.mu.Lock()
		p.submitErr = ev.Err
		p.mu.Unlock()
		p.settle()
	}
}

func (p *player) settle() {
	select {
	case p.settled <- struct{}{}:
	default:
	}
}

// read returns the next input line, or ok=false once the session settled or input ended.
func (p *player) read(ctx context.Context) (string, bool) {
	select {
	case line, ok := <-p.lines:
		return strings.TrimSpace(line), ok
	case <-p.settled:
		p.settle()
		return "", false
	case <-ctx.Done():
		return "", false
	}
}

func (p *player) play(ctx context.Context, controller *session.Controller) (domain.Attempt, error) {
	invalid := 0
	for {
		attempt, err := p.outcome()
		if attempt != nil {
			return *attempt, nil
		}
		if err != nil {
			if !p.askRetry(ctx, err) {
				return domain.Attempt{}, err
			}
			_, _ = controller.Retry(ctx)
			continue
		}

		view := controller.View()
		switch view.Phase {
		case session.PhaseConfirming:
			p.printf("Submit %d of %d answers? [y/n] ", len(view.Answers), view.Total)
			line, ok := p.read(ctx)
			if !ok {
				if p.settledOutcome() {
					continue
				}
				return domain.Attempt{}, io.ErrUnexpectedEOF
			}
			if strings.EqualFold(line, "y") {
				_, _ = controller.Submit(ctx)
			} else {
				controller.CancelConfirm()
			}
		case session.PhaseRunning:
			p.printQuestion(view)
			line, ok := p.read(ctx)
			if !ok {
				if p.settledOutcome() {
					continue
				}
				return domain.Attempt{}, io.ErrUnexpectedEOF
			}
			err := controller.SelectAnswer(view.Question.ID, line)
			if errors.Is(err, session.ErrSessionClosed) {
				continue
			}
			if err != nil {
				invalid++
				if invalid >= maxInvalidInputs {
					return domain.Attempt{}, errTooManyInvalid
				}
				p.printf("Please answer A, B, C or D (%d tries left).\n", maxInvalidInputs-invalid)
				continue
			}
			invalid = 0
			controller.Next()
		default:
			// completing: wait for the submission to settle
			if _, ok := p.read(ctx); !ok && !p.settledOutcome() {
				return domain.Attempt{}, io.ErrUnexpectedEOF
			}
		}
	}
}

// outcome reports the submitted attempt or the last submission error, if any.
func (p *player) outcome() (*domain.Attempt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempt, p.submitErr
}

func (p *player) settledOutcome() bool {
	attempt, err := p.outcome()
	return attempt != nil || err != nil
}

func (p *player) askRetry(ctx context.Context, err error) bool {
	if errors.Is(err, domain.ErrAlreadyAttempted) {
		return false
	}
	p.mu.Lock()
	p.submitErr = nil
	p.mu.Unlock()
	// drain the settle signal of the failed submission
	select {
	case <-p.settled:
	default:
	}
	p.printf("Submission failed: %v. Retry? [y/n] ", err)
	select {
	case line, ok := <-p.lines:
		return ok && strings.EqualFold(strings.TrimSpace(line), "y")
	case <-ctx.Done():
		return false
	}
}

func (p *player) printQuestion(v session.View) {
	q := v.Question
	p.printf("\n[%s] Question %d/%d: %s\n", scoring.FormatTimeRemaining(v.Remaining), v.Index+1, v.Total, q.Prompt)
	for i, label := range domain.OptionLabels {
		p.printf("  %s) %s\n", label, q.Options[i])
	}
	if selected := v.Answers[q.ID]; selected != "" {
		p.printf("(current answer: %s) ", selected)
	}
	p.printf("> ")
}

func (p *player) printResult(attempt domain.Attempt, top []domain.LeaderboardEntry) {
	score := scoring.Calculate(attempt.CorrectAnswers, attempt.TotalQuestions, attempt.TimeTakenSeconds, p.quiz.TimeLimit())
	p.printf("\nCorrect answers: %d/%d (%s)\n", attempt.CorrectAnswers, attempt.TotalQuestions,
		scoring.FormatPercentage(attempt.CorrectAnswers, attempt.TotalQuestions))
	p.printf("Time taken:      %s\n", scoring.FormatTimeRemaining(attempt.TimeTakenSeconds))
	p.printf("Accuracy score:  %s\n", scoring.FormatScore(score.Accuracy))
	p.printf("Time bonus:      %s\n", scoring.FormatScore(score.TimeBonus))
	p.printf("Final score:     %s\n", scoring.FormatScore(score.Final))

	p.printf("\nLeaderboard\n")
	for _, e := range top {
		p.printf("%5s  %-20s %8s  %s\n", scoring.FormatRank(e.Rank), e.Username, scoring.FormatScore(e.Score), scoring.RankBadge(e.Rank))
	}
}
