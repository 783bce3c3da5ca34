package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"weekly-quiz/internal/app"
	"weekly-quiz/internal/auth"
	"weekly-quiz/internal/config"
	"weekly-quiz/internal/domain"
	"weekly-quiz/internal/infra/amqp"
	"weekly-quiz/internal/infra/memory"
	pgstore "weekly-quiz/internal/infra/postgres"
	infraredis "weekly-quiz/internal/infra/redis"
	transport "weekly-quiz/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader
	switch {
	case pool != nil:
		loader = pgstore.NewQuizLoader(pool)
	case cfg.Quiz.File != "":
		loader, err = memory.LoadQuizFile(cfg.Quiz.File)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("no quiz source: configure postgres.url or quiz.file")
	}
	loader = withDefaultLimit(loader, cfg.Quiz.MaxTimeSeconds)

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = infraredis.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var (
		attempts app.AttemptRepository = memory.NewAttemptStore()
		users    app.UserRepository    = memory.NewUserStore()
		board    app.LeaderboardRepository
		registry app.SessionRegistry
	)
	if pool != nil {
		attempts = pgstore.NewAttemptStore(pool)
		users = pgstore.NewUserStore(pool)
	}
	switch {
	case redisClient != nil:
		board = infraredis.NewLeaderboard(redisClient)
	case pool != nil:
		board = pgstore.NewLeaderboard(pool)
	default:
		board = memory.NewLeaderboard()
	}
	if redisClient != nil {
		registry = infraredis.NewSessionRegistry(redisClient, redisTTL)
	} else {
		registry = memory.NewSessionRegistry()
	}

	feed := app.NewLeaderboardFeed()
	opts := []app.ServiceOption{app.WithFeed(feed)}
	if cfg.AMQP.URL != "" {
		publisher, err := amqp.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return err
		}
		defer publisher.Close()
		opts = append(opts, app.WithPublisher(publisher))
	}
	service := app.NewQuizService(quizRepo, attempts, board, users, opts...)
	userService := app.NewUserService(users, cfg.Profile.Retries, config.TTLDuration(cfg.Profile.RetryDelay, time.Second))

	var verifier *auth.Verifier
	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewVerifier(cfg.Auth.JWTSecret)
	} else {
		log.Printf("auth.jwtSecret not set: trusting userId query parameter")
	}

	wsOpts := []transport.WSOption{
		transport.WithUsers(userService),
		transport.WithRegistry(registry),
		transport.WithTickInterval(config.TTLDuration(cfg.Quiz.TickInterval, time.Second)),
	}
	if verifier != nil {
		wsOpts = append(wsOpts, transport.WithVerifier(verifier))
	}
	wsHandler := transport.NewWSHandler(service, wsOpts...)
	boardHandler := transport.NewLeaderboardHandler(service, feed)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws/session", wsHandler.ServeWS)
	mux.HandleFunc("/ws/leaderboard", boardHandler.ServeWS)
	transport.NewAPI(service, verifier).Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// defaultLimitLoader applies the configured time limit to quizzes that do not set one.
type defaultLimitLoader struct {
	memory.QuizLoader
	seconds int
}

func withDefaultLimit(loader memory.QuizLoader, seconds int) memory.QuizLoader {
	if seconds <= 0 {
		return loader
	}
	return defaultLimitLoader{QuizLoader: loader, seconds: seconds}
}

func (l defaultLimitLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := l.QuizLoader.LoadQuiz(ctx, quizID)
	return l.apply(quiz), err
}

func (l defaultLimitLoader) LoadActiveQuiz(ctx context.Context) (domain.Quiz, error) {
	quiz, err := l.QuizLoader.LoadActiveQuiz(ctx)
	return l.apply(quiz), err
}

func (l defaultLimitLoader) LoadQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	quizzes, err := l.QuizLoader.LoadQuizzes(ctx)
	for i := range quizzes {
		quizzes[i] = l.apply(quizzes[i])
	}
	return quizzes, err
}

func (l defaultLimitLoader) apply(quiz domain.Quiz) domain.Quiz {
	if quiz.MaxTimeSeconds <= 0 {
		quiz.MaxTimeSeconds = l.seconds
	}
	return quiz
}
