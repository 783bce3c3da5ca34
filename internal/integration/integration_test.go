package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"weekly-quiz/internal/app"
	"weekly-quiz/internal/domain"
	pgstore "weekly-quiz/internal/infra/postgres"
	pgmigrations "weekly-quiz/internal/infra/postgres/migrations"
	infraredis "weekly-quiz/internal/infra/redis"
	"weekly-quiz/internal/session"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestSessionSubmitEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgstore.NewQuizLoader(pool)
	if err := loader.SaveQuiz(ctx, sampleQuiz()); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	quizRepo := infraredis.NewQuizRepository(redisClient, loader, 5*time.Minute)
	users := pgstore.NewUserStore(pool)
	service := app.NewQuizService(quizRepo, pgstore.NewAttemptStore(pool), infraredis.NewLeaderboard(redisClient), users)

	if _, err := app.NewUserService(users, 1, 10*time.Millisecond).EnsureProfile(ctx, app.Identity{UserID: "u1", Username: "alice"}); err != nil {
		t.Fatalf("ensure profile: %v", err)
	}

	quiz, err := service.ActiveQuiz(ctx)
	if err != nil {
		t.Fatalf("active quiz: %v", err)
	}
	if len(quiz.Questions) != 2 || quiz.Questions[0].ID != "q1" {
		t.Fatalf("unexpected quiz %+v", quiz)
	}

	controller := session.NewController(quiz, session.NewState(quiz.TimeLimit(), time.Now), service.SessionSubmitter("u1", quiz))
	if !controller.Start() {
		t.Fatalf("expected session to start")
	}
	for _, answer := range []struct{ id, option string }{{"q1", "B"}, {"q2", "C"}} {
		if err := controller.SelectAnswer(answer.id, answer.option); err != nil {
			t.Fatalf("select: %v", err)
		}
		controller.Next()
	}
	attempt, err := controller.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if attempt.CorrectAnswers != 1 || attempt.TotalQuestions != 2 {
		t.Fatalf("unexpected attempt %+v", attempt)
	}

	stored, err := service.UserAttempt(ctx, "u1", quiz.ID)
	if err != nil || stored.ID != attempt.ID || stored.Answers["q2"] != "C" {
		t.Fatalf("expected stored attempt, got %+v err=%v", stored, err)
	}

	_, err = service.Submit(ctx, app.SubmitRequest{UserID: "u1", QuizID: quiz.ID})
	if !errors.Is(err, domain.ErrAlreadyAttempted) {
		t.Fatalf("expected ErrAlreadyAttempted, got %v", err)
	}

	board, err := service.Leaderboard(ctx, quiz.ID, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 1 || board[0].Username != "alice" || board[0].Score != attempt.Score {
		t.Fatalf("unexpected leaderboard %+v", board)
	}

	pgBoard, err := pgstore.NewLeaderboard(pool).Top(ctx, quiz.ID, 10)
	if err != nil || len(pgBoard) != 1 || pgBoard[0].Rank != 1 {
		t.Fatalf("unexpected postgres ranking %+v err=%v", pgBoard, err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateSchema(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:             "quiz-1",
		Title:          "Integration",
		MaxTimeSeconds: 300,
		Active:         true,
		WeekStart:      time.Date(2024, 11, 18, 0, 0, 0, 0, time.UTC),
		WeekEnd:        time.Date(2024, 11, 24, 23, 59, 59, 0, time.UTC),
		Questions: []domain.Question{
			{ID: "q2", Prompt: "Capital of France?", Options: [4]string{"Paris", "Rome", "Berlin", "Madrid"}, CorrectOption: "A", OrderIndex: 2},
			{ID: "q1", Prompt: "What is 2 + 2?", Options: [4]string{"3", "4", "5", "22"}, CorrectOption: "B", OrderIndex: 1},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
