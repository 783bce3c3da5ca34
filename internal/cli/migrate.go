package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"weekly-quiz/internal/config"
	"weekly-quiz/internal/infra/memory"
	pgstore "weekly-quiz/internal/infra/postgres"
	pgmigrations "weekly-quiz/internal/infra/postgres/migrations"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

// NewMigrateCmd applies database migrations and optionally seeds quizzes from the quiz file.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath, seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "load quizzes from quiz.file into Postgres")
	return cmd
}

func runMigrations(ctx context.Context, configPath string, seed bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}
	if seed {
		return seedQuizzes(ctx, cfg)
	}
	return nil
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Printf("migrations: nothing to apply")
		return nil
	}
	log.Printf("migrations applied: %s", group)
	return nil
}

func seedQuizzes(ctx context.Context, cfg config.Config) error {
	if cfg.Quiz.File == "" {
		return fmt.Errorf("quiz file not configured")
	}
	file, err := memory.LoadQuizFile(cfg.Quiz.File)
	if err != nil {
		return err
	}
	quizzes, err := file.LoadQuizzes(ctx)
	if err != nil {
		return err
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	loader := pgstore.NewQuizLoader(pool)
	for _, quiz := range quizzes {
		if err := loader.SaveQuiz(ctx, quiz); err != nil {
			return err
		}
		log.Printf("seeded quiz %s (%d questions)", quiz.ID, len(quiz.Questions))
	}
	return nil
}
