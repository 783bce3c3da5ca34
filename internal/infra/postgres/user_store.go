package postgres

import (
	"context"
	"errors"

	"weekly-quiz/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var user domain.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, display_name, avatar_url, provider, created_at
		FROM users WHERE id=$1`, userID).
		Scan(&user.ID, &user.Username, &user.DisplayName, &user.AvatarURL, &user.Provider, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, err
}

func (s *UserStore) CreateUser(ctx context.Context, user domain.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, display_name, avatar_url, provider, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Username, user.DisplayName, user.AvatarURL, user.Provider, user.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrUserExists
	}
	return err
}
