package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"weekly-quiz/internal/domain"
)

const (
	defaultProfileRetries    = 3
	defaultProfileRetryDelay = time.Second
)

// UserRepository stores player profiles. CreateUser returns domain.ErrUserExists on a duplicate.
type UserRepository interface {
	GetUser(ctx context.Context, userID string) (domain.User, error)
	CreateUser(ctx context.Context, user domain.User) error
}

// Identity is what the identity provider tells us about a signed-in user.
type Identity struct {
	UserID    string
	Username  string
	AvatarURL string
	Provider  string
}

// UserService creates profiles on first sign-in.
type UserService struct {
	users      UserRepository
	retries    int
	retryDelay time.Duration
	now        func() time.Time
}

// NewUserService builds the service; non-positive retries or delay use the defaults (3 retries, 1s).
func NewUserService(users UserRepository, retries int, retryDelay time.Duration) *UserService {
	if retries <= 0 {
		retries = defaultProfileRetries
	}
	if retryDelay <= 0 {
		retryDelay = defaultProfileRetryDelay
	}
	return &UserService{users: users, retries: retries, retryDelay: retryDelay, now: time.Now}
}

// EnsureProfile returns the existing profile or creates it, retrying transient failures
// a bounded number of times with a fixed delay.
func (s *UserService) EnsureProfile(ctx context.Context, identity Identity) (domain.User, error) {
	if strings.TrimSpace(identity.UserID) == "" {
		return domain.User{}, fmt.Errorf("ensure profile: %w", domain.ErrUserNotFound)
	}

	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			log.Printf("users: retrying profile for %s in %s (%d retries left)", identity.UserID, s.retryDelay, s.retries-attempt+1)
			select {
			case <-ctx.Done():
				return domain.User{}, ctx.Err()
			case <-time.After(s.retryDelay):
			}
		}

		user, err := s.getOrCreate(ctx, identity)
		if err == nil {
			return user, nil
		}
		lastErr = err
		log.Printf("users: ensure profile %s (attempt %d/%d): %v", identity.UserID, attempt+1, s.retries+1, err)
	}
	return domain.User{}, fmt.Errorf("ensure profile: %w", lastErr)
}

func (s *UserService) getOrCreate(ctx context.Context, identity Identity) (domain.User, error) {
	user, err := s.users.GetUser(ctx, identity.UserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, err
	}

	user = newProfile(identity, s.now())
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return s.users.GetUser(ctx, identity.UserID)
		}
		return domain.User{}, err
	}
	return user, nil
}

func newProfile(identity Identity, now time.Time) domain.User {
	username := strings.TrimSpace(identity.Username)
	if username == "" {
		username = "User"
	}
	avatar := identity.AvatarURL
	if avatar == "" {
		avatar = "https://api.dicebear.com/7.x/shapes/svg?seed=" + url.QueryEscape(username)
	}
	provider := identity.Provider
	if provider == "" {
		provider = "password"
	}
	return domain.User{
		ID:          identity.UserID,
		Username:    username,
		DisplayName: username,
		AvatarURL:   avatar,
		Provider:    provider,
		CreatedAt:   now.UTC(),
	}
}
