package cli

import (
	"fmt"
	"time"

	"weekly-quiz/internal/auth"
	"weekly-quiz/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewTokenCmd mints a signed player token for local testing.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		userID   string
		username string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development player token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwtSecret not configured")
			}
			if userID == "" {
				userID = uuid.NewString()
			}
			verifier := auth.NewVerifier(cfg.Auth.JWTSecret)
			token, err := verifier.Issue(auth.Claims{UserID: userID, Username: username}, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (random when empty)")
	cmd.Flags().StringVar(&username, "name", "", "display name")
	return cmd
}
