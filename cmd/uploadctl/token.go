package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/terraproof/service/internal/config"
	"github.com/terraproof/service/internal/middleware"
)

func newTokenCmd(cfg *config.Config) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a relay bearer token signed with RELAY_JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Relay.JWTSecret == "" {
				return errors.New("RELAY_JWT_SECRET is not set")
			}
			token, err := middleware.IssueToken(cfg.Relay.JWTSecret, subject, ttl)
			if err != nil {
				return err
			}
			return writePlain(cmd.OutOrStdout(), "%s\n", token)
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "uploadctl", "client name the relay rate-limits by")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}
