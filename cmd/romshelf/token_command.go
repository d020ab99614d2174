package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"romshelf/internal/auth"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var userID int64
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API token with the configured secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if userID == 0 {
				userID = cfg.Auth.DefaultUserID
			}
			token, err := auth.New(cfg.Auth).Mint(userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "User id to embed (defaults to auth.default_user_id)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to auth.token_ttl_hours)")
	return cmd
}
