/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/mooddiary/apiserver/internal/auth"
	"github.com/spf13/cobra"
)

var (
	tokenUserID int
	tokenTTL    time.Duration
)

// tokenCmd mints a bearer token for an existing user id.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access token for a user id",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup()
		if err != nil {
			return err
		}

		tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		if err != nil {
			return fmt.Errorf("JWT_SECRET: %w", err)
		}

		ttl := tokenTTL
		if ttl == 0 {
			ttl = tokens.TTL()
		}
		token, err := tokens.IssueWithTTL(tokenUserID, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().IntVar(&tokenUserID, "user-id", 0, "user id to put in the token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (defaults to JWT_TTL)")
	_ = tokenCmd.MarkFlagRequired("user-id")
}
