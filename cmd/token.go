/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"time"

	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/auth"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/config"
	"github.com/spf13/cobra"
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for a user",
	Long: `Issue a signed bearer token for the given user id using the configured
auth secret and issuer. Intended for local development and scripted tests.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		userID, _ := cmd.Flags().GetUint("user")
		if userID == 0 {
			return fmt.Errorf("--user is required")
		}

		ttl, _ := cmd.Flags().GetDuration("ttl")
		if ttl <= 0 {
			ttl = time.Duration(cfg.Auth.TokenTTL) * time.Second
		}

		validator := auth.NewTokenValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
		token, err := validator.IssueToken(userID, ttl)
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().Uint("user", 0, "User id to put in the token subject")
	tokenCmd.Flags().Duration("ttl", 0, "Token lifetime (default: auth.token_ttl)")
}
