// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/luxfi/intents/api"
	"github.com/luxfi/intents/config"
)

var tokenFlags struct {
	subject string
	role    string
	ttl     time.Duration
}

func init() {
	tokenCmd.Flags().StringVar(&tokenFlags.subject, "subject", "", "account or service the token is issued to")
	tokenCmd.Flags().StringVar(&tokenFlags.role, "role", api.RoleUser, "role of the token (user or custody)")
	tokenCmd.Flags().DurationVar(&tokenFlags.ttl, "ttl", 24*time.Hour, "lifetime of the token")
	_ = tokenCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an API token signed with VERIFIER_JWT_SECRET",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		auth, err := api.NewAuthenticator([]byte(cfg.JWTSecret), cfg.JWTIssuer, nil)
		if err != nil {
			return err
		}
		token, err := auth.Issue(tokenFlags.subject, tokenFlags.role, tokenFlags.ttl)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}
