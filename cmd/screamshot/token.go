package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	domainauth "screamshot-server/internal/domain/auth"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token",
	Long: `Issue an HS256 bearer token signed with server.auth.secret.

The token is accepted by the /api routes when server.auth.enabled is true.`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "Token subject (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime, defaults to server.auth.ttl")
	_ = tokenCmd.MarkFlagRequired("subject")
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	auth := cfg.Server.Auth
	tokens, err := domainauth.NewAuthToken(auth.Secret, auth.Issuer)
	if err != nil {
		return fmt.Errorf("server.auth.secret: %w", err)
	}

	ttl := auth.TTL
	if tokenTTL > 0 {
		ttl = tokenTTL
	}
	token, err := tokens.WithTTL(ttl).GenerateToken(tokenSubject)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
