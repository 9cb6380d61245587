package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"greenroom/internal/session"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var token string
	var refreshToken string
	var expiresAt string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store session credentials for uploads",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return errors.New("--token is required")
			}
			creds := session.Credentials{Token: token, RefreshToken: refreshToken}
			if expiresAt != "" {
				parsed, err := time.Parse(time.RFC3339, expiresAt)
				if err != nil {
					return fmt.Errorf("invalid --expires-at (want RFC 3339): %w", err)
				}
				creds.ExpiresAt = parsed.UTC()
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := session.CredentialsPath(cfg.Paths.DataDir)
			if err := session.SaveCredentials(path, creds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved credentials to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Bearer token for uploads")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "Refresh token for renewing the session")
	cmd.Flags().StringVar(&expiresAt, "expires-at", "", "Token expiry (RFC 3339, optional)")
	return cmd
}
