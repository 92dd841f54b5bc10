package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/uc-package/swimctl/internal/auth"
)

// newTokenCommand 为 API 服务签发访问令牌
func newTokenCommand(g *globalOptions) *cobra.Command {
	var (
		subject     string
		secret      string
		allowDelete bool
		ttl         time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the swimctl API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				config, err := g.load()
				if err != nil {
					return err
				}
				secret = config.Server.JWTSecret
			}
			if secret == "" {
				return fmt.Errorf("no signing secret: set server.jwtSecret in the config or pass --secret")
			}

			token, err := auth.IssueToken(secret, subject, allowDelete, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "operator", "Subject recorded in the token and in API logs")
	cmd.Flags().StringVar(&secret, "secret", "", "HMAC signing secret (default server.jwtSecret from the config)")
	cmd.Flags().BoolVar(&allowDelete, "allow-delete", false, "Allow the token to run real deletions")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the swimctl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "swimctl %s\n", version)
		},
	}
}
