package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/querykit/tokenstore"
	"github.com/kbukum/querykit/util"
)

const visibleTokenPrefix = 4

func (c *CLI) newLoginCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the bearer token sent with every request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, isJWT := tokenstore.Inspect(token)
			if isJWT && info.Expired(time.Now()) {
				return fmt.Errorf("token expired at %s", info.ExpiresAt.Format(time.RFC3339))
			}
			return c.run(cmd, func(ctx context.Context, s *session) error {
				if err := s.store.Set(ctx, s.cfg.API.TokenKey, token); err != nil {
					return fmt.Errorf("store token: %w", err)
				}
				out := cmd.OutOrStdout()
				if _, err := fmt.Fprintf(out, "Logged in (token %s, %s store)\n",
					util.MaskSecret(token, visibleTokenPrefix), s.cfg.Auth.Store); err != nil {
					return err
				}
				if isJWT && !info.ExpiresAt.IsZero() {
					_, err := fmt.Fprintf(out, "Token expires %s\n", info.ExpiresAt.Format(time.RFC3339))
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&token, "token", "t", "", "Bearer token")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func (c *CLI) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored bearer token and cached data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, s *session) error {
				if err := s.store.Clear(ctx, s.cfg.API.TokenKey); err != nil {
					return fmt.Errorf("clear token: %w", err)
				}
				s.qc.Clear()
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return err
			})
		},
	}
}
