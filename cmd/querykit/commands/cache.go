package commands

import (
	"context"
	"errors"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/kbukum/querykit/logger"
)

var errDevelopmentOnly = errors.New("cache inspection is only available in the development environment")

func (c *CLI) newCacheCmd() *cobra.Command {
	var warm bool
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Show the query cache (development only)",
		Long: "Show every query cache entry with its status and freshness.\n\n" +
			"With --warm the user and post lists are fetched first.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, s *session) error {
				if !s.cfg.IsDevelopment() {
					return errDevelopmentOnly
				}
				if warm {
					s.warm(ctx)
				}
				states := s.qc.Snapshot()
				now := s.qc.Clock().Now()
				return c.render(cmd.OutOrStdout(), states, func() *table.Table { return cacheTable(states, now) })
			})
		},
	}
	cmd.Flags().BoolVar(&warm, "warm", true, "Fetch the user and post lists before printing")
	return cmd
}

// warm fills the cache with the lists. Failures stay visible as error
// entries, so they are only logged.
func (s *session) warm(ctx context.Context) {
	if _, err := s.users.List(ctx); err != nil {
		s.log.Warn("warm users failed", logger.ErrorFields("users.list", err))
	}
	if _, err := s.posts.List(ctx); err != nil {
		s.log.Warn("warm posts failed", logger.ErrorFields("posts.list", err))
	}
}
