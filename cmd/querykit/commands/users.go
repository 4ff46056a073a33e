package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/kbukum/querykit/api"
)

func (c *CLI) newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List, show and edit users",
	}
	cmd.AddCommand(c.newUsersListCmd())
	cmd.AddCommand(c.newUsersGetCmd())
	cmd.AddCommand(c.newUsersCreateCmd())
	cmd.AddCommand(c.newUsersUpdateCmd())
	cmd.AddCommand(c.newUsersDeleteCmd())
	return cmd
}

func (c *CLI) newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, s *session) error {
				users, err := s.users.List(ctx)
				if err != nil {
					return err
				}
				return c.render(cmd.OutOrStdout(), users, func() *table.Table { return usersTable(users) })
			})
		},
	}
}

func (c *CLI) newUsersGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("user", args[0])
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, s *session) error {
				u, err := s.users.Get(ctx, id)
				if err != nil {
					return err
				}
				return c.render(cmd.OutOrStdout(), u, func() *table.Table { return userTable(u) })
			})
		},
	}
}

func (c *CLI) newUsersCreateCmd() *cobra.Command {
	var in api.CreateUserRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, s *session) error {
				res := s.users.Create(ctx, in)
				if !res.OK() {
					return res.Err
				}
				return c.render(cmd.OutOrStdout(), res.Data, func() *table.Table { return userTable(res.Data) })
			})
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "Full name")
	cmd.Flags().StringVar(&in.Username, "username", "", "Username")
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&in.Website, "website", "", "Website")
	return cmd
}

func (c *CLI) newUsersUpdateCmd() *cobra.Command {
	var (
		in         api.UserInput
		optimistic bool
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a user",
		Long: "Update a user. Only the given fields are sent.\n\n" +
			"With --optimistic the cached record is updated before the request\n" +
			"and restored if the request fails.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("user", args[0])
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, s *session) error {
				update := s.users.Update
				if optimistic {
					if _, err := s.users.Get(ctx, id); err != nil {
						return err
					}
					update = s.users.UpdateOptimistic
				}
				res := update(ctx, id, in)
				if !res.OK() {
					return res.Err
				}
				return c.render(cmd.OutOrStdout(), res.Data, func() *table.Table { return userTable(res.Data) })
			})
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "Full name")
	cmd.Flags().StringVar(&in.Username, "username", "", "Username")
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&in.Website, "website", "", "Website")
	cmd.Flags().BoolVar(&optimistic, "optimistic", false, "Apply the change to the cache before the request")
	return cmd
}

func (c *CLI) newUsersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("user", args[0])
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, s *session) error {
				if res := s.users.Delete(ctx, id); !res.OK() {
					return res.Err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %d\n", id)
				return err
			})
		},
	}
}

func parseID(resource, arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", resource, arg)
	}
	return id, nil
}
