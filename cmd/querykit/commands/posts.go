package commands

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/kbukum/querykit/api"
	"github.com/kbukum/querykit/logger"
	"github.com/kbukum/querykit/util"
)

func (c *CLI) newPostsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List, show and edit posts",
	}
	cmd.AddCommand(c.newPostsListCmd())
	cmd.AddCommand(c.newPostsGetCmd())
	cmd.AddCommand(c.newPostsCreateCmd())
	cmd.AddCommand(c.newPostsUpdateCmd())
	cmd.AddCommand(c.newPostsDeleteCmd())
	return cmd
}

func (c *CLI) newPostsListCmd() *cobra.Command {
	var userID int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts, optionally of one author",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID < 0 {
				return fmt.Errorf("invalid user id %d", userID)
			}
			return c.run(cmd, func(ctx context.Context, s *session) error {
				var (
					posts []api.Post
					err   error
				)
				if userID > 0 {
					posts, err = s.posts.ByUser(ctx, userID)
				} else {
					posts, err = s.posts.List(ctx)
				}
				if err != nil {
					return err
				}
				return c.render(cmd.OutOrStdout(), posts, func() *table.Table {
					return postsTable(posts, s.authors(ctx))
				})
			})
		},
	}
	cmd.Flags().IntVarP(&userID, "user", "u", 0, "Only posts of this user id")
	return cmd
}

func (c *CLI) newPostsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("post", args[0])
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, s *session) error {
				p, err := s.posts.Get(ctx, id)
				if err != nil {
					return err
				}
				return c.render(cmd.OutOrStdout(), p, func() *table.Table {
					return postTable(p, s.authorName(ctx, p.UserID))
				})
			})
		},
	}
}

func (c *CLI) newPostsCreateCmd() *cobra.Command {
	var in api.CreatePostRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, s *session) error {
				res := s.posts.Create(ctx, in)
				if !res.OK() {
					return res.Err
				}
				return c.render(cmd.OutOrStdout(), res.Data, func() *table.Table {
					return postTable(res.Data, s.authorName(ctx, res.Data.UserID))
				})
			})
		},
	}
	cmd.Flags().IntVarP(&in.UserID, "user", "u", 0, "Author user id")
	cmd.Flags().StringVar(&in.Title, "title", "", "Title")
	cmd.Flags().StringVar(&in.Body, "body", "", "Body")
	return cmd
}

func (c *CLI) newPostsUpdateCmd() *cobra.Command {
	var (
		userID      int
		title, body string
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a post",
		Long:  "Update a post. Fields that are not given keep their current value.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("post", args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			return c.run(cmd, func(ctx context.Context, s *session) error {
				current, err := s.posts.Get(ctx, id)
				if err != nil {
					return err
				}
				in := api.UpdatePostRequest{ID: id, UserID: current.UserID, Title: current.Title, Body: current.Body}
				if flags.Changed("user") {
					in.UserID = userID
				}
				if flags.Changed("title") {
					in.Title = title
				}
				if flags.Changed("body") {
					in.Body = body
				}

				res := s.posts.Update(ctx, id, in)
				if !res.OK() {
					return res.Err
				}
				return c.render(cmd.OutOrStdout(), res.Data, func() *table.Table {
					return postTable(res.Data, s.authorName(ctx, res.Data.UserID))
				})
			})
		},
	}
	cmd.Flags().IntVarP(&userID, "user", "u", 0, "Author user id")
	cmd.Flags().StringVar(&title, "title", "", "Title")
	cmd.Flags().StringVar(&body, "body", "", "Body")
	return cmd
}

func (c *CLI) newPostsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("post", args[0])
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, s *session) error {
				if res := s.posts.Delete(ctx, id); !res.OK() {
					return res.Err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted post %d\n", id)
				return err
			})
		},
	}
}

// authors returns the cached users list. A failure only degrades the author
// labels, so it is logged and an empty list returned.
func (s *session) authors(ctx context.Context) []api.User {
	users, err := s.users.List(ctx)
	if err != nil {
		s.log.Warn("author names unavailable", logger.ErrorFields("users.list", err))
		return nil
	}
	return users
}

func (s *session) authorName(ctx context.Context, userID int) string {
	for _, u := range s.authors(ctx) {
		if u.ID == userID {
			return util.Coalesce(u.Name, util.UnknownUser)
		}
	}
	return util.UnknownUser
}
