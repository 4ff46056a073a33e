// Package commands implements the querykit CLI commands.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kbukum/querykit/config"
	"github.com/kbukum/querykit/logger"
	"github.com/kbukum/querykit/tokenstore"
	"github.com/kbukum/querykit/version"
)

// CLI represents the querykit command line interface.
type CLI struct {
	rootCmd *cobra.Command

	configFile string
	envFile    string
	output     string

	logger *logger.Logger
	store  tokenstore.Store
}

// Option configures a CLI.
type Option func(*CLI)

// WithLogger replaces the logger built from the configuration.
func WithLogger(l *logger.Logger) Option {
	return func(c *CLI) { c.logger = l }
}

// WithTokenStore replaces the configured token store.
func WithTokenStore(s tokenstore.Store) Option {
	return func(c *CLI) { c.store = s }
}

// New creates the CLI.
func New(opts ...Option) *CLI {
	rootCmd := &cobra.Command{
		Use:           appName,
		Short:         "Cached client for a JSON REST resource server",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Get().Short(),
	}
	rootCmd.SetVersionTemplate("{{.Name}} version {{.Version}}\n")

	c := &CLI{rootCmd: rootCmd}
	for _, opt := range opts {
		opt(c)
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&c.configFile, "config", "c", "", "Config file (default: ./config.yml)")
	flags.StringVar(&c.envFile, "env-file", "", "Env file (default: ./.env)")
	flags.StringVarP(&c.output, "output", "o", formatTable, "Output format: table or json")

	rootCmd.AddCommand(c.newUsersCmd())
	rootCmd.AddCommand(c.newPostsCmd())
	rootCmd.AddCommand(c.newLoginCmd())
	rootCmd.AddCommand(c.newLogoutCmd())
	rootCmd.AddCommand(c.newStatusCmd())
	rootCmd.AddCommand(c.newCacheCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

func (c *CLI) loaderOptions() []config.LoaderOption {
	var opts []config.LoaderOption
	if c.configFile != "" {
		opts = append(opts, config.WithConfigFile(c.configFile))
	}
	if c.envFile != "" {
		opts = append(opts, config.WithEnvFile(c.envFile))
	}
	return opts
}

// run executes task as one session: components start, the task runs with
// the session wired, and components stop.
func (c *CLI) run(cmd *cobra.Command, task func(ctx context.Context, s *session) error) error {
	if c.output != formatTable && c.output != formatJSON {
		return fmt.Errorf("unknown output format %q", c.output)
	}
	s, err := c.newSession(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	return s.app.RunTask(cmd.Context(), func(ctx context.Context) error {
		return task(ctx, s)
	})
}
