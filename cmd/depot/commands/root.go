// Package commands implements the CLI commands for the depot package installer.
package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/depot/internal/app"
	"go.trai.ch/zerr"
)

// CLI represents the command line interface for depot.
type CLI struct {
	app     *app.App
	rootCmd *cobra.Command
}

// New creates a new CLI instance with the given app.
func New(a *app.App) *CLI {
	rootCmd := &cobra.Command{
		Use:           "depot",
		Short:         "Install concrete package specs into a shared install tree",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("log-format", "text", "Log record format (text or json)")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newInstallCmd())
	rootCmd.AddCommand(c.newUninstallCmd())
	rootCmd.AddCommand(c.newGCCmd())
	rootCmd.AddCommand(c.newFindCmd())
	rootCmd.AddCommand(c.newLocationCmd())
	rootCmd.AddCommand(c.newMarkCmd())
	rootCmd.AddCommand(c.newReindexCmd())
	rootCmd.AddCommand(c.newVerifyCmd())
	rootCmd.AddCommand(c.newTreeRootCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetLogFormatHook sets up a PersistentPreRun function that retrieves the
// log-format flag and calls fn with whether JSON records were asked for.
func (c *CLI) SetLogFormatHook(fn func(json bool)) {
	c.rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		format, err := cmd.Flags().GetString("log-format")
		if err != nil {
			return err
		}
		switch format {
		case "text":
			fn(false)
		case "json":
			fn(true)
		default:
			return zerr.With(zerr.New("unknown log format"), "log-format", format)
		}
		return nil
	}
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput redirects command output. Used for testing.
func (c *CLI) SetOutput(w io.Writer) {
	c.rootCmd.SetOut(w)
	c.rootCmd.SetErr(w)
}
