package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newLocationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "location QUERY",
		Short: "Print the install prefix of a spec",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.app.Location(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func (c *CLI) newTreeRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "root",
		Short: "Print the install tree root and how it was chosen",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			root := c.app.Root()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t(%s, layout %s)\n", root.Path, root.Source, c.app.Repository().Layout.Name())
		},
	}
}
