package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newUninstallCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "uninstall [-f] QUERY",
		Short: "Remove an installed spec and its prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := c.app.Uninstall(cmd.Context(), args[0], force)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %s %s\n", rec.Spec.Short(), rec.Path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Remove even if installed specs depend on it")
	return cmd
}
