package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newGCCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:     "gc [--dry-run]",
		Aliases: []string{"autoremove"},
		Short:   "Remove implicitly installed specs no explicit install needs",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			specs, err := c.app.Autoremove(cmd.Context(), dryRun)
			verb := "removed"
			if dryRun {
				verb = "would remove"
			}
			for _, s := range specs {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, s.Short())
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only list what would be removed")
	return cmd
}
