package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newMarkCmd() *cobra.Command {
	var explicit, implicit bool
	cmd := &cobra.Command{
		Use:   "mark (-e|-i) QUERY",
		Short: "Change whether a spec counts as explicitly installed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := c.app.Mark(cmd.Context(), args[0], explicit && !implicit)
			if err != nil {
				return err
			}
			reason := "implicit"
			if rec.Explicit {
				reason = "explicit"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s marked %s\n", rec.Spec.Short(), reason)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&explicit, "explicit", "e", false, "Mark as explicitly installed")
	cmd.Flags().BoolVarP(&implicit, "implicit", "i", false, "Mark as installed as a dependency")
	cmd.MarkFlagsMutuallyExclusive("explicit", "implicit")
	cmd.MarkFlagsOneRequired("explicit", "implicit")
	return cmd
}
