package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the installation database from the prefixes on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recs, err := c.app.Reindex(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "indexed %d prefixes\n", len(recs))
			return nil
		},
	}
}
