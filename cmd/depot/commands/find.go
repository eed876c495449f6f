package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *CLI) newFindCmd() *cobra.Command {
	var (
		explicitOnly bool
		implicitOnly bool
		long         bool
	)
	cmd := &cobra.Command{
		Use:   "find [QUERY]",
		Short: "List installed specs",
		Long: "List installed specs matching QUERY: a package name, name@version,\n" +
			"name@<constraint> such as curl@>=8, or /hashprefix.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var query string
			if len(args) == 1 {
				query = args[0]
			}
			var explicit *bool
			switch {
			case explicitOnly:
				explicit = &explicitOnly
			case implicitOnly:
				explicit = new(bool)
			}

			recs, err := c.app.Find(cmd.Context(), query, explicit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, rec := range recs {
				reason := "implicit"
				if rec.Explicit {
					reason = "explicit"
				}
				name := rec.Spec.Short()
				if long {
					name = rec.Spec.String() + " /" + rec.Spec.Hash()
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", name, reason, rec.Path)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVarP(&explicitOnly, "explicit", "x", false, "Only specs installed explicitly")
	cmd.Flags().BoolVarP(&implicitOnly, "implicit", "X", false, "Only specs installed as dependencies")
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show full specs and hashes")
	cmd.MarkFlagsMutuallyExclusive("explicit", "implicit")
	return cmd
}
