package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *CLI) newInstallCmd() *cobra.Command {
	var manifest string
	cmd := &cobra.Command{
		Use:   "install -m MANIFEST [packages...]",
		Short: "Install packages from a manifest together with their dependencies",
		Long: "Install the named packages of the manifest, or all of them when none are named.\n" +
			"Named packages are recorded as explicitly installed, their dependencies as implicit.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := c.app.Install(cmd.Context(), manifest, args)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, r := range results {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", r.Status, r.Spec.Short(), r.Path)
			}
			_ = w.Flush()
			return err
		},
	}
	cmd.Flags().StringVarP(&manifest, "manifest", "m", "", "Path to the manifest of concrete specs")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}
