package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"
)

func (c *CLI) newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check installed prefixes against the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			issues, err := c.app.Verify(cmd.Context())
			if err != nil {
				return err
			}
			for _, issue := range issues {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", issue.Spec.Short(), issue.Problem, issue.Path)
			}
			if len(issues) > 0 {
				return zerr.With(zerr.New("installed prefixes failed verification"), "issues", len(issues))
			}
			return nil
		},
	}
}
