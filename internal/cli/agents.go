package cli

import (
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/sherpa/internal/review"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Inspect review agents",
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available review agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := review.NewRegistry()
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tDEFAULT\tDESCRIPTION")
		for _, name := range reg.Available() {
			desc, _ := reg.Describe(name)
			def := ""
			if slices.Contains(review.DefaultAgents, name) {
				def = "yes"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", name, def, desc)
		}
		return tw.Flush()
	},
}

func init() {
	agentsCmd.AddCommand(agentsListCmd)
}
