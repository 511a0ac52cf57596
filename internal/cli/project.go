package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/sherpa/internal/config"
)

// Project add flags
var (
	flagProjectProvider string
	flagProjectModel    string
	flagProjectAgents   []string
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage registered projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add <name> <path>",
	Short: "Register a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openProjects()
		if err != nil {
			return err
		}
		var agents []string
		for _, a := range flagProjectAgents {
			agents = append(agents, config.SplitList(a)...)
		}
		if err := reg.Add(args[0], config.Project{
			Path:     args[1],
			Provider: flagProjectProvider,
			Model:    flagProjectModel,
			Agents:   agents,
		}); err != nil {
			return err
		}
		if err := reg.Save(); err != nil {
			return err
		}
		p, _ := reg.Get(args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "Registered project %s -> %s\n", args[0], p.Path)
		return nil
	},
}

var projectRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Unregister a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openProjects()
		if err != nil {
			return err
		}
		if err := reg.Remove(args[0]); err != nil {
			return err
		}
		if err := reg.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed project %s\n", args[0])
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openProjects()
		if err != nil {
			return err
		}
		projects := reg.List()
		out := cmd.OutOrStdout()
		if len(projects) == 0 {
			fmt.Fprintln(out, "No projects registered.")
			fmt.Fprintln(out, "Add one with: code-sherpa project add <name> <path>")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, p := range projects {
			status := ""
			if !p.Exists() {
				status = "(missing)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, p.Path, status)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%d project(s)\n", len(projects))
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a registered project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := lookupProject(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		status := ""
		if !p.Exists() {
			status = " (missing)"
		}
		fmt.Fprintf(out, "Project:  %s\n", args[0])
		fmt.Fprintf(out, "Path:     %s%s\n", p.Path, status)
		fmt.Fprintf(out, "Provider: %s\n", orDefault(p.Provider))
		fmt.Fprintf(out, "Model:    %s\n", orDefault(p.Model))
		fmt.Fprintf(out, "Agents:   %s\n", orDefault(strings.Join(p.Agents, ", ")))
		if !p.AddedAt.IsZero() {
			fmt.Fprintf(out, "Added:    %s\n", p.AddedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func orDefault(s string) string {
	if s == "" {
		return "(global default)"
	}
	return s
}

func init() {
	projectAddCmd.Flags().StringVar(&flagProjectProvider, "provider", "", "LLM provider for this project")
	projectAddCmd.Flags().StringVar(&flagProjectModel, "model", "", "Model for this project")
	projectAddCmd.Flags().StringSliceVar(&flagProjectAgents, "agents", nil, "Default agents for this project")

	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectRemoveCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
}
