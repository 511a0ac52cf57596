package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/sherpa/internal/config"
)

var flagForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage code-sherpa configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .code-sherpa.yaml in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := localConfigPath()
		if err := config.Init(path, flagForce); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Config file created at %s\n", path)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value in the active config file, or in ./.code-sherpa.yaml when none exists. Keys are dotted, e.g. llm.model or review.default_agents.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Find(projectDir(), flagConfig)
		if err != nil {
			return err
		}
		if path == "" {
			path = localConfigPath()
		}
		if err := config.Set(path, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", args[0], args[1], path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(nil)
		if err != nil {
			return err
		}
		data, err := config.Marshal(e.cfg, "yaml")
		if err != nil {
			return err
		}
		source := e.cfgPath
		if source == "" {
			source = "built-in defaults"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# source: %s\n", source)
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List keys accepted by config set",
	Run: func(cmd *cobra.Command, args []string) {
		for _, k := range config.Keys() {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
	},
}

// projectDir returns the --project path when one is selected, ignoring
// lookup errors so config commands still work on a broken registry.
func projectDir() string {
	if flagProject == "" {
		return ""
	}
	p, err := lookupProject(flagProject)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		return ""
	}
	return p.Path
}

func localConfigPath() string {
	return filepath.Join(projectDir(), config.LocalFile)
}

func init() {
	configInitCmd.Flags().BoolVar(&flagForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configKeysCmd)
}
