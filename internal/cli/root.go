package cli

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

// Exit codes
const (
	ExitSuccess      = 0
	ExitFindings     = 1
	ExitUsageError   = 2
	ExitAuthError    = 3
	ExitRuntimeError = 4
)

// Global flags
var (
	flagConfig  string
	flagProject string
	flagFormat  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "code-sherpa",
	Short: "Multi-agent AI code review CLI",
	Long: "code-sherpa reviews git diffs with several LLM review agents (architect, security, " +
		"performance, junior) and merges their comments into one report.",
	SilenceUsage: true,
}

// Run executes the root command and returns an exit code.
func Run() int {
	exitCode = ExitSuccess
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

// fail prints err the way every command reports errors and records code.
func fail(code int, err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	exitCode = code
}

func newLogger(verbose bool) *log.Logger {
	if !verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "[sherpa] ", log.LstdFlags)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print code-sherpa version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "code-sherpa version %s\n", version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "Config file path (YAML or TOML)")
	pf.StringVarP(&flagProject, "project", "p", "", "Registered project to operate on")
	pf.StringVarP(&flagFormat, "format", "f", "", "Output format (console, json, markdown)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Log progress to stderr")

	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(prCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(versionCmd)
}
