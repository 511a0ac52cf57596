package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/sherpa/internal/config"
	"github.com/dshills/sherpa/internal/gitctx"
)

const (
	hookBegin = "# >>> code-sherpa pre-commit >>>"
	hookEnd   = "# <<< code-sherpa pre-commit <<<"
)

// Hook install flags
var (
	flagHookFailOn string
	flagHookAgents []string
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage the git pre-commit hook",
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Review staged changes before every commit",
	Long: "Adds a code-sherpa block to .git/hooks/pre-commit. Commits are blocked when a " +
		"comment meets --fail-on; review errors print a warning and let the commit through.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !slices.Contains(config.FailOnLevels, flagHookFailOn) {
			return fmt.Errorf("invalid --fail-on %q (valid: %s)", flagHookFailOn, strings.Join(config.FailOnLevels, ", "))
		}
		path, err := hookPath(cmd)
		if err != nil {
			fail(ExitRuntimeError, err)
			return nil
		}

		existing, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			fail(ExitRuntimeError, fmt.Errorf("reading hook: %w", err))
			return nil
		}
		block := hookBlock(flagHookFailOn, flagHookAgents)
		content := "#!/bin/sh\n" + block
		if len(existing) > 0 {
			content = spliceHook(string(existing), block)
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			fail(ExitRuntimeError, fmt.Errorf("creating hooks directory: %w", err))
			return nil
		}
		if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
			fail(ExitRuntimeError, fmt.Errorf("writing hook: %w", err))
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Installed pre-commit hook at %s\n", path)
		return nil
	},
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the code-sherpa block from the pre-commit hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := hookPath(cmd)
		if err != nil {
			fail(ExitRuntimeError, err)
			return nil
		}
		out := cmd.OutOrStdout()

		existing, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintln(out, "No pre-commit hook installed.")
			return nil
		}
		if err != nil {
			fail(ExitRuntimeError, fmt.Errorf("reading hook: %w", err))
			return nil
		}

		rest := stripHook(string(existing))
		if onlyShebang(rest) {
			if err := os.Remove(path); err != nil {
				fail(ExitRuntimeError, fmt.Errorf("removing hook: %w", err))
				return nil
			}
			fmt.Fprintf(out, "Removed pre-commit hook %s\n", path)
			return nil
		}
		if err := os.WriteFile(path, []byte(rest), 0o755); err != nil {
			fail(ExitRuntimeError, fmt.Errorf("writing hook: %w", err))
			return nil
		}
		fmt.Fprintf(out, "Removed code-sherpa block from %s\n", path)
		return nil
	},
}

func hookPath(cmd *cobra.Command) (string, error) {
	src := &gitctx.Source{Dir: projectDir()}
	dir, err := src.HooksDir(cmd.Context())
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "pre-commit"), nil
}

// hookBlock renders the marked shell block. Exit 1 from review blocks the
// commit; any other failure only warns.
func hookBlock(failOn string, agents []string) string {
	args := []string{"code-sherpa", "review", "--staged", "--fail-on", failOn}
	var names []string
	for _, a := range agents {
		names = append(names, config.SplitList(a)...)
	}
	if len(names) > 0 {
		args = append(args, "--agents", strings.Join(names, ","))
	}

	var b strings.Builder
	b.WriteString(hookBegin + "\n")
	b.WriteString(strings.Join(args, " ") + "\n")
	b.WriteString("status=$?\n")
	b.WriteString("if [ $status -eq 1 ]; then\n")
	b.WriteString("  echo \"code-sherpa: review comments at or above " + failOn + ", commit blocked\" >&2\n")
	b.WriteString("  exit 1\n")
	b.WriteString("elif [ $status -ne 0 ]; then\n")
	b.WriteString("  echo \"code-sherpa: review failed (exit $status), allowing commit\" >&2\n")
	b.WriteString("fi\n")
	b.WriteString(hookEnd + "\n")
	return b.String()
}

// hookBounds returns the byte range of the marked block, or ok=false.
func hookBounds(script string) (start, end int, ok bool) {
	start = strings.Index(script, hookBegin)
	if start < 0 {
		return 0, 0, false
	}
	rel := strings.Index(script[start:], hookEnd)
	if rel < 0 {
		return 0, 0, false
	}
	end = start + rel + len(hookEnd)
	if end < len(script) && script[end] == '\n' {
		end++
	}
	return start, end, true
}

// spliceHook replaces an existing block in script or appends block.
func spliceHook(script, block string) string {
	start, end, ok := hookBounds(script)
	if !ok {
		if !strings.HasSuffix(script, "\n") {
			script += "\n"
		}
		return script + block
	}
	return script[:start] + block + script[end:]
}

func stripHook(script string) string {
	start, end, ok := hookBounds(script)
	if !ok {
		return script
	}
	return script[:start] + script[end:]
}

func onlyShebang(script string) bool {
	s := strings.TrimSpace(script)
	return s == "" || (strings.HasPrefix(s, "#!") && !strings.Contains(s, "\n"))
}

func init() {
	hookInstallCmd.Flags().StringVar(&flagHookFailOn, "fail-on", "error", "Block the commit at this severity (none, info, warning, error)")
	hookInstallCmd.Flags().StringSliceVar(&flagHookAgents, "agents", nil, "Agents for the hook to run (default: configured agents)")
	hookCmd.AddCommand(hookInstallCmd)
	hookCmd.AddCommand(hookUninstallCmd)
}
