package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dshills/sherpa/internal/analyze"
	"github.com/dshills/sherpa/internal/gitctx"
	"github.com/dshills/sherpa/internal/llm"
	"github.com/dshills/sherpa/internal/output"
)

var flagAnalyzeOut string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a repository or a single file",
	Long: "Static structure and quality reports, plus model-written explanations of " +
		"a file or a whole repository. PATH defaults to --project, then the current directory.",
}

var analyzeStructureCmd = &cobra.Command{
	Use:   "structure [PATH]",
	Short: "Show the directory tree, entry points and local imports",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(nil)
		if err != nil {
			return err
		}
		root, err := analyzeTarget(e, args)
		if err != nil {
			return err
		}
		s, err := analyze.AnalyzeStructure(root, e.cfg.Analyze.ExcludePatterns, e.cfg.Analyze.MaxFileBytes())
		if err != nil {
			fail(ExitRuntimeError, err)
			return nil
		}
		e.logger.Printf("Found %d entry points and %d local imports", len(s.EntryPoints), len(s.Dependencies))
		writeAnalysis(e, s)
		return nil
	},
}

var analyzeQualityCmd = &cobra.Command{
	Use:   "quality [PATH]",
	Short: "Score code quality with static heuristics",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(nil)
		if err != nil {
			return err
		}
		root, err := analyzeTarget(e, args)
		if err != nil {
			return err
		}
		rep, err := analyze.AnalyzeQuality(root, e.cfg.Analyze.ExcludePatterns, e.cfg.Analyze.MaxFileBytes())
		if err != nil {
			fail(ExitRuntimeError, err)
			return nil
		}
		e.logger.Printf("Scored %d files, %d issues", rep.Files, len(rep.Issues))
		writeAnalysis(e, rep)
		return nil
	},
}

var analyzeFileCmd = &cobra.Command{
	Use:   "file PATH",
	Short: "Explain what a file does",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err != nil {
			return fmt.Errorf("cannot analyze %s: %w", args[0], err)
		}
		e, err := loadEnv(nil)
		if err != nil {
			return err
		}
		client, ok := analyzeClient(e)
		if !ok {
			return nil
		}
		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
		defer stop()

		ex := &analyze.Explainer{
			Client:      client,
			MaxBytes:    e.cfg.Analyze.MaxFileBytes(),
			Redact:      e.cfg.Privacy.RedactSecrets,
			RedactPaths: e.cfg.Privacy.RedactPaths,
		}
		fmt.Fprintf(os.Stderr, "Explaining %s with %s/%s...\n", args[0], client.Name(), client.Model())
		x, err := ex.Explain(ctx, args[0])
		if err != nil {
			analysisFailed(err)
			return nil
		}
		writeAnalysis(e, x)
		return nil
	},
}

var analyzeRepoCmd = &cobra.Command{
	Use:   "repo [PATH]",
	Short: "Summarize a git repository",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(nil)
		if err != nil {
			return err
		}
		root, err := analyzeTarget(e, args)
		if err != nil {
			return err
		}
		client, ok := analyzeClient(e)
		if !ok {
			return nil
		}
		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
		defer stop()

		s := &analyze.Summarizer{
			Client:  client,
			Source:  &gitctx.Source{Dir: root},
			Exclude: e.cfg.Analyze.ExcludePatterns,
		}
		fmt.Fprintf(os.Stderr, "Summarizing %s with %s/%s...\n", root, client.Name(), client.Model())
		sum, err := s.Summarize(ctx)
		if err != nil {
			if errors.Is(err, gitctx.ErrNotRepository) {
				fail(ExitUsageError, err)
				return nil
			}
			analysisFailed(err)
			return nil
		}
		writeAnalysis(e, sum)
		return nil
	},
}

// analyzeTarget picks the explicit PATH argument, then the project
// directory, then the current directory.
func analyzeTarget(e *env, args []string) (string, error) {
	target := "."
	switch {
	case len(args) == 1:
		target = args[0]
	case e.workDir != "":
		target = e.workDir
	}
	if _, err := os.Stat(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("path does not exist: %s", target)
		}
		return "", err
	}
	return target, nil
}

func analyzeClient(e *env) (llm.Client, bool) {
	client, err := newClient(e)
	if err != nil {
		if llm.IsAuthError(err) {
			fail(ExitAuthError, err)
		} else {
			fail(ExitUsageError, err)
		}
		return nil, false
	}
	return client, true
}

func analysisFailed(err error) {
	switch {
	case llm.IsAuthError(err):
		fail(ExitAuthError, err)
	case errors.Is(err, analyze.ErrTooLarge), errors.Is(err, analyze.ErrRedactedPath):
		fail(ExitUsageError, err)
	default:
		fail(ExitRuntimeError, err)
	}
}

func writeAnalysis(e *env, doc output.Document) {
	err := output.WriteDocument(doc, e.cfg.Output.DefaultFormat, flagAnalyzeOut,
		output.DetectOptions(os.Stdout, e.cfg.Output.Color))
	if err != nil {
		fail(ExitRuntimeError, fmt.Errorf("writing output: %w", err))
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	analyzeCmd.PersistentFlags().StringVar(&flagAnalyzeOut, "out", "", "Output file path (default: stdout)")
	analyzeCmd.AddCommand(analyzeStructureCmd)
	analyzeCmd.AddCommand(analyzeQualityCmd)
	analyzeCmd.AddCommand(analyzeFileCmd)
	analyzeCmd.AddCommand(analyzeRepoCmd)
}
