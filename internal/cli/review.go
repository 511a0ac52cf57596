package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/sherpa/internal/cache"
	"github.com/dshills/sherpa/internal/config"
	"github.com/dshills/sherpa/internal/diffparse"
	"github.com/dshills/sherpa/internal/gitctx"
	"github.com/dshills/sherpa/internal/llm"
	"github.com/dshills/sherpa/internal/output"
	"github.com/dshills/sherpa/internal/review"
)

// Review flags
var (
	flagStaged     bool
	flagAgents     []string
	flagNoSummary  bool
	flagSequential bool
	flagOut        string
	flagFailOn     string
	flagContext    bool
	flagNoRedact   bool
	flagTimeout    int
	flagDiffFile   string
)

var reviewCmd = &cobra.Command{
	Use:   "review [RANGE]",
	Short: "Review code changes with AI agents",
	Long: "Review unstaged changes, staged changes (--staged), a revision range " +
		"(e.g. main..HEAD), or a patch file (--diff-file) with the selected agents.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := reviewScope(args)
		if err != nil {
			return err
		}
		e, err := loadEnv(reviewOverrides())
		if err != nil {
			return err
		}
		runReview(cmd.Context(), e, scope)
		return nil
	},
}

func reviewScope(args []string) (gitctx.Scope, error) {
	scope := gitctx.Scope{Staged: flagStaged}
	if len(args) == 1 {
		scope.Range = args[0]
	}
	if scope.Staged && scope.Range != "" {
		return scope, errors.New("--staged cannot be combined with a revision range")
	}
	if flagDiffFile != "" && (scope.Staged || scope.Range != "") {
		return scope, errors.New("--diff-file cannot be combined with --staged or a revision range")
	}
	return scope, nil
}

func reviewOverrides() map[string]string {
	m := make(map[string]string)
	if flagFailOn != "" {
		m["review.fail_on"] = flagFailOn
	}
	if flagTimeout > 0 {
		m["review.agent_timeout_seconds"] = strconv.Itoa(flagTimeout)
	}
	if flagSequential {
		m["review.parallel"] = "false"
	}
	if flagContext {
		m["review.include_context"] = "true"
	}
	if flagNoRedact {
		m["privacy.redact_secrets"] = "false"
	}
	return m
}

// selectedAgents returns the --agents values, or the configured defaults,
// lower-cased with duplicates removed in first-seen order.
func selectedAgents(cfg config.Config) []string {
	names := flagAgents
	if len(names) == 0 {
		names = cfg.Review.DefaultAgents
	}
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		for _, part := range config.SplitList(n) {
			key := strings.ToLower(part)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, key)
		}
	}
	return out
}

func reviewOptions(e *env) review.Options {
	cfg := e.cfg
	return review.Options{
		Agents:       selectedAgents(cfg),
		Sequential:   !cfg.Review.Parallel,
		AgentTimeout: cfg.Review.AgentTimeout(),
		MaxDiffLines: cfg.Review.MaxDiffLines,
		Redact:       cfg.Privacy.RedactSecrets,
		RedactPaths:  cfg.Privacy.RedactPaths,
		Summarize:    !flagNoSummary,
		Logger:       e.logger,
	}
}

func newClient(e *env) (llm.Client, error) {
	cfg := e.cfg
	client, err := llm.New(cfg.LLM.Provider, llm.Options{
		Model:       cfg.LLM.Model,
		APIKeyEnv:   cfg.LLM.APIKeyEnv,
		BaseURL:     cfg.LLM.BaseURL,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout(),
	})
	if err != nil {
		return nil, err
	}

	store, err := cache.New(cfg.Cache.Enabled, cfg.Cache.Dir, cfg.Cache.TTL())
	if err != nil {
		e.logger.Printf("Cache unavailable, continuing without it: %v", err)
		return client, nil
	}
	return llm.NewCached(client, store), nil
}

func readDiffFile(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading diff file: %w", err)
	}
	return string(data), nil
}

func runReview(ctx context.Context, e *env, scope gitctx.Scope) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	client, opts, ok := prepareReview(e)
	if !ok {
		return
	}

	cfg := e.cfg
	src := &gitctx.Source{
		Dir: e.workDir,
		Options: gitctx.DiffOptions{
			ContextLines: cfg.Review.ContextLines,
			Exclude:      cfg.Analyze.ExcludePatterns,
		},
	}

	var res *review.Result
	var err error
	switch {
	case flagDiffFile != "" || cfg.Review.IncludeContext:
		res, err = reviewText(ctx, e, client, src, scope, opts)
	default:
		res, err = review.Run(ctx, client, src, scope, nil, opts)
	}
	if err != nil {
		reviewFailed(err)
		return
	}
	if !reportReview(e, res) {
		return
	}
	gateReview(e, res)
}

// prepareReview validates agent names and builds the provider client. It
// records the exit code and returns ok=false on failure.
func prepareReview(e *env) (llm.Client, review.Options, bool) {
	if !e.cfg.Privacy.RedactSecrets {
		fmt.Fprintln(os.Stderr, "WARNING: secret redaction is disabled")
	}

	opts := reviewOptions(e)
	// Reject unknown agent names before any provider setup.
	reg := review.NewRegistry()
	for _, name := range opts.Agents {
		if _, ok := reg.Describe(name); !ok {
			fail(ExitUsageError, &review.UnknownAgentError{Name: name, Available: reg.Available()})
			return nil, opts, false
		}
	}
	opts.Registry = reg

	client, err := newClient(e)
	if err != nil {
		if llm.IsAuthError(err) {
			fail(ExitAuthError, err)
		} else {
			fail(ExitUsageError, err)
		}
		return nil, opts, false
	}
	e.logger.Printf("Reviewing with %s/%s, agents: %s", client.Name(), client.Model(), strings.Join(opts.Agents, ", "))
	return client, opts, true
}

func reviewFailed(err error) {
	if llm.IsAuthError(err) {
		fail(ExitAuthError, err)
		return
	}
	fail(ExitRuntimeError, err)
}

// reportReview writes the result in the configured format and saves a
// markdown copy when enabled.
func reportReview(e *env, res *review.Result) bool {
	cfg := e.cfg
	if err := output.WriteReport(res, cfg.Output.DefaultFormat, flagOut,
		output.DetectOptions(os.Stdout, cfg.Output.Color)); err != nil {
		fail(ExitRuntimeError, fmt.Errorf("writing output: %w", err))
		return false
	}

	if cfg.Output.SaveReports {
		path, err := output.SaveReport(cfg.Output.ReportsDir, res, time.Now())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: saving report: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Report saved to %s\n", path)
		}
	}
	return true
}

// gateReview sets the exit code from agent failures and the fail_on level.
func gateReview(e *env, res *review.Result) {
	if allFailed(res) {
		fail(ExitRuntimeError, errors.New("every review agent failed"))
		return
	}
	if review.MeetsThreshold(res.MaxSeverity(), e.cfg.Review.FailOn) {
		exitCode = ExitFindings
	}
}

// reviewText fetches the diff itself so file context can be read for the
// changed paths before the agents run.
func reviewText(ctx context.Context, e *env, client llm.Client, src *gitctx.Source, scope gitctx.Scope, opts review.Options) (*review.Result, error) {
	var text string
	var err error
	if flagDiffFile != "" {
		text, err = readDiffFile(flagDiffFile)
	} else {
		text, err = src.Diff(ctx, scope)
		if err != nil {
			err = fmt.Errorf("getting %s diff: %w", scope.Mode(), err)
		}
	}
	if err != nil {
		return nil, err
	}

	var rc *review.Context
	if e.cfg.Review.IncludeContext {
		paths := diffparse.Parse(text).Paths()
		files := src.ReadFiles(paths, e.cfg.Analyze.MaxFileBytes())
		e.logger.Printf("Loaded %d of %d changed files as context", len(files), len(paths))
		rc = &review.Context{Files: files}
	}
	return review.RunDiff(ctx, client, text, rc, opts)
}

func allFailed(res *review.Result) bool {
	if len(res.AgentReviews) == 0 {
		return false
	}
	for _, ar := range res.AgentReviews {
		if !ar.Failed {
			return false
		}
	}
	return true
}

// addReviewFlags registers the flags shared by review and pr.
func addReviewFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVarP(&flagAgents, "agents", "a", nil, "Agents to run (repeatable or comma-separated)")
	f.BoolVar(&flagNoSummary, "no-summary", false, "Skip the overall summary")
	f.BoolVar(&flagSequential, "sequential", false, "Run agents one at a time")
	f.StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	f.StringVar(&flagFailOn, "fail-on", "", "Exit 1 when a comment meets this severity (none, info, warning, error)")
	f.BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
	f.IntVar(&flagTimeout, "timeout", 0, "Per-agent timeout in seconds")
}

func init() {
	addReviewFlags(reviewCmd)
	f := reviewCmd.Flags()
	f.BoolVar(&flagStaged, "staged", false, "Review staged changes instead of the working tree")
	f.BoolVar(&flagContext, "context", false, "Send full contents of changed files to the agents")
	f.StringVar(&flagDiffFile, "diff-file", "", "Review a patch file instead of git (- for stdin)")
}
