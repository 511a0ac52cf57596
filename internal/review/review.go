package review

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/dshills/sherpa/internal/gitctx"
	"github.com/dshills/sherpa/internal/llm"
)

// DefaultAgentTimeout bounds a single agent call when Options.AgentTimeout is
// zero.
const DefaultAgentTimeout = 5 * time.Minute

// DiffSource produces the unified diff for a scope.
type DiffSource interface {
	Diff(ctx context.Context, scope gitctx.Scope) (string, error)
}

// Options configures a review run.
type Options struct {
	// Agents lists agent names in report order. Empty means DefaultAgents.
	Agents []string
	// Sequential runs agents one at a time instead of concurrently.
	Sequential bool
	// AgentTimeout bounds each agent call. Zero selects
	// DefaultAgentTimeout; a negative value disables the limit.
	AgentTimeout time.Duration
	// MaxDiffLines truncates larger diffs at a file boundary. Zero disables.
	MaxDiffLines int
	// Redact masks secrets in the diff and file context before any agent
	// sees them. RedactPaths masks whole files by glob.
	Redact      bool
	RedactPaths []string
	// Summarize runs the summarizer when the review produced comments.
	Summarize bool
	// Registry defaults to NewRegistry().
	Registry *Registry
	Logger   *log.Logger
}

func (o Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.New(io.Discard, "", 0)
}

// Run reviews the diff src produces for scope and, when requested and there
// is something to summarize, adds the overall summary.
func Run(ctx context.Context, client llm.Client, src DiffSource, scope gitctx.Scope, rc *Context, opts Options) (*Result, error) {
	res, err := NewRunner(client, opts).Review(ctx, src, scope, rc)
	if err != nil {
		return nil, err
	}
	return finish(ctx, client, res, opts), nil
}

// RunDiff is Run for diff text supplied directly.
func RunDiff(ctx context.Context, client llm.Client, text string, rc *Context, opts Options) (*Result, error) {
	res, err := NewRunner(client, opts).ReviewDiff(ctx, text, rc)
	if err != nil {
		return nil, err
	}
	return finish(ctx, client, res, opts), nil
}

func finish(ctx context.Context, client llm.Client, res *Result, opts Options) *Result {
	if !opts.Summarize || res.TotalComments == 0 {
		return res
	}
	start := time.Now()
	NewSummarizer(client, opts.logger()).Summarize(ctx, res)
	res.Duration += time.Since(start)
	return res
}
