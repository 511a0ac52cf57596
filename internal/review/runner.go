package review

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/sherpa/internal/diffparse"
	"github.com/dshills/sherpa/internal/gitctx"
	"github.com/dshills/sherpa/internal/llm"
	"github.com/dshills/sherpa/internal/redact"
)

// Runner fans a parsed diff out to the configured agents and aggregates their
// reviews. Agents are built on first use and reused afterwards.
type Runner struct {
	client   llm.Client
	registry *Registry
	opts     Options
	names    []string
	timeout  time.Duration
	logger   *log.Logger

	once      sync.Once
	agents    []Agent
	agentsErr error
}

// NewRunner creates a runner. No agent is built until the first review.
func NewRunner(client llm.Client, opts Options) *Runner {
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	names := opts.Agents
	if len(names) == 0 {
		names = DefaultAgents
	}
	timeout := opts.AgentTimeout
	if timeout == 0 {
		timeout = DefaultAgentTimeout
	}
	return &Runner{
		client:   client,
		registry: reg,
		opts:     opts,
		names:    names,
		timeout:  timeout,
		logger:   opts.logger(),
	}
}

// Agents builds the configured agents once. An unknown name fails every
// call with the same error.
func (r *Runner) Agents() ([]Agent, error) {
	r.once.Do(func() {
		for _, name := range r.names {
			a, err := r.registry.Get(name, r.client)
			if err != nil {
				r.agentsErr = err
				r.agents = nil
				return
			}
			r.agents = append(r.agents, a)
		}
	})
	return r.agents, r.agentsErr
}

// Review fetches the diff for scope and reviews it.
func (r *Runner) Review(ctx context.Context, src DiffSource, scope gitctx.Scope, rc *Context) (*Result, error) {
	text, err := src.Diff(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("getting %s diff: %w", scope.Mode(), err)
	}
	return r.ReviewDiff(ctx, text, rc)
}

// ReviewDiff reviews diff text. Blank text yields the empty result without
// building or calling any agent.
func (r *Runner) ReviewDiff(ctx context.Context, text string, rc *Context) (*Result, error) {
	start := time.Now()

	text = r.truncate(text)
	if strings.TrimSpace(text) == "" {
		res := emptyResult()
		res.RunID = uuid.NewString()
		return res, nil
	}

	pd := diffparse.Parse(text)
	for _, w := range pd.Warnings {
		r.logger.Printf("warning: skipped diff segment: %v", w)
	}
	if r.opts.Redact {
		var rep redact.Report
		pd, rep = redact.Diff(pd, r.opts.RedactPaths)
		if !rep.Empty() {
			r.logger.Printf("redacted %d secret(s) and %d file(s) from the diff", rep.Total(), len(rep.Files))
		}
		rc = r.redactContext(rc)
	}

	agents, err := r.Agents()
	if err != nil {
		return nil, err
	}
	r.logger.Printf("reviewing %d file(s) (+%d/-%d) with %d agent(s), parallel=%v",
		pd.Stats.FilesChanged, pd.Stats.TotalAdditions, pd.Stats.TotalDeletions, len(agents), !r.opts.Sequential)

	reviews := make([]AgentReview, len(agents))
	if r.opts.Sequential {
		for i, a := range agents {
			reviews[i] = r.runAgent(ctx, a, pd, rc)
		}
	} else {
		var wg sync.WaitGroup
		for i, a := range agents {
			wg.Add(1)
			go func(i int, a Agent) {
				defer wg.Done()
				reviews[i] = r.runAgent(ctx, a, pd, rc)
			}(i, a)
		}
		wg.Wait()
	}

	res := aggregate(pd.Stats, reviews)
	res.RunID = uuid.NewString()
	res.Duration = time.Since(start)
	return res, nil
}

// runAgent runs one agent under the per-agent timeout. An error, a panic or a
// timeout is turned into a failed review for that agent.
func (r *Runner) runAgent(ctx context.Context, a Agent, pd *diffparse.ParsedDiff, rc *Context) AgentReview {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	type outcome struct {
		review AgentReview
		err    error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		ar, err := a.Review(ctx, pd, rc)
		done <- outcome{review: ar, err: err}
	}()

	var o outcome
	select {
	case o = <-done:
	case <-ctx.Done():
		o.err = ctx.Err()
	}

	if o.err != nil {
		r.logger.Printf("agent %s failed after %s: %v", a.Name(), time.Since(start).Round(time.Millisecond), o.err)
		return failedReview(a.Name(), o.err)
	}
	ar := o.review
	if ar.AgentName == "" {
		ar.AgentName = a.Name()
	}
	if ar.Comments == nil {
		ar.Comments = []Comment{}
	}
	r.logger.Printf("agent %s: %d comment(s) in %s", ar.AgentName, len(ar.Comments), time.Since(start).Round(time.Millisecond))
	return ar
}

func failedReview(name string, err error) AgentReview {
	return AgentReview{
		AgentName: name,
		Comments:  []Comment{},
		Summary:   fmt.Sprintf("error during review: %v", err),
		Failed:    true,
	}
}

// truncate cuts text to MaxDiffLines, keeping whole file sections. When even
// the first section is too long it is cut mid-file.
func (r *Runner) truncate(text string) string {
	limit := r.opts.MaxDiffLines
	if limit <= 0 {
		return text
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) <= limit {
		return text
	}

	cut := 0
	for i, line := range lines {
		if i > limit {
			break
		}
		if strings.HasPrefix(line, "diff --git ") && i > 0 {
			cut = i
		}
	}
	if cut == 0 {
		cut = limit
	}
	r.logger.Printf("warning: diff has %d lines, truncated to %d (max_diff_lines=%d)", len(lines), cut, limit)
	return strings.Join(lines[:cut], "")
}

// redactContext masks secrets in file contents and blanks files that match
// the redaction paths.
func (r *Runner) redactContext(rc *Context) *Context {
	if rc == nil || len(rc.Files) == 0 {
		return rc
	}
	files := make(map[string]string, len(rc.Files))
	for path, content := range rc.Files {
		if redact.ShouldRedactPath(path, r.opts.RedactPaths) {
			files[path] = "[REDACTED] (file content redacted by path policy)"
			continue
		}
		files[path] = redact.Secrets(content)
	}
	return &Context{Files: files}
}
