package review

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/sherpa/internal/diffparse"
	"github.com/dshills/sherpa/internal/llm"
	"github.com/dshills/sherpa/internal/prompt"
)

// Agent reviews a diff from one perspective.
//
// Review returns a non-nil error only when the prompt itself cannot be built.
// An LLM failure is reported as a Failed review with a nil error.
type Agent interface {
	Name() string
	Description() string
	Review(ctx context.Context, d *diffparse.ParsedDiff, rc *Context) (AgentReview, error)
}

const noFileContext = "No additional file context provided."

// perspective is everything that distinguishes one agent kind from another.
type perspective struct {
	name        string
	description string
	template    string
	// area names the perspective in the no-issues summary.
	area string
	// heading prefixes the default summary.
	heading string
	// labels describe error, warning and info counts in the default summary.
	labels [3]string
}

// llmAgent is the single Agent implementation; the perspective decides the
// prompt and the summary wording.
type llmAgent struct {
	perspective
	client llm.Client
}

func (a *llmAgent) Name() string        { return a.name }
func (a *llmAgent) Description() string { return a.description }

func (a *llmAgent) Review(ctx context.Context, d *diffparse.ParsedDiff, rc *Context) (AgentReview, error) {
	p, err := buildPrompt(a.template, d, rc)
	if err != nil {
		return AgentReview{}, fmt.Errorf("agent %s: %w", a.name, err)
	}

	resp, err := a.client.Complete(ctx, p)
	if err != nil {
		return AgentReview{
			AgentName: a.name,
			Comments:  []Comment{},
			Summary:   fmt.Sprintf("review failed: %v", err),
			Failed:    true,
		}, nil
	}

	parsed := parseResponse(a.name, resp)
	summary := parsed.summary
	if summary == "" {
		summary = a.defaultSummary(parsed.comments)
	}
	return AgentReview{
		AgentName: a.name,
		Comments:  parsed.comments,
		Summary:   summary,
	}, nil
}

// defaultSummary describes the comment counts when the model gave no summary.
func (a *llmAgent) defaultSummary(comments []Comment) string {
	if len(comments) == 0 {
		return fmt.Sprintf("No notable issues from the %s perspective.", a.area)
	}
	counts := map[Severity]int{}
	for _, c := range comments {
		counts[c.Severity]++
	}
	var parts []string
	for i, s := range Severities {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", a.labels[i], n))
		}
	}
	return a.heading + ": " + strings.Join(parts, ", ")
}

func buildPrompt(template string, d *diffparse.ParsedDiff, rc *Context) (string, error) {
	var files map[string]string
	if rc != nil {
		files = rc.Files
	}
	return prompt.Load(template, map[string]any{
		"Diff":        d.Text(),
		"FileContext": formatFileContext(files),
	})
}

// formatFileContext renders each file as a heading and a fenced block, in
// path order.
func formatFileContext(files map[string]string) string {
	if len(files) == 0 {
		return noFileContext
	}
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&b, "### %s\n```\n%s\n```\n\n", p, strings.TrimRight(files[p], "\n"))
	}
	return strings.TrimRight(b.String(), "\n")
}
