package review

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/dshills/sherpa/internal/llm"
	"github.com/dshills/sherpa/internal/prompt"
)

// Summarizer writes the overall summary of a review with a second LLM pass.
type Summarizer struct {
	client llm.Client
	logger *log.Logger
}

// NewSummarizer creates a summarizer. A nil logger discards output.
func NewSummarizer(client llm.Client, logger *log.Logger) *Summarizer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Summarizer{client: client, logger: logger}
}

// Summarize fills res.Summary in place and returns res. A result without
// agent reviews is returned untouched. When the LLM call fails the summary
// is a deterministic tally of the comments.
func (s *Summarizer) Summarize(ctx context.Context, res *Result) *Result {
	if len(res.AgentReviews) == 0 {
		return res
	}

	summary, err := s.generate(ctx, res)
	if err != nil {
		s.logger.Printf("summarizer failed, using fallback summary: %v", err)
		summary = fallbackSummary(res)
	}
	res.Summary = summary
	return res
}

func (s *Summarizer) generate(ctx context.Context, res *Result) (string, error) {
	p, err := prompt.Load("review/summary", map[string]any{
		"FilesChanged": res.Stats.FilesChanged,
		"Additions":    res.Stats.TotalAdditions,
		"Deletions":    res.Stats.TotalDeletions,
		"AgentReviews": formatAgentReviews(res.AgentReviews),
	})
	if err != nil {
		return "", err
	}
	out, err := s.client.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: p}})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// formatAgentReviews renders agent findings as markdown for the summary
// prompt.
func formatAgentReviews(reviews []AgentReview) string {
	var lines []string
	for _, ar := range reviews {
		lines = append(lines, "### "+ar.AgentName, "")
		if len(ar.Comments) == 0 {
			lines = append(lines, "*No issues found.*", "")
		}
		for _, c := range ar.Comments {
			lines = append(lines, fmt.Sprintf("- [%s] %s", c.Severity.Label(), c.Location()))
			lines = append(lines, "  "+c.Message)
			if c.Suggestion != "" {
				lines = append(lines, "  Suggestion: "+c.Suggestion)
			}
			lines = append(lines, "")
		}
		if ar.Summary != "" {
			lines = append(lines, "**Summary**: "+ar.Summary, "")
		}
	}
	return strings.Join(lines, "\n")
}

// fallbackSummary tallies comments by severity and recommends a next step.
func fallbackSummary(res *Result) string {
	lines := []string{fmt.Sprintf("Total %d comments found.", res.TotalComments)}
	for _, sev := range Severities {
		if n := res.Count(sev); n > 0 {
			lines = append(lines, fmt.Sprintf("- %s: %d", sev.Label(), n))
		}
	}
	lines = append(lines, "")
	switch {
	case res.Count(SeverityError) > 0:
		lines = append(lines, "Resolve ERROR issues before merging.")
	case res.Count(SeverityWarning) > 0:
		lines = append(lines, "Review the WARNING issues before merging.")
	default:
		lines = append(lines, "Safe to merge: no notable issues.")
	}
	return strings.Join(lines, "\n")
}
