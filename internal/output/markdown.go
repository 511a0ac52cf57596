package output

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/sherpa/internal/review"
)

// MarkdownWriter outputs a PR-comment-friendly markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, result *review.Result) error {
	ew := &errWriter{w: w}

	ew.printf("# Code Review Results\n\n")
	ew.printf("## Diff Statistics\n\n")
	ew.printf("- **Files Changed**: %d\n", result.Stats.FilesChanged)
	ew.printf("- **Additions**: +%d\n", result.Stats.TotalAdditions)
	ew.printf("- **Deletions**: -%d\n\n", result.Stats.TotalDeletions)

	if result.TotalComments > 0 {
		ew.printf("## Issues by Severity\n\n")
		for _, sev := range review.Severities {
			if n := result.Count(sev); n > 0 {
				ew.printf("- **%s** [%s]: %d\n", sev.Label(), mdSeverityMark(sev), n)
			}
		}
		ew.println("")
	}

	for _, ar := range result.AgentReviews {
		writeAgentMarkdown(ew, ar)
	}

	if result.Summary != "" {
		ew.printf("## Overall Summary\n\n%s\n\n", result.Summary)
	}

	if result.RunID != "" {
		ew.printf("---\n\n*Run `%s`", result.RunID)
		if result.Duration > 0 {
			ew.printf(" completed in %s", result.Duration.Round(time.Millisecond))
		}
		ew.printf("*\n")
	}
	return ew.err
}

func writeAgentMarkdown(ew *errWriter, ar review.AgentReview) {
	ew.printf("### %s\n\n", ar.AgentName)
	if ar.Failed {
		ew.printf("*failed*\n\n")
	} else {
		ew.printf("*%d comments*\n\n", len(ar.Comments))
	}

	for _, c := range ar.Comments {
		location := "`" + c.File + "`"
		if c.HasLine() {
			location += " (line " + strconv.Itoa(*c.Line) + ")"
		}
		ew.printf("- **[%s]** %s\n", c.Severity.Label(), location)
		ew.printf("  - %s\n", indentContinuation(c.Message))
		if c.Suggestion != "" {
			ew.printf("  - *Suggestion*: %s\n", indentContinuation(c.Suggestion))
		}
		ew.println("")
	}

	if ar.Summary != "" {
		ew.printf("**Summary**: %s\n\n", ar.Summary)
	}
}

// indentContinuation keeps multi-line text inside its list item.
func indentContinuation(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n    ")
}

func mdSeverityMark(s review.Severity) string {
	switch s {
	case review.SeverityError:
		return "X"
	case review.SeverityWarning:
		return "!"
	case review.SeverityInfo:
		return "i"
	default:
		return "-"
	}
}
