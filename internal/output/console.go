package output

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/sherpa/internal/review"
)

// ConsoleWriter outputs a human-readable terminal report. Styling is applied
// only when Color is set.
type ConsoleWriter struct {
	Color bool
	Width int
	st    styles
}

type styles struct {
	title    lipgloss.Style
	heading  lipgloss.Style
	dim      lipgloss.Style
	add      lipgloss.Style
	del      lipgloss.Style
	failed   lipgloss.Style
	suggest  lipgloss.Style
	severity map[review.Severity]lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "25", Dark: "75"}),
		heading: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "90", Dark: "213"}),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "244", Dark: "245"}),
		add:     lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "46"}),
		del:     lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "124", Dark: "196"}),
		failed:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "124", Dark: "196"}),
		suggest: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "46"}),
		severity: map[review.Severity]lipgloss.Style{
			review.SeverityError:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "124", Dark: "196"}),
			review.SeverityWarning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "136", Dark: "226"}),
			review.SeverityInfo:    lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "25", Dark: "75"}),
		},
	}
}

// NewConsoleWriter returns a console writer for the given terminal options.
func NewConsoleWriter(opts Options) *ConsoleWriter {
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	return &ConsoleWriter{Color: opts.Color, Width: opts.Width, st: newStyles()}
}

func (c *ConsoleWriter) style(s lipgloss.Style, text string) string {
	if !c.Color {
		return text
	}
	return s.Render(text)
}

func (c *ConsoleWriter) rule() string {
	return strings.Repeat("─", min(c.Width, 60))
}

func (c *ConsoleWriter) wrapWidth() int {
	return max(min(c.Width, 100)-6, 20)
}

func (c *ConsoleWriter) Write(w io.Writer, result *review.Result) error {
	ew := &errWriter{w: w}

	ew.println(c.style(c.st.title, "Code Review Results"))
	ew.println(c.rule())
	ew.printf("Files changed: %d   Additions: %s   Deletions: %s\n",
		result.Stats.FilesChanged,
		c.style(c.st.add, "+"+strconv.Itoa(result.Stats.TotalAdditions)),
		c.style(c.st.del, "-"+strconv.Itoa(result.Stats.TotalDeletions)),
	)
	ew.printf("Comments: %d total", result.TotalComments)
	if result.TotalComments > 0 {
		var parts []string
		for _, sev := range review.Severities {
			if n := result.Count(sev); n > 0 {
				parts = append(parts, c.style(c.st.severity[sev], sev.Label())+" "+strconv.Itoa(n))
			}
		}
		ew.printf(" (%s)", strings.Join(parts, ", "))
	}
	ew.println("")
	ew.println(c.rule())

	for _, ar := range result.AgentReviews {
		c.writeAgent(ew, ar)
	}

	if result.Summary != "" {
		ew.printf("\n%s\n", c.style(c.st.heading, "Overall Summary"))
		ew.println(c.rule())
		ew.println(c.renderSummary(result.Summary))
	}

	if result.RunID != "" {
		footer := "Run " + result.RunID
		if result.Duration > 0 {
			footer += " completed in " + result.Duration.Round(time.Millisecond).String()
		}
		ew.printf("\n%s\n", c.style(c.st.dim, footer))
	}
	return ew.err
}

func (c *ConsoleWriter) writeAgent(ew *errWriter, ar review.AgentReview) {
	status := "(" + strconv.Itoa(len(ar.Comments)) + " comments)"
	if ar.Failed {
		status = c.style(c.st.failed, "(failed)")
	} else {
		status = c.style(c.st.dim, status)
	}
	ew.printf("\n%s %s\n", c.style(c.st.heading, ar.AgentName), status)

	width := c.wrapWidth()
	for _, cm := range ar.Comments {
		badge := c.style(c.st.severity[cm.Severity], "["+cm.Severity.Label()+"]")
		ew.printf("  %s %s\n", badge, c.style(c.st.dim, cm.Location()))
		for _, line := range wrapText(cm.Message, width) {
			ew.printf("    %s\n", line)
		}
		if cm.Suggestion != "" {
			lines := wrapText(cm.Suggestion, width-12)
			ew.printf("    %s %s\n", c.style(c.st.suggest, "Suggestion:"), lines[0])
			for _, line := range lines[1:] {
				ew.printf("                %s\n", line)
			}
		}
	}

	if ar.Summary != "" {
		for i, line := range wrapText(ar.Summary, width) {
			if i == 0 {
				line = "Summary: " + line
			}
			ew.printf("  %s\n", c.style(c.st.dim, line))
		}
	}
}

// renderSummary renders markdown with glamour when styling is on, falling
// back to plain wrapped text.
func (c *ConsoleWriter) renderSummary(text string) string {
	plain := strings.Join(wrapText(text, c.wrapWidth()), "\n")
	if !c.Color {
		return plain
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(c.wrapWidth()),
		glamour.WithPreservedNewLines(),
	)
	if err != nil {
		return plain
	}
	out, err := r.Render(text)
	if err != nil {
		return plain
	}
	return strings.TrimRight(out, "\n")
}

// wrapText wraps each paragraph of text at word boundaries. Existing line
// breaks are kept.
func wrapText(text string, width int) []string {
	var lines []string
	for _, para := range strings.Split(strings.TrimSpace(text), "\n") {
		if lipgloss.Width(para) <= width {
			lines = append(lines, para)
			continue
		}
		var current strings.Builder
		for _, word := range strings.Fields(para) {
			if current.Len() > 0 && lipgloss.Width(current.String())+lipgloss.Width(word)+1 > width {
				lines = append(lines, current.String())
				current.Reset()
			}
			if current.Len() > 0 {
				current.WriteString(" ")
			}
			current.WriteString(word)
		}
		if current.Len() > 0 {
			lines = append(lines, current.String())
		}
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}
