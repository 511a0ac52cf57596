package review

import (
	"strconv"
	"strings"
	"time"

	"github.com/dshills/sherpa/internal/diffparse"
)

// Severity is the importance of a comment.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Severities lists every severity from most to least severe.
var Severities = []Severity{SeverityError, SeverityWarning, SeverityInfo}

// ParseSeverity maps a label in any case to a Severity. Unknown labels become
// SeverityInfo.
func ParseSeverity(s string) Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return SeverityError
	case "WARNING":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Label returns the upper-case form used in prompts and reports.
func (s Severity) Label() string {
	return strings.ToUpper(string(s))
}

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// MeetsThreshold returns true if severity is at or above the threshold.
// A threshold of "none" or "" never matches.
func MeetsThreshold(s Severity, threshold string) bool {
	if threshold == "none" || threshold == "" {
		return false
	}
	return SeverityRank(s) >= SeverityRank(ParseSeverity(threshold))
}

// Comment is one finding reported by an agent.
type Comment struct {
	Agent      string   `json:"agent"`
	File       string   `json:"file"`
	Line       *int     `json:"line,omitempty"`
	Severity   Severity `json:"severity"`
	Category   string   `json:"category"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// HasLine reports whether the comment points at a real line. Zero and
// negative lines count as absent.
func (c Comment) HasLine() bool { return c.Line != nil && *c.Line > 0 }

// Location renders file[:line].
func (c Comment) Location() string {
	if !c.HasLine() {
		return c.File
	}
	return c.File + ":" + strconv.Itoa(*c.Line)
}

// AgentReview is the output of one agent. Failed marks a review whose agent
// could not complete; its Summary holds the error.
type AgentReview struct {
	AgentName string    `json:"agentName"`
	Comments  []Comment `json:"comments"`
	Summary   string    `json:"summary"`
	Failed    bool      `json:"failed,omitempty"`
}

// Result is the aggregated outcome of a review run.
type Result struct {
	RunID         string          `json:"runId"`
	Stats         diffparse.Stats `json:"stats"`
	AgentReviews  []AgentReview   `json:"agentReviews"`
	TotalComments int             `json:"totalComments"`
	BySeverity    map[string]int  `json:"bySeverity"`
	Summary       string          `json:"summary"`
	Duration      time.Duration   `json:"-"`
}

// Count returns the number of comments with severity s.
func (r *Result) Count(s Severity) int {
	return r.BySeverity[string(s)]
}

// MaxSeverity returns the most severe label present, or "" when there are no
// comments.
func (r *Result) MaxSeverity() Severity {
	for _, s := range Severities {
		if r.Count(s) > 0 {
			return s
		}
	}
	return ""
}

// Comments returns every comment across all agents in agent order.
func (r *Result) Comments() []Comment {
	var all []Comment
	for _, ar := range r.AgentReviews {
		all = append(all, ar.Comments...)
	}
	return all
}

// Context is extra material handed to every agent alongside the diff.
type Context struct {
	// Files maps a repository path to its full contents.
	Files map[string]string
}

// EmptySummary is the summary of a run that had nothing to review.
const EmptySummary = "No changes to review."

func emptyResult() *Result {
	return &Result{
		AgentReviews: []AgentReview{},
		BySeverity:   map[string]int{},
		Summary:      EmptySummary,
	}
}

// aggregate builds a Result from per-agent reviews in configuration order.
func aggregate(stats diffparse.Stats, reviews []AgentReview) *Result {
	res := &Result{
		Stats:        stats,
		AgentReviews: reviews,
		BySeverity:   map[string]int{},
	}
	for _, ar := range reviews {
		res.TotalComments += len(ar.Comments)
		for _, c := range ar.Comments {
			res.BySeverity[string(c.Severity)]++
		}
	}
	return res
}
