package analyze

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dshills/sherpa/internal/review"
)

// LongFunctionLines is the length above which a function is reported.
const LongFunctionLines = 50

// Issue is one quality finding.
type Issue struct {
	Path     string          `json:"path"`
	Line     int             `json:"line"`
	Kind     string          `json:"kind"`
	Message  string          `json:"message"`
	Severity review.Severity `json:"severity"`
}

// QualityReport is the result of AnalyzeQuality.
type QualityReport struct {
	Path       string  `json:"path"`
	Files      int     `json:"files"`
	Lines      int     `json:"lines"`
	Complexity int     `json:"complexity"`
	Score      float64 `json:"score"`
	Grade      string  `json:"grade"`
	Issues     []Issue `json:"issues"`
	Summary    string  `json:"summary"`
}

var complexityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bif\b`),
	regexp.MustCompile(`\belif\b`),
	regexp.MustCompile(`\belse\b`),
	regexp.MustCompile(`\bswitch\b`),
	regexp.MustCompile(`\bcase\b`),
	regexp.MustCompile(`\?\s*:`),
	regexp.MustCompile(`\bfor\b`),
	regexp.MustCompile(`\bwhile\b`),
	regexp.MustCompile(`\bdo\b`),
	regexp.MustCompile(`\btry\b`),
	regexp.MustCompile(`\bcatch\b`),
	regexp.MustCompile(`\bexcept\b`),
	regexp.MustCompile(`\bfinally\b`),
	regexp.MustCompile(`\b(?:and|or)\b|&&|\|\|`),
}

type issueRule struct {
	kind     string
	re       *regexp.Regexp
	message  string
	severity review.Severity
}

var issueRules = []issueRule{
	{"long_line", regexp.MustCompile(`(?m)^.{121,}$`), "Line exceeds 120 characters", review.SeverityWarning},
	{"todo_comment", regexp.MustCompile(`(?i)#\s*TODO\b|//\s*TODO\b|/\*\s*TODO\b`), "TODO comment found", review.SeverityInfo},
	{"fixme_comment", regexp.MustCompile(`(?i)#\s*FIXME\b|//\s*FIXME\b|/\*\s*FIXME\b`), "FIXME comment found", review.SeverityWarning},
	{"hack_comment", regexp.MustCompile(`(?i)#\s*HACK\b|//\s*HACK\b|/\*\s*HACK\b`), "HACK comment found - technical debt indicator", review.SeverityWarning},
	{"hardcoded_password", regexp.MustCompile(`(?i)(?:password|passwd|pwd)\s*[=:]\s*["'][^"']+["']`), "Potential hardcoded password detected", review.SeverityError},
	{"hardcoded_secret", regexp.MustCompile(`(?i)(?:secret|api_key|apikey|token)\s*[=:]\s*["'][^"']+["']`), "Potential hardcoded secret/API key detected", review.SeverityError},
	{"debug_statement", regexp.MustCompile(`\bconsole\.log\(|print\s*\(|debugger\b`), "Debug statement found", review.SeverityInfo},
	{"empty_except", regexp.MustCompile(`except\s*:\s*\n\s*pass\b|except\s*:\s*\n\s*\.\.\.`), "Empty except block - may hide errors", review.SeverityWarning},
}

// digitsRe finds whole digit runs; magic numbers are runs of three or more
// digits starting with 2-9.
var digitsRe = regexp.MustCompile(`[0-9]+`)

var jsFunc = regexp.MustCompile(`(?m)^[ \t]*(?:async\s+)?(?:function\s+(\w+)|(\w+)\s*[=:]\s*(?:async\s+)?(?:function|\([^)]*\)\s*=>))`)

// Declarations are anchored with [ \t]* so a match never starts on a
// preceding blank line.
var functionPatterns = map[string]*regexp.Regexp{
	"Python":     regexp.MustCompile(`(?m)^[ \t]*(?:async\s+)?def\s+(\w+)\s*\(`),
	"JavaScript": jsFunc,
	"TypeScript": jsFunc,
	"Go":         regexp.MustCompile(`(?m)^[ \t]*func\s+(?:\([^)]+\)\s+)?(\w+)\s*\(`),
	"Java":       regexp.MustCompile(`(?m)^[ \t]*(?:(?:public|private|protected|static|final|synchronized)[ \t]+)+[\w<>\[\]]+[ \t]+(\w+)[ \t]*\(`),
}

// Complexity estimates cyclomatic complexity as one plus the number of
// branch, loop, exception and boolean keywords.
func Complexity(content string) int {
	n := 1
	for _, re := range complexityPatterns {
		n += len(re.FindAllStringIndex(content, -1))
	}
	return n
}

// FileIssues runs the pattern and long-function checks over one file.
func FileIssues(rel, content, language string) []Issue {
	var issues []Issue
	lines := newLineIndex(content)
	for _, r := range issueRules {
		for _, loc := range r.re.FindAllStringIndex(content, -1) {
			issues = append(issues, Issue{Path: rel, Line: lines.at(loc[0]), Kind: r.kind, Message: r.message, Severity: r.severity})
		}
	}
	for _, loc := range digitsRe.FindAllStringIndex(content, -1) {
		run := content[loc[0]:loc[1]]
		if len(run) >= 3 && run[0] >= '2' && run[0] <= '9' {
			issues = append(issues, Issue{
				Path: rel, Line: lines.at(loc[0]), Kind: "magic_number",
				Message:  "Magic number detected - consider using named constant",
				Severity: review.SeverityInfo,
			})
		}
	}
	return append(issues, longFunctions(rel, content, language, lines)...)
}

// longFunctions measures each function from its declaration to the next
// declaration or the end of the file.
func longFunctions(rel, content, language string, lines lineIndex) []Issue {
	re, ok := functionPatterns[language]
	if !ok {
		return nil
	}
	matches := re.FindAllStringSubmatchIndex(content, -1)
	var issues []Issue
	for i, m := range matches {
		name := firstGroup(content, m)
		if name == "" {
			continue
		}
		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		n := strings.Count(content[m[0]:end], "\n") + 1
		if n > LongFunctionLines {
			issues = append(issues, Issue{
				Path:     rel,
				Line:     lines.at(m[0]),
				Kind:     "long_function",
				Message:  fmt.Sprintf("Function '%s' has %d lines (threshold: %d)", name, n, LongFunctionLines),
				Severity: review.SeverityWarning,
			})
		}
	}
	return issues
}

func firstGroup(content string, m []int) string {
	for g := 2; g+1 < len(m); g += 2 {
		if m[g] >= 0 {
			return content[m[g]:m[g+1]]
		}
	}
	return ""
}

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex []int

func newLineIndex(content string) lineIndex {
	idx := lineIndex{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

func (l lineIndex) at(offset int) int {
	lo, hi := 0, len(l)
	for lo+1 < hi {
		mid := (lo + hi) / 2
		if l[mid] <= offset {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo + 1
}

// Score rates code from 0 to 100. Complexity above half a point per line
// costs up to 20 points; each issue costs 5, 2 or 0.5 by severity.
func Score(complexity, lines int, issues []Issue) float64 {
	if lines == 0 {
		return 100
	}
	score := 100.0
	if perLine := float64(complexity) / float64(lines); perLine > 0.5 {
		score -= min(20, (perLine-0.5)*40)
	}
	for _, is := range issues {
		switch is.Severity {
		case review.SeverityError:
			score -= 5
		case review.SeverityWarning:
			score -= 2
		default:
			score -= 0.5
		}
	}
	return max(0, min(100, score))
}

// Grade names a score band.
func Grade(score float64) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 75:
		return "Good"
	case score >= 60:
		return "Fair"
	case score >= 40:
		return "Needs Improvement"
	default:
		return "Poor"
	}
}

// AnalyzeQuality scores every source file below root, or root itself when
// it is a file. Excluded, hidden, empty, unknown-language and oversized files
// are skipped; maxBytes of zero disables the size limit.
func AnalyzeQuality(root string, exclude []string, maxBytes int64) (*QualityReport, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}

	var files []string
	if info.IsDir() {
		err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if p == abs {
				return nil
			}
			rel := filepath.ToSlash(mustRel(abs, p))
			if strings.HasPrefix(d.Name(), ".") || Excluded(rel, exclude) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && Language(rel) != Unknown {
				files = append(files, rel)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
	} else {
		files = []string{filepath.Base(abs)}
		abs = filepath.Dir(abs)
	}

	rep := &QualityReport{Path: root, Issues: []Issue{}}
	for _, rel := range files {
		full := filepath.Join(abs, filepath.FromSlash(rel))
		fi, err := os.Stat(full)
		if err != nil || (maxBytes > 0 && fi.Size() > maxBytes) {
			continue
		}
		data, err := os.ReadFile(full)
		if err != nil {
			continue
		}
		content := string(data)
		if content == "" {
			continue
		}
		n := len(strings.Split(strings.TrimSuffix(content, "\n"), "\n"))
		rep.Files++
		rep.Lines += n
		rep.Complexity += Complexity(content)
		rep.Issues = append(rep.Issues, FileIssues(rel, content, Language(rel))...)
	}

	rep.Score = Score(rep.Complexity, rep.Lines, rep.Issues)
	rep.Grade = Grade(rep.Score)
	rep.Summary = rep.summarize()
	return rep, nil
}

func mustRel(base, p string) string {
	rel, err := filepath.Rel(base, p)
	if err != nil {
		return p
	}
	return rel
}

// Count returns the number of issues at sev.
func (r *QualityReport) Count(sev review.Severity) int {
	n := 0
	for _, is := range r.Issues {
		if is.Severity == sev {
			n++
		}
	}
	return n
}

func (r *QualityReport) summarize() string {
	errs, warns, infos := r.Count(review.SeverityError), r.Count(review.SeverityWarning), r.Count(review.SeverityInfo)
	parts := []string{
		fmt.Sprintf("Quality Score: %.1f/100 (%s)", r.Score, r.Grade),
		fmt.Sprintf("Files Analyzed: %d", r.Files),
		fmt.Sprintf("Issues Found: %d total (%d errors, %d warnings, %d info)", len(r.Issues), errs, warns, infos),
	}
	if errs > 0 {
		parts = append(parts, "Critical issues require immediate attention, particularly potential security concerns.")
	}
	if warns > 5 {
		parts = append(parts, "Consider addressing the warnings to improve code maintainability.")
	}
	return strings.Join(parts, "\n")
}

// Markdown renders the quality report, most severe issues first.
func (r *QualityReport) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Quality: %s\n\n", r.Path)
	for _, line := range strings.Split(r.Summary, "\n") {
		fmt.Fprintf(&sb, "%s\n\n", line)
	}
	fmt.Fprintf(&sb, "Complexity: %d across %d lines\n", r.Complexity, r.Lines)

	for _, sev := range review.Severities {
		if r.Count(sev) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n## %s (%d)\n\n", sev.Label(), r.Count(sev))
		for _, is := range r.Issues {
			if is.Severity == sev {
				fmt.Fprintf(&sb, "- `%s:%d` %s\n", is.Path, is.Line, is.Message)
			}
		}
	}
	return sb.String()
}
