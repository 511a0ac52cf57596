package redact

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/dshills/sherpa/internal/diffparse"
)

const placeholder = "[REDACTED]"

// pathPlaceholder replaces the body of every hunk in a path-redacted file.
const pathPlaceholder = "+" + placeholder + " (file content redacted by path policy)"

type rule struct {
	name string
	re   *regexp.Regexp
}

// rules are ordered so that specific token shapes win over generic
// assignments.
var rules = []rule{
	{"anthropic-key", regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`)},
	{"openai-key", regexp.MustCompile(`sk-(?:proj-)?[A-Za-z0-9]{20,}`)},
	{"github-token", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`)},
	{"slack-token", regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`)},
	{"google-api-key", regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`)},
	{"aws-access-key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"aws-secret-key", regexp.MustCompile(`(?i)aws[_-]?secret[_-]?access[_-]?key\s*[:=]\s*["']?[A-Za-z0-9/+=]{40}["']?`)},
	{"private-key", regexp.MustCompile(`-----BEGIN\s+(?:RSA\s+|EC\s+|OPENSSH\s+)?PRIVATE KEY-----`)},
	{"jwt", regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`)},
	{"bearer-token", regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`)},
	{"connection-string", regexp.MustCompile(`(?i)\b[a-z][a-z0-9+.-]*://[^\s:/@]+:[^\s@/]+@[^\s]+`)},
	{"api-key-assignment", regexp.MustCompile(`(?i)(?:api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?[A-Za-z0-9/+=_-]{20,}["']?`)},
	{"secret-assignment", regexp.MustCompile(`(?i)(?:secret|token|password|passwd|credential)\s*[:=]\s*["'][^"']{8,}["']`)},
	{"hex-secret", regexp.MustCompile(`(?i)(?:key|secret|token)\s*[:=]\s*["']?[0-9a-f]{32,}["']?`)},
}

// Report counts what was masked.
type Report struct {
	// Matches maps rule name to the number of replacements.
	Matches map[string]int
	// Files lists paths masked by path policy, sorted.
	Files []string
}

// Total returns the number of secret replacements across all rules.
func (r Report) Total() int {
	n := 0
	for _, c := range r.Matches {
		n += c
	}
	return n
}

// Empty reports whether nothing was masked.
func (r Report) Empty() bool {
	return r.Total() == 0 && len(r.Files) == 0
}

func (r *Report) add(name string, n int) {
	if n == 0 {
		return
	}
	if r.Matches == nil {
		r.Matches = map[string]int{}
	}
	r.Matches[name] += n
}

// Secrets replaces detected secrets in text with [REDACTED].
func Secrets(text string) string {
	out, _ := secrets(text)
	return out
}

func secrets(text string) (string, Report) {
	var rep Report
	for _, r := range rules {
		n := 0
		text = r.re.ReplaceAllStringFunc(text, func(string) string {
			n++
			return placeholder
		})
		rep.add(r.name, n)
	}
	return text, rep
}

// ShouldRedactPath reports whether path matches any pattern. A leading "**/"
// lets a pattern match the base name at any depth.
func ShouldRedactPath(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, path); err == nil && ok {
			return true
		}
		if rest, found := strings.CutPrefix(pattern, "**/"); found {
			if ok, err := filepath.Match(rest, filepath.Base(path)); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// Diff returns a copy of pd with secrets masked in the raw text and in every
// hunk. Files matching redactPaths lose their hunk bodies entirely. Stats
// are carried over from pd unchanged.
func Diff(pd *diffparse.ParsedDiff, redactPaths []string) (*diffparse.ParsedDiff, Report) {
	var rep Report
	out := &diffparse.ParsedDiff{
		Files:    make([]diffparse.FileDiff, len(pd.Files)),
		Stats:    pd.Stats,
		Warnings: pd.Warnings,
	}

	for i, f := range pd.Files {
		f.Hunks = append([]diffparse.Hunk(nil), f.Hunks...)
		if ShouldRedactPath(f.Path, redactPaths) {
			rep.Files = append(rep.Files, f.Path)
			for j := range f.Hunks {
				f.Hunks[j].Content = pathPlaceholder
			}
		} else {
			for j := range f.Hunks {
				masked, r := secrets(f.Hunks[j].Content)
				f.Hunks[j].Content = masked
				for name, n := range r.Matches {
					rep.add(name, n)
				}
			}
		}
		out.Files[i] = f
	}
	sort.Strings(rep.Files)

	out.Raw = redactRaw(pd.Raw, redactPaths)
	return out, rep
}

var headerRe = regexp.MustCompile(`^diff --git a/.* b/(.*)$`)

// redactRaw walks the raw diff line by line. Inside a path-redacted file each
// hunk header is kept and its body collapsed to one placeholder line.
func redactRaw(raw string, redactPaths []string) string {
	if raw == "" {
		return ""
	}
	lines := strings.Split(raw, "\n")
	kept := make([]string, 0, len(lines))
	masking, inHunk := false, false
	for _, line := range lines {
		trimmed := strings.TrimSuffix(line, "\r")
		if m := headerRe.FindStringSubmatch(trimmed); m != nil {
			masking = ShouldRedactPath(m[1], redactPaths)
			inHunk = false
			kept = append(kept, line)
			continue
		}
		if masking {
			if strings.HasPrefix(trimmed, "@@") {
				inHunk = true
				kept = append(kept, line, pathPlaceholder)
				continue
			}
			if inHunk {
				continue
			}
			kept = append(kept, line)
			continue
		}
		kept = append(kept, Secrets(line))
	}
	return strings.Join(kept, "\n")
}
