package analyze

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/sherpa/internal/gitctx"
	"github.com/dshills/sherpa/internal/llm"
	"github.com/dshills/sherpa/internal/prompt"
)

// recentCommits is how much history goes into the summary prompt.
const recentCommits = 10

// LanguageStats is the share of one language in a repository.
type LanguageStats struct {
	Language   string  `json:"language"`
	Files      int     `json:"files"`
	Lines      int     `json:"lines"`
	Percentage float64 `json:"percentage"`
}

// RepoSummary is the result of Summarizer.Summarize.
type RepoSummary struct {
	Name          string          `json:"name"`
	Path          string          `json:"path"`
	TotalFiles    int             `json:"totalFiles"`
	TotalLines    int             `json:"totalLines"`
	Languages     []LanguageStats `json:"languages"`
	RecentCommits []gitctx.Commit `json:"recentCommits"`
	Summary       string          `json:"summary"`
}

// Summarizer describes a whole repository with the model's help.
type Summarizer struct {
	Client  llm.Client
	Source  *gitctx.Source
	Exclude []string
}

// Summarize gathers file, language and history statistics for the
// repository and asks the model for an overview.
func (s *Summarizer) Summarize(ctx context.Context) (*RepoSummary, error) {
	meta, err := s.Source.Meta(ctx)
	if err != nil {
		return nil, err
	}
	files, err := s.Source.Files(ctx)
	if err != nil {
		return nil, err
	}
	commits, err := s.Source.RecentCommits(ctx, recentCommits)
	if err != nil {
		return nil, err
	}

	sum := &RepoSummary{
		Name:          filepath.Base(meta.Root),
		Path:          meta.Root,
		Languages:     []LanguageStats{},
		RecentCommits: commits,
	}
	if sum.RecentCommits == nil {
		sum.RecentCommits = []gitctx.Commit{}
	}

	byLang := map[string]*LanguageStats{}
	for _, f := range files {
		if Excluded(f, s.Exclude) {
			continue
		}
		n := fileLines(filepath.Join(s.Source.Dir, filepath.FromSlash(f)))
		lang := Language(f)
		if lang == Unknown {
			lang = "Other"
		}
		st, ok := byLang[lang]
		if !ok {
			st = &LanguageStats{Language: lang}
			byLang[lang] = st
		}
		st.Files++
		st.Lines += n
		sum.TotalFiles++
		sum.TotalLines += n
	}
	for _, st := range byLang {
		if sum.TotalLines > 0 {
			st.Percentage = float64(st.Lines) / float64(sum.TotalLines) * 100
		}
		sum.Languages = append(sum.Languages, *st)
	}
	sort.Slice(sum.Languages, func(i, j int) bool {
		a, b := sum.Languages[i], sum.Languages[j]
		if a.Percentage != b.Percentage {
			return a.Percentage > b.Percentage
		}
		return a.Language < b.Language
	})

	p, err := prompt.Load("analyze/repo_summary", map[string]any{
		"Name":          sum.Name,
		"TotalFiles":    sum.TotalFiles,
		"TotalLines":    sum.TotalLines,
		"Languages":     formatLanguages(sum.Languages),
		"RecentCommits": formatCommits(sum.RecentCommits),
	})
	if err != nil {
		return nil, err
	}
	answer, err := s.Client.Complete(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("summarizing repository: %w", err)
	}
	sum.Summary = strings.TrimSpace(answer)
	return sum, nil
}

// fileLines counts newline-terminated lines plus a trailing partial line.
// Unreadable files count as zero.
func fileLines(path string) int {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return 0
	}
	n := bytes.Count(data, []byte("\n"))
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}

func formatLanguages(langs []LanguageStats) string {
	if len(langs) == 0 {
		return "None detected."
	}
	parts := make([]string, len(langs))
	for i, l := range langs {
		parts[i] = fmt.Sprintf("%s: %.1f%%", l.Language, l.Percentage)
	}
	return strings.Join(parts, ", ")
}

func formatCommits(commits []gitctx.Commit) string {
	if len(commits) == 0 {
		return "No commits found."
	}
	lines := make([]string, len(commits))
	for i, c := range commits {
		lines[i] = fmt.Sprintf("- [%s] %s: %s", c.ShortHash, c.Date.Format("2006-01-02"), c.Message)
	}
	return strings.Join(lines, "\n")
}

// Markdown renders the repository summary.
func (r *RepoSummary) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Repository: %s\n\n", r.Name)
	fmt.Fprintf(&sb, "**Files:** %d | **Lines:** %d\n\n", r.TotalFiles, r.TotalLines)

	if len(r.Languages) > 0 {
		sb.WriteString("## Languages\n\n| Language | Files | Lines | Share |\n|----------|-------|-------|-------|\n")
		for _, l := range r.Languages {
			fmt.Fprintf(&sb, "| %s | %d | %d | %.1f%% |\n", l.Language, l.Files, l.Lines, l.Percentage)
		}
		sb.WriteString("\n")
	}
	if len(r.RecentCommits) > 0 {
		sb.WriteString("## Recent Commits\n\n")
		sb.WriteString(formatCommits(r.RecentCommits))
		sb.WriteString("\n\n")
	}
	sb.WriteString("## Summary\n\n")
	sb.WriteString(r.Summary)
	sb.WriteString("\n")
	return sb.String()
}
