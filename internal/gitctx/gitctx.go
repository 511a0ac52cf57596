package gitctx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotRepository is returned when the source directory is not inside a git
// work tree.
var ErrNotRepository = errors.New("not a git repository")

// Scope selects which changes to diff. A non-empty Range wins over Staged.
type Scope struct {
	Staged bool
	Range  string
}

// Mode names the scope for logs and reports.
func (s Scope) Mode() string {
	switch {
	case s.Range != "":
		return "range"
	case s.Staged:
		return "staged"
	default:
		return "unstaged"
	}
}

// DiffOptions controls how diffs are gathered.
type DiffOptions struct {
	ContextLines int
	Include      []string
	Exclude      []string
}

// Source produces diffs by running git in Dir. An empty Dir means the
// current working directory.
type Source struct {
	Dir     string
	Options DiffOptions
}

// RepoMeta contains git repository metadata.
type RepoMeta struct {
	Root   string
	Head   string
	Branch string
}

// Diff returns the unified diff text for scope with excluded paths removed.
func (s *Source) Diff(ctx context.Context, scope Scope) (string, error) {
	if err := s.checkRepo(ctx); err != nil {
		return "", err
	}

	base := []string{"diff"}
	switch {
	case scope.Range != "":
		base = append(base, scope.Range)
	case scope.Staged:
		base = append(base, "--cached")
	}

	diff, err := s.git(ctx, append(base, s.pathArgs()...)...)
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(base, " "), err)
	}
	if len(s.Options.Exclude) > 0 {
		diff = filterExcluded(diff, s.Options.Exclude)
	}
	return diff, nil
}

// Meta collects repository metadata. Head and Branch are empty in a
// repository without commits.
func (s *Source) Meta(ctx context.Context) (RepoMeta, error) {
	root, err := s.git(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return RepoMeta{}, fmt.Errorf("%w: %v", ErrNotRepository, err)
	}
	head, _ := s.git(ctx, "rev-parse", "HEAD")
	branch, _ := s.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	return RepoMeta{
		Root:   strings.TrimSpace(root),
		Head:   strings.TrimSpace(head),
		Branch: strings.TrimSpace(branch),
	}, nil
}

// HooksDir returns the absolute hooks directory, honoring core.hooksPath and
// linked worktrees.
func (s *Source) HooksDir(ctx context.Context) (string, error) {
	if err := s.checkRepo(ctx); err != nil {
		return "", err
	}
	out, err := s.git(ctx, "rev-parse", "--git-path", "hooks")
	if err != nil {
		return "", fmt.Errorf("locating hooks directory: %w", err)
	}
	dir := filepath.FromSlash(strings.TrimSpace(out))
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(s.Dir, dir)
	}
	return filepath.Abs(dir)
}

// Files lists the tracked files of the repository, relative to Dir, in git's
// order.
func (s *Source) Files(ctx context.Context) ([]string, error) {
	if err := s.checkRepo(ctx); err != nil {
		return nil, err
	}
	out, err := s.git(ctx, "ls-files", "-z")
	if err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}
	var files []string
	for _, f := range strings.Split(out, "\x00") {
		if f != "" {
			files = append(files, f)
		}
	}
	return files, nil
}

// Commit is one entry of the history.
type Commit struct {
	Hash      string    `json:"hash"`
	ShortHash string    `json:"shortHash"`
	Author    string    `json:"author"`
	Date      time.Time `json:"date"`
	Message   string    `json:"message"`
}

// RecentCommits returns up to n commits reachable from HEAD, newest first. A
// repository without commits yields none.
func (s *Source) RecentCommits(ctx context.Context, n int) ([]Commit, error) {
	if err := s.checkRepo(ctx); err != nil {
		return nil, err
	}
	if _, err := s.git(ctx, "rev-parse", "--verify", "-q", "HEAD"); err != nil {
		return nil, nil
	}
	out, err := s.git(ctx, "log", fmt.Sprintf("-n%d", n), "--format=%H%x1f%h%x1f%an%x1f%aI%x1f%s")
	if err != nil {
		return nil, fmt.Errorf("git log: %w", err)
	}
	return parseLog(out), nil
}

func parseLog(out string) []Commit {
	var commits []Commit
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		fields := strings.Split(line, "\x1f")
		if len(fields) != 5 {
			continue
		}
		date, _ := time.Parse(time.RFC3339, fields[3])
		commits = append(commits, Commit{
			Hash:      fields[0],
			ShortHash: fields[1],
			Author:    fields[2],
			Date:      date,
			Message:   fields[4],
		})
	}
	return commits
}

// ReadFiles loads the working-tree contents of paths relative to Dir. Files
// that are excluded, missing, larger than maxBytes, or binary are skipped.
// A maxBytes of zero disables the size check.
func (s *Source) ReadFiles(paths []string, maxBytes int64) map[string]string {
	files := make(map[string]string, len(paths))
	for _, p := range paths {
		if MatchesAny(p, s.Options.Exclude) {
			continue
		}
		full := filepath.Join(s.Dir, filepath.FromSlash(p))
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			continue
		}
		if maxBytes > 0 && info.Size() > maxBytes {
			continue
		}
		data, err := os.ReadFile(full)
		if err != nil || bytes.IndexByte(data, 0) >= 0 {
			continue
		}
		files[p] = string(data)
	}
	return files
}

func (s *Source) checkRepo(ctx context.Context) error {
	out, err := s.git(ctx, "rev-parse", "--is-inside-work-tree")
	if err != nil || strings.TrimSpace(out) != "true" {
		dir := s.Dir
		if dir == "" {
			dir = "."
		}
		return fmt.Errorf("%w: %s", ErrNotRepository, dir)
	}
	return nil
}

func (s *Source) pathArgs() []string {
	var args []string
	if s.Options.ContextLines > 0 {
		args = append(args, fmt.Sprintf("-U%d", s.Options.ContextLines))
	}
	args = append(args, "--")
	for _, p := range s.Options.Include {
		if p != "**/*" {
			args = append(args, p)
		}
	}
	return args
}

func (s *Source) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = s.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return string(out), fmt.Errorf("%w: %s", err, msg)
		}
		return string(out), err
	}
	return string(out), nil
}

func filterExcluded(diff string, excludes []string) string {
	var kept []string
	for _, section := range splitDiffSections(diff) {
		path := sectionPath(section)
		if path == "" || !MatchesAny(path, excludes) {
			kept = append(kept, section)
		}
	}
	return strings.Join(kept, "")
}

func splitDiffSections(diff string) []string {
	var sections []string
	var current strings.Builder
	for _, line := range strings.SplitAfter(diff, "\n") {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "diff --git ") && current.Len() > 0 {
			sections = append(sections, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		sections = append(sections, current.String())
	}
	return sections
}

// sectionPath reads the post-image path of a diff section, falling back to
// the pre-image path for deletions.
func sectionPath(section string) string {
	var oldPath string
	for _, line := range strings.Split(section, "\n") {
		switch {
		case strings.HasPrefix(line, "+++ b/"):
			return strings.TrimPrefix(line, "+++ b/")
		case strings.HasPrefix(line, "--- a/"):
			oldPath = strings.TrimPrefix(line, "--- a/")
		}
	}
	return oldPath
}

// MatchesAny reports whether path matches one of the glob patterns. A
// leading "**/" also matches the base name or the path at any depth.
func MatchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, path); err == nil && ok {
			return true
		}
		clean, found := strings.CutPrefix(pattern, "**/")
		if !found {
			continue
		}
		if ok, err := filepath.Match(clean, filepath.Base(path)); err == nil && ok {
			return true
		}
		if ok, err := filepath.Match(clean, path); err == nil && ok {
			return true
		}
	}
	return false
}
