package analyze

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dshills/sherpa/internal/llm"
	"github.com/dshills/sherpa/internal/prompt"
	"github.com/dshills/sherpa/internal/redact"
)

// ErrTooLarge is returned for files above the configured size limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// ErrRedactedPath is returned for files that the privacy policy keeps away
// from the model.
var ErrRedactedPath = errors.New("file is excluded by privacy.redact_paths")

// Explanation describes one source file.
type Explanation struct {
	Path        string   `json:"path"`
	Language    string   `json:"language"`
	Lines       int      `json:"lines"`
	Purpose     string   `json:"purpose"`
	KeyElements []string `json:"keyElements"`
	Explanation string   `json:"explanation"`
}

// Explainer asks the model to explain files.
type Explainer struct {
	Client   llm.Client
	MaxBytes int64
	// Redact masks secrets in the file before it is sent. RedactPaths
	// refuses matching files outright.
	Redact      bool
	RedactPaths []string
}

// Explain reads the file at path and returns the model's explanation.
func (e *Explainer) Explain(ctx context.Context, path string) (*Explanation, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if e.MaxBytes > 0 && info.Size() > e.MaxBytes {
		return nil, fmt.Errorf("%w: %s is %.1fKB, limit %dKB", ErrTooLarge, path, float64(info.Size())/1024, e.MaxBytes/1024)
	}
	slash := filepath.ToSlash(path)
	if e.Redact && redact.ShouldRedactPath(slash, e.RedactPaths) {
		return nil, fmt.Errorf("%w: %s", ErrRedactedPath, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content := string(data)
	if e.Redact {
		content = redact.Secrets(content)
	}
	lang := Language(slash)
	lines := countLines(content)

	p, err := prompt.Load("analyze/file_explain", map[string]any{
		"Path":     slash,
		"Language": lang,
		"Lines":    lines,
		"Content":  content,
	})
	if err != nil {
		return nil, err
	}
	answer, err := e.Client.Complete(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("explaining %s: %w", path, err)
	}

	return &Explanation{
		Path:        slash,
		Language:    lang,
		Lines:       lines,
		Purpose:     purposeOf(answer),
		KeyElements: bulletsOf(section(answer, "Key Elements")),
		Explanation: strings.TrimSpace(answer),
	}, nil
}

func countLines(content string) int {
	if content == "" {
		return 0
	}
	return len(strings.Split(strings.TrimSuffix(content, "\n"), "\n"))
}

var (
	headingRe = regexp.MustCompile(`^#{1,6}\s*(.*?)\s*:?\s*$`)
	bulletRe  = regexp.MustCompile(`^\s*[-*]\s*(.+)$`)
)

// section returns the body under the heading named title, up to the next
// heading. A bare "Title" line also counts as a heading.
func section(text, title string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		name := trimmed
		if m := headingRe.FindStringSubmatch(trimmed); m != nil {
			name = m[1]
		}
		if !strings.EqualFold(strings.TrimSuffix(name, ":"), title) {
			continue
		}
		var body []string
		for _, next := range lines[i+1:] {
			if strings.HasPrefix(strings.TrimSpace(next), "#") {
				break
			}
			body = append(body, next)
		}
		return strings.TrimSpace(strings.Join(body, "\n"))
	}
	return ""
}

// purposeOf returns the Purpose section, or the first paragraph.
func purposeOf(answer string) string {
	if p := section(answer, "Purpose"); p != "" {
		return p
	}
	first, _, _ := strings.Cut(strings.TrimSpace(answer), "\n\n")
	return strings.TrimSpace(first)
}

func bulletsOf(body string) []string {
	items := []string{}
	for _, line := range strings.Split(body, "\n") {
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			if item := strings.TrimSpace(m[1]); item != "" {
				items = append(items, item)
			}
		}
	}
	return items
}

// Markdown renders the explanation.
func (x *Explanation) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", x.Path)
	fmt.Fprintf(&sb, "**Language:** %s | **Lines:** %d\n\n", x.Language, x.Lines)
	sb.WriteString(x.Explanation)
	sb.WriteString("\n")
	return sb.String()
}
