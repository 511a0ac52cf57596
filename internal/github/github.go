package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/dshills/sherpa/internal/diffparse"
	"github.com/dshills/sherpa/internal/review"
)

const defaultAPIURL = "https://api.github.com"

// ErrUnauthorized is returned when the token is missing or rejected.
var ErrUnauthorized = errors.New("github authentication failed")

// Repo identifies a GitHub repository.
type Repo struct {
	Owner string
	Name  string
}

func (r Repo) String() string { return r.Owner + "/" + r.Name }

// Client talks to the GitHub REST API.
type Client struct {
	token   string
	apiURL  string
	httpCli *http.Client
}

// NewClient reads GITHUB_TOKEN and, for GitHub Enterprise, GITHUB_API_URL.
func NewClient() (*Client, error) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("%w: GITHUB_TOKEN environment variable is not set", ErrUnauthorized)
	}
	apiURL := os.Getenv("GITHUB_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &Client{
		token:   token,
		apiURL:  strings.TrimRight(apiURL, "/"),
		httpCli: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// PullDiff returns the unified diff of pull request number.
func (c *Client) PullDiff(ctx context.Context, repo Repo, number int) (string, error) {
	path := fmt.Sprintf("/repos/%s/pulls/%d", repo, number)
	body, err := c.do(ctx, http.MethodGet, path, "application/vnd.github.v3.diff", nil)
	if err != nil {
		return "", fmt.Errorf("fetching PR #%d diff: %w", number, err)
	}
	return string(body), nil
}

// PostReview submits r as a pull request review.
func (c *Client) PostReview(ctx context.Context, repo Repo, number int, r Review) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling review: %w", err)
	}
	path := fmt.Sprintf("/repos/%s/pulls/%d/reviews", repo, number)
	if _, err := c.do(ctx, http.MethodPost, path, "application/vnd.github.v3+json", payload); err != nil {
		return fmt.Errorf("posting review to PR #%d: %w", number, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, accept string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", accept)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, strings.TrimSpace(string(body)))
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("not found: %s", path)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("GitHub API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// InlineComment is a review comment anchored to a line of the new file.
type InlineComment struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Side string `json:"side"`
	Body string `json:"body"`
}

// Review is the payload of a pull request review.
type Review struct {
	Body     string          `json:"body"`
	Event    string          `json:"event"`
	Comments []InlineComment `json:"comments"`
}

// BuildReview converts a review result into a GitHub review. Comments whose
// line falls inside a hunk of pd become inline comments; the rest are listed
// in the review body.
func BuildReview(res *review.Result, pd *diffparse.ParsedDiff) Review {
	var inline []InlineComment
	var general []string
	for _, c := range res.Comments() {
		if c.HasLine() && commentable(pd, c.File, *c.Line) {
			inline = append(inline, InlineComment{
				Path: c.File,
				Line: *c.Line,
				Side: "RIGHT",
				Body: inlineBody(c),
			})
			continue
		}
		general = append(general, generalBody(c))
	}

	var sb strings.Builder
	sb.WriteString("## code-sherpa review\n\n")
	sb.WriteString("| Severity | Count |\n|----------|-------|\n")
	for _, sev := range review.Severities {
		fmt.Fprintf(&sb, "| %s | %d |\n", sev.Label(), res.Count(sev))
	}
	sb.WriteString("\n")

	for _, ar := range res.AgentReviews {
		switch {
		case ar.Failed:
			fmt.Fprintf(&sb, "**%s**: failed\n\n", ar.AgentName)
		case ar.Summary != "":
			fmt.Fprintf(&sb, "**%s**: %s\n\n", ar.AgentName, ar.Summary)
		}
	}
	if len(general) > 0 {
		sb.WriteString("### General Comments\n\n")
		sb.WriteString(strings.Join(general, "\n"))
		sb.WriteString("\n\n")
	}
	if res.Summary != "" {
		sb.WriteString("### Overall Summary\n\n")
		sb.WriteString(res.Summary)
		sb.WriteString("\n")
	}

	return Review{
		Body:     sb.String(),
		Event:    "COMMENT",
		Comments: inline,
	}
}

// commentable reports whether line is on the new side of a hunk in path.
func commentable(pd *diffparse.ParsedDiff, path string, line int) bool {
	if pd == nil {
		return false
	}
	for _, f := range pd.Files {
		if f.Path != path || f.ChangeType == diffparse.Deleted {
			continue
		}
		for _, h := range f.Hunks {
			if line >= h.NewStart && line < h.NewStart+h.NewCount {
				return true
			}
		}
	}
	return false
}

func inlineBody(c review.Comment) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**[%s]** %s", c.Severity.Label(), c.Message)
	if c.Agent != "" {
		fmt.Fprintf(&sb, "\n\n*%s*", c.Agent)
	}
	if c.Suggestion != "" {
		fmt.Fprintf(&sb, "\n\n**Suggestion:** %s", c.Suggestion)
	}
	return sb.String()
}

func generalBody(c review.Comment) string {
	line := fmt.Sprintf("- **[%s]** `%s`: %s", c.Severity.Label(), c.Location(), c.Message)
	if c.Suggestion != "" {
		line += " *Suggestion: " + c.Suggestion + "*"
	}
	return line
}

var (
	httpsRemoteRe = regexp.MustCompile(`^https?://[^/]+/([^/]+)/([^/\s]+?)/?$`)
	sshRemoteRe   = regexp.MustCompile(`^(?:ssh://)?[^@]+@[^:/]+[:/]([^/]+)/([^/\s]+?)/?$`)
)

// DetectRepo reads owner and name from the origin remote of the repository
// in dir.
func DetectRepo(ctx context.Context, dir string) (Repo, error) {
	cmd := exec.CommandContext(ctx, "git", "remote", "get-url", "origin")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return Repo{}, fmt.Errorf("cannot detect repo: git remote get-url origin failed: %w", err)
	}
	return ParseRemote(strings.TrimSpace(string(out)))
}

// ParseRemote extracts owner and name from an HTTPS or SSH remote URL.
func ParseRemote(url string) (Repo, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(url), ".git")
	for _, re := range []*regexp.Regexp{httpsRemoteRe, sshRemoteRe} {
		if m := re.FindStringSubmatch(trimmed); m != nil {
			return Repo{Owner: m[1], Name: m[2]}, nil
		}
	}
	return Repo{}, fmt.Errorf("cannot parse owner/repo from remote URL: %s", url)
}
