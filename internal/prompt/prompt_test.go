package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNames(t *testing.T) {
	want := []string{
		"analyze/file_explain",
		"analyze/repo_summary",
		"review/architect",
		"review/junior",
		"review/performance",
		"review/security",
		"review/summary",
	}
	if diff := cmp.Diff(want, Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_AgentTemplates(t *testing.T) {
	vars := map[string]any{
		"Diff":        "+added line",
		"FileContext": "### main.go\n```\npackage main\n```",
	}
	for _, name := range []string{"review/architect", "review/security", "review/performance", "review/junior"} {
		t.Run(name, func(t *testing.T) {
			got, err := Load(name, vars)
			if err != nil {
				t.Fatalf("Load(%q) error: %v", name, err)
			}
			if !strings.Contains(got, "+added line") {
				t.Error("rendered prompt should contain the diff")
			}
			if !strings.Contains(got, "### main.go") {
				t.Error("rendered prompt should contain the file context")
			}
			if !strings.Contains(got, `"severity"`) {
				t.Error("rendered prompt should describe the response format")
			}
		})
	}
}

func TestLoad_Summary(t *testing.T) {
	got, err := Load("review/summary", map[string]any{
		"FilesChanged": 3,
		"Additions":    7,
		"Deletions":    4,
		"AgentReviews": "### security\n\n*No issues found.*",
	})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	for _, want := range []string{"Files changed: 3", "Additions: 7", "Deletions: 4", "*No issues found.*"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary prompt missing %q", want)
		}
	}
}

func TestLoad_AnalyzeTemplates(t *testing.T) {
	got, err := Load("analyze/file_explain", map[string]any{
		"Path": "cmd/main.go", "Language": "Go", "Lines": 12, "Content": "package main",
	})
	if err != nil {
		t.Fatalf("Load(file_explain) error: %v", err)
	}
	for _, want := range []string{"Path: cmd/main.go", "Language: Go", "Lines: 12", "package main", "### Purpose", "### Key Elements"} {
		if !strings.Contains(got, want) {
			t.Errorf("file_explain prompt missing %q", want)
		}
	}

	got, err = Load("analyze/repo_summary", map[string]any{
		"Name": "sherpa", "TotalFiles": 40, "TotalLines": 5000,
		"Languages": "Go: 90.0%", "RecentCommits": "- [abc123] 2024-05-01: init",
	})
	if err != nil {
		t.Fatalf("Load(repo_summary) error: %v", err)
	}
	for _, want := range []string{`"sherpa"`, "Files: 40", "Lines: 5000", "Go: 90.0%", "[abc123]"} {
		if !strings.Contains(got, want) {
			t.Errorf("repo_summary prompt missing %q", want)
		}
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load("review/nope", nil)
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("err = %v, want ErrTemplateNotFound", err)
	}
}

func TestLoad_MissingVariable(t *testing.T) {
	_, err := Load("review/security", map[string]any{"Diff": "x"})
	if err == nil {
		t.Fatal("expected error for missing FileContext")
	}
	if errors.Is(err, ErrTemplateNotFound) {
		t.Error("missing variable should not be reported as a missing template")
	}
}
