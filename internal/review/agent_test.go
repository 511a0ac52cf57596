package review

import (
	"context"
	"strings"
	"testing"

	"github.com/dshills/sherpa/internal/diffparse"
	"github.com/google/go-cmp/cmp"
)

func intPtr(n int) *int { return &n }

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantKind    responseKind
		wantComment []Comment
		wantSummary string
	}{
		{
			name:        "blank",
			input:       "  \n ",
			wantKind:    responseEmpty,
			wantComment: []Comment{},
		},
		{
			name:     "fenced object",
			input:    "Here you go:\n```json\n{\"comments\":[{\"file\":\"a.go\",\"line\":7,\"severity\":\"Warning\",\"category\":\"naming\",\"message\":\"rename\",\"suggestion\":\"use n\"}],\"summary\":\"ok\"}\n```\nThanks",
			wantKind: responseStructured,
			wantComment: []Comment{{
				Agent: "junior", File: "a.go", Line: intPtr(7), Severity: SeverityWarning,
				Category: "naming", Message: "rename", Suggestion: "use n",
			}},
			wantSummary: "ok",
		},
		{
			name:     "bare list with defaults",
			input:    `[{"message":"no file"}, "not an object", {"severity":"critical","line":"12","file":"b.go"}]`,
			wantKind: responseStructured,
			wantComment: []Comment{
				{Agent: "junior", File: "unknown", Severity: SeverityInfo, Category: "general", Message: "no file"},
				{Agent: "junior", File: "b.go", Line: intPtr(12), Severity: SeverityInfo, Category: "general"},
			},
		},
		{
			name:        "empty list means no issues",
			input:       "[]",
			wantKind:    responseStructured,
			wantComment: []Comment{},
		},
		{
			name:        "empty comments object means no issues",
			input:       `{"comments":[]}`,
			wantKind:    responseStructured,
			wantComment: []Comment{},
		},
		{
			name:     "list of strings falls back",
			input:    `["SQL injection in handler.go line 12", "missing input validation"]`,
			wantKind: responseFallback,
			wantComment: []Comment{
				{Agent: "junior", File: "general", Severity: SeverityInfo, Category: "general",
					Message: `["SQL injection in handler.go line 12", "missing input validation"]`},
			},
		},
		{
			name:     "comments as string falls back",
			input:    `{"comments": "none found, but handler.go leaks the token"}`,
			wantKind: responseFallback,
			wantComment: []Comment{
				{Agent: "junior", File: "general", Severity: SeverityInfo, Category: "general",
					Message: `{"comments": "none found, but handler.go leaks the token"}`},
			},
		},
		{
			name:     "undecodable comments keep summary",
			input:    `{"comments": ["token logged"], "summary": "One leak."}`,
			wantKind: responseFallback,
			wantComment: []Comment{
				{Agent: "junior", File: "general", Severity: SeverityInfo, Category: "general",
					Message: `{"comments": ["token logged"], "summary": "One leak."}`},
			},
			wantSummary: "One leak.",
		},
		{
			name:        "summary only object",
			input:       `{"summary":"Nothing to report."}`,
			wantKind:    responseStructured,
			wantComment: []Comment{},
			wantSummary: "Nothing to report.",
		},
		{
			name:     "invalid json falls back",
			input:    "[not json at all",
			wantKind: responseFallback,
			wantComment: []Comment{
				{Agent: "junior", File: "general", Severity: SeverityInfo, Category: "general", Message: "[not json at all"},
			},
		},
		{
			name:     "unrecognized object falls back",
			input:    `{"verdict":"fine"}`,
			wantKind: responseFallback,
			wantComment: []Comment{
				{Agent: "junior", File: "general", Severity: SeverityInfo, Category: "general", Message: `{"verdict":"fine"}`},
			},
		},
		{
			name:     "prose with summary section",
			input:    "The code looks reasonable.\n\n## Summary\nMinor naming issues only.\n\n## Details\nmore",
			wantKind: responseFallback,
			wantComment: []Comment{
				{Agent: "junior", File: "general", Severity: SeverityInfo, Category: "general",
					Message: "The code looks reasonable.\n\n## Summary\nMinor naming issues only.\n\n## Details\nmore"},
			},
			wantSummary: "Minor naming issues only.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseResponse("junior", tt.input)
			if got.kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", got.kind, tt.wantKind)
			}
			if diff := cmp.Diff(tt.wantComment, got.comments); diff != "" {
				t.Errorf("comments mismatch (-want +got):\n%s", diff)
			}
			if got.summary != tt.wantSummary {
				t.Errorf("summary = %q, want %q", got.summary, tt.wantSummary)
			}
		})
	}
}

func TestExtractSummary_CaseInsensitive(t *testing.T) {
	if got := extractSummary("SUMMARY: all good"); got != "all good" {
		t.Errorf("extractSummary = %q, want %q", got, "all good")
	}
	if got := extractSummary("no heading here"); got != "" {
		t.Errorf("extractSummary = %q, want empty", got)
	}
}

func TestAgent_DefaultSummary(t *testing.T) {
	a := &llmAgent{perspective: performancePerspective}
	if got := a.defaultSummary(nil); got != "No notable issues from the performance perspective." {
		t.Errorf("empty summary = %q", got)
	}

	comments := []Comment{
		{Severity: SeverityInfo}, {Severity: SeverityError}, {Severity: SeverityInfo},
	}
	want := "Performance review: critical performance issues 1, optimization suggestions 2"
	if got := a.defaultSummary(comments); got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}

func TestAgent_ReviewLLMFailure(t *testing.T) {
	reg := NewRegistry()
	a, err := reg.Get("security", &fakeClient{err: errBoom})
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	ar, err := a.Review(context.Background(), diffparse.Parse(threeFileDiff), nil)
	if err != nil {
		t.Fatalf("LLM failure should not be returned as an error: %v", err)
	}
	if ar.Summary != "review failed: boom" || !ar.Failed || len(ar.Comments) != 0 {
		t.Errorf("review = %+v", ar)
	}
}

func TestAgent_ReviewUsesDefaultSummary(t *testing.T) {
	a, _ := NewRegistry().Get("architect", &fakeClient{fallback: "```json\n[]\n```"})
	ar, err := a.Review(context.Background(), diffparse.Parse(threeFileDiff), nil)
	if err != nil {
		t.Fatalf("Review error: %v", err)
	}
	if ar.Summary != "No notable issues from the architecture perspective." {
		t.Errorf("Summary = %q", ar.Summary)
	}
}

func TestAgent_ReviewKeepsUnstructuredJSON(t *testing.T) {
	reply := `["SQL injection in handler.go line 12", "missing input validation"]`
	a, _ := NewRegistry().Get("security", &fakeClient{fallback: reply})
	ar, err := a.Review(context.Background(), diffparse.Parse(threeFileDiff), nil)
	if err != nil {
		t.Fatalf("Review error: %v", err)
	}
	if len(ar.Comments) != 1 || ar.Comments[0].File != "general" || ar.Comments[0].Message != reply {
		t.Fatalf("comments = %+v, want the raw reply as one general comment", ar.Comments)
	}
	if strings.Contains(ar.Summary, "No notable issues") {
		t.Errorf("Summary = %q, should not claim a clean review", ar.Summary)
	}
}

func TestAgent_PromptContents(t *testing.T) {
	client := &fakeClient{fallback: "[]"}
	a, _ := NewRegistry().Get("performance", client)
	rc := &Context{Files: map[string]string{"z.go": "package z\n", "a.go": "package a\n"}}
	if _, err := a.Review(context.Background(), diffparse.Parse(threeFileDiff), rc); err != nil {
		t.Fatalf("Review error: %v", err)
	}
	p := client.prompts[0]
	if !strings.Contains(p, "+import \"strings\"") {
		t.Error("prompt should contain the raw diff")
	}
	if strings.Index(p, "### a.go") > strings.Index(p, "### z.go") {
		t.Error("file context should be in path order")
	}
}

func TestBuildPrompt_RebuildsWithoutRaw(t *testing.T) {
	pd := diffparse.Parse(threeFileDiff)
	pd.Raw = ""
	p, err := buildPrompt("review/junior", pd, nil)
	if err != nil {
		t.Fatalf("buildPrompt error: %v", err)
	}
	for _, want := range []string{"--- a/main.go", "+++ b/util.go", "@@ -1,3 +0,0 @@", noFileContext} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPrompt_UnknownTemplate(t *testing.T) {
	a := &llmAgent{perspective: perspective{name: "x", template: "review/missing"}, client: &fakeClient{}}
	if _, err := a.Review(context.Background(), diffparse.Parse(threeFileDiff), nil); err == nil {
		t.Error("expected a configuration error for a missing template")
	}
}

func TestFormatFileContext(t *testing.T) {
	if got := formatFileContext(nil); got != noFileContext {
		t.Errorf("formatFileContext(nil) = %q", got)
	}
	got := formatFileContext(map[string]string{"b.go": "B\n", "a.go": "A"})
	want := "### a.go\n```\nA\n```\n\n### b.go\n```\nB\n```"
	if got != want {
		t.Errorf("formatFileContext = %q, want %q", got, want)
	}
}
