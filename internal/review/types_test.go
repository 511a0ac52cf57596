package review

import (
	"testing"

	"github.com/dshills/sherpa/internal/diffparse"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"ERROR", SeverityError},
		{"error", SeverityError},
		{" Warning ", SeverityWarning},
		{"info", SeverityInfo},
		{"critical", SeverityInfo},
		{"", SeverityInfo},
	}
	for _, tt := range tests {
		if got := ParseSeverity(tt.in); got != tt.want {
			t.Errorf("ParseSeverity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMeetsThreshold(t *testing.T) {
	tests := []struct {
		sev       Severity
		threshold string
		want      bool
	}{
		{SeverityError, "error", true},
		{SeverityWarning, "error", false},
		{SeverityWarning, "warning", true},
		{SeverityInfo, "info", true},
		{SeverityError, "none", false},
		{SeverityError, "", false},
	}
	for _, tt := range tests {
		if got := MeetsThreshold(tt.sev, tt.threshold); got != tt.want {
			t.Errorf("MeetsThreshold(%q, %q) = %v, want %v", tt.sev, tt.threshold, got, tt.want)
		}
	}
}

func TestAggregate(t *testing.T) {
	reviews := []AgentReview{
		{AgentName: "a", Comments: []Comment{{Severity: SeverityWarning}, {Severity: SeverityInfo}}},
		{AgentName: "b", Comments: []Comment{{Severity: SeverityError}}},
		{AgentName: "c", Comments: []Comment{}, Failed: true},
	}
	res := aggregate(diffparse.Stats{FilesChanged: 3}, reviews)
	if res.TotalComments != 3 {
		t.Errorf("TotalComments = %d, want 3", res.TotalComments)
	}
	for _, s := range Severities {
		if res.Count(s) != 1 {
			t.Errorf("Count(%s) = %d, want 1", s, res.Count(s))
		}
	}
	if res.MaxSeverity() != SeverityError {
		t.Errorf("MaxSeverity = %q, want error", res.MaxSeverity())
	}
	if len(res.Comments()) != 3 {
		t.Errorf("Comments() len = %d, want 3", len(res.Comments()))
	}
	if emptyResult().MaxSeverity() != "" {
		t.Error("empty result should have no max severity")
	}
}

func TestComment_Location(t *testing.T) {
	line := 5
	if got := (Comment{File: "a.go", Line: &line}).Location(); got != "a.go:5" {
		t.Errorf("Location = %q", got)
	}
	if got := (Comment{File: "general"}).Location(); got != "general" {
		t.Errorf("Location = %q", got)
	}
	zero := 0
	if got := (Comment{File: "a.go", Line: &zero}).Location(); got != "a.go" {
		t.Errorf("Location with line 0 = %q, want %q", got, "a.go")
	}
}
