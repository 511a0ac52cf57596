package review

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

type responseKind int

const (
	// responseEmpty is a blank response: no comments, no summary.
	responseEmpty responseKind = iota
	// responseStructured is a JSON list of comments or a comments/summary object.
	responseStructured
	// responseFallback is anything else, kept whole as one info comment.
	responseFallback
)

func (k responseKind) String() string {
	switch k {
	case responseStructured:
		return "structured"
	case responseFallback:
		return "fallback"
	default:
		return "empty"
	}
}

type parsedResponse struct {
	kind     responseKind
	comments []Comment
	summary  string
}

var (
	jsonFenceRe = regexp.MustCompile("```json\\s*([\\s\\S]*?)\\s*```")
	summaryRe   = regexp.MustCompile(`(?i)(?:^|\n)(?:##?\s*)?Summary:?\s*([\s\S]*?)(?:\n##|\n\n|$)`)
)

const (
	defaultFile     = "unknown"
	defaultCategory = "general"
	generalFile     = "general"
)

// parseResponse turns raw agent output into comments attributed to agent.
func parseResponse(agent, text string) parsedResponse {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return parsedResponse{kind: responseEmpty, comments: []Comment{}}
	}

	var jsonSummary string
	if raw, ok := extractJSON(trimmed); ok {
		pr, ok := decodeStructured(agent, raw)
		if ok {
			if pr.summary == "" {
				pr.summary = extractSummary(text)
			}
			return pr
		}
		jsonSummary = pr.summary
	}

	summary := extractSummary(text)
	if summary == "" {
		summary = jsonSummary
	}
	return parsedResponse{
		kind: responseFallback,
		comments: []Comment{{
			Agent:    agent,
			File:     generalFile,
			Severity: SeverityInfo,
			Category: defaultCategory,
			Message:  trimmed,
		}},
		summary: summary,
	}
}

// extractJSON returns the body of the first ```json fence, or the whole text
// when it already looks like a JSON array or object.
func extractJSON(text string) (string, bool) {
	if m := jsonFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if strings.HasPrefix(text, "[") || strings.HasPrefix(text, "{") {
		return text, true
	}
	return "", false
}

// decodeStructured reports ok=false when the JSON carries content that no
// comment record could be decoded from, so the caller keeps the raw text.
// An empty list is a valid "no issues" answer. On failure pr.summary still
// holds any decoded summary.
func decodeStructured(agent, raw string) (parsedResponse, bool) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return parsedResponse{}, false
	}

	pr := parsedResponse{kind: responseStructured, comments: []Comment{}}
	switch data := v.(type) {
	case []any:
		pr.comments = decodeComments(agent, data)
		if len(data) > 0 && len(pr.comments) == 0 {
			return pr, false
		}
	case map[string]any:
		items, hasComments := data["comments"]
		summary, hasSummary := data["summary"]
		if !hasComments && !hasSummary {
			return parsedResponse{}, false
		}
		if s, ok := summary.(string); ok {
			pr.summary = strings.TrimSpace(s)
		}
		switch list := items.(type) {
		case nil:
		case []any:
			pr.comments = decodeComments(agent, list)
			if len(list) > 0 && len(pr.comments) == 0 {
				return pr, false
			}
		default:
			return pr, false
		}
	default:
		return parsedResponse{}, false
	}
	return pr, true
}

func decodeComments(agent string, items []any) []Comment {
	comments := make([]Comment, 0, len(items))
	for _, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}
		comments = append(comments, Comment{
			Agent:      agent,
			File:       stringField(rec, "file", defaultFile),
			Line:       lineField(rec["line"]),
			Severity:   ParseSeverity(stringField(rec, "severity", "INFO")),
			Category:   stringField(rec, "category", defaultCategory),
			Message:    stringField(rec, "message", ""),
			Suggestion: stringField(rec, "suggestion", ""),
		})
	}
	return comments
}

func stringField(rec map[string]any, key, def string) string {
	if s, ok := rec[key].(string); ok {
		return s
	}
	return def
}

// lineField accepts a JSON number or a numeric string.
func lineField(v any) *int {
	var n int
	switch x := v.(type) {
	case float64:
		n = int(x)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return nil
		}
		n = i
	default:
		return nil
	}
	return &n
}

func extractSummary(text string) string {
	if m := summaryRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
