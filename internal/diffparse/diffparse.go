package diffparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ChangeType classifies how a file changed.
type ChangeType string

const (
	Added    ChangeType = "added"
	Modified ChangeType = "modified"
	Deleted  ChangeType = "deleted"
	Renamed  ChangeType = "renamed"
)

// Hunk is one contiguous change block within a file.
type Hunk struct {
	OldStart int    `json:"oldStart"`
	OldCount int    `json:"oldCount"`
	NewStart int    `json:"newStart"`
	NewCount int    `json:"newCount"`
	Content  string `json:"content"`
}

// FileDiff is one file's change within a diff.
type FileDiff struct {
	Path       string     `json:"path"`
	ChangeType ChangeType `json:"changeType"`
	OldPath    string     `json:"oldPath,omitempty"`
	Additions  int        `json:"additions"`
	Deletions  int        `json:"deletions"`
	Binary     bool       `json:"binary,omitempty"`
	Hunks      []Hunk     `json:"hunks"`
}

// Stats aggregates line counts across all files of a diff.
type Stats struct {
	FilesChanged   int `json:"filesChanged"`
	TotalAdditions int `json:"totalAdditions"`
	TotalDeletions int `json:"totalDeletions"`
}

// ParsedDiff is the structured form of a unified diff.
type ParsedDiff struct {
	Files    []FileDiff `json:"files"`
	Stats    Stats      `json:"stats"`
	Raw      string     `json:"-"`
	Warnings []error    `json:"-"`
}

// SegmentError reports a "diff --git" segment whose file header could not be
// read. The segment is left out of the parsed result.
type SegmentError struct {
	Index int
	Line  string
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("diff segment %d: no file header in %q", e.Index, e.Line)
}

const segmentMarker = "diff --git "

var (
	headerRe     = regexp.MustCompile(`^diff --git a/(.*) b/(.*)$`)
	binaryRe     = regexp.MustCompile(`(?m)^Binary files .* differ$`)
	hunkHeaderRe = regexp.MustCompile(`(?m)^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@(.*)$`)
	renameFromRe = regexp.MustCompile(`(?m)^rename from (.+)$`)
	renameToRe   = regexp.MustCompile(`(?m)^rename to (.+)$`)
	newFileRe    = regexp.MustCompile(`(?m)^new file mode`)
	deletedRe    = regexp.MustCompile(`(?m)^deleted file mode`)
	similarityRe = regexp.MustCompile(`(?m)^similarity index \d+%`)
)

// Parse converts unified diff text into a ParsedDiff. Blank input yields an
// empty result with zero stats.
func Parse(text string) *ParsedDiff {
	pd := &ParsedDiff{Raw: text, Files: []FileDiff{}}
	if strings.TrimSpace(text) == "" {
		return pd
	}

	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	for i, seg := range splitSegments(normalized) {
		fd, err := parseSegment(i, seg)
		if err != nil {
			pd.Warnings = append(pd.Warnings, err)
			continue
		}
		pd.Files = append(pd.Files, fd)
	}

	pd.Stats = computeStats(pd.Files)
	return pd
}

// splitSegments splits diff text at every "diff --git" line. Text before the
// first header is dropped.
func splitSegments(text string) []string {
	var segments []string
	var current strings.Builder
	inSegment := false
	for _, line := range strings.SplitAfter(text, "\n") {
		if strings.HasPrefix(line, segmentMarker) {
			if inSegment {
				segments = append(segments, current.String())
			}
			current.Reset()
			inSegment = true
		}
		if inSegment {
			current.WriteString(line)
		}
	}
	if inSegment {
		segments = append(segments, current.String())
	}
	return segments
}

func parseSegment(index int, seg string) (FileDiff, error) {
	firstLine, _, _ := strings.Cut(seg, "\n")
	m := headerRe.FindStringSubmatch(firstLine)
	if m == nil {
		return FileDiff{}, &SegmentError{Index: index, Line: firstLine}
	}

	fd := FileDiff{
		Path:       m[2],
		ChangeType: detectChangeType(seg),
		Hunks:      []Hunk{},
	}

	if fd.ChangeType == Renamed {
		from := renameFromRe.FindStringSubmatch(seg)
		to := renameToRe.FindStringSubmatch(seg)
		if from != nil && to != nil {
			fd.OldPath = from[1]
			fd.Path = to[1]
		}
	}

	if binaryRe.MatchString(seg) {
		fd.Binary = true
		return fd, nil
	}

	fd.Hunks = parseHunks(seg)
	for _, h := range fd.Hunks {
		add, del := countLines(h.Content)
		fd.Additions += add
		fd.Deletions += del
	}
	return fd, nil
}

func detectChangeType(seg string) ChangeType {
	switch {
	case newFileRe.MatchString(seg):
		return Added
	case deletedRe.MatchString(seg):
		return Deleted
	case renameFromRe.MatchString(seg) || similarityRe.MatchString(seg):
		return Renamed
	default:
		return Modified
	}
}

func parseHunks(seg string) []Hunk {
	matches := hunkHeaderRe.FindAllStringSubmatchIndex(seg, -1)
	hunks := make([]Hunk, 0, len(matches))
	for i, loc := range matches {
		end := len(seg)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := strings.TrimPrefix(seg[loc[1]:end], "\n")
		hunks = append(hunks, Hunk{
			OldStart: atoiGroup(seg, loc, 1, 0),
			OldCount: atoiGroup(seg, loc, 2, 1),
			NewStart: atoiGroup(seg, loc, 3, 0),
			NewCount: atoiGroup(seg, loc, 4, 1),
			Content:  strings.TrimRight(body, " \t\n"),
		})
	}
	return hunks
}

// atoiGroup reads capture group n from a submatch index slice, returning def
// when the group did not participate in the match.
func atoiGroup(s string, loc []int, n, def int) int {
	start, end := loc[2*n], loc[2*n+1]
	if start < 0 {
		return def
	}
	v, err := strconv.Atoi(s[start:end])
	if err != nil {
		return def
	}
	return v
}

func countLines(content string) (additions, deletions int) {
	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			additions++
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			deletions++
		}
	}
	return additions, deletions
}

func computeStats(files []FileDiff) Stats {
	s := Stats{FilesChanged: len(files)}
	for _, f := range files {
		s.TotalAdditions += f.Additions
		s.TotalDeletions += f.Deletions
	}
	return s
}

// Text returns the diff as text. The raw input is preferred; when it is empty
// the text is rebuilt from the structured files.
func (d *ParsedDiff) Text() string {
	if d.Raw != "" {
		return d.Raw
	}
	var lines []string
	for _, f := range d.Files {
		lines = append(lines, "--- a/"+f.Path, "+++ b/"+f.Path)
		for _, h := range f.Hunks {
			lines = append(lines,
				fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldCount, h.NewStart, h.NewCount),
				h.Content)
		}
	}
	return strings.Join(lines, "\n")
}

// Paths returns the current path of every file that still exists after the
// change, in diff order.
func (d *ParsedDiff) Paths() []string {
	var paths []string
	for _, f := range d.Files {
		if f.ChangeType == Deleted || f.Binary {
			continue
		}
		paths = append(paths, f.Path)
	}
	return paths
}

// Empty reports whether the diff has no files.
func (d *ParsedDiff) Empty() bool {
	return len(d.Files) == 0
}
