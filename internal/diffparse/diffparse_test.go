package diffparse

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const threeFileDiff = `diff --git a/main.go b/main.go
index 1111111..2222222 100644
--- a/main.go
+++ b/main.go
@@ -1,4 +1,5 @@
 package main
-import "os"
+import "fmt"
+import "strings"
 func main() {}
diff --git a/util.go b/util.go
new file mode 100644
index 0000000..3333333
--- /dev/null
+++ b/util.go
@@ -0,0 +1,5 @@
+package main
+
+func helper() string {
+	return "x"
+}
diff --git a/old.go b/old.go
deleted file mode 100644
index 4444444..0000000
--- a/old.go
+++ /dev/null
@@ -1,3 +0,0 @@
-package main
-
-func unused() {}
`

func TestParse_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t\n"} {
		pd := Parse(in)
		if len(pd.Files) != 0 {
			t.Errorf("Parse(%q) files = %d, want 0", in, len(pd.Files))
		}
		if diff := cmp.Diff(Stats{}, pd.Stats); diff != "" {
			t.Errorf("Parse(%q) stats mismatch (-want +got):\n%s", in, diff)
		}
		if pd.Raw != in {
			t.Errorf("Parse(%q).Raw = %q, want input preserved", in, pd.Raw)
		}
	}
}

func TestParse_ThreeFiles(t *testing.T) {
	pd := Parse(threeFileDiff)

	want := Stats{FilesChanged: 3, TotalAdditions: 7, TotalDeletions: 4}
	if diff := cmp.Diff(want, pd.Stats); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		path       string
		changeType ChangeType
		additions  int
		deletions  int
	}{
		{"main.go", Modified, 2, 1},
		{"util.go", Added, 5, 0},
		{"old.go", Deleted, 0, 3},
	}
	for i, tt := range tests {
		f := pd.Files[i]
		if f.Path != tt.path {
			t.Errorf("files[%d].Path = %q, want %q", i, f.Path, tt.path)
		}
		if f.ChangeType != tt.changeType {
			t.Errorf("files[%d].ChangeType = %q, want %q", i, f.ChangeType, tt.changeType)
		}
		if f.Additions != tt.additions || f.Deletions != tt.deletions {
			t.Errorf("files[%d] counts = +%d/-%d, want +%d/-%d",
				i, f.Additions, f.Deletions, tt.additions, tt.deletions)
		}
	}
}

func TestParse_StatsMatchFileSums(t *testing.T) {
	pd := Parse(threeFileDiff)
	var adds, dels int
	for _, f := range pd.Files {
		adds += f.Additions
		dels += f.Deletions
	}
	if adds != pd.Stats.TotalAdditions {
		t.Errorf("sum(additions) = %d, stats = %d", adds, pd.Stats.TotalAdditions)
	}
	if dels != pd.Stats.TotalDeletions {
		t.Errorf("sum(deletions) = %d, stats = %d", dels, pd.Stats.TotalDeletions)
	}
	if len(pd.Files) != pd.Stats.FilesChanged {
		t.Errorf("len(files) = %d, stats = %d", len(pd.Files), pd.Stats.FilesChanged)
	}
}

func TestParse_HunkCountDefaultsToOne(t *testing.T) {
	in := `diff --git a/a.txt b/a.txt
--- a/a.txt
+++ b/a.txt
@@ -5 +5 @@
-old
+new
`
	pd := Parse(in)
	if len(pd.Files) != 1 || len(pd.Files[0].Hunks) != 1 {
		t.Fatalf("got %d files, want 1 with 1 hunk", len(pd.Files))
	}
	want := Hunk{OldStart: 5, OldCount: 1, NewStart: 5, NewCount: 1, Content: "-old\n+new"}
	if diff := cmp.Diff(want, pd.Files[0].Hunks[0]); diff != "" {
		t.Errorf("hunk mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_MultipleHunks(t *testing.T) {
	in := `diff --git a/a.go b/a.go
--- a/a.go
+++ b/a.go
@@ -1,3 +1,3 @@ func one()
 keep
-a
+b
@@ -20,2 +20,4 @@ func two()
 keep
+c
+d
`
	pd := Parse(in)
	hunks := pd.Files[0].Hunks
	if len(hunks) != 2 {
		t.Fatalf("got %d hunks, want 2", len(hunks))
	}
	if hunks[1].OldStart != 20 || hunks[1].NewCount != 4 {
		t.Errorf("hunks[1] = %+v, want oldStart 20 newCount 4", hunks[1])
	}
	if strings.Contains(hunks[0].Content, "@@") {
		t.Errorf("hunks[0].Content leaked the next header: %q", hunks[0].Content)
	}
	if pd.Files[0].Additions != 3 || pd.Files[0].Deletions != 1 {
		t.Errorf("counts = +%d/-%d, want +3/-1", pd.Files[0].Additions, pd.Files[0].Deletions)
	}
}

func TestParse_Rename(t *testing.T) {
	in := `diff --git a/old/name.go b/new/name.go
similarity index 100%
rename from old/name.go
rename to new/name.go
`
	pd := Parse(in)
	if len(pd.Files) != 1 {
		t.Fatalf("got %d files, want 1", len(pd.Files))
	}
	f := pd.Files[0]
	if f.ChangeType != Renamed {
		t.Errorf("ChangeType = %q, want %q", f.ChangeType, Renamed)
	}
	if f.OldPath != "old/name.go" || f.Path != "new/name.go" {
		t.Errorf("paths = %q -> %q, want old/name.go -> new/name.go", f.OldPath, f.Path)
	}
	if f.Additions != 0 || f.Deletions != 0 || len(f.Hunks) != 0 {
		t.Errorf("rename-only segment has counts +%d/-%d and %d hunks, want zeros",
			f.Additions, f.Deletions, len(f.Hunks))
	}
}

func TestParse_SimilarityWithoutRenameLines(t *testing.T) {
	in := `diff --git a/x.go b/y.go
similarity index 90%
--- a/x.go
+++ b/y.go
@@ -1 +1 @@
-a
+b
`
	f := Parse(in).Files[0]
	if f.ChangeType != Renamed {
		t.Errorf("ChangeType = %q, want %q", f.ChangeType, Renamed)
	}
	if f.Path != "y.go" || f.OldPath != "" {
		t.Errorf("Path = %q OldPath = %q, want header path and no old path", f.Path, f.OldPath)
	}
}

func TestParse_BinaryShortCircuit(t *testing.T) {
	in := `diff --git a/logo.png b/logo.png
new file mode 100644
index 0000000..5555555
Binary files /dev/null and b/logo.png differ
@@ -0,0 +1,2 @@
+not
+counted
`
	pd := Parse(in)
	f := pd.Files[0]
	if f.ChangeType != Added {
		t.Errorf("ChangeType = %q, want %q", f.ChangeType, Added)
	}
	if !f.Binary || len(f.Hunks) != 0 || f.Additions != 0 || f.Deletions != 0 {
		t.Errorf("binary file = %+v, want no hunks and zero counts", f)
	}
	if pd.Stats.TotalAdditions != 0 {
		t.Errorf("TotalAdditions = %d, want 0", pd.Stats.TotalAdditions)
	}
}

func TestParse_FileMarkersNotCounted(t *testing.T) {
	in := `diff --git a/a.sql b/a.sql
--- a/a.sql
+++ b/a.sql
@@ -1,2 +1,2 @@
---- old comment
+++++ new comment
`
	f := Parse(in).Files[0]
	if f.Additions != 0 || f.Deletions != 0 {
		t.Errorf("counts = +%d/-%d, want lines starting with +++/--- ignored", f.Additions, f.Deletions)
	}
}

func TestParse_MalformedHeaderSkipped(t *testing.T) {
	in := `diff --git a/good.go b/good.go
--- a/good.go
+++ b/good.go
@@ -1 +1,2 @@
 x
+y
diff --git garbage-without-paths
@@ -1 +1 @@
+ignored
diff --git a/also.go b/also.go
--- a/also.go
+++ b/also.go
@@ -1 +1 @@
-p
+q
`
	pd := Parse(in)
	if len(pd.Files) != 2 {
		t.Fatalf("got %d files, want 2 (malformed segment skipped)", len(pd.Files))
	}
	if pd.Files[0].Path != "good.go" || pd.Files[1].Path != "also.go" {
		t.Errorf("paths = %q, %q", pd.Files[0].Path, pd.Files[1].Path)
	}
	if len(pd.Warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(pd.Warnings))
	}
	var segErr *SegmentError
	if !errors.As(pd.Warnings[0], &segErr) {
		t.Fatalf("warning type = %T, want *SegmentError", pd.Warnings[0])
	}
	if segErr.Index != 1 {
		t.Errorf("SegmentError.Index = %d, want 1", segErr.Index)
	}
	if pd.Stats.TotalAdditions != 2 || pd.Stats.TotalDeletions != 1 {
		t.Errorf("stats = %+v, want +2/-1 from the valid segments", pd.Stats)
	}
}

func TestParse_PreambleDiscarded(t *testing.T) {
	in := "commit abc\nAuthor: someone\n\n" + threeFileDiff
	pd := Parse(in)
	if len(pd.Files) != 3 {
		t.Errorf("got %d files, want 3", len(pd.Files))
	}
	if len(pd.Warnings) != 0 {
		t.Errorf("got %d warnings, want 0", len(pd.Warnings))
	}
}

func TestParse_CRLF(t *testing.T) {
	in := strings.ReplaceAll(threeFileDiff, "\n", "\r\n")
	pd := Parse(in)
	if pd.Stats.TotalAdditions != 7 || pd.Stats.TotalDeletions != 4 {
		t.Errorf("stats = %+v, want +7/-4", pd.Stats)
	}
}

func TestParsedDiff_Text(t *testing.T) {
	pd := Parse(threeFileDiff)
	if pd.Text() != threeFileDiff {
		t.Error("Text() should return the raw input when present")
	}

	pd.Raw = ""
	got := pd.Text()
	for _, want := range []string{
		"--- a/main.go",
		"+++ b/main.go",
		"@@ -1,4 +1,5 @@",
		"+import \"fmt\"",
		"@@ -0,0 +1,5 @@",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("rebuilt text missing %q:\n%s", want, got)
		}
	}
}

func TestParsedDiff_Paths(t *testing.T) {
	got := Parse(threeFileDiff).Paths()
	want := []string{"main.go", "util.go"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Paths() mismatch (-want +got):\n%s", diff)
	}
}
