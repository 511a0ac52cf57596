// Package diffparse converts unified diff text, as produced by git, into
// structured per-file and per-hunk data with addition and deletion counts.
//
// A segment that starts with "diff --git" but carries an unreadable header is
// skipped and recorded in [ParsedDiff.Warnings]; the rest of the diff is still
// parsed. Binary segments never carry hunks.
package diffparse
