// Package gitctx collects the diff under review from a git working tree.
//
// A [Source] runs git in a fixed directory and produces one of three views:
// unstaged changes, staged changes, or the diff of a revision range. Sections
// for paths matching the exclude patterns are dropped before the text is
// handed to the review runner.
//
// [Source.ReadFiles] loads working-tree contents for the changed files so that
// agents can see more than the hunk context. [Source.Files] and
// [Source.RecentCommits] feed repository analysis.
package gitctx
