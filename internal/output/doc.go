// Package output formats review results for display or machine consumption.
//
// Three formats are supported:
//   - console: styled terminal output, plain when not attached to a TTY (default)
//   - json: the full structured result
//   - markdown: a report suitable for PR comments and saved report files
//
// Use [GetWriter] to obtain a [Writer] for a given format string, then call
// [Writer.Write] with an [io.Writer] and a [*review.Result]. [WriteReport]
// handles destination selection and [SaveReport] stores a markdown copy.
//
// Analysis reports implement [Document] and go through [WriteDocument].
package output
