// Package review runs several LLM review agents over one diff and merges what
// they report.
//
// Each [Agent] looks at the change from a single perspective (architecture,
// security, performance, readability) and returns an [AgentReview]: a list of
// [Comment] values plus a short summary. Agents are built by name through a
// [Registry] and driven by a [Runner], which fans them out in parallel or runs
// them one after another. A failing, panicking or hung agent never takes its
// siblings down; its slot in the result is filled with an empty review whose
// summary carries the error.
//
// Agent responses are parsed leniently. A JSON array of comments or an object
// with "comments" and "summary" is read as structured output; anything else is
// kept verbatim as a single informational comment.
//
// After aggregation the [Summarizer] asks the LLM for an overall verdict and
// falls back to a deterministic severity tally when that call fails. [Run] and
// [RunDiff] wire the whole pipeline together.
package review
