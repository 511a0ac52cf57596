// Package analyze describes a repository outside of any diff.
//
// [AnalyzeStructure] and [AnalyzeQuality] are static: they walk the working
// tree and apply per-language regular expressions for imports, entry points,
// branch keywords and common smells. [Explainer] and [Summarizer] send a file
// or repository statistics to the model and return its answer alongside the
// numbers that went into the prompt.
package analyze
