// Package cache stores LLM completions on disk so that re-running a review
// over the same diff with the same agents does not pay for the same calls
// twice.
//
// Entries are keyed by a SHA-256 hash over the provider, the model, and the
// exact request payload. Each entry is a small JSON file holding the response
// text and its expiry time. Expired entries are treated as misses and removed
// when they are read or when Prune runs.
//
// The default directory is $XDG_CACHE_HOME/code-sherpa, or the OS cache
// directory equivalent. Payloads only reach the cache after secret redaction.
package cache
