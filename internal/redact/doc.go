// Package redact masks secrets in diff text before it leaves the machine.
//
// Detection is regex based and covers the usual shapes: provider API keys,
// JWTs, private key headers, AWS credentials, bearer tokens, connection
// strings with inline passwords, and secret-looking assignments. Each match is
// replaced with [REDACTED] and counted per rule.
//
// Files whose path matches one of the configured glob patterns are masked
// whole: every hunk body is replaced by a single placeholder line while the
// file header and hunk ranges stay intact.
package redact
