// Sherpa is the code-sherpa CLI: it reviews git changes with several LLM
// review agents and merges their comments into one report.
//
// Usage:
//
//	code-sherpa review                    # review working tree changes
//	code-sherpa review --staged           # review staged changes
//	code-sherpa review main..HEAD         # review a revision range
//	code-sherpa review --diff-file x.patch
//	code-sherpa pr 42                     # review a GitHub pull request
//	code-sherpa analyze quality           # score the current directory
//	code-sherpa analyze file main.go      # explain one file
//	code-sherpa agents list               # show available agents
//	code-sherpa hook install              # gate commits on review results
//
// Exit codes: 0 success, 1 comments at or above --fail-on, 2 usage error,
// 3 authentication error, 4 runtime error.
package main
