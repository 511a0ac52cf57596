// Package cli wires together the Cobra command tree for the code-sherpa
// binary.
//
// It defines the root command and all subcommands (review, pr, analyze,
// agents, config, project, cache, hook, providers, version), merges
// configuration from files, environment, registered projects and flags, runs
// the review agents, and returns deterministic exit codes for CI gating.
package cli
