// Package config loads and merges code-sherpa configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (SHERPA_PROVIDER, SHERPA_MODEL, SHERPA_FORMAT, SHERPA_AGENTS, SHERPA_FAIL_ON)
//  3. Config file (--config, ./.code-sherpa.{yaml,yml,toml}, or $XDG_CONFIG_HOME/code-sherpa/config.yaml)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Init] to write a default config
// file, and [Set] to update a single key in a config file. The project
// registry in projects.toml is managed through [LoadProjects].
package config
