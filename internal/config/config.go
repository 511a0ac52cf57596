package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// AppName names the config and cache directories.
const AppName = "code-sherpa"

// LocalFile is the project-local config file written by [Init].
const LocalFile = ".code-sherpa.yaml"

// Config represents the code-sherpa configuration.
type Config struct {
	LLM     LLMConfig     `yaml:"llm" toml:"llm"`
	Review  ReviewConfig  `yaml:"review" toml:"review"`
	Output  OutputConfig  `yaml:"output" toml:"output"`
	Analyze AnalyzeConfig `yaml:"analyze" toml:"analyze"`
	Cache   CacheConfig   `yaml:"cache" toml:"cache"`
	Privacy PrivacyConfig `yaml:"privacy" toml:"privacy"`
}

// LLMConfig selects and tunes the model provider.
type LLMConfig struct {
	Provider       string  `yaml:"provider" toml:"provider"`
	Model          string  `yaml:"model" toml:"model"`
	APIKeyEnv      string  `yaml:"api_key_env" toml:"api_key_env"`
	BaseURL        string  `yaml:"base_url,omitempty" toml:"base_url,omitempty"`
	MaxTokens      int     `yaml:"max_tokens" toml:"max_tokens"`
	Temperature    float64 `yaml:"temperature" toml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds" toml:"timeout_seconds"`
}

// ReviewConfig controls how agents run.
type ReviewConfig struct {
	DefaultAgents       []string `yaml:"default_agents" toml:"default_agents"`
	Parallel            bool     `yaml:"parallel" toml:"parallel"`
	MaxDiffLines        int      `yaml:"max_diff_lines" toml:"max_diff_lines"`
	AgentTimeoutSeconds int      `yaml:"agent_timeout_seconds" toml:"agent_timeout_seconds"`
	FailOn              string   `yaml:"fail_on" toml:"fail_on"`
	IncludeContext      bool     `yaml:"include_context" toml:"include_context"`
	ContextLines        int      `yaml:"context_lines" toml:"context_lines"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format" toml:"default_format"`
	Color         bool   `yaml:"color" toml:"color"`
	SaveReports   bool   `yaml:"save_reports" toml:"save_reports"`
	ReportsDir    string `yaml:"reports_dir" toml:"reports_dir"`
}

// AnalyzeConfig limits which working-tree files are read for context.
type AnalyzeConfig struct {
	ExcludePatterns []string `yaml:"exclude_patterns" toml:"exclude_patterns"`
	MaxFileSizeKB   int      `yaml:"max_file_size_kb" toml:"max_file_size_kb"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled" toml:"enabled"`
	Dir        string `yaml:"dir,omitempty" toml:"dir,omitempty"`
	TTLSeconds int    `yaml:"ttl_seconds" toml:"ttl_seconds"`
}

// PrivacyConfig controls privacy/redaction behavior.
type PrivacyConfig struct {
	RedactSecrets bool     `yaml:"redact_secrets" toml:"redact_secrets"`
	RedactPaths   []string `yaml:"redact_paths" toml:"redact_paths"`
}

// Accepted values for output.default_format and review.fail_on.
var (
	Formats      = []string{"console", "json", "markdown"}
	FailOnLevels = []string{"none", "info", "warning", "error"}
)

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:       "openai",
			Model:          "gpt-4",
			APIKeyEnv:      "OPENAI_API_KEY",
			MaxTokens:      4096,
			Temperature:    0.3,
			TimeoutSeconds: 120,
		},
		Review: ReviewConfig{
			DefaultAgents:       []string{"architect", "security"},
			Parallel:            true,
			MaxDiffLines:        1000,
			AgentTimeoutSeconds: 300,
			FailOn:              "none",
			ContextLines:        3,
		},
		Output: OutputConfig{
			DefaultFormat: "console",
			Color:         true,
			ReportsDir:    "./outputs/reports",
		},
		Analyze: AnalyzeConfig{
			ExcludePatterns: []string{"node_modules", ".git", "__pycache__", "*.pyc", "vendor", ".venv", "venv"},
			MaxFileSizeKB:   100,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 86400,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
			RedactPaths:   []string{"**/.env", "**/*secrets*"},
		},
	}
}

// Timeout returns the per-request provider timeout.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AgentTimeout returns the per-agent deadline. Zero seconds disables the
// deadline, which the review runner expresses as a negative duration.
func (c ReviewConfig) AgentTimeout() time.Duration {
	if c.AgentTimeoutSeconds <= 0 {
		return -1
	}
	return time.Duration(c.AgentTimeoutSeconds) * time.Second
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// MaxFileBytes returns the file context size cap in bytes.
func (c AnalyzeConfig) MaxFileBytes() int64 {
	return int64(c.MaxFileSizeKB) * 1024
}

// ConfigDir returns the platform-appropriate config directory for code-sherpa.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", AppName), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppName), nil
		}
		return filepath.Join(home, "AppData", "Roaming", AppName), nil
	default:
		return filepath.Join(home, ".config", AppName), nil
	}
}

// localCandidates are checked in the working directory, in order.
var localCandidates = []string{".code-sherpa.yaml", ".code-sherpa.yml", ".code-sherpa.toml"}

// Find returns the config file to load. An explicit path must exist. Without
// one, dir (the working directory when empty) is searched first and then the
// user config directory. An empty result means no file was found.
func Find(dir, explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}
	for _, name := range localCandidates {
		if p := filepath.Join(dir, name); fileExists(p) {
			return p, nil
		}
	}
	userDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if p := filepath.Join(userDir, "config.yaml"); fileExists(p) {
		return p, nil
	}
	return "", nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags and uses the dotted keys accepted by
// [SetField]; empty values are ignored. The returned path names the file that
// was read, or is empty when only defaults applied. See [Find] for dir.
func Load(dir, explicitPath string, overrides map[string]string) (Config, string, error) {
	cfg := Default()

	path, err := Find(dir, explicitPath)
	if err != nil {
		return Config{}, "", err
	}
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, "", err
		}
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, "", err
	}
	if err := ApplyOverrides(&cfg, overrides); err != nil {
		return Config{}, "", err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, "", fmt.Errorf("invalid config: %w", err)
	}
	return cfg, path, nil
}

// LoadFile decodes a single config file on top of the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if err := decodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeFile decodes onto cfg so keys missing from the file keep their
// current values.
func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("parsing config file %s: %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing config file %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config file type: %s", path)
	}
	return nil
}

// Marshal encodes cfg as YAML, or as TOML when format is "toml".
func Marshal(cfg Config, format string) ([]byte, error) {
	if format == "toml" {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, fmt.Errorf("encoding config: %w", err)
		}
		return buf.Bytes(), nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes cfg to path. The file extension picks YAML or TOML.
func Save(path string, cfg Config) error {
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = "toml"
	}
	data, err := Marshal(cfg, format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// ErrExists is returned by [Init] when the target file is already present.
var ErrExists = errors.New("config file already exists")

// Init writes the default config to path. An existing file is only replaced
// when force is set.
func Init(path string, force bool) error {
	if !force && fileExists(path) {
		return fmt.Errorf("%s: %w (use --force to overwrite)", path, ErrExists)
	}
	return Save(path, Default())
}

// Set updates a single key in the config file at path, creating the file
// from defaults when it does not exist yet.
func Set(path, key, value string) error {
	cfg := Default()
	if fileExists(path) {
		if err := decodeFile(path, &cfg); err != nil {
			return err
		}
	}
	if err := SetField(&cfg, key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return Save(path, cfg)
}

// envKeys maps environment variables to config keys.
var envKeys = []struct{ env, key string }{
	{"SHERPA_PROVIDER", "llm.provider"},
	{"SHERPA_MODEL", "llm.model"},
	{"SHERPA_FORMAT", "output.default_format"},
	{"SHERPA_AGENTS", "review.default_agents"},
	{"SHERPA_FAIL_ON", "review.fail_on"},
}

func mergeEnv(cfg *Config) error {
	for _, e := range envKeys {
		v := os.Getenv(e.env)
		if v == "" {
			continue
		}
		if err := SetField(cfg, e.key, v); err != nil {
			return fmt.Errorf("%s: %w", e.env, err)
		}
	}
	return nil
}

// ApplyOverrides sets each non-empty override through [SetField], in key
// order.
func ApplyOverrides(cfg *Config, overrides map[string]string) error {
	keys := make([]string, 0, len(overrides))
	for k, v := range overrides {
		if v != "" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := SetField(cfg, k, overrides[k]); err != nil {
			return err
		}
	}
	return nil
}

type setter func(cfg *Config, key, value string) error

func stringField(get func(*Config) *string) setter {
	return func(cfg *Config, _, value string) error {
		*get(cfg) = strings.TrimSpace(value)
		return nil
	}
}

func intField(get func(*Config) *int) setter {
	return func(cfg *Config, key, value string) error {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", key, err)
		}
		*get(cfg) = n
		return nil
	}
}

func boolField(get func(*Config) *bool) setter {
	return func(cfg *Config, key, value string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s must be true or false: %w", key, err)
		}
		*get(cfg) = b
		return nil
	}
}

func floatField(get func(*Config) *float64) setter {
	return func(cfg *Config, key, value string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("%s must be a number: %w", key, err)
		}
		*get(cfg) = f
		return nil
	}
}

func listField(get func(*Config) *[]string) setter {
	return func(cfg *Config, _, value string) error {
		*get(cfg) = SplitList(value)
		return nil
	}
}

var fields = map[string]setter{
	"llm.provider":                 stringField(func(c *Config) *string { return &c.LLM.Provider }),
	"llm.model":                    stringField(func(c *Config) *string { return &c.LLM.Model }),
	"llm.api_key_env":              stringField(func(c *Config) *string { return &c.LLM.APIKeyEnv }),
	"llm.base_url":                 stringField(func(c *Config) *string { return &c.LLM.BaseURL }),
	"llm.max_tokens":               intField(func(c *Config) *int { return &c.LLM.MaxTokens }),
	"llm.temperature":              floatField(func(c *Config) *float64 { return &c.LLM.Temperature }),
	"llm.timeout_seconds":          intField(func(c *Config) *int { return &c.LLM.TimeoutSeconds }),
	"review.default_agents":        listField(func(c *Config) *[]string { return &c.Review.DefaultAgents }),
	"review.parallel":              boolField(func(c *Config) *bool { return &c.Review.Parallel }),
	"review.max_diff_lines":        intField(func(c *Config) *int { return &c.Review.MaxDiffLines }),
	"review.agent_timeout_seconds": intField(func(c *Config) *int { return &c.Review.AgentTimeoutSeconds }),
	"review.fail_on":               stringField(func(c *Config) *string { return &c.Review.FailOn }),
	"review.include_context":       boolField(func(c *Config) *bool { return &c.Review.IncludeContext }),
	"review.context_lines":         intField(func(c *Config) *int { return &c.Review.ContextLines }),
	"output.default_format":        stringField(func(c *Config) *string { return &c.Output.DefaultFormat }),
	"output.color":                 boolField(func(c *Config) *bool { return &c.Output.Color }),
	"output.save_reports":          boolField(func(c *Config) *bool { return &c.Output.SaveReports }),
	"output.reports_dir":           stringField(func(c *Config) *string { return &c.Output.ReportsDir }),
	"analyze.exclude_patterns":     listField(func(c *Config) *[]string { return &c.Analyze.ExcludePatterns }),
	"analyze.max_file_size_kb":     intField(func(c *Config) *int { return &c.Analyze.MaxFileSizeKB }),
	"cache.enabled":                boolField(func(c *Config) *bool { return &c.Cache.Enabled }),
	"cache.dir":                    stringField(func(c *Config) *string { return &c.Cache.Dir }),
	"cache.ttl_seconds":            intField(func(c *Config) *int { return &c.Cache.TTLSeconds }),
	"privacy.redact_secrets":       boolField(func(c *Config) *bool { return &c.Privacy.RedactSecrets }),
	"privacy.redact_paths":         listField(func(c *Config) *[]string { return &c.Privacy.RedactPaths }),
}

// Keys returns every key accepted by [SetField], sorted.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SetField sets a single config field by dotted key name. List values are
// comma separated. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	set, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}
	return set(cfg, key, value)
}

// SplitList splits a comma separated value, dropping blanks.
func SplitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks enumerated values and numeric ranges.
func (c Config) Validate() error {
	var errs []error
	if !slices.Contains(Formats, c.Output.DefaultFormat) {
		errs = append(errs, fmt.Errorf("output.default_format %q is not one of %s",
			c.Output.DefaultFormat, strings.Join(Formats, ", ")))
	}
	if !slices.Contains(FailOnLevels, strings.ToLower(c.Review.FailOn)) {
		errs = append(errs, fmt.Errorf("review.fail_on %q is not one of %s",
			c.Review.FailOn, strings.Join(FailOnLevels, ", ")))
	}
	if c.LLM.Provider == "" {
		errs = append(errs, errors.New("llm.provider is required"))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature %.2f is outside 0..2", c.LLM.Temperature))
	}
	for key, n := range map[string]int{
		"llm.max_tokens":               c.LLM.MaxTokens,
		"llm.timeout_seconds":          c.LLM.TimeoutSeconds,
		"review.max_diff_lines":        c.Review.MaxDiffLines,
		"review.agent_timeout_seconds": c.Review.AgentTimeoutSeconds,
		"review.context_lines":         c.Review.ContextLines,
		"analyze.max_file_size_kb":     c.Analyze.MaxFileSizeKB,
		"cache.ttl_seconds":            c.Cache.TTLSeconds,
	} {
		if n < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", key))
		}
	}
	return errors.Join(errs...)
}
