package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Message is one entry of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Role values understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Client is the text-completion abstraction consumed by agents and the
// summarizer. Implementations must be safe for concurrent use.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Chat(ctx context.Context, messages []Message) (string, error)
	Name() string
	Model() string
}

// Options configures a provider client.
type Options struct {
	Model       string
	APIKeyEnv   string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

const (
	defaultMaxTokens = 4096
	defaultTimeout   = 120 * time.Second
	maxRetries       = 3
)

// Default models used when Options.Model is empty.
const (
	defaultAnthropicModel = "claude-sonnet-4-20250514"
	defaultOpenAIModel    = "gpt-4"
	defaultGeminiModel    = "gemini-2.0-flash"
	defaultOllamaModel    = "llama3.1"
	defaultGenkitModel    = "googleai/gemini-2.0-flash"
)

// Providers lists the accepted provider names, aliases included.
var Providers = []string{"anthropic", "openai", "gemini", "google", "ollama", "lmstudio", "genkit"}

// Info describes a provider for listings.
type Info struct {
	Name         string
	DefaultModel string
	KeyEnv       string
}

// Catalog describes each provider without aliases.
var Catalog = []Info{
	{Name: "anthropic", DefaultModel: defaultAnthropicModel, KeyEnv: "ANTHROPIC_API_KEY"},
	{Name: "openai", DefaultModel: defaultOpenAIModel, KeyEnv: "OPENAI_API_KEY"},
	{Name: "gemini", DefaultModel: defaultGeminiModel, KeyEnv: "GEMINI_API_KEY"},
	{Name: "ollama", DefaultModel: defaultOllamaModel},
	{Name: "genkit", DefaultModel: defaultGenkitModel, KeyEnv: "GEMINI_API_KEY or OPENAI_API_KEY"},
}

// New creates a client by provider name. The name is case-insensitive.
func New(provider string, opts Options) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "anthropic":
		return NewAnthropic(opts)
	case "openai":
		return NewOpenAI(opts)
	case "gemini", "google":
		return NewGemini(opts)
	case "ollama", "lmstudio":
		return NewOllama(opts)
	case "genkit":
		return NewGenkit(opts)
	default:
		return nil, fmt.Errorf("unknown provider: %s (available: %s)", provider, strings.Join(Providers, ", "))
	}
}

// lookupKey returns the API key from the configured env var, falling back to
// the provider's conventional variables.
func lookupKey(configured string, fallbacks ...string) string {
	if configured != "" {
		if v := os.Getenv(configured); v != "" {
			return v
		}
	}
	for _, name := range fallbacks {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func (o Options) maxTokens() int {
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	return defaultMaxTokens
}

func (o Options) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return defaultTimeout
}

func modelOr(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}

// splitSystem separates system messages from the conversation for providers
// that take the system prompt as a dedicated field.
func splitSystem(messages []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}

func userPrompt(prompt string) []Message {
	return []Message{{Role: RoleUser, Content: prompt}}
}
