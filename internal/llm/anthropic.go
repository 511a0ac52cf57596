package llm

import (
	"context"
	"fmt"
	"net/http"
)

const (
	anthropicAPIURL     = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"
)

// Anthropic implements Client for Anthropic's Messages API.
type Anthropic struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
}

// NewAnthropic creates a new Anthropic client.
func NewAnthropic(opts Options) (*Anthropic, error) {
	key := lookupKey(opts.APIKeyEnv, "ANTHROPIC_API_KEY")
	if key == "" {
		return nil, missingKey("ANTHROPIC_API_KEY")
	}
	return &Anthropic{
		apiKey:      key,
		model:       modelOr(opts.Model, defaultAnthropicModel),
		maxTokens:   opts.maxTokens(),
		temperature: opts.Temperature,
		client:      &http.Client{Timeout: opts.timeout()},
	}, nil
}

func (a *Anthropic) Name() string  { return "anthropic" }
func (a *Anthropic) Model() string { return a.model }

func (a *Anthropic) Complete(ctx context.Context, prompt string) (string, error) {
	return a.Chat(ctx, userPrompt(prompt))
}

func (a *Anthropic) Chat(ctx context.Context, messages []Message) (string, error) {
	system, rest := splitSystem(messages)
	body := anthropicRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    system,
	}
	if a.temperature > 0 {
		body.Temperature = &a.temperature
	}
	for _, m := range rest {
		body.Messages = append(body.Messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}

	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicAPIVersion,
	}
	var result anthropicResponse
	if err := postJSON(ctx, a.client, anthropicAPIURL, headers, body, &result); err != nil {
		return "", err
	}

	var content string
	for _, block := range result.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}
	if content == "" {
		return "", fmt.Errorf("empty text content in API response")
	}
	return content, nil
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicBlock `json:"content"`
	Usage   anthropicUsage   `json:"usage"`
}

type anthropicBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
