package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultOpenAIURL  = "https://api.openai.com/v1/chat/completions"
	defaultOllamaHost = "http://localhost:11434"
)

// OpenAI implements Client for the OpenAI chat completions API and for
// servers that speak the same protocol (Ollama, LM Studio).
type OpenAI struct {
	name        string
	apiKey      string
	model       string
	baseURL     string
	maxTokens   int
	temperature float64
	client      *http.Client
}

// NewOpenAI creates a new OpenAI client.
func NewOpenAI(opts Options) (*OpenAI, error) {
	key := lookupKey(opts.APIKeyEnv, "OPENAI_API_KEY")
	if key == "" {
		return nil, missingKey("OPENAI_API_KEY")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIURL
	}
	return &OpenAI{
		name:        "openai",
		apiKey:      key,
		model:       modelOr(opts.Model, defaultOpenAIModel),
		baseURL:     baseURL,
		maxTokens:   opts.maxTokens(),
		temperature: opts.Temperature,
		client:      &http.Client{Timeout: opts.timeout()},
	}, nil
}

// NewOllama creates a client for a local OpenAI-compatible server. No API key
// is required by default.
func NewOllama(opts Options) (*OpenAI, error) {
	host := opts.BaseURL
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = defaultOllamaHost
	}
	host = strings.TrimRight(host, "/")
	host = strings.TrimSuffix(host, "/v1/chat/completions")
	host = strings.TrimSuffix(host, "/v1")

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &OpenAI{
		name:        "ollama",
		apiKey:      lookupKey(opts.APIKeyEnv, "SHERPA_OLLAMA_API_KEY"),
		model:       modelOr(opts.Model, defaultOllamaModel),
		baseURL:     host + "/v1/chat/completions",
		maxTokens:   opts.maxTokens(),
		temperature: opts.Temperature,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

func (o *OpenAI) Name() string  { return o.name }
func (o *OpenAI) Model() string { return o.model }

func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	return o.Chat(ctx, userPrompt(prompt))
}

func (o *OpenAI) Chat(ctx context.Context, messages []Message) (string, error) {
	body := openaiRequest{
		Model:     o.model,
		MaxTokens: o.maxTokens,
	}
	if o.temperature > 0 {
		body.Temperature = &o.temperature
	}
	for _, m := range messages {
		body.Messages = append(body.Messages, openaiMessage{Role: m.Role, Content: m.Content})
	}

	headers := map[string]string{}
	if o.apiKey != "" {
		headers["Authorization"] = "Bearer " + o.apiKey
	}
	var result openaiResponse
	if err := postJSON(ctx, o.client, o.baseURL, headers, body, &result); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	if result.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty text content in API response")
	}
	return result.Choices[0].Message.Content, nil
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}

type openaiUsage struct {
	TotalTokens int `json:"total_tokens"`
}
