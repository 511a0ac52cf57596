package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const geminiAPIURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Gemini implements Client for Google's Gemini API.
type Gemini struct {
	apiKey      string
	model       string
	baseURL     string
	maxTokens   int
	temperature float64
	client      *http.Client
}

// NewGemini creates a new Gemini client.
func NewGemini(opts Options) (*Gemini, error) {
	key := lookupKey(opts.APIKeyEnv, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	if key == "" {
		return nil, missingKey("GEMINI_API_KEY (or GOOGLE_API_KEY)")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = geminiAPIURL
	}
	return &Gemini{
		apiKey:      key,
		model:       modelOr(opts.Model, defaultGeminiModel),
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxTokens:   opts.maxTokens(),
		temperature: opts.Temperature,
		client:      &http.Client{Timeout: opts.timeout()},
	}, nil
}

func (g *Gemini) Name() string  { return "gemini" }
func (g *Gemini) Model() string { return g.model }

func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	return g.Chat(ctx, userPrompt(prompt))
}

func (g *Gemini) Chat(ctx context.Context, messages []Message) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent", g.baseURL, g.model)

	system, rest := splitSystem(messages)
	body := geminiRequest{
		GenerationConfig: &geminiGenConfig{MaxOutputTokens: g.maxTokens},
	}
	if system != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	if g.temperature > 0 {
		body.GenerationConfig.Temperature = &g.temperature
	}
	for _, m := range rest {
		role := m.Role
		if role == RoleAssistant {
			role = "model"
		}
		body.Contents = append(body.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}

	var result geminiResponse
	headers := map[string]string{"x-goog-api-key": g.apiKey}
	if err := postJSON(ctx, g.client, url, headers, body, &result); err != nil {
		return "", err
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	var content strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		content.WriteString(part.Text)
	}
	return content.String(), nil
}

type geminiRequest struct {
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	Contents          []geminiContent  `json:"contents"`
	GenerationConfig  *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata geminiUsage       `json:"usageMetadata"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiUsage struct {
	TotalTokenCount int `json:"totalTokenCount"`
}
