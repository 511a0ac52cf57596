package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	oai "github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"
)

// Genkit implements Client on top of a Genkit instance. The model ID carries
// the plugin prefix, e.g. "openai/gpt-4o" or "googleai/gemini-2.0-flash".
// Unprefixed gpt-* and o-series models go to OpenAI, gemini-* to Google AI.
type Genkit struct {
	g       *genkit.Genkit
	modelID string
	config  any
}

// NewGenkit initializes Genkit with the plugin selected by the model prefix.
func NewGenkit(opts Options) (*Genkit, error) {
	modelID, err := genkitModelID(modelOr(opts.Model, defaultGenkitModel))
	if err != nil {
		return nil, err
	}
	plugin, _, _ := strings.Cut(modelID, "/")

	ctx := context.Background()
	var g *genkit.Genkit
	switch plugin {
	case "openai":
		key := lookupKey(opts.APIKeyEnv, "OPENAI_API_KEY")
		if key == "" {
			return nil, missingKey("OPENAI_API_KEY")
		}
		var reqOpts []option.RequestOption
		if opts.BaseURL != "" {
			reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
		}
		g = genkit.Init(ctx,
			genkit.WithDefaultModel(modelID),
			genkit.WithPlugins(&oai.OpenAI{APIKey: key, Opts: reqOpts}),
		)
	case "googleai":
		key := lookupKey(opts.APIKeyEnv, "GEMINI_API_KEY", "GOOGLE_API_KEY")
		if key == "" {
			return nil, missingKey("GEMINI_API_KEY (or GOOGLE_API_KEY)")
		}
		g = genkit.Init(ctx,
			genkit.WithDefaultModel(modelID),
			genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: key}),
		)
	default:
		return nil, fmt.Errorf("unsupported genkit plugin %q in model %q (use openai/ or googleai/)", plugin, modelID)
	}

	return &Genkit{g: g, modelID: modelID, config: genkitConfig(plugin, opts)}, nil
}

// genkitModelID adds the plugin prefix to a bare model name.
func genkitModelID(model string) (string, error) {
	if strings.Contains(model, "/") {
		return model, nil
	}
	lower := strings.ToLower(model)
	switch {
	case strings.HasPrefix(lower, "gemini"):
		return "googleai/" + model, nil
	case strings.HasPrefix(lower, "gpt-"), strings.HasPrefix(lower, "o1"),
		strings.HasPrefix(lower, "o3"), strings.HasPrefix(lower, "o4"):
		return "openai/" + model, nil
	}
	return "", fmt.Errorf("cannot infer genkit plugin for model %q (use openai/<model> or googleai/<model>)", model)
}

// genkitConfig builds the request config in the form each plugin accepts.
func genkitConfig(plugin string, opts Options) any {
	switch plugin {
	case "openai":
		cfg := &openai.ChatCompletionNewParams{MaxTokens: openai.Int(int64(opts.maxTokens()))}
		if opts.Temperature > 0 {
			cfg.Temperature = openai.Float(opts.Temperature)
		}
		return cfg
	default:
		cfg := &genai.GenerateContentConfig{MaxOutputTokens: int32(opts.maxTokens())}
		if opts.Temperature > 0 {
			cfg.Temperature = genai.Ptr(float32(opts.Temperature))
		}
		return cfg
	}
}

func (k *Genkit) Name() string  { return "genkit" }
func (k *Genkit) Model() string { return k.modelID }

func (k *Genkit) Complete(ctx context.Context, prompt string) (string, error) {
	return k.Chat(ctx, userPrompt(prompt))
}

func (k *Genkit) Chat(ctx context.Context, messages []Message) (string, error) {
	answer, err := genkit.GenerateText(ctx, k.g,
		ai.WithModelName(k.modelID),
		ai.WithMessages(toGenkitMessages(messages)...),
		ai.WithConfig(k.config),
	)
	if err != nil {
		return "", fmt.Errorf("genkit generate: %w", err)
	}
	return answer, nil
}

func toGenkitMessages(messages []Message) []*ai.Message {
	out := make([]*ai.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, ai.NewSystemTextMessage(m.Content))
		case RoleAssistant:
			out = append(out, ai.NewModelTextMessage(m.Content))
		default:
			out = append(out, ai.NewUserTextMessage(m.Content))
		}
	}
	return out
}
