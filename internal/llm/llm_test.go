package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"google.golang.org/genai"
)

// rewriteTransport rewrites all request URLs to point at the test server.
type rewriteTransport struct {
	base    http.RoundTripper
	baseURL string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = "http"
	req.URL.Host = strings.TrimPrefix(t.baseURL, "http://")
	if t.base != nil {
		return t.base.RoundTrip(req)
	}
	return http.DefaultTransport.RoundTrip(req)
}

func redirectClient(server *httptest.Server) *http.Client {
	return &http.Client{
		Transport: &rewriteTransport{
			base:    server.Client().Transport,
			baseURL: server.URL,
		},
	}
}

func fastBackoff(t *testing.T) {
	t.Helper()
	orig := backoffBase
	backoffBase = time.Millisecond
	t.Cleanup(func() { backoffBase = orig })
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New("unknown", Options{})
	if err == nil {
		t.Fatal("Expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "anthropic") {
		t.Errorf("error should list available providers, got: %v", err)
	}
}

func TestNew_CaseInsensitive(t *testing.T) {
	t.Setenv("SHERPA_TEST_KEY", "k")
	c, err := New("OpenAI", Options{APIKeyEnv: "SHERPA_TEST_KEY"})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if c.Name() != "openai" {
		t.Errorf("Name() = %q, want %q", c.Name(), "openai")
	}
	if c.Model() != "gpt-4" {
		t.Errorf("Model() = %q, want default %q", c.Model(), "gpt-4")
	}
}

func TestNew_MissingKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("SHERPA_EMPTY_KEY", "")
	_, err := New("anthropic", Options{APIKeyEnv: "SHERPA_EMPTY_KEY"})
	if err == nil {
		t.Fatal("Expected missing key error")
	}
	if !IsAuthError(err) {
		t.Errorf("missing key error %v should count as an auth error", err)
	}
}

func TestLookupKey_FallsBack(t *testing.T) {
	t.Setenv("SHERPA_CONFIGURED", "")
	t.Setenv("SHERPA_FALLBACK", "fallback-key")
	if got := lookupKey("SHERPA_CONFIGURED", "SHERPA_FALLBACK"); got != "fallback-key" {
		t.Errorf("lookupKey = %q, want %q", got, "fallback-key")
	}
	t.Setenv("SHERPA_CONFIGURED", "configured-key")
	if got := lookupKey("SHERPA_CONFIGURED", "SHERPA_FALLBACK"); got != "configured-key" {
		t.Errorf("lookupKey = %q, want %q", got, "configured-key")
	}
}

func TestOpenAI_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("Missing or wrong Authorization header")
		}
		var req openaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != RoleUser || req.Messages[0].Content != "hello" {
			t.Errorf("messages = %+v, want one user message", req.Messages)
		}
		if req.Temperature == nil || *req.Temperature != 0.3 {
			t.Errorf("temperature = %v, want 0.3", req.Temperature)
		}

		resp := openaiResponse{
			Choices: []openaiChoice{
				{Message: openaiMessage{Role: "assistant", Content: "[]"}},
			},
			Usage: openaiUsage{TotalTokens: 50},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	o := &OpenAI{
		name:        "openai",
		apiKey:      "test-key",
		model:       "gpt-4o",
		baseURL:     server.URL,
		maxTokens:   10,
		temperature: 0.3,
		client:      server.Client(),
	}

	got, err := o.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if got != "[]" {
		t.Errorf("Content = %q, want %q", got, "[]")
	}
}

func TestOpenAI_RateLimit(t *testing.T) {
	fastBackoff(t)
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			w.WriteHeader(429)
			w.Write([]byte(`{"error":"rate limited"}`))
			return
		}
		json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{Message: openaiMessage{Role: "assistant", Content: "ok"}}},
		})
	}))
	defer server.Close()

	o := &OpenAI{name: "openai", apiKey: "k", model: "gpt-4o", baseURL: server.URL, client: server.Client()}

	got, err := o.Complete(context.Background(), "x")
	if err != nil {
		t.Fatalf("Complete error after retries: %v", err)
	}
	if got != "ok" {
		t.Errorf("Content = %q, want %q", got, "ok")
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts (2 retries), got %d", attempts)
	}
}

func TestOpenAI_AuthErrorNotRetried(t *testing.T) {
	fastBackoff(t)
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(401)
		w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer server.Close()

	o := &OpenAI{name: "openai", apiKey: "bad", model: "gpt-4o", baseURL: server.URL, client: server.Client()}

	_, err := o.Complete(context.Background(), "x")
	if err == nil {
		t.Fatal("Expected auth error")
	}
	if !IsAuthError(err) {
		t.Errorf("Expected auth error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("auth errors should not be retried, got %d attempts", attempts)
	}
}

func TestOpenAI_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{Message: openaiMessage{Role: "assistant", Content: ""}}},
		})
	}))
	defer server.Close()

	o := &OpenAI{name: "openai", apiKey: "k", model: "gpt-4o", baseURL: server.URL, client: server.Client()}
	if _, err := o.Complete(context.Background(), "x"); err == nil {
		t.Error("Expected error for empty content")
	}
}

func TestOpenAI_ClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
		w.Write([]byte(`bad request`))
	}))
	defer server.Close()

	o := &OpenAI{name: "openai", apiKey: "k", model: "gpt-4o", baseURL: server.URL, client: server.Client()}
	_, err := o.Complete(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "status 400") {
		t.Errorf("err = %v, want status 400 error", err)
	}
}

func TestOllama_NoAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("Expected no Authorization header for keyless Ollama")
		}
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q, want /v1/chat/completions", r.URL.Path)
		}
		json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{Message: openaiMessage{Role: "assistant", Content: "local"}}},
		})
	}))
	defer server.Close()

	t.Setenv("SHERPA_OLLAMA_API_KEY", "")
	o, err := NewOllama(Options{BaseURL: server.URL + "/v1/"})
	if err != nil {
		t.Fatalf("NewOllama error: %v", err)
	}
	o.client = server.Client()

	got, err := o.Complete(context.Background(), "x")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if got != "local" {
		t.Errorf("Content = %q, want %q", got, "local")
	}
	if o.Name() != "ollama" {
		t.Errorf("Name() = %q, want %q", o.Name(), "ollama")
	}
}

func TestAnthropic_ChatSplitsSystem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Error("Missing API key header")
		}
		if r.Header.Get("anthropic-version") != anthropicAPIVersion {
			t.Error("Missing anthropic-version header")
		}
		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.System != "be terse" {
			t.Errorf("System = %q, want %q", req.System, "be terse")
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != RoleUser {
			t.Errorf("Messages = %+v, want one user message", req.Messages)
		}

		json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicBlock{{Type: "text", Text: "sum"}, {Type: "text", Text: "mary"}},
			Usage:   anthropicUsage{InputTokens: 100, OutputTokens: 10},
		})
	}))
	defer server.Close()

	a := &Anthropic{apiKey: "test-key", model: "claude", maxTokens: 10, client: redirectClient(server)}

	got, err := a.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "be terse"},
		{Role: RoleUser, Content: "summarize"},
	})
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	if got != "summary" {
		t.Errorf("Content = %q, want %q", got, "summary")
	}
}

func TestAnthropic_ServerErrorRetried(t *testing.T) {
	fastBackoff(t)
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			w.WriteHeader(500)
			w.Write([]byte(`{"error":"internal server error"}`))
			return
		}
		json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicBlock{{Type: "text", Text: "[]"}},
		})
	}))
	defer server.Close()

	a := &Anthropic{apiKey: "k", model: "claude", maxTokens: 10, client: redirectClient(server)}
	if _, err := a.Complete(context.Background(), "x"); err != nil {
		t.Fatalf("Complete should succeed after retries: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts (2 retries on 5xx), got %d", attempts)
	}
}

func TestAnthropic_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(anthropicResponse{Content: []anthropicBlock{}})
	}))
	defer server.Close()

	a := &Anthropic{apiKey: "k", model: "claude", maxTokens: 10, client: redirectClient(server)}
	if _, err := a.Complete(context.Background(), "x"); err == nil {
		t.Error("Expected error for empty content")
	}
}

func TestGemini_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Error("Missing API key in x-goog-api-key header")
		}
		if !strings.HasSuffix(r.URL.Path, "/gemini-2.0-flash:generateContent") {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.SystemInstruction != nil {
			t.Error("SystemInstruction should be omitted without a system message")
		}
		if len(req.Contents) != 2 || req.Contents[1].Role != "model" {
			t.Errorf("Contents = %+v, want assistant mapped to model", req.Contents)
		}

		json.NewEncoder(w).Encode(geminiResponse{
			Candidates: []geminiCandidate{
				{Content: geminiContent{Parts: []geminiPart{{Text: "[]"}}}},
			},
		})
	}))
	defer server.Close()

	g := &Gemini{apiKey: "test-key", model: "gemini-2.0-flash", baseURL: server.URL, maxTokens: 10, client: server.Client()}
	got, err := g.Chat(context.Background(), []Message{
		{Role: RoleUser, Content: "q"},
		{Role: RoleAssistant, Content: "a"},
	})
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	if got != "[]" {
		t.Errorf("Content = %q, want %q", got, "[]")
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := retryWithBackoff(ctx, 3, func() error {
		calls++
		return &rateLimitError{}
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestGenkitMessages(t *testing.T) {
	msgs := toGenkitMessages([]Message{
		{Role: RoleSystem, Content: "s"},
		{Role: RoleUser, Content: "u"},
		{Role: RoleAssistant, Content: "a"},
	})
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	wantRoles := []string{"system", "user", "model"}
	for i, m := range msgs {
		if string(m.Role) != wantRoles[i] {
			t.Errorf("msgs[%d].Role = %q, want %q", i, m.Role, wantRoles[i])
		}
	}
}

func TestNewGenkit_UnsupportedPlugin(t *testing.T) {
	_, err := NewGenkit(Options{Model: "vertexai/gemini"})
	if err == nil {
		t.Fatal("Expected error for unsupported plugin prefix")
	}
}

func TestGenkitModelID(t *testing.T) {
	tests := []struct {
		model   string
		want    string
		wantErr bool
	}{
		{"googleai/gemini-2.0-flash", "googleai/gemini-2.0-flash", false},
		{"openai/gpt-4o", "openai/gpt-4o", false},
		{"gemini-1.5-pro", "googleai/gemini-1.5-pro", false},
		{"gpt-4", "openai/gpt-4", false},
		{"o3-mini", "openai/o3-mini", false},
		{"llama3", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got, err := genkitModelID(tt.model)
			if (err != nil) != tt.wantErr {
				t.Fatalf("genkitModelID(%q) err = %v, wantErr %v", tt.model, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("genkitModelID(%q) = %q, want %q", tt.model, got, tt.want)
			}
		})
	}
}

func TestGenkitConfig(t *testing.T) {
	opts := Options{MaxTokens: 512, Temperature: 0.3}

	oc, ok := genkitConfig("openai", opts).(*openai.ChatCompletionNewParams)
	if !ok {
		t.Fatalf("openai config type = %T", genkitConfig("openai", opts))
	}
	if oc.MaxTokens.Value != 512 || oc.Temperature.Value != 0.3 {
		t.Errorf("openai config = max %d temp %v", oc.MaxTokens.Value, oc.Temperature.Value)
	}

	gc, ok := genkitConfig("googleai", opts).(*genai.GenerateContentConfig)
	if !ok {
		t.Fatalf("googleai config type = %T", genkitConfig("googleai", opts))
	}
	if gc.MaxOutputTokens != 512 || gc.Temperature == nil || *gc.Temperature != float32(0.3) {
		t.Errorf("googleai config = %+v", gc)
	}

	if gc := genkitConfig("googleai", Options{}).(*genai.GenerateContentConfig); gc.Temperature != nil || gc.MaxOutputTokens != defaultMaxTokens {
		t.Errorf("default googleai config = %+v", gc)
	}
}

func TestCatalog(t *testing.T) {
	for _, info := range Catalog {
		if !slices.Contains(Providers, info.Name) {
			t.Errorf("catalog entry %q is not an accepted provider", info.Name)
		}
		if info.DefaultModel == "" {
			t.Errorf("catalog entry %q has no default model", info.Name)
		}
	}

	c, err := New("ollama", Options{})
	if err != nil {
		t.Fatalf("New(ollama) error: %v", err)
	}
	if c.Model() != defaultOllamaModel {
		t.Errorf("ollama default model = %q, want %q", c.Model(), defaultOllamaModel)
	}
}
