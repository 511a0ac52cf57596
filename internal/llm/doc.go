// Package llm implements the text-completion clients used by review agents
// and the summarizer.
//
// Every backend satisfies [Client]: Complete sends a single user prompt and
// Chat sends a role-tagged message list. Supported providers are Anthropic,
// OpenAI (and OpenAI-compatible servers such as Ollama and LM Studio), Google
// Gemini, and Genkit, which routes to its OpenAI or Google AI plugin.
//
// The HTTP clients share one retry policy: rate limits and 5xx responses are
// retried with exponential back-off, authentication failures never are.
// [NewCached] wraps any Client with the on-disk response cache.
//
// Use [New] to obtain a Client by provider name.
package llm
