// Package llm provides a provider-agnostic LLM adapter for RateMyFit.
// Used by outfit image analysis and AI-assisted item extraction.
// Speaks the Gemini and OpenAI-compatible REST APIs over net/http.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider is the interface for LLM completions.
type Provider interface {
	// Complete sends a prompt and returns the response text.
	Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error)
	// Name returns a human-readable provider name (e.g., "google/gemini-2.5-flash").
	Name() string
}

// VisionProvider is a Provider that also accepts an image alongside the prompt.
type VisionProvider interface {
	Provider
	// CompleteWithImage sends a prompt plus one image and returns the response text.
	CompleteWithImage(ctx context.Context, prompt string, img Image, opts CompletionOpts) (string, error)
}

// Image is an inline image payload. Data is raw bytes, not base64.
type Image struct {
	MIMEType string
	Data     []byte
}

// CompletionOpts configures a single completion request.
type CompletionOpts struct {
	MaxTokens   int     // Max tokens to generate (0 = provider default)
	Temperature float64 // 0.0-2.0 (0 = deterministic)
	Model       string  // Override model for this request (empty = use provider default)
	Format      string  // "json" for structured output, empty for plain text
	System      string  // System prompt (optional)
}

// Config holds provider configuration. API keys are resolved by the caller
// (see internal/config); NewProvider never reads the environment.
type Config struct {
	Provider   string // "google", "openai", "openrouter", "ollama"
	Model      string // e.g., "gemini-2.5-flash", "openai/gpt-4o-mini"
	APIKey     string
	BaseURL    string        // Optional URL override
	MaxRetries int           // retries on 429/5xx (default: 2)
	Timeout    time.Duration // per-request timeout (default: 60s)
}

// Provider defaults.
var defaultModels = map[string]string{
	"google":     "gemini-2.5-flash",
	"openai":     "gpt-4o-mini",
	"openrouter": "openai/gpt-4o-mini",
	"ollama":     "llava",
}

var defaultBaseURLs = map[string]string{
	"google":     "https://generativelanguage.googleapis.com/v1beta",
	"openai":     "https://api.openai.com/v1",
	"openrouter": "https://openrouter.ai/api/v1",
	"ollama":     "http://localhost:11434/v1",
}

// SupportedProviders lists the accepted provider names.
var SupportedProviders = []string{"google", "openai", "openrouter", "ollama"}

// NewProvider creates an LLM provider from the given config. Every returned
// provider also implements VisionProvider.
func NewProvider(cfg Config) (VisionProvider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if _, ok := defaultBaseURLs[name]; !ok {
		return nil, fmt.Errorf("unknown LLM provider: %q (supported: %s)", cfg.Provider, strings.Join(SupportedProviders, ", "))
	}
	if cfg.APIKey == "" && name != "ollama" {
		return nil, fmt.Errorf("%s provider requires an API key", name)
	}

	model := cfg.Model
	if model == "" {
		model = defaultModels[name]
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURLs[name]
	}
	base := httpBase{
		maxRetries: cfg.MaxRetries,
		timeout:    cfg.Timeout,
	}
	if base.maxRetries <= 0 {
		base.maxRetries = 2
	}
	if base.timeout <= 0 {
		base.timeout = 60 * time.Second
	}

	if name == "google" {
		return &googleProvider{httpBase: base, apiKey: cfg.APIKey, model: model, baseURL: baseURL}, nil
	}
	return &openaiProvider{httpBase: base, flavor: name, apiKey: cfg.APIKey, model: model, baseURL: baseURL}, nil
}

// ParseLLMFlag parses a --llm flag value into a Config.
// Format: "provider/model" e.g., "google/gemini-2.5-flash", "openrouter/openai/gpt-4o-mini"
func ParseLLMFlag(flag string) (Config, error) {
	if flag == "" {
		return Config{Provider: "google", Model: defaultModels["google"]}, nil
	}

	parts := strings.SplitN(flag, "/", 2)
	if len(parts) < 2 || parts[1] == "" {
		return Config{}, fmt.Errorf("invalid --llm format %q: expected provider/model (e.g., google/gemini-2.5-flash)", flag)
	}

	provider := strings.ToLower(parts[0])
	if _, ok := defaultBaseURLs[provider]; !ok {
		return Config{}, fmt.Errorf("unknown provider %q in --llm flag (supported: %s)", provider, strings.Join(SupportedProviders, ", "))
	}
	return Config{Provider: provider, Model: parts[1]}, nil
}
