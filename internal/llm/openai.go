package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// openaiProvider implements VisionProvider for OpenAI-compatible chat
// completion APIs (OpenAI, OpenRouter, Ollama).
type openaiProvider struct {
	httpBase
	flavor  string // provider name used in Name() and headers
	apiKey  string
	model   string
	baseURL string
}

// OpenAI-compatible request/response types.
type oaRequest struct {
	Model          string         `json:"model"`
	Messages       []oaMessage    `json:"messages"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat *oaResponseFmt `json:"response_format,omitempty"`
}

// oaMessage content is either a string or a list of oaContentPart.
type oaMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type oaContentPart struct {
	Type     string      `json:"type"`
	Text     string      `json:"text,omitempty"`
	ImageURL *oaImageURL `json:"image_url,omitempty"`
}

type oaImageURL struct {
	URL string `json:"url"`
}

type oaResponseFmt struct {
	Type string `json:"type"`
}

type oaResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *oaError `json:"error,omitempty"`
}

type oaError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

func (o *openaiProvider) Name() string {
	return o.flavor + "/" + o.model
}

func (o *openaiProvider) Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error) {
	return o.chat(ctx, prompt, opts)
}

func (o *openaiProvider) CompleteWithImage(ctx context.Context, prompt string, img Image, opts CompletionOpts) (string, error) {
	if len(img.Data) == 0 {
		return "", fmt.Errorf("empty image")
	}
	mime := img.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	content := []oaContentPart{
		{Type: "text", Text: prompt},
		{Type: "image_url", ImageURL: &oaImageURL{
			URL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data),
		}},
	}
	return o.chat(ctx, content, opts)
}

func (o *openaiProvider) chat(ctx context.Context, userContent any, opts CompletionOpts) (string, error) {
	model := o.model
	if opts.Model != "" {
		model = opts.Model
	}

	messages := make([]oaMessage, 0, 2)
	if opts.System != "" {
		messages = append(messages, oaMessage{Role: "system", Content: opts.System})
	}
	messages = append(messages, oaMessage{Role: "user", Content: userContent})

	req := oaRequest{
		Model:       model,
		Messages:    messages,
		Temperature: opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if strings.ToLower(opts.Format) == "json" {
		req.ResponseFormat = &oaResponseFmt{Type: "json_object"}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	headers := map[string]string{}
	if o.apiKey != "" {
		headers["Authorization"] = "Bearer " + o.apiKey
	}
	if o.flavor == "openrouter" {
		headers["HTTP-Referer"] = "https://github.com/hurttlocker/ratemyfit"
		headers["X-Title"] = "RateMyFit"
	}

	respBody, err := o.post(ctx, o.baseURL+"/chat/completions", headers, body)
	if err != nil {
		return "", fmt.Errorf("%s API error: %w", o.flavor, err)
	}

	var oaResp oaResponse
	if err := json.Unmarshal(respBody, &oaResp); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}

	if oaResp.Error != nil {
		return "", fmt.Errorf("%s API error: %s", o.flavor, oaResp.Error.Message)
	}

	if len(oaResp.Choices) == 0 {
		return "", fmt.Errorf("empty response from %s API", o.flavor)
	}

	return strings.TrimSpace(oaResp.Choices[0].Message.Content), nil
}
