package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/hurttlocker/ratemyfit/internal/llm"
)

// AIRequest is the input of the AI extraction adapter.
type AIRequest struct {
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions"`
}

// AIResult is the adapter outcome. Success=false means "no items"; callers
// fall back to the other matchers.
type AIResult struct {
	Success bool      `json:"success"`
	Items   []AIMatch `json:"items,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// ItemExtractor delegates clothing extraction to an external text service.
// Implementations must not panic and report every failure through AIResult.
type ItemExtractor interface {
	ExtractItems(ctx context.Context, req AIRequest) AIResult
}

const itemExtractionSystemPrompt = `You extract clothing items from fashion feedback.

RULES:
1. Only list garments, shoes and accessories that the text explicitly mentions or recommends
2. "name" is at most two words: an optional color or material plus the garment noun (e.g. "white cardigan")
3. "category" is one of: tops, bottoms, outerwear, dresses, footwear, accessories, other
4. "descriptors" are extra adjectives from the text (colors, materials, fit)
5. "confidence" is 0.0-1.0
6. Return ONLY a JSON object, no additional text

JSON SCHEMA:
{
  "items": [
    {"name": "white cardigan", "category": "outerwear", "descriptors": ["white"], "confidence": 0.9}
  ]
}`

// aiItemWire is the untrusted model output shape. It is converted to AIMatch
// only after validation.
type aiItemWire struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Descriptors []string `json:"descriptors"`
	Confidence  *float64 `json:"confidence"`
}

type aiResponseWire struct {
	Items []aiItemWire `json:"items"`
}

// defaultAIConfidence is used when the model omits a confidence.
const defaultAIConfidence = 0.75

// LLMItemExtractor implements ItemExtractor on top of an llm.Provider.
type LLMItemExtractor struct {
	provider llm.Provider
	opts     llm.CompletionOpts
}

// NewLLMItemExtractor creates an adapter using provider in JSON mode.
func NewLLMItemExtractor(provider llm.Provider) *LLMItemExtractor {
	return &LLMItemExtractor{
		provider: provider,
		opts: llm.CompletionOpts{
			Temperature: 0.1,
			MaxTokens:   800,
			Format:      "json",
			System:      itemExtractionSystemPrompt,
		},
	}
}

// ExtractItems asks the model for items. Errors, unparseable output and empty
// results all come back as Success=false.
func (e *LLMItemExtractor) ExtractItems(ctx context.Context, req AIRequest) (result AIResult) {
	defer func() {
		if r := recover(); r != nil {
			result = AIResult{Error: fmt.Sprintf("ai extraction panicked: %v", r)}
		}
	}()

	if e.provider == nil {
		return AIResult{Error: "no provider configured"}
	}
	if strings.TrimSpace(req.Feedback) == "" && len(req.Suggestions) == 0 {
		return AIResult{Error: "empty input"}
	}

	raw, err := e.provider.Complete(ctx, buildItemPrompt(req), e.opts)
	if err != nil {
		return AIResult{Error: fmt.Sprintf("completion failed: %v", err)}
	}

	items, err := parseAIItems(raw, e.provider.Name())
	if err != nil {
		return AIResult{Error: err.Error()}
	}
	if len(items) == 0 {
		return AIResult{Error: "no items in response"}
	}
	return AIResult{Success: true, Items: items}
}

func buildItemPrompt(req AIRequest) string {
	var b strings.Builder
	b.WriteString("Extract clothing items from this outfit feedback.\n\n---\nFEEDBACK:\n")
	b.WriteString(strings.TrimSpace(req.Feedback))
	if len(req.Suggestions) > 0 {
		b.WriteString("\n\nSUGGESTIONS:\n")
		for _, s := range req.Suggestions {
			b.WriteString("- ")
			b.WriteString(strings.TrimSpace(s))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n---\n\nReturn JSON matching the schema.")
	return b.String()
}

// parseAIItems decodes and validates model output. Invalid items are skipped.
func parseAIItems(raw, model string) ([]AIMatch, error) {
	var resp aiResponseWire
	if err := llm.DecodeJSONObject(raw, &resp); err != nil {
		return nil, fmt.Errorf("parsing model response: %w", err)
	}

	items := make([]AIMatch, 0, len(resp.Items))
	for _, w := range resp.Items {
		m, err := validateAIItem(w)
		if err != nil {
			continue
		}
		m.Model = model
		items = append(items, m)
	}
	return items, nil
}

func validateAIItem(w aiItemWire) (AIMatch, error) {
	name := strings.Join(strings.Fields(strings.ToLower(w.Name)), " ")
	if name == "" {
		return AIMatch{}, fmt.Errorf("name is required")
	}
	conf := defaultAIConfidence
	if w.Confidence != nil {
		conf = *w.Confidence
	}
	if conf < 0.0 || conf > 1.0 {
		return AIMatch{}, fmt.Errorf("confidence must be between 0.0 and 1.0, got %.2f", conf)
	}
	cat, ok := ParseCategory(w.Category)
	if !ok {
		cat, _ = categorize(name)
	}
	descriptors := make([]string, 0, len(w.Descriptors))
	for _, d := range w.Descriptors {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			descriptors = append(descriptors, d)
		}
	}
	return AIMatch{Name: name, Descriptors: descriptors, Category: cat, Confidence: conf}, nil
}
