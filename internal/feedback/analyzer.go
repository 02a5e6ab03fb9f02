package feedback

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hurttlocker/ratemyfit/internal/llm"
)

// AnalysisRequest is one outfit photo to rate.
type AnalysisRequest struct {
	// ImageBase64 is raw base64 or a data URL ("data:image/png;base64,...").
	ImageBase64  string `json:"image_base64" validate:"required"`
	Gender       string `json:"gender,omitempty"`
	Mode         Mode   `json:"mode,omitempty"`
	EventContext string `json:"event_context,omitempty" validate:"max=500"`
}

// Analyzer rates outfit photos with a vision model and recovers the result
// through Parse.
type Analyzer struct {
	provider     llm.VisionProvider
	requireStyle bool
	logger       *slog.Logger
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithStyleAnalysis requires a style analysis in standard mode.
func WithStyleAnalysis(required bool) AnalyzerOption {
	return func(a *Analyzer) { a.requireStyle = required }
}

// WithAnalyzerLogger sets the logger.
func WithAnalyzerLogger(l *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAnalyzer creates an analyzer. A nil provider is allowed: every analysis
// then ends in the fallback.
func NewAnalyzer(provider llm.VisionProvider, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		provider:     provider,
		requireStyle: true,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze sends the image to the model and parses its answer. Upstream
// failures never surface as errors: they end in the fallback path with the
// cause in Problems.
func (a *Analyzer) Analyze(ctx context.Context, req AnalysisRequest) ParseResult {
	mode := ParseMode(string(req.Mode))
	opts := ParseOptions{Mode: mode, RequireStyleAnalysis: a.requireStyle}

	fail := func(problem string) ParseResult {
		res := Parse("", opts)
		res.Problems = append([]string{problem}, res.Problems...)
		return res
	}

	if a.provider == nil {
		return fail("no vision provider configured")
	}
	img, err := decodeImage(req.ImageBase64)
	if err != nil {
		return fail(err.Error())
	}

	raw, err := a.provider.CompleteWithImage(ctx, buildAnalysisPrompt(req, mode, a.requireStyle), img, llm.CompletionOpts{
		Temperature: 0.7,
		MaxTokens:   1500,
		Format:      "json",
		System:      analysisSystemPrompt(mode),
	})
	if err != nil {
		analysisErrorsTotal.WithLabelValues(a.provider.Name()).Inc()
		a.logger.Warn("image analysis failed", "provider", a.provider.Name(), "error", err)
		return fail(fmt.Sprintf("upstream: %v", err))
	}

	res := Parse(raw, opts)
	if res.Path == PathFallback || res.Path == PathPolicy {
		a.logger.Info("analysis response recovered by fallback",
			"provider", a.provider.Name(),
			"path", string(res.Path),
			"problems", len(res.Problems))
	}
	return res
}

// decodeImage accepts raw base64 or a data URL.
func decodeImage(s string) (llm.Image, error) {
	s = strings.TrimSpace(s)
	mime := ""
	if strings.HasPrefix(s, "data:") {
		header, payload, ok := strings.Cut(s, ",")
		if !ok {
			return llm.Image{}, fmt.Errorf("malformed data URL")
		}
		mime = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		s = payload
	}
	if s == "" {
		return llm.Image{}, fmt.Errorf("empty image")
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); err != nil {
			return llm.Image{}, fmt.Errorf("decoding image: %w", err)
		}
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return llm.Image{MIMEType: mime, Data: data}, nil
}

func analysisSystemPrompt(mode Mode) string {
	if mode == ModeRoast {
		return "You are a witty fashion critic. Roast the outfit with humor but stay kind about the person; critique clothes only. Respond with JSON only."
	}
	return "You are a professional fashion stylist. Give honest, constructive feedback about the outfit only. Respond with JSON only."
}

func buildAnalysisPrompt(req AnalysisRequest, mode Mode, requireStyle bool) string {
	var b strings.Builder
	b.WriteString("Rate the outfit in this photo from 1 to 10.\n")
	if g := strings.TrimSpace(req.Gender); g != "" {
		fmt.Fprintf(&b, "The person presents as %s.\n", g)
	}
	if ec := strings.TrimSpace(req.EventContext); ec != "" {
		fmt.Fprintf(&b, "The outfit is for: %s.\n", ec)
	}
	if mode == ModeRoast {
		b.WriteString("Use a playful roast tone.\n")
	}
	b.WriteString("\nReturn a JSON object with:\n")
	b.WriteString(`- "score": integer 1-10` + "\n")
	b.WriteString(`- "feedback": at least two sentences, name specific garments and start a sentence with "Style:"` + "\n")
	b.WriteString(`- "suggestions": array of 3 concrete suggestions naming garments (e.g. "Try a white cardigan")` + "\n")
	if requireStyle && mode != ModeRoast {
		b.WriteString(`- "styleAnalysis": {"bodyType": string, "fit": string, "colorPalette": {"seasonalType": one of the 12 seasonal color types, "undertone": "warm"|"cool"|"neutral", "colors": 8 rows of 6 "#RRGGBB" strings}}` + "\n")
	}
	return b.String()
}
