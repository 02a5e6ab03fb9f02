package feedback

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/hurttlocker/ratemyfit/internal/color"
	"github.com/hurttlocker/ratemyfit/internal/llm"
)

// policyPhrases are lowercase refusal fragments. Matching any of them
// short-circuits to the fallback.
var policyPhrases = []string{
	"i cannot identify",
	"i can't identify",
	"i can't help with identifying",
	"i cannot help with identifying",
	"i'm unable to identify",
	"i am unable to identify",
	"i'm not able to identify",
	"i cannot analyze people",
	"i can't analyze people",
	"unable to analyze people",
	"i can't assist with that",
	"i cannot assist with that",
	"i'm sorry, but i can't",
	"i'm sorry, but i cannot",
	"against my content policy",
	"violates our content policy",
	"i can't provide feedback on people",
}

// fencedRE captures the body of every fenced code block.
var fencedRE = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// Relaxed-extraction patterns.
var (
	scoreOutOfTenRE = regexp.MustCompile(`(?i)\b(\d{1,2}(?:\.\d+)?)\s*(?:/|out\s+of)\s*10\b`)
	scoreLabelRE    = regexp.MustCompile(`(?i)"?\b(?:score|rating)"?\s*[:=]?\s*"?(\d{1,2}(?:\.\d+)?)`)
	feedbackLabelRE = regexp.MustCompile(`(?is)"?\bfeedback"?\s*[:=]\s*"?(.+?)(?:"\s*[,}\n]|\n\s*\n|\n\s*"?suggestions|$)`)
	suggestionsRE   = regexp.MustCompile(`(?is)"?\bsuggestions"?\s*[:=]?\s*(.*)$`)
	bulletRE        = regexp.MustCompile(`(?m)^\s*(?:[-*•]|\d{1,2}[.)])\s+(.+?)\s*$`)
	quotedRE        = regexp.MustCompile(`"((?:[^"\\]|\\.){3,})"`)
)

// wireResponse is the untrusted JSON shape. Score and suggestions are kept
// raw because models emit them as numbers, strings or single values.
type wireResponse struct {
	Score         json.RawMessage `json:"score"`
	Feedback      *string         `json:"feedback"`
	Suggestions   json.RawMessage `json:"suggestions"`
	StyleAnalysis *StyleAnalysis  `json:"styleAnalysis"`
}

// Parse recovers a Response from raw model text. It never panics and always
// returns a Response with a score in [1,10] and at least one suggestion.
func Parse(text string, opts ParseOptions) (result ParseResult) {
	if opts.Mode == "" {
		opts.Mode = ModeStandard
	}
	defer func() {
		if r := recover(); r != nil {
			result = ParseResult{
				Response: Fallback(opts),
				Path:     PathFallback,
				Problems: append(result.Problems, fmt.Sprintf("parser panic: %v", r)),
			}
		}
		parserOutcomesTotal.WithLabelValues(string(result.Path), string(opts.Mode)).Inc()
	}()

	// 1. Policy check.
	if phrase, ok := detectPolicy(text); ok {
		return ParseResult{
			Response: Fallback(opts),
			Path:     PathPolicy,
			Problems: []string{fmt.Sprintf("policy refusal detected: %q", phrase)},
		}
	}

	var problems []string

	// 2. Strict JSON.
	resp, err := parseStrict(text)
	if err == nil {
		errs := validate(&resp, opts)
		if len(errs) == 0 {
			return ParseResult{Response: resp, Path: PathStrict}
		}
		problems = append(problems, errs...)
	} else {
		problems = append(problems, "strict: "+err.Error())
	}

	// 3. Relaxed extraction, then 4. validation.
	resp = parseRelaxed(text)
	errs := validate(&resp, opts)
	if len(errs) == 0 {
		return ParseResult{Response: resp, Path: PathRelaxed, Problems: problems}
	}
	problems = append(problems, errs...)

	// 5. Fallback.
	return ParseResult{Response: Fallback(opts), Path: PathFallback, Problems: problems}
}

func detectPolicy(text string) (string, bool) {
	lower := strings.ToLower(strings.ReplaceAll(text, "’", "'"))
	for _, p := range policyPhrases {
		if strings.Contains(lower, p) {
			return p, true
		}
	}
	return "", false
}

// parseStrict tries each fenced block, the raw text, and the first
// brace-balanced object, returning the first that has all required fields.
func parseStrict(text string) (Response, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Response{}, fmt.Errorf("empty response")
	}

	var candidates []string
	for _, m := range fencedRE.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	candidates = append(candidates, text)
	if obj := llm.ExtractJSONObject(text); obj != "" {
		candidates = append(candidates, obj)
	}

	lastErr := fmt.Errorf("no JSON object found")
	for _, c := range candidates {
		var w wireResponse
		if err := json.Unmarshal([]byte(c), &w); err != nil {
			if obj := llm.ExtractJSONObject(c); obj != "" && obj != c {
				err = json.Unmarshal([]byte(obj), &w)
			}
			if err != nil {
				lastErr = err
				continue
			}
		}
		resp, err := w.toResponse()
		if err != nil {
			lastErr = err
			continue
		}
		return resp, nil
	}
	return Response{}, lastErr
}

func (w wireResponse) toResponse() (Response, error) {
	if len(w.Score) == 0 || w.Feedback == nil || len(w.Suggestions) == 0 {
		return Response{}, fmt.Errorf("missing required fields (score, feedback, suggestions)")
	}
	score, err := decodeScore(w.Score)
	if err != nil {
		return Response{}, err
	}
	suggestions, err := decodeSuggestions(w.Suggestions)
	if err != nil {
		return Response{}, err
	}
	return Response{
		Score:         score,
		Feedback:      strings.TrimSpace(*w.Feedback),
		Suggestions:   suggestions,
		StyleAnalysis: w.StyleAnalysis,
	}, nil
}

// decodeScore accepts 7, 7.5, "7", "7/10". Fractions are rounded.
func decodeScore(raw json.RawMessage) (int, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return roundScore(f), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("score is not a number: %s", string(raw))
	}
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "/"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("score is not a number: %q", s)
	}
	return roundScore(f), nil
}

// roundScore rounds an in-range score. Anything outside [MinScore, MaxScore]
// before rounding becomes 0, which validation rejects.
func roundScore(f float64) int {
	if math.IsNaN(f) || f < MinScore || f > MaxScore {
		return 0
	}
	return int(math.Round(f))
}

// decodeSuggestions accepts a string array or a single string.
func decodeSuggestions(raw json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		var one string
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, fmt.Errorf("suggestions is not a string list")
		}
		list = []string{one}
	}
	return cleanSuggestions(list), nil
}

func cleanSuggestions(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseRelaxed scrapes score, feedback and suggestions from prose. Missing
// pieces stay zero and fail validation.
func parseRelaxed(text string) Response {
	var resp Response

	if m := scoreOutOfTenRE.FindStringSubmatch(text); m != nil {
		resp.Score = parseScoreText(m[1])
	} else if m := scoreLabelRE.FindStringSubmatch(text); m != nil {
		resp.Score = parseScoreText(m[1])
	}

	if m := feedbackLabelRE.FindStringSubmatch(text); m != nil {
		resp.Feedback = strings.TrimSpace(unescape(m[1]))
	}

	labelled := false
	if m := suggestionsRE.FindStringSubmatch(text); m != nil {
		tail := strings.TrimSpace(m[1])
		switch {
		case strings.HasPrefix(tail, "["):
			// Only the array's own elements; later keys of the object are not suggestions.
			labelled = true
			for _, q := range quotedRE.FindAllStringSubmatch(arrayBody(tail), -1) {
				resp.Suggestions = append(resp.Suggestions, unescape(q[1]))
			}
		case strings.HasPrefix(tail, `"`):
			labelled = true
			if q := quotedRE.FindStringSubmatch(tail); q != nil && strings.HasPrefix(tail, q[0]) {
				resp.Suggestions = append(resp.Suggestions, unescape(q[1]))
			}
		default:
			for _, b := range bulletRE.FindAllStringSubmatch(tail, -1) {
				resp.Suggestions = append(resp.Suggestions, b[1])
			}
		}
	}
	if len(resp.Suggestions) == 0 && !labelled {
		for _, b := range bulletRE.FindAllStringSubmatch(text, -1) {
			resp.Suggestions = append(resp.Suggestions, b[1])
		}
	}
	resp.Suggestions = cleanSuggestions(resp.Suggestions)

	// Without a labelled feedback, use the prose that is not a bullet.
	if resp.Feedback == "" {
		resp.Feedback = strings.TrimSpace(bulletRE.ReplaceAllString(fencedRE.ReplaceAllString(text, ""), ""))
	}
	return resp
}

// arrayBody returns the contents of the JSON array opening tail, up to its
// matching bracket. A truncated array yields everything after the bracket.
func arrayBody(tail string) string {
	depth := 0
	inString, escaped := false, false
	for i, r := range tail {
		switch {
		case escaped:
			escaped = false
		case inString && r == '\\':
			escaped = true
		case r == '"':
			inString = !inString
		case inString:
		case r == '[':
			depth++
		case r == ']':
			depth--
			if depth == 0 {
				return tail[1:i]
			}
		}
	}
	return tail[1:]
}

func parseScoreText(s string) int {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return roundScore(f)
}

func unescape(s string) string {
	if u, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return u
	}
	return s
}

// validate checks resp against the mode's rules. An optional style analysis
// that is malformed is dropped rather than failing the response.
func validate(resp *Response, opts ParseOptions) []string {
	var errs []string
	if resp.Score < MinScore || resp.Score > MaxScore {
		errs = append(errs, fmt.Sprintf("score %d outside [%d,%d]", resp.Score, MinScore, MaxScore))
	}
	if len([]rune(strings.TrimSpace(resp.Feedback))) < minFeedbackLen {
		errs = append(errs, fmt.Sprintf("feedback shorter than %d characters", minFeedbackLen))
	}
	resp.Suggestions = cleanSuggestions(resp.Suggestions)
	if len(resp.Suggestions) == 0 {
		errs = append(errs, "no suggestions")
	}

	requireStyle := opts.RequireStyleAnalysis && opts.Mode != ModeRoast
	if resp.StyleAnalysis != nil {
		if err := validateStyle(resp.StyleAnalysis); err != nil {
			if requireStyle {
				errs = append(errs, err.Error())
			} else {
				resp.StyleAnalysis = nil
			}
		}
	} else if requireStyle {
		errs = append(errs, "style analysis missing")
	}
	return errs
}

var hexColorRE = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func validateStyle(s *StyleAnalysis) error {
	if strings.TrimSpace(s.ColorPalette.SeasonalType) == "" {
		return fmt.Errorf("style analysis: seasonal type missing")
	}
	colors := s.ColorPalette.Colors
	if len(colors) != color.PaletteRows {
		return fmt.Errorf("style analysis: palette has %d rows, want %d", len(colors), color.PaletteRows)
	}
	for i, row := range colors {
		if len(row) != color.PaletteCols {
			return fmt.Errorf("style analysis: palette row %d has %d colors, want %d", i, len(row), color.PaletteCols)
		}
		for _, c := range row {
			if !hexColorRE.MatchString(c) {
				return fmt.Errorf("style analysis: invalid hex color %q", c)
			}
		}
	}
	return nil
}
