package feedback

import (
	"math/rand/v2"
	"regexp"
	"strings"
	"testing"

	"github.com/hurttlocker/ratemyfit/internal/color"
)

var hexRE = regexp.MustCompile(`^#[0-9A-F]{6}$`)

func seeded() *rand.Rand { return rand.New(rand.NewPCG(42, 99)) }

func assertSchemaValid(t *testing.T, resp Response) {
	t.Helper()
	if resp.Score < MinScore || resp.Score > MaxScore {
		t.Errorf("score %d outside [1,10]", resp.Score)
	}
	if len(resp.Suggestions) == 0 {
		t.Error("empty suggestions")
	}
	for _, s := range resp.Suggestions {
		if strings.TrimSpace(s) == "" {
			t.Error("blank suggestion")
		}
	}
	if strings.TrimSpace(resp.Feedback) == "" {
		t.Error("empty feedback")
	}
}

func assertPalette(t *testing.T, sa *StyleAnalysis) {
	t.Helper()
	if sa == nil {
		t.Fatal("style analysis missing")
	}
	if sa.ColorPalette.SeasonalType == "" {
		t.Error("seasonal type missing")
	}
	if _, ok := color.Lookup(sa.ColorPalette.SeasonalType); !ok {
		t.Errorf("unknown seasonal type %q", sa.ColorPalette.SeasonalType)
	}
	if len(sa.ColorPalette.Colors) != 8 {
		t.Fatalf("palette rows = %d, want 8", len(sa.ColorPalette.Colors))
	}
	for i, row := range sa.ColorPalette.Colors {
		if len(row) != 6 {
			t.Fatalf("row %d has %d colors, want 6", i, len(row))
		}
		for _, c := range row {
			if !hexRE.MatchString(c) {
				t.Errorf("invalid hex %q", c)
			}
		}
	}
}

func TestParsePolicyRefusal(t *testing.T) {
	res := Parse("I cannot identify or analyze people in photos.", ParseOptions{Mode: ModeStandard, Rand: seeded()})
	if res.Path != PathPolicy {
		t.Fatalf("path = %q, want policy", res.Path)
	}
	assertSchemaValid(t, res.Response)
	if !strings.Contains(res.Response.Feedback, "Style:") {
		t.Errorf("fallback feedback should contain \"Style:\": %q", res.Response.Feedback)
	}
	assertPalette(t, res.Response.StyleAnalysis)
}

func TestParsePolicyCurlyApostrophe(t *testing.T) {
	res := Parse("I’m sorry, but I can’t help with that request.", ParseOptions{Rand: seeded()})
	if res.Path != PathPolicy {
		t.Errorf("path = %q, want policy", res.Path)
	}
}

func TestParseRoastFallback(t *testing.T) {
	for i := 0; i < 50; i++ {
		res := Parse("", ParseOptions{Mode: ModeRoast, Rand: rand.New(rand.NewPCG(uint64(i), 1))})
		if res.Path != PathFallback {
			t.Fatalf("path = %q, want fallback", res.Path)
		}
		if res.Response.Score < roastFallbackMin || res.Response.Score > roastFallbackMax {
			t.Errorf("roast fallback score %d outside [3,6]", res.Response.Score)
		}
		if res.Response.StyleAnalysis != nil {
			t.Error("roast fallback must omit style analysis")
		}
		if len(res.Response.Suggestions) != 3 {
			t.Errorf("expected 3 suggestions, got %d", len(res.Response.Suggestions))
		}
	}
}

func TestParseStandardFallbackRange(t *testing.T) {
	for i := 0; i < 50; i++ {
		res := Parse("garbage", ParseOptions{Rand: rand.New(rand.NewPCG(uint64(i), 2))})
		if res.Response.Score < standardFallbackMin || res.Response.Score > standardFallbackMax {
			t.Errorf("standard fallback score %d outside [6,8]", res.Response.Score)
		}
	}
}

func TestParseStrict(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantScore int
	}{
		{
			name:      "raw object",
			text:      `{"score": 7, "feedback": "Clean lines and a well balanced palette overall.", "suggestions": ["Try a white cardigan"]}`,
			wantScore: 7,
		},
		{
			name:      "fenced block",
			text:      "Here is my rating:\n```json\n{\"score\": 8, \"feedback\": \"Great proportions and the navy blazer works well.\", \"suggestions\": [\"Add a leather belt\", \"Swap to loafers\"]}\n```",
			wantScore: 8,
		},
		{
			name:      "prose around object",
			text:      `Sure! {"score": "6/10", "feedback": "Solid foundation but the colors clash slightly.", "suggestions": "Pair it with dark jeans"} Hope that helps.`,
			wantScore: 6,
		},
		{
			name:      "fractional score rounded",
			text:      `{"score": 7.6, "feedback": "Nicely layered with a good mix of textures.", "suggestions": ["Add a scarf"]}`,
			wantScore: 8,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.text, ParseOptions{})
			if res.Path != PathStrict {
				t.Fatalf("path = %q, want strict (problems: %v)", res.Path, res.Problems)
			}
			if res.Response.Score != tt.wantScore {
				t.Errorf("score = %d, want %d", res.Response.Score, tt.wantScore)
			}
			assertSchemaValid(t, res.Response)
		})
	}
}

func TestParseStrictRequiresStyleAnalysis(t *testing.T) {
	text := `{"score": 7, "feedback": "Clean lines and a well balanced palette overall.", "suggestions": ["Try a white cardigan"]}`
	res := Parse(text, ParseOptions{RequireStyleAnalysis: true, Rand: seeded()})
	if res.Path != PathFallback {
		t.Fatalf("path = %q, want fallback when style analysis is required", res.Path)
	}
	assertPalette(t, res.Response.StyleAnalysis)

	// Roast mode never requires it.
	res = Parse(text, ParseOptions{Mode: ModeRoast, RequireStyleAnalysis: true})
	if res.Path != PathStrict {
		t.Errorf("roast path = %q, want strict", res.Path)
	}
}

func TestParseStrictWithStyleAnalysis(t *testing.T) {
	palette := color.Palette(seeded(), "Deep Autumn")
	var rows []string
	for _, row := range palette {
		rows = append(rows, `["`+strings.Join(row, `","`)+`"]`)
	}
	text := `{"score": 9, "feedback": "Rich earthy tones that suit your coloring well.", "suggestions": ["Add a camel coat"],
		"styleAnalysis": {"bodyType": "rectangle", "fit": "tailored",
		"colorPalette": {"seasonalType": "Deep Autumn", "undertone": "warm", "colors": [` + strings.Join(rows, ",") + `]}}}`
	res := Parse(text, ParseOptions{RequireStyleAnalysis: true})
	if res.Path != PathStrict {
		t.Fatalf("path = %q, problems %v", res.Path, res.Problems)
	}
	assertPalette(t, res.Response.StyleAnalysis)
}

func TestParseDropsMalformedOptionalStyle(t *testing.T) {
	text := `{"score": 5, "feedback": "Decent basics, could use more structure.", "suggestions": ["Add a blazer"],
		"styleAnalysis": {"bodyType": "oval", "colorPalette": {"seasonalType": "Soft Summer", "colors": [["#fff"]]}}}`
	res := Parse(text, ParseOptions{})
	if res.Path != PathStrict {
		t.Fatalf("path = %q", res.Path)
	}
	if res.Response.StyleAnalysis != nil {
		t.Error("malformed optional style analysis should be dropped")
	}
}

func TestParseRelaxed(t *testing.T) {
	text := `Score: 7/10

Feedback: The outfit is cohesive and the denim jacket adds a nice casual edge.

Suggestions:
- Try white sneakers instead of boots
- Add a thin brown belt
1. Roll the sleeves once`
	res := Parse(text, ParseOptions{})
	if res.Path != PathRelaxed {
		t.Fatalf("path = %q, want relaxed (problems %v)", res.Path, res.Problems)
	}
	if res.Response.Score != 7 {
		t.Errorf("score = %d, want 7", res.Response.Score)
	}
	if !strings.HasPrefix(res.Response.Feedback, "The outfit is cohesive") {
		t.Errorf("feedback = %q", res.Response.Feedback)
	}
	if len(res.Response.Suggestions) != 3 {
		t.Errorf("suggestions = %v", res.Response.Suggestions)
	}
}

func TestParseBrokenJSONFallsToRelaxed(t *testing.T) {
	text := `{"score": 8, "feedback": "Sharp tailoring and a confident color story here.", "suggestions": ["Add a pocket square", "Try suede loafers"`
	res := Parse(text, ParseOptions{})
	if res.Path != PathRelaxed {
		t.Fatalf("path = %q, want relaxed (problems %v)", res.Path, res.Problems)
	}
	if res.Response.Score != 8 {
		t.Errorf("score = %d", res.Response.Score)
	}
	if len(res.Response.Suggestions) != 2 {
		t.Errorf("suggestions = %v", res.Response.Suggestions)
	}
}

func TestParseOutOfRangeScore(t *testing.T) {
	text := `{"score": 15, "feedback": "Absolutely perfect in every conceivable way.", "suggestions": ["Nothing"]}`
	res := Parse(text, ParseOptions{Rand: seeded()})
	if res.Path != PathFallback {
		t.Fatalf("path = %q, want fallback", res.Path)
	}
	assertSchemaValid(t, res.Response)
}

func TestParseEmptySuggestionsFallsBack(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"trailing null key", `{"score":7,"feedback":"A solid outfit with strong basics overall.","suggestions":[],"styleAnalysis":null}`},
		{"trailing string field", `{"score":7,"feedback":"A solid outfit with strong basics overall.","suggestions":[],"notes":"none"}`},
		{"whitespace in array", `{"score":7,"feedback":"A solid outfit with strong basics overall.","suggestions":[ ],"tip":"add a belt"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.text, ParseOptions{Rand: seeded()})
			if res.Path != PathFallback {
				t.Fatalf("path = %q, suggestions %q, want fallback", res.Path, res.Response.Suggestions)
			}
			assertSchemaValid(t, res.Response)
		})
	}
}

func TestArrayBody(t *testing.T) {
	tests := []struct {
		tail string
		want string
	}{
		{`[], "notes": "none"}`, ``},
		{`["a ] b", "c"], "x": ["y"]}`, `"a ] b", "c"`},
		{`[["nested"]], "x": 1}`, `["nested"]`},
		{`["truncated", "list"`, `"truncated", "list"`},
	}
	for _, tt := range tests {
		if got := arrayBody(tt.tail); got != tt.want {
			t.Errorf("arrayBody(%q) = %q, want %q", tt.tail, got, tt.want)
		}
	}
}

func TestParseScoreRoundingBounds(t *testing.T) {
	tests := []struct {
		score string
		want  Path
	}{
		{"0.6", PathFallback},
		{"10.4", PathFallback},
		{`"0.6/10"`, PathFallback},
		{"1", PathStrict},
		{"9.6", PathStrict},
		{"10", PathStrict},
	}
	for _, tt := range tests {
		text := `{"score": ` + tt.score + `, "feedback": "Balanced proportions and a clear colour story.", "suggestions": ["Try loafers"]}`
		res := Parse(text, ParseOptions{Rand: seeded()})
		if res.Path != tt.want {
			t.Errorf("score %s: path = %q, want %q", tt.score, res.Path, tt.want)
		}
		assertSchemaValid(t, res.Response)
	}
}

func TestParseNeverPanicsOrEscapesBounds(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"{",
		"}{",
		"```",
		"```json\n```",
		`{"score": null, "feedback": null, "suggestions": null}`,
		`{"score": 1e308, "feedback": "xxxxxxxxxxxxxxxxxxxxxxxxxxxxxx", "suggestions": ["a"]}`,
		`{"score": -3, "feedback": "xxxxxxxxxxxxxxxxxxxxxxxxxxxxxx", "suggestions": [""]}`,
		`{"score": "NaN", "feedback": "xxxxxxxxxxxxxxxxxxxxxxxxxxxxxx", "suggestions": [1, 2]}`,
		`{"score": 5, "feedback": "xxxxxxxxxxxxxxxxxxxxxxxxxxxxxx", "suggestions": [], "styleAnalysis": "nope"}`,
		strings.Repeat("{", 10000),
		strings.Repeat("score: 99 ", 1000),
		"\x00\x01\x02 binary \xff\xfe",
		"Score: 0/10\nFeedback: bad\nSuggestions:\n- ",
	}
	for _, mode := range []Mode{ModeStandard, ModeRoast} {
		for _, in := range inputs {
			res := Parse(in, ParseOptions{Mode: mode, RequireStyleAnalysis: true})
			assertSchemaValid(t, res.Response)
		}
	}
}

func TestParseMode(t *testing.T) {
	if ParseMode("ROAST") != ModeRoast {
		t.Error("expected roast")
	}
	if ParseMode("") != ModeStandard || ParseMode("spicy") != ModeStandard {
		t.Error("expected standard default")
	}
}
