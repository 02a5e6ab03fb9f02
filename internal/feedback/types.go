// Package feedback turns unreliable outfit-rating model output into a
// validated Response, synthesizing a schema-valid fallback whenever the
// output is a refusal, unparseable, or fails validation.
package feedback

import (
	"math/rand/v2"
	"strings"
)

// Mode is the feedback tone.
type Mode string

const (
	ModeStandard Mode = "standard"
	ModeRoast    Mode = "roast"
)

// ParseMode maps a request value onto a Mode, defaulting to standard.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeRoast)) {
		return ModeRoast
	}
	return ModeStandard
}

// Path records which state produced the final response.
type Path string

const (
	PathPolicy   Path = "policy"   // refusal detected, fallback returned
	PathStrict   Path = "strict"   // JSON object parsed and validated
	PathRelaxed  Path = "relaxed"  // fields scraped from prose and validated
	PathFallback Path = "fallback" // parsing or validation failed
)

// Score bounds shared by both modes.
const (
	MinScore = 1
	MaxScore = 10

	minFeedbackLen = 20
)

// ColorPalette is the seasonal color analysis of a style analysis.
type ColorPalette struct {
	SeasonalType string     `json:"seasonalType"`
	Undertone    string     `json:"undertone"`
	Colors       [][]string `json:"colors"`
}

// StyleAnalysis is the optional structured part of a rating.
type StyleAnalysis struct {
	BodyType     string       `json:"bodyType"`
	Fit          string       `json:"fit"`
	ColorPalette ColorPalette `json:"colorPalette"`
}

// Response is a validated outfit rating.
type Response struct {
	Score         int            `json:"score"`
	Feedback      string         `json:"feedback"`
	Suggestions   []string       `json:"suggestions"`
	StyleAnalysis *StyleAnalysis `json:"styleAnalysis,omitempty"`
}

// ParseOptions controls validation and fallback generation.
type ParseOptions struct {
	Mode                 Mode
	RequireStyleAnalysis bool
	// Rand drives fallback content. Nil uses the global source.
	Rand *rand.Rand
}

// ParseResult is the outcome of Parse. Problems lists why earlier states
// were abandoned; it is diagnostic only.
type ParseResult struct {
	Response Response `json:"response"`
	Path     Path     `json:"path"`
	Problems []string `json:"problems,omitempty"`
}
