package extract

import (
	"fmt"
	"strings"
)

// TagRule is the static structure every accepted tag must satisfy.
type TagRule struct {
	MaxWords            int
	ForbiddenWords      map[string]bool
	RequireClothingNoun bool
}

// DefaultTagRule returns the standard rule: at most two words, no stop-words,
// at least one recognised garment noun.
func DefaultTagRule() TagRule {
	return TagRule{
		MaxWords:            2,
		ForbiddenWords:      wordSet(defaultForbiddenWords),
		RequireClothingNoun: true,
	}
}

// TagValidation is the outcome of checking one tag.
// CorrectedTag is the normalized accepted tag, or empty when the tag was discarded.
type TagValidation struct {
	IsValid      bool     `json:"is_valid"`
	Errors       []string `json:"errors"`
	CorrectedTag string   `json:"corrected_tag,omitempty"`
}

// Enforcer validates and repairs tags against a TagRule.
type Enforcer struct {
	rule TagRule
}

// NewEnforcer creates an enforcer. A zero MaxWords falls back to 2.
func NewEnforcer(rule TagRule) *Enforcer {
	if rule.MaxWords <= 0 {
		rule.MaxWords = 2
	}
	if rule.ForbiddenWords == nil {
		rule.ForbiddenWords = map[string]bool{}
	}
	return &Enforcer{rule: rule}
}

// Check validates tag and, when it fails, attempts a single repair: drop
// forbidden words, keep the trailing MaxWords words, validate again.
// Errors always describe the original tag. Check never panics and is
// idempotent on its CorrectedTag.
func (e *Enforcer) Check(tag string) TagValidation {
	words := normalizeTagWords(tag)
	errs := e.violations(words)
	if len(errs) == 0 {
		return TagValidation{IsValid: true, Errors: []string{}, CorrectedTag: strings.Join(words, " ")}
	}

	repaired := make([]string, 0, len(words))
	for _, w := range words {
		if !e.rule.ForbiddenWords[w] {
			repaired = append(repaired, w)
		}
	}
	if len(repaired) > e.rule.MaxWords {
		repaired = repaired[len(repaired)-e.rule.MaxWords:]
	}
	if len(repaired) > 0 && len(e.violations(repaired)) == 0 {
		return TagValidation{IsValid: true, Errors: errs, CorrectedTag: strings.Join(repaired, " ")}
	}
	return TagValidation{IsValid: false, Errors: errs}
}

// Apply runs every item through Check, renaming repaired items and dropping
// discarded ones. It returns the kept items and the number dropped.
func (e *Enforcer) Apply(items []ExtractedItem) ([]ExtractedItem, int) {
	kept := make([]ExtractedItem, 0, len(items))
	dropped := 0
	for _, item := range items {
		v := e.Check(item.Name)
		if !v.IsValid {
			dropped++
			continue
		}
		item.Name = v.CorrectedTag
		item.Descriptors = trimDescriptors(item.Descriptors, e.rule.ForbiddenWords)
		kept = append(kept, item)
	}
	return kept, dropped
}

func (e *Enforcer) violations(words []string) []string {
	var errs []string
	if len(words) == 0 {
		return []string{"tag is empty"}
	}
	if len(words) > e.rule.MaxWords {
		errs = append(errs, fmt.Sprintf("tag has %d words, max %d", len(words), e.rule.MaxWords))
	}
	for _, w := range words {
		if e.rule.ForbiddenWords[w] {
			errs = append(errs, fmt.Sprintf("forbidden word %q", w))
		}
	}
	if e.rule.RequireClothingNoun && !containsClothingNoun(words) {
		errs = append(errs, "no recognised clothing item")
	}
	return errs
}

func containsClothingNoun(words []string) bool {
	for _, w := range words {
		for _, n := range nounsByLength {
			if wordMatchesNoun(w, n) {
				return true
			}
		}
	}
	return false
}

// normalizeTagWords lowercases and splits a tag, stripping surrounding punctuation.
func normalizeTagWords(tag string) []string {
	fields := strings.Fields(strings.ToLower(tag))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()[]{}*_`")
		if f != "" {
			words = append(words, f)
		}
	}
	return words
}

func trimDescriptors(descriptors []string, forbidden map[string]bool) []string {
	out := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" || forbidden[d] {
			continue
		}
		out = append(out, d)
	}
	return out
}
