package extract

import (
	"regexp"
	"strings"
)

// lexicalPattern is one template of the lexical matcher. The first capture
// group holds the candidate noun phrase.
type lexicalPattern struct {
	regex *regexp.Regexp
	name  string
}

// LexicalMatcher pulls candidate clothing noun phrases out of free text using
// a fixed, ordered table of regex templates.
type LexicalMatcher struct {
	patterns  []*lexicalPattern
	stopWords map[string]bool
}

// NewLexicalMatcher creates a matcher with the built-in pattern table.
func NewLexicalMatcher() *LexicalMatcher {
	return &LexicalMatcher{
		patterns:  initLexicalPatterns(),
		stopWords: wordSet(defaultForbiddenWords),
	}
}

// initLexicalPatterns builds the pattern table in priority order. Every
// template ends in the garment vocabulary, so a capture is at most two
// modifiers plus a garment noun.
func initLexicalPatterns() []*lexicalPattern {
	noun := alternation(nounsByLength) + `(?:es|s)?\b`
	article := `(?:(?:a|an|the|some|your|a\s+pair\s+of|pair\s+of)\s+)?`
	modifiers := `(?:[a-z][a-z'-]*\s+){0,2}?`
	colors := alternation(colorWords)
	materials := alternation(materialWords)

	return []*lexicalPattern{
		// "try a white cardigan", "add some loafers", "opt for a trench coat"
		{
			regex: regexp.MustCompile(`(?i)\b(?:try|add|adding|wear|wearing|opt\s+for|consider|go\s+for|swap\s+in|swap\s+to|throw\s+on|layer)\s+` +
				article + `(` + modifiers + noun + `)`),
			name: "suggestion_verb",
		},
		// "pair it with dark jeans", "goes well with a leather belt"
		{
			regex: regexp.MustCompile(`(?i)\b(?:pair(?:ed|s)?(?:\s+(?:it|this|them|that))?|match(?:ed|es)?(?:\s+(?:it|this|them))?|goes|go|works)(?:\s+well)?\s+with\s+` +
				article + `(` + modifiers + noun + `)`),
			name: "pairing",
		},
		// "swap the sneakers for boots", "replace it with a trench coat"
		{
			regex: regexp.MustCompile(`(?i)\b(?:swap|swapping|switch|switching|trade|trading|replace|replacing|exchange|exchanging)\b[^.!?;]*?\b(?:for|with)\s+` +
				article + `(` + modifiers + noun + `)`),
			name: "swap_target",
		},
		// "navy blazer", "white leather sneakers"
		{
			regex: regexp.MustCompile(`(?i)\b(` + colors + `\s+(?:` + materials + `\s+)?` + noun + `)`),
			name:  "color_phrase",
		},
		// "denim jacket", "suede boots"
		{
			regex: regexp.MustCompile(`(?i)\b(` + materials + `\s+` + noun + `)`),
			name:  "material_phrase",
		},
	}
}

// Candidates returns candidate phrases in pattern order, then in-text match
// order. Duplicates keep their first occurrence. Empty or unmatched input
// yields an empty slice.
func (m *LexicalMatcher) Candidates(text string) []string {
	matches := m.Matches(text)
	out := make([]string, 0, len(matches))
	for _, match := range matches {
		out = append(out, match.Phrase)
	}
	return out
}

// Matches is Candidates with the name of the pattern that produced each phrase.
func (m *LexicalMatcher) Matches(text string) []RegexMatch {
	out := []RegexMatch{}
	if strings.TrimSpace(text) == "" {
		return out
	}

	seen := make(map[string]bool)
	for _, pattern := range m.patterns {
		for _, sub := range pattern.regex.FindAllStringSubmatch(text, -1) {
			if len(sub) < 2 {
				continue
			}
			phrase := m.cleanPhrase(sub[1])
			if phrase == "" || seen[phrase] {
				continue
			}
			seen[phrase] = true
			out = append(out, RegexMatch{Phrase: phrase, Pattern: pattern.name})
		}
	}
	return out
}

// cleanPhrase lowercases, collapses whitespace and keeps only the modifiers
// after the last word that cannot describe a garment ("tucking your shirt"
// -> "shirt", "them with loafers" -> "loafers").
func (m *LexicalMatcher) cleanPhrase(raw string) string {
	words := strings.Fields(strings.ToLower(raw))
	for i := len(words) - 2; i >= 0; i-- {
		if m.notModifier(words[i]) {
			words = words[i+1:]
			break
		}
	}
	return strings.Join(words, " ")
}

// notModifier reports stop-words, pronouns, gerunds and possessives.
func (m *LexicalMatcher) notModifier(w string) bool {
	switch {
	case m.stopWords[w]:
		return true
	case len(w) > 4 && strings.HasSuffix(w, "ing"):
		return true
	case strings.HasSuffix(w, "'s"), strings.HasSuffix(w, "’s"):
		return true
	}
	return false
}

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = true
	}
	return set
}
