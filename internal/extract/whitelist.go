package extract

import (
	"strings"
)

// Fixed confidences assigned by the whitelist stage. They do not depend on
// match quality.
const (
	ConfidenceWhitelisted  = 0.8 // candidate contains (or is contained by) a whitelist entry
	ConfidenceCategorized  = 0.7 // no whitelist match, garment noun found in vocabulary
	ConfidenceUnrecognized = 0.6 // no whitelist match, no known garment noun
)

// MatchStrategy selects how the whitelist validator picks among several
// containing entries.
type MatchStrategy string

const (
	// MatchFirst returns the first containing entry in whitelist order. This
	// is order-dependent: with "jean" listed before "jean jacket", the
	// candidate "jean jacket" is categorized as bottoms.
	MatchFirst MatchStrategy = "first"
	// MatchLongest returns the longest containing entry.
	MatchLongest MatchStrategy = "longest"
)

// ParseMatchStrategy parses a config value, defaulting to MatchFirst.
func ParseMatchStrategy(s string) MatchStrategy {
	if strings.EqualFold(strings.TrimSpace(s), string(MatchLongest)) {
		return MatchLongest
	}
	return MatchFirst
}

// WhitelistValidator cross-references candidates against the curated
// garment whitelist.
type WhitelistValidator struct {
	entries  []WhitelistEntry
	strategy MatchStrategy
}

// NewWhitelistValidator creates a validator over entries, kept in the order given.
func NewWhitelistValidator(entries []WhitelistEntry, strategy MatchStrategy) *WhitelistValidator {
	if strategy == "" {
		strategy = MatchFirst
	}
	return &WhitelistValidator{entries: entries, strategy: strategy}
}

// Validate checks one candidate phrase. A candidate with no whitelist match
// falls back to basic categorization from the garment vocabulary.
func (v *WhitelistValidator) Validate(candidate string) WhitelistMatch {
	phrase := strings.Join(strings.Fields(strings.ToLower(candidate)), " ")

	if entry, ok := v.find(phrase); ok {
		name := strings.ToLower(strings.TrimSpace(entry.ItemName))
		cat, valid := ParseCategory(string(entry.Category))
		if !valid {
			cat, _ = categorize(phrase)
		}
		return WhitelistMatch{
			Phrase:      phrase,
			Entry:       name,
			Descriptors: descriptorsBefore(phrase, name),
			Category:    cat,
			Confidence:  ConfidenceWhitelisted,
		}
	}

	if cat, ok := categorize(phrase); ok {
		noun, _, _ := garmentNoun(phrase)
		return WhitelistMatch{
			Phrase:      phrase,
			Descriptors: descriptorsBeforeNoun(phrase, noun),
			Category:    cat,
			Confidence:  ConfidenceCategorized,
		}
	}

	return WhitelistMatch{
		Phrase:      phrase,
		Descriptors: []string{},
		Category:    CategoryOther,
		Confidence:  ConfidenceUnrecognized,
	}
}

// ValidateAll validates candidates in order.
func (v *WhitelistValidator) ValidateAll(candidates []string) []WhitelistMatch {
	out := make([]WhitelistMatch, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, v.Validate(c))
	}
	return out
}

func (v *WhitelistValidator) find(phrase string) (WhitelistEntry, bool) {
	if phrase == "" {
		return WhitelistEntry{}, false
	}
	var best WhitelistEntry
	found := false
	for _, e := range v.entries {
		name := strings.ToLower(strings.TrimSpace(e.ItemName))
		if name == "" {
			continue
		}
		if !strings.Contains(phrase, name) && !strings.Contains(name, phrase) {
			continue
		}
		if v.strategy == MatchFirst {
			return e, true
		}
		if !found || len(name) > len(strings.TrimSpace(best.ItemName)) {
			best = e
			found = true
		}
	}
	return best, found
}

// descriptorsBefore returns the words of phrase preceding the entry name.
// When the entry contains the phrase (not the other way round) there are none.
func descriptorsBefore(phrase, entry string) []string {
	idx := strings.Index(phrase, entry)
	if idx <= 0 {
		return []string{}
	}
	return strings.Fields(phrase[:idx])
}

// descriptorsBeforeNoun returns the words preceding the word that holds noun.
func descriptorsBeforeNoun(phrase, noun string) []string {
	words := strings.Fields(phrase)
	for i := len(words) - 1; i >= 0; i-- {
		if wordMatchesNoun(words[i], noun) {
			return append([]string{}, words[:i]...)
		}
	}
	return []string{}
}
