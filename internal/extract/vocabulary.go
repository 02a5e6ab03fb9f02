package extract

import (
	"regexp"
	"sort"
	"strings"
)

// garmentVocabulary maps recognised garment nouns to their category.
// Entries are the canonical spelling; plural forms are handled by the
// matchers, inherently plural nouns ("jeans") are listed as such.
var garmentVocabulary = map[string]Category{
	// tops
	"shirt": CategoryTops, "t-shirt": CategoryTops, "tee": CategoryTops, "blouse": CategoryTops,
	"top": CategoryTops, "tank": CategoryTops, "camisole": CategoryTops, "polo": CategoryTops,
	"sweater": CategoryTops, "sweatshirt": CategoryTops, "hoodie": CategoryTops,
	"turtleneck": CategoryTops, "jumper": CategoryTops, "henley": CategoryTops,
	"bodysuit": CategoryTops, "tunic": CategoryTops, "pullover": CategoryTops,

	// bottoms
	"jeans": CategoryBottoms, "pants": CategoryBottoms, "trousers": CategoryBottoms,
	"chinos": CategoryBottoms, "shorts": CategoryBottoms, "skirt": CategoryBottoms,
	"leggings": CategoryBottoms, "joggers": CategoryBottoms, "slacks": CategoryBottoms,
	"culottes": CategoryBottoms, "sweatpants": CategoryBottoms,

	// outerwear
	"jacket": CategoryOuterwear, "coat": CategoryOuterwear, "blazer": CategoryOuterwear,
	"cardigan": CategoryOuterwear, "vest": CategoryOuterwear, "parka": CategoryOuterwear,
	"trench": CategoryOuterwear, "bomber": CategoryOuterwear, "overcoat": CategoryOuterwear,
	"windbreaker": CategoryOuterwear, "shacket": CategoryOuterwear, "poncho": CategoryOuterwear,
	"anorak": CategoryOuterwear,

	// dresses
	"dress": CategoryDresses, "gown": CategoryDresses, "jumpsuit": CategoryDresses,
	"romper": CategoryDresses, "sundress": CategoryDresses,

	// footwear
	"shoe": CategoryFootwear, "sneaker": CategoryFootwear, "boot": CategoryFootwear,
	"loafer": CategoryFootwear, "heel": CategoryFootwear, "sandal": CategoryFootwear,
	"flats": CategoryFootwear, "pump": CategoryFootwear, "mule": CategoryFootwear,
	"oxford": CategoryFootwear, "trainer": CategoryFootwear, "espadrille": CategoryFootwear,
	"brogue": CategoryFootwear,

	// accessories
	"belt": CategoryAccessories, "scarf": CategoryAccessories, "hat": CategoryAccessories,
	"cap": CategoryAccessories, "beanie": CategoryAccessories, "bag": CategoryAccessories,
	"purse": CategoryAccessories, "tote": CategoryAccessories, "necklace": CategoryAccessories,
	"bracelet": CategoryAccessories, "earring": CategoryAccessories, "watch": CategoryAccessories,
	"sunglasses": CategoryAccessories, "tie": CategoryAccessories, "handbag": CategoryAccessories,
	"clutch": CategoryAccessories, "backpack": CategoryAccessories, "glove": CategoryAccessories,
	"sock": CategoryAccessories,
}

// colorWords are color and shade modifiers recognised as noun-phrase prefixes.
var colorWords = []string{
	"white", "black", "navy", "blue", "red", "green", "olive", "khaki", "beige", "tan",
	"brown", "camel", "grey", "gray", "cream", "ivory", "pink", "purple", "burgundy",
	"maroon", "yellow", "mustard", "orange", "charcoal", "dark", "light", "pastel",
	"neutral", "nude", "rust", "teal", "lavender", "emerald", "silver", "gold",
}

// materialWords are fabric modifiers recognised as noun-phrase prefixes.
var materialWords = []string{
	"denim", "leather", "suede", "wool", "cotton", "linen", "silk", "cashmere", "knit",
	"corduroy", "velvet", "satin", "chiffon", "tweed", "fleece", "nylon", "canvas",
	"chunky", "cropped", "oversized", "tailored", "fitted", "slim", "wide-leg", "high-waisted",
}

// defaultForbiddenWords are stop-words that may never appear in a final tag.
var defaultForbiddenWords = []string{
	"a", "an", "the", "this", "that", "these", "those", "it", "its", "your", "you",
	"my", "their", "his", "her", "some", "any", "with", "and", "or", "but", "of",
	"for", "to", "in", "on", "at", "by", "from", "into", "over", "under", "more",
	"very", "really", "nice", "good", "great", "better", "best", "perfect",
	"outfit", "look", "style", "piece", "item", "items", "try", "add", "adding",
	"wear", "wearing", "pair", "paired", "consider", "opt", "swap", "what", "which",
	"something", "maybe", "also", "just", "would", "could", "should",
	"them", "they", "him", "me", "us", "our", "we", "i", "yours",
}

// shortNounLimit: vocabulary nouns shorter than this only match whole words
// (optionally pluralised), so "that" does not contain "hat".
const shortNounLimit = 4

var nounsByLength = vocabularyNouns()

// vocabularyNouns returns the garment nouns sorted longest first, so regex
// alternations prefer "t-shirt" over "shirt".
func vocabularyNouns() []string {
	nouns := make([]string, 0, len(garmentVocabulary))
	for n := range garmentVocabulary {
		nouns = append(nouns, n)
	}
	sort.Slice(nouns, func(i, j int) bool {
		if len(nouns[i]) != len(nouns[j]) {
			return len(nouns[i]) > len(nouns[j])
		}
		return nouns[i] < nouns[j]
	})
	return nouns
}

// alternation builds a non-capturing regex alternation of quoted words.
func alternation(words []string) string {
	sorted := append([]string(nil), words...)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	quoted := make([]string, len(sorted))
	for i, w := range sorted {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return "(?:" + strings.Join(quoted, "|") + ")"
}

// wordMatchesNoun reports whether a single word recognisably contains noun.
func wordMatchesNoun(word, noun string) bool {
	if len(noun) < shortNounLimit {
		return word == noun || word == noun+"s" || word == noun+"es"
	}
	return strings.Contains(word, noun)
}

// garmentNoun finds the garment noun of a phrase, scanning from the last word
// since English noun phrases end in their head noun.
func garmentNoun(phrase string) (string, Category, bool) {
	words := strings.Fields(strings.ToLower(phrase))
	for i := len(words) - 1; i >= 0; i-- {
		w := strings.Trim(words[i], ".,;:!?\"'()")
		for _, n := range nounsByLength {
			if wordMatchesNoun(w, n) {
				return n, garmentVocabulary[n], true
			}
		}
	}
	return "", CategoryOther, false
}

// categorize is the basic categorization used when the whitelist has no match.
func categorize(phrase string) (Category, bool) {
	_, cat, ok := garmentNoun(phrase)
	return cat, ok
}

// Categorize returns the vocabulary category of phrase, or CategoryOther.
func Categorize(phrase string) Category {
	cat, _ := categorize(phrase)
	return cat
}
