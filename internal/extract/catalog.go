package extract

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Catalog confidence formula constants.
const (
	catalogBaseConfidence = 0.85
	catalogOverlapBonus   = 0.1
	catalogRatingBonus    = 0.05
	catalogRatingFloor    = 4.0
	catalogMinConfidence  = 0.1
	catalogMaxConfidence  = 0.98

	// DefaultCatalogLimit caps matches returned per query.
	DefaultCatalogLimit = 3
)

// CatalogQuery is a case-insensitive product lookup.
// Noun is matched as a substring of product_name, Terms against the tags array.
type CatalogQuery struct {
	Noun   string
	Terms  []string
	Gender string // empty = any
	Limit  int
}

// ReferenceStore is the read-only reference data the pipeline consults.
type ReferenceStore interface {
	Whitelist(ctx context.Context) ([]WhitelistEntry, error)
	SearchCatalog(ctx context.Context, q CatalogQuery) ([]CatalogItem, error)
}

// CatalogMatcher confirms candidates against the product catalog.
type CatalogMatcher struct {
	store ReferenceStore
	limit int
}

// NewCatalogMatcher creates a matcher returning at most limit matches per query.
func NewCatalogMatcher(store ReferenceStore, limit int) *CatalogMatcher {
	if limit <= 0 {
		limit = DefaultCatalogLimit
	}
	return &CatalogMatcher{store: store, limit: limit}
}

// Match searches the catalog for text, optionally filtered by gender, and
// returns up to the configured number of matches ranked by confidence.
func (m *CatalogMatcher) Match(ctx context.Context, text, gender string) ([]CatalogMatch, error) {
	words := normalizeWords(text)
	if len(words) == 0 || m.store == nil {
		return nil, nil
	}
	noun, _, ok := garmentNoun(strings.Join(words, " "))
	if !ok {
		return nil, nil
	}

	products, err := m.store.SearchCatalog(ctx, CatalogQuery{
		Noun:   noun,
		Terms:  words,
		Gender: strings.ToLower(strings.TrimSpace(gender)),
		Limit:  m.limit * 4,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: catalog search: %v", ErrSourceUnavailable, err)
	}

	matches := make([]CatalogMatch, 0, len(products))
	for _, p := range products {
		if !productHasNoun(p, noun) {
			continue
		}
		cat, valid := ParseCategory(string(p.Category))
		if !valid {
			cat, _ = categorize(p.ProductName)
		}
		matches = append(matches, CatalogMatch{
			Name:        catalogItemName(p, strings.Join(words, " ")),
			Product:     p,
			Descriptors: catalogDescriptors(p),
			Category:    cat,
			Confidence:  CatalogConfidence(words, normalizeWords(p.ProductName), p.Rating),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].Product.Rating > matches[j].Product.Rating
	})
	if len(matches) > m.limit {
		matches = matches[:m.limit]
	}
	return matches, nil
}

// CatalogConfidence scores a catalog match: base 0.85, plus up to 0.1 for the
// fraction of candidate words found in the product name, plus 0.05 for a
// rating above 4.0. The result is clamped into [0.1, 0.98].
func CatalogConfidence(candidateWords, productWords []string, rating float64) float64 {
	score := catalogBaseConfidence

	if len(candidateWords) > 0 {
		product := make(map[string]bool, len(productWords))
		for _, w := range productWords {
			product[strings.ToLower(w)] = true
		}
		overlap := 0
		for _, w := range candidateWords {
			if product[strings.ToLower(w)] {
				overlap++
			}
		}
		bonus := catalogOverlapBonus * float64(overlap) / float64(len(candidateWords))
		score += math.Min(bonus, catalogOverlapBonus)
	}

	if rating > catalogRatingFloor {
		score += catalogRatingBonus
	}

	if math.IsNaN(score) {
		return catalogMinConfidence
	}
	return math.Max(catalogMinConfidence, math.Min(score, catalogMaxConfidence))
}

// catalogItemName builds "<color> <garment word>" from the product, falling
// back to the candidate phrase when the product name holds no garment noun.
func catalogItemName(p CatalogItem, candidate string) string {
	head := headWord(p.ProductName)
	if head == "" {
		return candidate
	}
	color := strings.ToLower(strings.TrimSpace(p.Color))
	if color == "" || strings.Contains(color, " ") {
		return head
	}
	return color + " " + head
}

func catalogDescriptors(p CatalogItem) []string {
	out := []string{}
	for _, d := range []string{p.Material, p.Brand} {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

// productHasNoun reports whether the product name or one of its tags carries
// noun, so a shared color tag never turns a cardigan into sneakers.
func productHasNoun(p CatalogItem, noun string) bool {
	for _, w := range normalizeWords(p.ProductName) {
		if wordMatchesNoun(w, noun) {
			return true
		}
	}
	for _, tag := range p.Tags {
		for _, w := range normalizeWords(tag) {
			if wordMatchesNoun(w, noun) {
				return true
			}
		}
	}
	return false
}

// headWord returns the word of phrase that carries its garment noun.
func headWord(phrase string) string {
	words := normalizeWords(phrase)
	for i := len(words) - 1; i >= 0; i-- {
		for _, n := range nounsByLength {
			if wordMatchesNoun(words[i], n) {
				return words[i]
			}
		}
	}
	return ""
}

// normalizeWords lowercases text and splits it into punctuation-free words.
func normalizeWords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '\'':
			return false
		}
		return r < 0x80
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "-'")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
