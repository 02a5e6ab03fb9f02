package extract

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Aggregation constants.
const (
	// DefaultMaxItems caps the items kept per extraction run.
	DefaultMaxItems = 6

	// duplicateBoost is added to an item each time another occurrence of it
	// is merged in.
	duplicateBoost = 0.05

	// maxAggregateConfidence caps boosted confidences.
	maxAggregateConfidence = 0.98
)

// Aggregator merges per-source items into one ranked, capped list.
type Aggregator struct {
	maxItems int
}

// NewAggregator creates an aggregator keeping at most maxItems items.
// A non-positive maxItems falls back to DefaultMaxItems.
func NewAggregator(maxItems int) *Aggregator {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &Aggregator{maxItems: maxItems}
}

// Merge concatenates lists in order and deduplicates by normalized name.
// The first occurrence wins and
// is boosted by 0.05 (capped at 0.98) for every later duplicate; a duplicate
// from a different source turns the winner into SourceHybrid. The result is
// stably sorted by descending confidence and truncated. Feeding Merge its
// own output returns the same list.
func (a *Aggregator) Merge(lists ...[]ExtractedItem) []ExtractedItem {
	var items []ExtractedItem
	for _, l := range lists {
		items = append(items, l...)
	}
	merged := make([]ExtractedItem, 0, len(items))
	index := make(map[string]int, len(items))

	for _, item := range items {
		key := itemKey(item.Name)
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			winner := &merged[i]
			winner.Confidence = boost(winner.Confidence)
			if item.Source != winner.Source {
				winner.Source = SourceHybrid
			}
			winner.Descriptors = unionDescriptors(winner.Descriptors, item.Descriptors)
			continue
		}
		item.Descriptors = nonNil(item.Descriptors)
		index[key] = len(merged)
		merged = append(merged, item)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})

	if len(merged) > a.maxItems {
		merged = merged[:a.maxItems]
	}
	return merged
}

func boost(c float64) float64 {
	c += duplicateBoost
	if c > maxAggregateConfidence {
		return maxAggregateConfidence
	}
	return c
}

// itemKey folds a name for duplicate detection: compatibility decomposition
// with combining marks removed, lowercased, whitespace collapsed.
func itemKey(name string) string {
	decomposed := norm.NFKD.String(name)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func unionDescriptors(a, b []string) []string {
	out := append([]string{}, a...)
	seen := make(map[string]bool, len(out)+len(b))
	for _, d := range out {
		seen[d] = true
	}
	for _, d := range b {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}
