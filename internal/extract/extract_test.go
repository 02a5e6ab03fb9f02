package extract

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// fakeStore is an in-memory ReferenceStore.
type fakeStore struct {
	mu           sync.Mutex
	whitelist    []WhitelistEntry
	products     []CatalogItem
	whitelistErr error
	catalogErr   error
	queries      []CatalogQuery
}

func (f *fakeStore) Whitelist(ctx context.Context) ([]WhitelistEntry, error) {
	if f.whitelistErr != nil {
		return nil, f.whitelistErr
	}
	return f.whitelist, nil
}

func (f *fakeStore) SearchCatalog(ctx context.Context, q CatalogQuery) ([]CatalogItem, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	var out []CatalogItem
	for _, p := range f.products {
		if !strings.Contains(strings.ToLower(p.ProductName), q.Noun) {
			continue
		}
		if q.Gender != "" && p.Gender != "" && p.Gender != q.Gender && p.Gender != "unisex" {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type fakeExtractor struct {
	result AIResult
	calls  int
}

func (f *fakeExtractor) ExtractItems(ctx context.Context, req AIRequest) AIResult {
	f.calls++
	return f.result
}

func defaultWhitelist() []WhitelistEntry {
	return []WhitelistEntry{
		{ItemName: "cardigan", Category: CategoryOuterwear},
		{ItemName: "jeans", Category: CategoryBottoms},
		{ItemName: "belt", Category: CategoryAccessories},
	}
}

const cardiganFeedback = "You should try a white cardigan and pair it with dark jeans."

func findItem(items []ExtractedItem, name string) (ExtractedItem, bool) {
	for _, it := range items {
		if it.Name == name {
			return it, true
		}
	}
	return ExtractedItem{}, false
}

func TestPipelineBasicCategorizesItems(t *testing.T) {
	p := NewPipeline(
		WithReferenceStore(&fakeStore{whitelist: defaultWhitelist()}),
		WithStrategy(StrategyBasic),
	)
	res := p.Extract(context.Background(), Input{Feedback: cardiganFeedback})

	if len(res.Items) != 2 {
		t.Fatalf("expected 2 items, got %d: %v", len(res.Items), res.Items)
	}
	want := map[string]Category{"white cardigan": CategoryOuterwear, "dark jeans": CategoryBottoms}
	for name, cat := range want {
		it, ok := findItem(res.Items, name)
		if !ok {
			t.Errorf("missing item %q in %v", name, res.Items)
			continue
		}
		if it.Category != cat {
			t.Errorf("%s: category %q, want %q", name, it.Category, cat)
		}
		if it.Source != SourceWhitelist {
			t.Errorf("%s: source %q, want whitelist", name, it.Source)
		}
		if it.Confidence != ConfidenceWhitelisted {
			t.Errorf("%s: confidence %.2f, want %.2f", name, it.Confidence, ConfidenceWhitelisted)
		}
	}
	if res.RunID == "" {
		t.Error("expected a run id")
	}
	if res.Stats.Candidates != 2 {
		t.Errorf("expected 2 candidates, got %d", res.Stats.Candidates)
	}
}

func TestPipelineWithoutStore(t *testing.T) {
	p := NewPipeline()
	res := p.Extract(context.Background(), Input{Feedback: cardiganFeedback})
	if len(res.Items) != 2 {
		t.Fatalf("expected 2 items, got %v", res.Items)
	}
	for _, it := range res.Items {
		if it.Confidence != ConfidenceCategorized {
			t.Errorf("%s: confidence %.2f, want %.2f", it.Name, it.Confidence, ConfidenceCategorized)
		}
	}
	if len(res.Stats.SourceErrors) != 0 {
		t.Errorf("unexpected source errors: %v", res.Stats.SourceErrors)
	}
}

func TestPipelineEmptyInput(t *testing.T) {
	p := NewPipeline(WithReferenceStore(&fakeStore{whitelist: defaultWhitelist()}))
	for _, in := range []Input{{}, {Feedback: "   "}, {Feedback: "Great vibes overall, love the energy!"}} {
		res := p.Extract(context.Background(), in)
		if res.Items == nil || len(res.Items) != 0 {
			t.Errorf("input %q: expected empty non-nil items, got %v", in.Feedback, res.Items)
		}
	}
}

func TestPipelineCatalogBlendsIntoHybrid(t *testing.T) {
	store := &fakeStore{
		whitelist: defaultWhitelist(),
		products: []CatalogItem{
			{ProductName: "Chunky Knit Cardigan", Category: CategoryOuterwear, Color: "White", Material: "Wool", Brand: "Acme", Rating: 4.5, Gender: "unisex"},
		},
	}
	p := NewPipeline(WithReferenceStore(store), WithStrategy(StrategyStandard))
	res := p.Extract(context.Background(), Input{Feedback: cardiganFeedback, Gender: "Female"})

	it, ok := findItem(res.Items, "white cardigan")
	if !ok {
		t.Fatalf("missing white cardigan in %v", res.Items)
	}
	if it.Source != SourceHybrid {
		t.Errorf("source %q, want hybrid", it.Source)
	}
	if want := ConfidenceWhitelisted + duplicateBoost; !approxEqual(it.Confidence, want) {
		t.Errorf("confidence %.3f, want %.3f", it.Confidence, want)
	}
	if res.Items[0].Name != "white cardigan" {
		t.Errorf("boosted item should rank first, got %v", res.Items)
	}
	for _, q := range store.queries {
		if q.Gender != "female" {
			t.Errorf("gender not normalized in query: %q", q.Gender)
		}
	}
}

func TestPipelineCatalogFailureIsRecorded(t *testing.T) {
	store := &fakeStore{whitelist: defaultWhitelist(), catalogErr: errors.New("db locked")}
	p := NewPipeline(WithReferenceStore(store), WithStrategy(StrategyStandard))
	res := p.Extract(context.Background(), Input{Feedback: cardiganFeedback})

	msg, ok := res.Stats.SourceErrors[SourceCatalog]
	if !ok {
		t.Fatalf("expected catalog source error, got %v", res.Stats.SourceErrors)
	}
	if !strings.Contains(msg, "db locked") {
		t.Errorf("source error should carry cause, got %q", msg)
	}
	if len(res.Items) != 2 {
		t.Errorf("whitelist items should survive a catalog failure, got %v", res.Items)
	}
}

func TestPipelineWhitelistFailureFallsBack(t *testing.T) {
	store := &fakeStore{whitelistErr: errors.New("no such table")}
	p := NewPipeline(WithReferenceStore(store), WithStrategy(StrategyBasic))
	res := p.Extract(context.Background(), Input{Feedback: cardiganFeedback})

	if _, ok := res.Stats.SourceErrors[SourceWhitelist]; !ok {
		t.Errorf("expected whitelist source error, got %v", res.Stats.SourceErrors)
	}
	if len(res.Items) != 2 {
		t.Fatalf("expected basic categorization fallback, got %v", res.Items)
	}
}

func TestPipelineAdvancedUsesAI(t *testing.T) {
	ai := &fakeExtractor{result: AIResult{
		Success: true,
		Items: []AIMatch{
			{Name: "leather belt", Category: CategoryAccessories, Confidence: 0.9, Descriptors: []string{"leather"}},
			{Name: "white cardigan", Category: CategoryOuterwear, Confidence: 0.95},
		},
	}}
	p := NewPipeline(
		WithReferenceStore(&fakeStore{whitelist: defaultWhitelist()}),
		WithItemExtractor(ai),
		WithStrategy(StrategyAdvanced),
	)
	res := p.Extract(context.Background(), Input{Feedback: cardiganFeedback})

	if ai.calls != 1 {
		t.Errorf("expected 1 AI call, got %d", ai.calls)
	}
	belt, ok := findItem(res.Items, "leather belt")
	if !ok || belt.Source != SourceAI {
		t.Errorf("expected AI-sourced belt, got %v", res.Items)
	}
	cardigan, _ := findItem(res.Items, "white cardigan")
	if cardigan.Source != SourceHybrid {
		t.Errorf("cardigan should be hybrid, got %q", cardigan.Source)
	}
	// First source wins: the whitelist confidence is kept and boosted, not the AI one.
	if !approxEqual(cardigan.Confidence, ConfidenceWhitelisted+duplicateBoost) {
		t.Errorf("cardigan confidence %.3f", cardigan.Confidence)
	}
}

func TestPipelineAdvancedWithoutExtractor(t *testing.T) {
	p := NewPipeline(WithStrategy(StrategyAdvanced))
	res := p.Extract(context.Background(), Input{Feedback: cardiganFeedback})
	msg, ok := res.Stats.SourceErrors[SourceAI]
	if !ok || !strings.Contains(msg, ErrSourceUnavailable.Error()) {
		t.Errorf("expected unavailable AI source, got %v", res.Stats.SourceErrors)
	}
	if len(res.Items) != 2 {
		t.Errorf("lexical items should survive a missing extractor, got %v", res.Items)
	}

	empty := p.Extract(context.Background(), Input{Feedback: "  "})
	if _, ok := empty.Stats.SourceErrors[SourceAI]; ok {
		t.Error("empty input should not record an AI failure")
	}
}

func TestPipelineAIFailureIsRecorded(t *testing.T) {
	ai := &fakeExtractor{result: AIResult{Error: "quota exceeded"}}
	p := NewPipeline(WithItemExtractor(ai), WithStrategy(StrategyAdvanced))
	res := p.Extract(context.Background(), Input{Feedback: cardiganFeedback})
	if msg := res.Stats.SourceErrors[SourceAI]; !strings.Contains(msg, "quota exceeded") {
		t.Errorf("expected AI source error, got %v", res.Stats.SourceErrors)
	}
	if len(res.Items) != 2 {
		t.Errorf("lexical items should survive AI failure, got %v", res.Items)
	}
}

func TestPipelineStandardSkipsAI(t *testing.T) {
	ai := &fakeExtractor{result: AIResult{Success: true}}
	p := NewPipeline(WithItemExtractor(ai), WithStrategy(StrategyStandard))
	p.Extract(context.Background(), Input{Feedback: cardiganFeedback})
	if ai.calls != 0 {
		t.Errorf("standard strategy should not call AI, got %d calls", ai.calls)
	}
}

func TestPipelineMaxItemsAndGrammar(t *testing.T) {
	feedback := "Try a navy blazer, add a leather belt, wear white sneakers, " +
		"consider a silk scarf, pair it with dark jeans, opt for a wool coat and throw on a black hat."
	p := NewPipeline(WithMaxItems(3))
	res := p.Extract(context.Background(), Input{Feedback: feedback})
	if len(res.Items) != 3 {
		t.Fatalf("expected 3 items, got %d: %v", len(res.Items), res.Items)
	}
	e := NewEnforcer(DefaultTagRule())
	for _, it := range res.Items {
		if v := e.Check(it.Name); !v.IsValid || v.CorrectedTag != it.Name {
			t.Errorf("item %q does not satisfy the tag rule: %+v", it.Name, v)
		}
		if len(strings.Fields(it.Name)) > 2 {
			t.Errorf("item %q has more than two words", it.Name)
		}
	}
}

func TestPipelineSuggestionsAreScanned(t *testing.T) {
	p := NewPipeline()
	res := p.Extract(context.Background(), Input{
		Feedback:    "Nice color balance.",
		Suggestions: []string{"Try adding a brown leather belt"},
	})
	if _, ok := findItem(res.Items, "leather belt"); !ok {
		t.Errorf("expected leather belt from suggestions, got %v", res.Items)
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"", StrategyStandard, false},
		{"basic", StrategyBasic, false},
		{"MEDIUM", StrategyStandard, false},
		{" advanced ", StrategyAdvanced, false},
		{"turbo", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStrategy(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStrategy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func approxEqual(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
