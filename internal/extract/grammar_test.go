package extract

import (
	"strings"
	"testing"
)

func TestEnforcerCheck(t *testing.T) {
	e := NewEnforcer(DefaultTagRule())
	tests := []struct {
		name      string
		tag       string
		wantValid bool
		wantTag   string
		wantErrs  bool
	}{
		{"valid two words", "white cardigan", true, "white cardigan", false},
		{"valid one word", "Sneakers", true, "sneakers", false},
		{"normalizes spacing", "  Navy   Blazer ", true, "navy blazer", false},
		{"stop-words removed", "a very nice cardigan", true, "cardigan", true},
		{"too long keeps head noun", "dark wash denim jeans", true, "denim jeans", true},
		{"no garment", "bright energy", false, "", true},
		{"only stop-words", "the outfit", false, "", true},
		{"empty", "", false, "", true},
		{"punctuation stripped", "\"leather belt.\"", true, "leather belt", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Check(tt.tag)
			if got.IsValid != tt.wantValid {
				t.Errorf("IsValid = %v, want %v (%+v)", got.IsValid, tt.wantValid, got)
			}
			if got.CorrectedTag != tt.wantTag {
				t.Errorf("CorrectedTag = %q, want %q", got.CorrectedTag, tt.wantTag)
			}
			if (len(got.Errors) > 0) != tt.wantErrs {
				t.Errorf("Errors = %v, wantErrs %v", got.Errors, tt.wantErrs)
			}
		})
	}
}

func TestEnforcerIdempotent(t *testing.T) {
	e := NewEnforcer(DefaultTagRule())
	inputs := []string{
		"white cardigan", "a really great pair of dark wash jeans", "Try adding a belt",
		"the chunky white leather sneakers", "that hat", "   ", "!!!",
	}
	for _, in := range inputs {
		first := e.Check(in)
		if !first.IsValid {
			continue
		}
		second := e.Check(first.CorrectedTag)
		if !second.IsValid || second.CorrectedTag != first.CorrectedTag || len(second.Errors) != 0 {
			t.Errorf("Check not idempotent for %q: %+v then %+v", in, first, second)
		}
		if n := len(strings.Fields(first.CorrectedTag)); n > 2 {
			t.Errorf("%q corrected to %d words", in, n)
		}
	}
}

func TestEnforcerCustomRule(t *testing.T) {
	e := NewEnforcer(TagRule{MaxWords: 3})
	got := e.Check("light wash jeans")
	if !got.IsValid || got.CorrectedTag != "light wash jeans" {
		t.Errorf("three-word rule should accept, got %+v", got)
	}
	// RequireClothingNoun is off in this rule.
	if !e.Check("sparkle").IsValid {
		t.Error("expected any single word to be valid without the noun requirement")
	}
}

func TestEnforcerApply(t *testing.T) {
	e := NewEnforcer(DefaultTagRule())
	items := []ExtractedItem{
		{Name: "brown leather belt", Descriptors: []string{"Brown", "the"}, Category: CategoryAccessories, Confidence: 0.7, Source: SourceRegex},
		{Name: "good vibes", Category: CategoryOther, Confidence: 0.6, Source: SourceRegex},
	}
	kept, dropped := e.Apply(items)
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if len(kept) != 1 || kept[0].Name != "leather belt" {
		t.Fatalf("unexpected kept items %v", kept)
	}
	if len(kept[0].Descriptors) != 1 || kept[0].Descriptors[0] != "brown" {
		t.Errorf("descriptors = %v, want [brown]", kept[0].Descriptors)
	}
}
