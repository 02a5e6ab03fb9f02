package extract

import (
	"reflect"
	"testing"
)

func TestLexicalCandidates(t *testing.T) {
	m := NewLexicalMatcher()
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "suggestion and pairing",
			text: "You should try a white cardigan and pair it with dark jeans.",
			want: []string{"white cardigan", "dark jeans"},
		},
		{
			name: "empty",
			text: "",
			want: []string{},
		},
		{
			name: "no clothing",
			text: "Great energy and confident posture!",
			want: []string{},
		},
		{
			name: "color phrase only",
			text: "The navy blazer is doing a lot of work here.",
			want: []string{"navy blazer"},
		},
		{
			name: "material phrase",
			text: "Those suede boots are a great call.",
			want: []string{"suede boots"},
		},
		{
			name: "duplicate phrase kept once",
			text: "Wear a black belt. A black belt ties it together.",
			want: []string{"black belt"},
		},
		{
			name: "case folded",
			text: "Consider a NAVY Blazer.",
			want: []string{"navy blazer"},
		},
		{
			name: "pronoun before pairing",
			text: "Wear them with loafers",
			want: []string{"loafers"},
		},
		{
			name: "gerund and swap target",
			text: "Consider swapping the sneakers for boots",
			want: []string{"sneakers", "boots"},
		},
		{
			name: "gerund and possessive pronoun",
			text: "Try tucking your shirt in.",
			want: []string{"shirt"},
		},
		{
			name: "possessive",
			text: "Try your partner's denim jacket.",
			want: []string{"denim jacket"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Candidates(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Candidates(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestLexicalMatchesReportPattern(t *testing.T) {
	m := NewLexicalMatcher()
	got := m.Matches("Try a white cardigan. Leather jacket works too.")
	if len(got) < 2 {
		t.Fatalf("expected at least 2 matches, got %v", got)
	}
	if got[0].Pattern != "suggestion_verb" || got[0].Phrase != "white cardigan" {
		t.Errorf("unexpected first match %+v", got[0])
	}
	found := false
	for _, match := range got {
		if match.Phrase == "leather jacket" && match.Pattern == "material_phrase" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected leather jacket from material_phrase, got %v", got)
	}
}

func TestShortNounNeedsWholeWord(t *testing.T) {
	if wordMatchesNoun("that", "hat") {
		t.Error(`"that" must not match "hat"`)
	}
	if !wordMatchesNoun("hats", "hat") {
		t.Error(`"hats" should match "hat"`)
	}
	if !wordMatchesNoun("sneakers", "sneaker") {
		t.Error(`"sneakers" should match "sneaker"`)
	}
}

func TestGarmentNounUsesHeadWord(t *testing.T) {
	noun, cat, ok := garmentNoun("denim shirt jacket")
	if !ok || noun != "jacket" || cat != CategoryOuterwear {
		t.Errorf("garmentNoun = %q %q %v, want jacket outerwear", noun, cat, ok)
	}
	if _, _, ok := garmentNoun("bright energy"); ok {
		t.Error("expected no garment noun")
	}
}
