package feedback

import (
	"fmt"
	"math/rand/v2"

	"github.com/hurttlocker/ratemyfit/internal/color"
)

// Fallback score ranges, inclusive.
const (
	standardFallbackMin = 6
	standardFallbackMax = 8
	roastFallbackMin    = 3
	roastFallbackMax    = 6
)

var fallbackStyles = []string{
	"Smart casual", "Relaxed streetwear", "Minimal classic", "Modern preppy",
	"Laid-back weekend", "Polished everyday", "Soft tailoring", "Urban layered",
}

var fallbackOpeners = []string{
	"The overall silhouette reads balanced and intentional.",
	"The pieces work together and the proportions feel considered.",
	"There is a clear point of view here with room to sharpen it.",
	"The outfit is wearable and cohesive with a few easy upgrades available.",
}

var roastOpeners = []string{
	"This outfit has the confidence of someone who got dressed in the dark.",
	"Bold of you to pair these pieces and hope nobody noticed.",
	"The fit is giving \"I had five minutes and a dream.\"",
	"Somewhere a stylist felt a disturbance, but it is salvageable.",
}

var fallbackSuggestions = []string{
	"Add a structured layer like a blazer or denim jacket to define the shoulders.",
	"Swap in a belt that matches your shoes to tie the look together.",
	"Try a more tailored fit through the leg for a cleaner line.",
	"Introduce one accent color from your palette near the face.",
	"Upgrade the footwear to clean leather sneakers or loafers.",
	"Roll or cuff the sleeves slightly to show more intention.",
	"Add a simple accessory such as a watch or minimal necklace.",
	"Tuck the top at the front to sharpen the waistline.",
}

var fallbackBodyTypes = []string{"rectangle", "triangle", "inverted triangle", "hourglass", "oval"}

var fallbackFits = []string{"regular", "slim", "relaxed", "tailored", "oversized"}

// Fallback synthesizes a schema-valid Response. Content is random within
// fixed bounds: score in the mode's fallback range, feedback containing
// "Style:", three suggestions and, outside roast mode, a style analysis
// with a full seasonal palette.
func Fallback(opts ParseOptions) Response {
	rng := opts.Rand
	season := color.RandomSeason(rng)
	style := pick(rng, fallbackStyles)

	var resp Response
	if opts.Mode == ModeRoast {
		resp.Score = between(rng, roastFallbackMin, roastFallbackMax)
		resp.Feedback = fmt.Sprintf("%s Style: %s, in theory. The colors want to be %s but the styling is not there yet.",
			pick(rng, roastOpeners), style, season.Name)
	} else {
		resp.Score = between(rng, standardFallbackMin, standardFallbackMax)
		resp.Feedback = fmt.Sprintf("%s Style: %s. Your coloring suggests a %s palette with a %s undertone.",
			pick(rng, fallbackOpeners), style, season.Name, season.Undertone)
		resp.StyleAnalysis = &StyleAnalysis{
			BodyType: pick(rng, fallbackBodyTypes),
			Fit:      pick(rng, fallbackFits),
			ColorPalette: ColorPalette{
				SeasonalType: season.Name,
				Undertone:    string(season.Undertone),
				Colors:       color.Palette(rng, season.Name),
			},
		}
	}
	resp.Suggestions = sample(rng, fallbackSuggestions, 3)
	return resp
}

func pick(rng *rand.Rand, list []string) string {
	return list[intN(rng, len(list))]
}

// between returns an int in [lo, hi].
func between(rng *rand.Rand, lo, hi int) int {
	return lo + intN(rng, hi-lo+1)
}

// sample returns n distinct elements of list in random order.
func sample(rng *rand.Rand, list []string, n int) []string {
	idx := make([]int, len(list))
	for i := range idx {
		idx[i] = i
	}
	for i := len(idx) - 1; i > 0; i-- {
		j := intN(rng, i+1)
		idx[i], idx[j] = idx[j], idx[i]
	}
	if n > len(idx) {
		n = len(idx)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = list[idx[i]]
	}
	return out
}

func intN(rng *rand.Rand, n int) int {
	if rng == nil {
		return rand.IntN(n)
	}
	return rng.IntN(n)
}
