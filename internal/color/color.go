// Package color provides seasonal color types and procedural hex palettes
// used when a style analysis has to be synthesized.
package color

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
)

// Palette dimensions: rows of related swatches, each row a lightness ramp.
const (
	PaletteRows = 8
	PaletteCols = 6
)

// Undertone of a seasonal type.
type Undertone string

const (
	UndertoneWarm    Undertone = "warm"
	UndertoneCool    Undertone = "cool"
	UndertoneNeutral Undertone = "neutral"
)

// Season describes one seasonal color type as bands in HSL space.
// Hue bands may wrap past 360.
type Season struct {
	Name      string
	Undertone Undertone
	HueMin    float64
	HueMax    float64
	SatMin    float64
	SatMax    float64
	LightMin  float64
	LightMax  float64
}

// Seasons is the fixed set of twelve seasonal color types.
var Seasons = []Season{
	{"Light Spring", UndertoneWarm, 20, 70, 0.45, 0.75, 0.62, 0.85},
	{"Warm Spring", UndertoneWarm, 15, 60, 0.60, 0.90, 0.50, 0.72},
	{"Bright Spring", UndertoneWarm, 0, 180, 0.75, 1.00, 0.45, 0.65},
	{"Light Summer", UndertoneCool, 180, 300, 0.25, 0.50, 0.65, 0.85},
	{"Cool Summer", UndertoneCool, 190, 290, 0.30, 0.55, 0.45, 0.70},
	{"Soft Summer", UndertoneNeutral, 170, 330, 0.15, 0.35, 0.45, 0.70},
	{"Soft Autumn", UndertoneNeutral, 20, 90, 0.20, 0.40, 0.40, 0.62},
	{"Warm Autumn", UndertoneWarm, 15, 55, 0.50, 0.80, 0.30, 0.52},
	{"Deep Autumn", UndertoneWarm, 0, 45, 0.45, 0.75, 0.18, 0.38},
	{"Deep Winter", UndertoneCool, 200, 360, 0.45, 0.80, 0.15, 0.35},
	{"Cool Winter", UndertoneCool, 190, 320, 0.55, 0.90, 0.30, 0.55},
	{"Bright Winter", UndertoneCool, 180, 380, 0.80, 1.00, 0.40, 0.60},
}

// Lookup finds a season by name, case-insensitively.
func Lookup(name string) (Season, bool) {
	for _, s := range Seasons {
		if strings.EqualFold(s.Name, strings.TrimSpace(name)) {
			return s, true
		}
	}
	return Season{}, false
}

// RandomSeason picks one of the twelve seasons.
func RandomSeason(rng *rand.Rand) Season {
	return Seasons[intN(rng, len(Seasons))]
}

// HSLToHex converts HSL to an uppercase "#RRGGBB" string.
// h: hue in degrees (wrapped into [0, 360)), s and l: 0-1 (clamped).
func HSLToHex(h, s, l float64) string {
	r, g, b := hslToRGB(h, s, l)
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// Palette generates PaletteRows x PaletteCols hex colors inside the bands of
// the named season. Unknown names use a random season.
func Palette(rng *rand.Rand, seasonalType string) [][]string {
	season, ok := Lookup(seasonalType)
	if !ok {
		season = RandomSeason(rng)
	}

	rows := make([][]string, PaletteRows)
	hueStep := (season.HueMax - season.HueMin) / PaletteRows
	for i := range rows {
		hue := season.HueMin + hueStep*(float64(i)+float64Frac(rng))
		sat := between(rng, season.SatMin, season.SatMax)

		row := make([]string, PaletteCols)
		lightStep := (season.LightMax - season.LightMin) / (PaletteCols - 1)
		for j := range row {
			row[j] = HSLToHex(hue, sat, season.LightMax-lightStep*float64(j))
		}
		rows[i] = row
	}
	return rows
}

// hslToRGB converts HSL color space to RGB (0-255 per channel).
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	h /= 360.0
	s = clamp01(s)
	l = clamp01(l)

	var r1, g1, b1 float64
	if s == 0 {
		// Achromatic (gray)
		r1, g1, b1 = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q

		r1 = hueToRGB(p, q, h+1.0/3.0)
		g1 = hueToRGB(p, q, h)
		b1 = hueToRGB(p, q, h-1.0/3.0)
	}

	return channel(r1), channel(g1), channel(b1)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

func channel(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func between(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*float64Frac(rng)
}

// A nil rng falls back to the global source.
func float64Frac(rng *rand.Rand) float64 {
	if rng == nil {
		return rand.Float64()
	}
	return rng.Float64()
}

func intN(rng *rand.Rand, n int) int {
	if rng == nil {
		return rand.IntN(n)
	}
	return rng.IntN(n)
}
