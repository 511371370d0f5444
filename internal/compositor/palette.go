package compositor

import "image/color"

// CanonicalPalette is the 13-step reflectivity color ramp (5-70 dBZ in 5 dBZ
// steps, light blue to purple) that all station palettes are remapped onto.
var CanonicalPalette = [13]color.RGBA{
	{R: 173, G: 216, B: 230, A: 255}, // 0: 5-10
	{R: 0, G: 0, B: 255, A: 255},     // 1: 10-15
	{R: 0, G: 0, B: 139, A: 255},     // 2: 15-20
	{R: 0, G: 255, B: 0, A: 255},     // 3: 20-25
	{R: 50, G: 205, B: 50, A: 255},   // 4: 25-30
	{R: 255, G: 255, B: 0, A: 255},   // 5: 30-35
	{R: 255, G: 215, B: 0, A: 255},   // 6: 35-40
	{R: 255, G: 165, B: 0, A: 255},   // 7: 40-45
	{R: 255, G: 140, B: 0, A: 255},   // 8: 45-50
	{R: 255, G: 0, B: 0, A: 255},     // 9: 50-55
	{R: 139, G: 0, B: 0, A: 255},     // 10: 55-60
	{R: 255, G: 0, B: 255, A: 255},   // 11: 60-65
	{R: 128, G: 0, B: 128, A: 255},   // 12: 65-70
}

// PaletteMode selects how the compositor resolves the "which station's
// palette is the remap reference" ambiguity when retained stations may not
// share one palette.
type PaletteMode int

const (
	// PaletteModeFirstStation remaps the finished canvas using the first
	// retained station's palette as the lookup table, matching the
	// documented default behavior. Pixels from other stations are
	// mis-remapped if their palette differs.
	PaletteModeFirstStation PaletteMode = iota
	// PaletteModeRejectHeterogeneous fails with a ParseError if any two
	// retained stations' palettes differ, rather than silently picking one.
	PaletteModeRejectHeterogeneous
	// PaletteModePerStation remaps each station's ROI against its own
	// palette before compositing, closing the mis-remap risk entirely.
	PaletteModePerStation
)

func rgbEqual(a, b color.RGBA) bool {
	return a.R == b.R && a.G == b.G && a.B == b.B
}

func palettesEqual(a, b []color.RGBA) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !rgbEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// remapPixel finds the canonical replacement for rgb under the given
// palette, if any. Only the first 13 palette entries participate, matching
// the canonical ramp's 13 bins.
func remapPixel(rgb color.RGBA, palette []color.RGBA) (color.RGBA, bool) {
	limit := len(palette)
	if limit > len(CanonicalPalette) {
		limit = len(CanonicalPalette)
	}
	for i := 0; i < limit; i++ {
		if rgbEqual(palette[i], rgb) {
			return CanonicalPalette[i], true
		}
	}
	return color.RGBA{}, false
}
