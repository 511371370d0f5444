package compositor

import (
	"image/color"
	"testing"
)

func TestRemapPixelMatchesCanonical(t *testing.T) {
	palette := []color.RGBA{
		{R: 1, G: 1, B: 1, A: 255},
		{R: 2, G: 2, B: 2, A: 255},
	}

	got, ok := remapPixel(color.RGBA{R: 2, G: 2, B: 2, A: 255}, palette)
	if !ok {
		t.Fatalf("expected a match")
	}
	if got != CanonicalPalette[1] {
		t.Errorf("got %v, want %v", got, CanonicalPalette[1])
	}
}

func TestRemapPixelNoMatch(t *testing.T) {
	palette := []color.RGBA{{R: 1, G: 1, B: 1, A: 255}}
	_, ok := remapPixel(color.RGBA{R: 9, G: 9, B: 9, A: 255}, palette)
	if ok {
		t.Errorf("expected no match")
	}
}

func TestRemapPixelIdempotentOnCanonicalOutput(t *testing.T) {
	palette := []color.RGBA{{R: 1, G: 1, B: 1, A: 255}}
	first, ok := remapPixel(color.RGBA{R: 1, G: 1, B: 1, A: 255}, palette)
	if !ok {
		t.Fatalf("expected a match")
	}
	// Running the canonical output back through the same palette must not
	// match again, since this palette holds none of the canonical colors.
	_, ok = remapPixel(first, palette)
	if ok {
		t.Errorf("canonical output unexpectedly matched the input palette again")
	}
}

func TestPalettesEqual(t *testing.T) {
	a := []color.RGBA{{R: 1, G: 2, B: 3, A: 255}}
	b := []color.RGBA{{R: 1, G: 2, B: 3, A: 0}} // alpha ignored
	if !palettesEqual(a, b) {
		t.Errorf("expected palettes equal ignoring alpha")
	}

	c := []color.RGBA{{R: 9, G: 9, B: 9, A: 255}}
	if palettesEqual(a, c) {
		t.Errorf("expected palettes to differ")
	}
}
