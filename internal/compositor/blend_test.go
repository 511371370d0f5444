package compositor

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
)

func TestCompositeOverBasemapBlendsOpaqueOver(t *testing.T) {
	base := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	draw.Draw(base, base.Bounds(), &image.Uniform{C: color.NRGBA{R: 0, G: 0, B: 0, A: 255}}, image.Point{}, draw.Src)

	canvas := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.NRGBA{R: 255, G: 0, B: 0, A: 255}}, image.Point{}, draw.Src)

	out, err := CompositeOverBasemap(base, canvas)
	if err != nil {
		t.Fatalf("CompositeOverBasemap: %v", err)
	}
	c := out.NRGBAAt(0, 0)
	if c.R != 255 || c.A != 255 {
		t.Errorf("expected fully opaque red pixel, got %v", c)
	}
}

func TestCompositeOverBasemapLeavesBaseThroughTransparentCanvas(t *testing.T) {
	base := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	draw.Draw(base, base.Bounds(), &image.Uniform{C: color.NRGBA{R: 10, G: 20, B: 30, A: 255}}, image.Point{}, draw.Src)

	canvas := image.NewNRGBA(image.Rect(0, 0, 2, 2)) // fully transparent

	out, err := CompositeOverBasemap(base, canvas)
	if err != nil {
		t.Fatalf("CompositeOverBasemap: %v", err)
	}
	c := out.NRGBAAt(0, 0)
	if c != (color.NRGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Errorf("expected base pixel unchanged, got %v", c)
	}
}

func TestCompositeOverBasemapMismatchedBoundsErrors(t *testing.T) {
	base := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	canvas := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	_, err := CompositeOverBasemap(base, canvas)
	if err == nil {
		t.Errorf("expected an error for mismatched bounds")
	}
}
