package compositor

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// CompositeOverBasemap alpha-blends a radar mosaic canvas over a basemap
// raster, producing the final output image. base and canvas must share
// bounds.
func CompositeOverBasemap(base image.Image, canvas *image.NRGBA) (*image.NRGBA, error) {
	bounds := canvas.Bounds()
	if base.Bounds() != bounds {
		return nil, fmt.Errorf("basemap bounds %v do not match canvas bounds %v", base.Bounds(), bounds)
	}

	dst := image.NewNRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dst.SetNRGBA(x, y, color.NRGBAModel.Convert(base.At(x, y)).(color.NRGBA))
		}
	}

	alphaOver(dst, canvas)
	return dst, nil
}

// alphaOver composites src over dst in place using standard "over" alpha
// blending.
func alphaOver(dst *image.NRGBA, src image.Image) {
	bounds := dst.Bounds()

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			s := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			if s.A == 0 {
				continue
			}

			d := dst.NRGBAAt(x, y)

			sa := float64(s.A) / 255.0
			da := float64(d.A) / 255.0

			outA := sa + da*(1.0-sa)
			if outA == 0 {
				dst.SetNRGBA(x, y, color.NRGBA{})
				continue
			}

			blend := func(srcVal, dstVal uint8) uint8 {
				srcPremult := float64(srcVal) * sa
				dstPremult := float64(dstVal) * da
				outPremult := srcPremult + dstPremult*(1.0-sa)
				return uint8(math.Round(outPremult / outA))
			}

			dst.SetNRGBA(x, y, color.NRGBA{
				R: blend(s.R, d.R),
				G: blend(s.G, d.G),
				B: blend(s.B, d.B),
				A: uint8(math.Round(outA * 255.0)),
			})
		}
	}
}
