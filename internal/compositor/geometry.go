package compositor

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/gift"

	"github.com/MeKo-Tech/radarmosaic/internal/geo"
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// placement is the result of per-station crop/scale/reproject geometry: a
// resized-and-trimmed raster ready to be copied into the canvas at (destX,
// destY).
type placement struct {
	roi          *image.NRGBA
	destX, destY int
}

// placeStation computes the crop rectangle in source pixels, resamples with
// nearest-neighbor, and trims to the region-of-interest that lands exactly
// at the station's geographic position in the output canvas.
func placeStation(region geo.Region, outW, outH int, stationBounds geo.Region, src image.Image) (placement, bool) {
	ws := src.Bounds().Dx()
	hs := src.Bounds().Dy()
	if ws == 0 || hs == 0 {
		return placement{}, false
	}

	dN, dW, dS, dE := stationBounds.North, stationBounds.West, stationBounds.South, stationBounds.East
	bN, bW, bS, bE := region.North, region.West, region.South, region.East

	cropLeft := clamp((bW-dW)/(dE-dW)*float64(ws), 0, float64(ws))
	cropRight := clamp((dE-bE)/(dE-dW)*float64(ws), 0, float64(ws))
	cropTop := clamp((dN-bN)/(dN-dS)*float64(hs), 0, float64(hs))
	cropBottom := clamp((bS-dS)/(dN-dS)*float64(hs), 0, float64(hs))

	l := int(math.Floor(cropLeft))
	rgt := int(math.Floor(cropRight))
	top := int(math.Floor(cropTop))
	bot := int(math.Floor(cropBottom))

	croppedW := ws - l - rgt
	croppedH := hs - top - bot
	if croppedW <= 0 || croppedH <= 0 {
		return placement{}, false
	}

	cropRect := image.Rect(src.Bounds().Min.X+l, src.Bounds().Min.Y+top,
		src.Bounds().Min.X+l+croppedW, src.Bounds().Min.Y+top+croppedH)
	cropped := image.NewNRGBA(image.Rect(0, 0, croppedW, croppedH))
	draw.Draw(cropped, cropped.Bounds(), src, cropRect.Min, draw.Src)

	// fractional_bounds: the geographically exact intersection of the
	// station bounds and the region, using the un-floored fractions.
	fracW := dW + (cropLeft/float64(ws))*(dE-dW)
	fracE := dE - (cropRight/float64(ws))*(dE-dW)
	fracN := dN - (cropTop/float64(hs))*(dN-dS)
	fracS := dS + (cropBottom/float64(hs))*(dN-dS)

	// floor_bounds: the geography the floored integer-pixel crop actually
	// covers.
	floorW := dW + (float64(l)/float64(ws))*(dE-dW)
	floorE := dE - (float64(rgt)/float64(ws))*(dE-dW)
	floorN := dN - (float64(top)/float64(hs))*(dN-dS)
	floorS := dS + (float64(bot)/float64(hs))*(dN-dS)

	outWf, outHf := float64(outW), float64(outH)

	px := outWf * (fracW - bW) / (bE - bW)
	py := outHf * (bN - fracN) / (bN - bS)

	resizeW := int(math.Round(outWf * (floorE - floorW) / (bE - bW)))
	resizeH := int(math.Round(outHf * (floorN - floorS) / (bN - bS)))
	if resizeW <= 0 || resizeH <= 0 {
		return placement{}, false
	}

	resized := image.NewNRGBA(image.Rect(0, 0, resizeW, resizeH))
	g := gift.New(gift.Resize(resizeW, resizeH, gift.NearestNeighborResampling))
	g.Draw(resized, cropped)

	trimLeft := int(math.Round(outWf * (fracW - floorW) / (bE - bW)))
	trimTop := int(math.Round(outHf * (floorN - fracN) / (bN - bS)))
	trimRight := int(math.Round(outWf * (floorE - fracE) / (bE - bW)))
	trimBottom := int(math.Round(outHf * (fracS - floorS) / (bN - bS)))

	trimWidth := resizeW - trimLeft - trimRight
	trimHeight := resizeH - trimTop - trimBottom
	if trimWidth <= 0 || trimHeight <= 0 {
		return placement{}, false
	}

	trimRect := image.Rect(trimLeft, trimTop, trimLeft+trimWidth, trimTop+trimHeight).Intersect(resized.Bounds())
	if trimRect.Empty() {
		return placement{}, false
	}

	roi := image.NewNRGBA(image.Rect(0, 0, trimRect.Dx(), trimRect.Dy()))
	draw.Draw(roi, roi.Bounds(), resized, trimRect.Min, draw.Src)

	return placement{
		roi:   roi,
		destX: int(math.Round(px)),
		destY: int(math.Round(py)),
	}, true
}

// stripe overwrites every other 2-pixel horizontal band with transparent
// pixels (2 px on, 2 px off), marking a station's ROI as stale.
func stripe(roi *image.NRGBA) {
	b := roi.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		if (y-b.Min.Y)%4 >= 2 {
			continue
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			roi.SetNRGBA(x, y, color.NRGBA{})
		}
	}
}
