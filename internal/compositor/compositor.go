// Package compositor implements the mosaic compositor: per-station
// crop/scale/reproject geometry, the analytic Voronoi-style partition that
// decides which station owns each output pixel, staleness striping, and
// palette remapping onto the canonical reflectivity ramp.
package compositor

import (
	"context"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/MeKo-Tech/radarmosaic/internal/geo"
	"github.com/MeKo-Tech/radarmosaic/internal/radarerr"
	"github.com/MeKo-Tech/radarmosaic/internal/types"
	"github.com/MeKo-Tech/radarmosaic/internal/workerpool"
)

// DefaultRangeDeg is used for any station without a RangeOverride entry.
// Callers should generally populate RangeOverride for every station they
// expect to composite; this only covers stations that fall through.
const DefaultRangeDeg = 1.0

// Options configures one compositor render.
type Options struct {
	Width, Height int

	RangeOverride    map[string]float64 // degrees at equator, keyed by station code
	PriorityOverride map[string]int     // keyed by station code

	StripeOnOldRadars   bool
	DeclareOldAfterMins int
	Now                 time.Time // defaults to time.Now() if zero

	PaletteMode PaletteMode

	UseGridPartition      bool
	CheckRadarDistEveryPx int

	MaxConcurrentThreads int
}

// Result is the compositor's output: the composited canvas plus which
// stations actually contributed a pixel.
type Result struct {
	Canvas     *image.NRGBA
	UsedRadars []string
}

type stationCtx struct {
	station types.StationImage
	place   placement
}

// Render composites the retained stations' images into a canvas covering
// region at opts.Width x opts.Height. Per-station crop/resize geometry,
// striping and per-station palette remap run one station after another on the
// calling goroutine; the partition-interval work and canvas copies then run
// as one job per station in a bounded pool capped at
// opts.MaxConcurrentThreads. Canvas writes are serialized by a single mutex
// shared across all station jobs.
func Render(region geo.Region, stations []types.StationImage, opts Options) (*Result, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, opts.Width, opts.Height))

	if len(stations) == 0 {
		return &Result{Canvas: canvas}, nil
	}

	if opts.PaletteMode == PaletteModeRejectHeterogeneous {
		ref := stations[0].Palette
		for _, s := range stations[1:] {
			if !palettesEqual(ref, s.Palette) {
				return nil, &radarerr.ParseError{Context: "station palettes differ across retained stations"}
			}
		}
	}

	stationCtxs := make([]stationCtx, 0, len(stations))
	candidates := make([]candidate, 0, len(stations))

	for _, s := range stations {
		p, ok := placeStation(region, opts.Width, opts.Height, s.Bounds, s.Image)
		if !ok {
			continue
		}

		if opts.StripeOnOldRadars && s.IsStale(now, time.Duration(opts.DeclareOldAfterMins)*time.Minute) {
			stripe(p.roi)
		}

		if opts.PaletteMode == PaletteModePerStation {
			remapROI(p.roi, s.Palette)
		}

		rangeDeg := DefaultRangeDeg
		if r, ok := opts.RangeOverride[s.Code]; ok {
			rangeDeg = r
		}
		priority := 0
		if pr, ok := opts.PriorityOverride[s.Code]; ok {
			priority = pr
		}

		idx := len(stationCtxs)
		stationCtxs = append(stationCtxs, stationCtx{station: s, place: p})
		candidates = append(candidates, candidate{index: idx, lon: s.Lon, lat: s.Lat, rangeDeg: rangeDeg, priority: priority})
	}

	if len(stationCtxs) == 0 {
		return &Result{Canvas: canvas}, nil
	}

	toLat := func(py float64) float64 {
		return region.North - py/float64(opts.Height)*(region.North-region.South)
	}
	toPixelX := func(lon float64) float64 {
		return (lon - region.West) / (region.East - region.West) * float64(opts.Width)
	}
	toLon := func(px float64) float64 {
		return region.West + px/float64(opts.Width)*(region.East-region.West)
	}

	var (
		canvasMu sync.Mutex
		usedMu   sync.Mutex
		used     = make(map[int]bool)
	)

	maxConcurrent := opts.MaxConcurrentThreads
	if maxConcurrent <= 0 {
		maxConcurrent = workerpool.DefaultMaxConcurrent
	}
	pool := workerpool.New(workerpool.Config{MaxConcurrent: maxConcurrent})

	tasks := make([]workerpool.Task, len(stationCtxs))
	for i := range stationCtxs {
		idx := i
		tasks[idx] = workerpool.Task{
			Index: idx,
			Job: workerpool.JobFunc(func(ctx context.Context) (any, error) {
				contributed := compositeStation(stationCtxs, candidates, idx, region, opts, toLat, toPixelX, toLon, &canvasMu, canvas)
				if contributed {
					usedMu.Lock()
					used[idx] = true
					usedMu.Unlock()
				}
				return nil, nil
			}),
		}
	}

	pool.Run(context.Background(), tasks)

	usedRadars := make([]string, 0, len(used))
	for idx := range used {
		usedRadars = append(usedRadars, stationCtxs[idx].station.Code)
	}

	result := &Result{Canvas: canvas, UsedRadars: usedRadars}

	if opts.PaletteMode == PaletteModeFirstStation || opts.PaletteMode == PaletteModeRejectHeterogeneous {
		applyGlobalRemap(canvas, stations[0].Palette)
	}

	return result, nil
}

// compositeStation computes station idx's owned scanline intervals against
// every other candidate of equal or higher priority and copies owned pixels
// into the canvas. Returns
// whether at least one pixel was contributed.
func compositeStation(
	stationCtxs []stationCtx,
	candidates []candidate,
	idx int,
	region geo.Region,
	opts Options,
	toLat func(py float64) float64,
	toPixelX func(lon float64) float64,
	toLon func(px float64) float64,
	canvasMu *sync.Mutex,
	canvas *image.NRGBA,
) bool {
	d := stationCtxs[idx]
	contributed := false

	if opts.UseGridPartition {
		owner := gridPartitionOwner(candidates, region, opts.Width, opts.Height, opts.CheckRadarDistEveryPx, toLon, toLat)
		for y := 0; y < opts.Height; y++ {
			for x := 0; x < opts.Width; x++ {
				o, ok := owner(x, y)
				if !ok || o != idx {
					continue
				}
				canvasMu.Lock()
				wrote := copyPixel(canvas, d.place, x, y)
				canvasMu.Unlock()
				contributed = contributed || wrote
			}
		}
		return contributed
	}

	for y := 0; y < opts.Height; y++ {
		lat := toLat(float64(y) + 0.5)
		neighbors := make([]candidate, 0, len(candidates)-1)
		for _, n := range candidates {
			if n.index == idx || n.priority < candidates[idx].priority {
				continue
			}
			neighbors = append(neighbors, n)
		}

		intervals := stationIntervals(candidates[idx], neighbors, lat, region.West, region.East)
		for _, iv := range intervals {
			x0 := int(roundHalfAwayFromZero(toPixelX(iv[0])))
			x1 := int(roundHalfAwayFromZero(toPixelX(iv[1])))
			if x1 <= x0 {
				continue
			}
			if x0 < 0 {
				x0 = 0
			}
			if x1 > opts.Width {
				x1 = opts.Width
			}

			canvasMu.Lock()
			for x := x0; x < x1; x++ {
				if copyPixel(canvas, d.place, x, y) {
					contributed = true
				}
			}
			canvasMu.Unlock()
		}
	}

	return contributed
}

func roundHalfAwayFromZero(v float64) float64 {
	if v >= 0 {
		return float64(int(v + 0.5))
	}
	return float64(int(v - 0.5))
}

// copyPixel copies one pixel from a placement's ROI into the canvas at
// (x, y), if that position falls within the placement's placed rect and the
// source pixel is non-transparent. Returns whether a pixel was written.
func copyPixel(canvas *image.NRGBA, p placement, x, y int) bool {
	srcX := x - p.destX
	srcY := y - p.destY
	b := p.roi.Bounds()
	if srcX < 0 || srcY < 0 || srcX >= b.Dx() || srcY >= b.Dy() {
		return false
	}

	c := p.roi.NRGBAAt(b.Min.X+srcX, b.Min.Y+srcY)
	if c.A == 0 {
		return false
	}

	canvas.SetNRGBA(x, y, c)
	return true
}

// remapROI is applied across an entire ROI in place, used by
// PaletteModePerStation.
func remapROI(roi *image.NRGBA, palette []color.RGBA) {
	b := roi.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := roi.NRGBAAt(x, y)
			if c.A == 0 {
				continue
			}
			rgb := color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
			if replacement, ok := remapPixel(rgb, palette); ok {
				roi.SetNRGBA(x, y, color.NRGBA{R: replacement.R, G: replacement.G, B: replacement.B, A: c.A})
			}
		}
	}
}

// applyGlobalRemap scans the finished canvas and remaps every non-transparent
// pixel matching an entry in palette to its canonical replacement. A second
// pass leaves the canvas unchanged only when no canonical color appears among
// palette's first 13 entries at a different index; the palette is not checked
// for that, so a palette such as {#0000FF, #FF0000} is remapped again.
func applyGlobalRemap(canvas *image.NRGBA, palette []color.RGBA) {
	b := canvas.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := canvas.NRGBAAt(x, y)
			if c.A == 0 {
				continue
			}
			rgb := color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
			if replacement, ok := remapPixel(rgb, palette); ok {
				canvas.SetNRGBA(x, y, color.NRGBA{R: replacement.R, G: replacement.G, B: replacement.B, A: c.A})
			}
		}
	}
}
