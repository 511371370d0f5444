// Package types holds the data model shared across the registry, image
// fetcher, compositor, and renderer.
package types

import (
	"image"
	"image/color"
	"time"

	"github.com/MeKo-Tech/radarmosaic/internal/geo"
)

// StationSummary is one entry from the station list endpoint.
type StationSummary struct {
	Code        string
	City        string
	StationName string
	Lat         float64
	Lon         float64
	Bounds      geo.Region
}

// Frame is one time-stamped reflectivity image from a station.
type Frame struct {
	TimestampUTC time.Time
	ImageURL     string
}

// StationDetail extends StationSummary with frame history and palette,
// fetched from the per-station detail endpoint.
type StationDetail struct {
	StationSummary
	Frames  []Frame // ordered oldest -> newest
	Palette []color.RGBA
}

// LatestFrame returns the newest frame, which callers should assume exists
// for any StationDetail retained for rendering (the registry enforces this
// invariant when building the retained set).
func (d StationDetail) LatestFrame() Frame {
	return d.Frames[len(d.Frames)-1]
}

// IsStale reports whether the station's latest frame is older than the
// given threshold as of now.
func (d StationDetail) IsStale(now time.Time, declareOldAfter time.Duration) bool {
	return now.Sub(d.LatestFrame().TimestampUTC) > declareOldAfter
}

// StationImage pairs a StationDetail with its decoded raster. Owned by the
// compositor for the duration of one render.
type StationImage struct {
	StationDetail
	Image image.Image
}
