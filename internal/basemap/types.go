// Package basemap provides the background raster a rendered mosaic is
// composited over, plus an on-disk cache for pre-fetched basemap images.
package basemap

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"github.com/MeKo-Tech/radarmosaic/internal/geo"
)

// imageDecode decodes a PNG-encoded basemap raster.
func imageDecode(data []byte) (image.Image, string, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	return img, "png", nil
}

// Source supplies a basemap raster covering a region at a given pixel size.
// Implementations may reach out to a tile server, read a static asset, or
// simply return a blank canvas (NullSource).
type Source interface {
	Basemap(ctx context.Context, region geo.Region, width, height int) (image.Image, error)
}

// NullSource returns a solid-colored canvas instead of a real basemap. Useful
// for tests and for deployments that render radar mosaics without any
// cartographic backdrop.
type NullSource struct {
	Fill image.Image // optional; defaults to opaque black if nil
}

// Basemap implements Source.
func (n NullSource) Basemap(_ context.Context, _ geo.Region, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("basemap: invalid canvas size %dx%d", width, height)
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	if n.Fill != nil {
		draw.Draw(img, img.Bounds(), n.Fill, n.Fill.Bounds().Min, draw.Src)
		return img, nil
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img, nil
}

// Metadata describes a basemap cache database: its name, attribution and
// description. It carries no bounds.
type Metadata struct {
	Name        string
	Attribution string
	Description string
}

// ToMap converts Metadata to a map for database insertion.
func (m Metadata) ToMap() map[string]string {
	result := make(map[string]string)
	if m.Name != "" {
		result["name"] = m.Name
	}
	if m.Attribution != "" {
		result["attribution"] = m.Attribution
	}
	if m.Description != "" {
		result["description"] = m.Description
	}
	return result
}

// cacheKey deterministically identifies a region+size raster in the cache.
// Basemaps are keyed by region geometry and output size rather than by
// z/x/y tile coordinates, since the renderer composites one whole-region
// raster per render instead of a mosaic of discrete tiles.
func cacheKey(region geo.Region, width, height int) string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f@%dx%d",
		region.North, region.West, region.South, region.East, width, height)
}
