// Package region orchestrates one end-to-end mosaic render: station
// discovery, image fetch, compositing, and basemap blending.
package region

import (
	"context"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/MeKo-Tech/radarmosaic/internal/basemap"
	"github.com/MeKo-Tech/radarmosaic/internal/compositor"
	"github.com/MeKo-Tech/radarmosaic/internal/config"
	"github.com/MeKo-Tech/radarmosaic/internal/geo"
	"github.com/MeKo-Tech/radarmosaic/internal/httpfetch"
	"github.com/MeKo-Tech/radarmosaic/internal/imagefetch"
	"github.com/MeKo-Tech/radarmosaic/internal/registry"
	"github.com/MeKo-Tech/radarmosaic/internal/types"
)

// RenderReport accompanies a render with bookkeeping a caller cannot derive
// from the image alone.
type RenderReport struct {
	UsedRadars []string
	// Empty reports a valid render with no contributing station, as
	// distinct from an error: the caller can show a blank map instead of
	// treating this as a failure.
	Empty bool
	// Footprint describes the requested region and the retained stations'
	// bounds, for inspecting why a render picked the stations it did.
	Footprint *geojson.FeatureCollection
}

// Renderer ties together station discovery, concurrent image fetch, and
// compositing for one region.
type Renderer struct {
	Registry *registry.Registry
	Basemap  basemap.Source
	Fetch    imagefetch.Fetcher
}

// New wires a Renderer against the production BMKG registry, the given
// basemap source, and the registry's own HTTP fetch as the image fetcher.
func New(bm basemap.Source) *Renderer {
	return &Renderer{
		Registry: registry.New(),
		Basemap:  bm,
		Fetch:    httpfetch.Get,
	}
}

// Render fetches and composites every station overlapping region at
// width x height, then blends the result over the basemap.
func (r *Renderer) Render(ctx context.Context, region geo.Region, width, height int, cfg config.Config) (*compositor.Result, RenderReport, error) {
	regCfg := registry.Config{
		ExcludeRadar:        cfg.ExcludeRadar,
		IgnoreOldRadars:     cfg.IgnoreOldRadars,
		DeclareOldAfterMins: cfg.DeclareOldAfterMins,
	}

	details, err := r.Registry.ListInRegion(ctx, region, regCfg)
	if err != nil {
		return nil, RenderReport{}, fmt.Errorf("listing stations: %w", err)
	}

	images, err := imagefetch.FetchAll(ctx, details, r.Fetch)
	if err != nil {
		return nil, RenderReport{}, fmt.Errorf("fetching station images: %w", err)
	}

	stationImages := make([]types.StationImage, 0, len(details))
	for i, detail := range details {
		if images[i] == nil {
			continue
		}
		stationImages = append(stationImages, types.StationImage{StationDetail: detail, Image: images[i]})
	}

	footprint := FootprintGeoJSON(region, stationImages)

	rangeDeg := make(map[string]float64, len(cfg.RadarRangeOverride))
	for code, deg := range cfg.RadarRangeOverride {
		rangeDeg[code] = deg
	}

	result, err := compositor.Render(region, stationImages, compositor.Options{
		Width:                 width,
		Height:                height,
		RangeOverride:         rangeDeg,
		PriorityOverride:      cfg.RadarPriority,
		StripeOnOldRadars:     cfg.StripeOnOldRadars,
		DeclareOldAfterMins:   cfg.DeclareOldAfterMins,
		Now:                   time.Now(),
		UseGridPartition:      cfg.UseGridPartition,
		CheckRadarDistEveryPx: cfg.CheckRadarDistEveryPx,
		MaxConcurrentThreads:  cfg.MaxConcurrentThreads,
	})
	if err != nil {
		return nil, RenderReport{}, fmt.Errorf("compositing mosaic: %w", err)
	}

	if r.Basemap != nil {
		base, err := r.Basemap.Basemap(ctx, region, width, height)
		if err != nil {
			return nil, RenderReport{}, fmt.Errorf("fetching basemap: %w", err)
		}
		blended, err := compositor.CompositeOverBasemap(base, result.Canvas)
		if err != nil {
			return nil, RenderReport{}, fmt.Errorf("blending over basemap: %w", err)
		}
		result.Canvas = blended
	}

	return result, RenderReport{
		UsedRadars: result.UsedRadars,
		Empty:      len(result.UsedRadars) == 0,
		Footprint:  footprint,
	}, nil
}
