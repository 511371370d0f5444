package cmd

import (
	"encoding/json"
	"fmt"
	"image/png"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/radarmosaic/internal/basemap"
	radarmosaicconfig "github.com/MeKo-Tech/radarmosaic/internal/config"
	"github.com/MeKo-Tech/radarmosaic/internal/geo"
	"github.com/MeKo-Tech/radarmosaic/internal/region"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a single radar mosaic to a PNG file",
	Long:  `Fetches the stations overlapping a region, composites them, blends over a basemap, and writes one PNG.`,
	RunE:  runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().String("bbox", "", "Bounding box: west,south,east,north (e.g., \"105,-8,108,-5\")")
	renderCmd.Flags().Int("width", 1024, "Output image width in pixels")
	renderCmd.Flags().Int("height", 1024, "Output image height in pixels")
	renderCmd.Flags().String("output", "mosaic.png", "Output PNG path")
	renderCmd.Flags().String("basemap-cache", "", "Path to a basemap cache database (defaults to a blank canvas)")
	renderCmd.Flags().String("debug-geojson", "", "Optional path to write the requested region and retained stations' bounds as GeoJSON")

	renderCmd.Flags().StringSlice("exclude-radar", nil, "Station codes to drop entirely")
	renderCmd.Flags().Bool("ignore-old-radars", false, "Drop stale stations instead of striping them")
	renderCmd.Flags().Bool("stripe-on-old-radars", true, "Overlay a stripe pattern on stale stations' coverage")
	renderCmd.Flags().Int("declare-old-after-mins", radarmosaicconfig.DefaultDeclareOldAfterMins, "Minutes after which a station's latest frame is considered stale")
	renderCmd.Flags().Int("max-concurrent-threads", radarmosaicconfig.DefaultMaxConcurrentThreads, "Worker pool bound for per-station compositing")
	renderCmd.Flags().Int("check-radar-dist-every-px", radarmosaicconfig.DefaultCheckRadarDistEveryPx, "Cell size in pixels for the legacy grid partition fallback")
	renderCmd.Flags().Bool("use-grid-partition", false, "Use the legacy coarse-grid partition fallback instead of the analytic partition")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"render.bbox", "bbox"},
		{"render.width", "width"},
		{"render.height", "height"},
		{"render.output", "output"},
		{"render.basemap_cache", "basemap-cache"},
		{"render.debug_geojson", "debug-geojson"},
		{"render.exclude_radar", "exclude-radar"},
		{"render.ignore_old_radars", "ignore-old-radars"},
		{"render.stripe_on_old_radars", "stripe-on-old-radars"},
		{"render.declare_old_after_mins", "declare-old-after-mins"},
		{"render.max_concurrent_threads", "max-concurrent-threads"},
		{"render.check_radar_dist_every_px", "check-radar-dist-every-px"},
		{"render.use_grid_partition", "use-grid-partition"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, renderCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runRender(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	bboxStr := viper.GetString("render.bbox")
	if bboxStr == "" {
		return fmt.Errorf("--bbox is required")
	}
	reg, err := parseRegionBBox(bboxStr)
	if err != nil {
		return fmt.Errorf("invalid bbox: %w", err)
	}

	width := viper.GetInt("render.width")
	height := viper.GetInt("render.height")
	output := viper.GetString("render.output")
	basemapCache := viper.GetString("render.basemap_cache")
	debugGeoJSON := viper.GetString("render.debug_geojson")

	cfg := radarmosaicconfig.New()
	cfg.ExcludeRadar = viper.GetStringSlice("render.exclude_radar")
	cfg.IgnoreOldRadars = viper.GetBool("render.ignore_old_radars")
	cfg.StripeOnOldRadars = viper.GetBool("render.stripe_on_old_radars")
	cfg.DeclareOldAfterMins = viper.GetInt("render.declare_old_after_mins")
	cfg.MaxConcurrentThreads = viper.GetInt("render.max_concurrent_threads")
	cfg.CheckRadarDistEveryPx = viper.GetInt("render.check_radar_dist_every_px")
	cfg.UseGridPartition = viper.GetBool("render.use_grid_partition")

	bm, err := resolveBasemapSource(basemapCache)
	if err != nil {
		return fmt.Errorf("failed to open basemap cache: %w", err)
	}

	logger.Info("rendering mosaic",
		"region", reg.String(),
		"width", width,
		"height", height,
		"output", output,
		"basemap_cache", basemapCache,
	)

	renderer := region.New(bm)

	result, report, err := renderer.Render(cmd.Context(), reg, width, height, cfg)
	if err != nil {
		return fmt.Errorf("failed to render mosaic: %w", err)
	}

	if report.Empty {
		logger.Warn("no stations covered the requested region")
	} else {
		logger.Info("render complete", "used_radars", strings.Join(report.UsedRadars, ","))
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, result.Canvas); err != nil {
		return fmt.Errorf("failed to encode output PNG: %w", err)
	}

	logger.Info("wrote mosaic", "path", output)

	if debugGeoJSON != "" {
		if err := writeFootprintGeoJSON(debugGeoJSON, report); err != nil {
			return fmt.Errorf("failed to write debug geojson: %w", err)
		}
		logger.Info("wrote debug footprint", "path", debugGeoJSON)
	}

	return nil
}

func writeFootprintGeoJSON(path string, report region.RenderReport) error {
	if report.Footprint == nil {
		return fmt.Errorf("no footprint available for this render")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(report.Footprint)
}

// resolveBasemapSource opens a disk-backed basemap cache when cachePath is
// set, falling back to a blank canvas otherwise.
func resolveBasemapSource(cachePath string) (basemap.Source, error) {
	if cachePath == "" {
		return basemap.NullSource{}, nil
	}

	reader, err := basemap.OpenReader(cachePath)
	if err != nil {
		return nil, err
	}

	return &basemap.CachedSource{Reader: reader, Fallback: basemap.NullSource{}}, nil
}

// parseRegionBBox parses a bounding box string "west,south,east,north" into a
// geo.Region.
func parseRegionBBox(s string) (geo.Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geo.Region{}, fmt.Errorf("expected 4 comma-separated values, got %d", len(parts))
	}

	vals := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return geo.Region{}, fmt.Errorf("invalid number at position %d: %w", i, err)
		}
		vals[i] = v
	}

	west, south, east, north := vals[0], vals[1], vals[2], vals[3]
	return geo.NewRegion(north, west, south, east)
}
