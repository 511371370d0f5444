// Package config defines the mosaic renderer's runtime configuration. The
// CLI commands populate it from their Viper-bound flags; this package itself
// does no flag or Viper binding.
package config

// Config holds every tunable that affects which stations are retained and
// how they're composited into the mosaic.
type Config struct {
	// ExcludeRadar lists station codes to drop entirely from the retained
	// set, regardless of overlap or freshness.
	ExcludeRadar []string

	// IgnoreOldRadars drops a station from the retained set once its
	// latest frame is older than DeclareOldAfterMins, instead of keeping
	// it and striping it.
	IgnoreOldRadars bool

	// StripeOnOldRadars overlays a 2px-on/2px-off transparency stripe on a
	// stale station's region of interest rather than dropping it.
	StripeOnOldRadars bool

	// DeclareOldAfterMins is the staleness threshold, in minutes, applied
	// by both IgnoreOldRadars and StripeOnOldRadars.
	DeclareOldAfterMins int

	// MaxConcurrentThreads bounds the compositor's per-station worker pool.
	MaxConcurrentThreads int

	// CheckRadarDistEveryPx is the cell size, in output pixels, used by the
	// legacy grid-mode partition fallback.
	CheckRadarDistEveryPx int

	// RadarRangeOverride maps a station code to its effective range in
	// degrees, overriding the compositor's DefaultRangeDeg. Callers
	// populating this map directly (rather than via New, which converts
	// from DefaultRadarRangeOverrideKm using KmToDegrees) must convert
	// kilometers to degrees themselves.
	RadarRangeOverride map[string]float64

	// RadarPriority maps a station code to its ownership priority; higher
	// wins ties and can pre-empt a lower-priority station's coverage.
	RadarPriority map[string]int

	// UseGridPartition switches the compositor to the legacy coarse-grid
	// partition fallback, kept for debugging rather than production use.
	UseGridPartition bool
}

// DefaultDeclareOldAfterMins is applied when a config omits the field.
const DefaultDeclareOldAfterMins = 20

// DefaultMaxConcurrentThreads is applied when a config omits the field.
const DefaultMaxConcurrentThreads = 7

// DefaultCheckRadarDistEveryPx is applied when a config omits the field.
const DefaultCheckRadarDistEveryPx = 10

// kmPerDegree is the equatorial circumference (km) used to convert a
// kilometer range into degrees of latitude/longitude.
const kmPerDegree = 40075.0

// KmToDegrees converts a distance in kilometers to degrees, assuming the
// equatorial circumference used elsewhere in the registry and compositor.
func KmToDegrees(km float64) float64 {
	return km * 360.0 / kmPerDegree
}

// DefaultRadarRangeOverrideKm returns the production default per-station
// ranges, in kilometers, for the three named BMKG stations.
func DefaultRadarRangeOverrideKm() map[string]float64 {
	return map[string]float64{
		"PWK": 110,
		"CGK": 90,
		"JAK": 200,
	}
}

// DefaultRadarPriority returns the production default per-station
// ownership priorities for the three named BMKG stations.
func DefaultRadarPriority() map[string]int {
	return map[string]int{
		"PWK": 1,
		"CGK": 2,
		"JAK": 0,
	}
}

// New returns a Config populated with production defaults.
func New() Config {
	rangeKm := DefaultRadarRangeOverrideKm()
	rangeDeg := make(map[string]float64, len(rangeKm))
	for code, km := range rangeKm {
		rangeDeg[code] = KmToDegrees(km)
	}

	return Config{
		StripeOnOldRadars:     true,
		DeclareOldAfterMins:   DefaultDeclareOldAfterMins,
		MaxConcurrentThreads:  DefaultMaxConcurrentThreads,
		CheckRadarDistEveryPx: DefaultCheckRadarDistEveryPx,
		RadarRangeOverride:    rangeDeg,
		RadarPriority:         DefaultRadarPriority(),
	}
}
