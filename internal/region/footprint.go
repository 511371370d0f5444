package region

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/MeKo-Tech/radarmosaic/internal/geo"
	"github.com/MeKo-Tech/radarmosaic/internal/types"
)

// regionPolygon builds a closed rectangular orb.Polygon from a Region,
// winding counter-clockwise starting at the southwest corner.
func regionPolygon(r geo.Region) orb.Polygon {
	ring := orb.Ring{
		{r.West, r.South},
		{r.East, r.South},
		{r.East, r.North},
		{r.West, r.North},
		{r.West, r.South},
	}
	return orb.Polygon{ring}
}

// FootprintGeoJSON describes the requested region and the retained stations'
// bounding boxes as a GeoJSON FeatureCollection, for inspecting why a render
// picked the stations it did.
func FootprintGeoJSON(requested geo.Region, stations []types.StationImage) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	regionFeature := geojson.NewFeature(regionPolygon(requested))
	regionFeature.Properties = map[string]interface{}{"kind": "requested_region"}
	fc.Append(regionFeature)

	for _, s := range stations {
		f := geojson.NewFeature(regionPolygon(s.Bounds))
		f.Properties = map[string]interface{}{
			"kind":       "station",
			"code":       s.Code,
			"station":    s.StationName,
			"city":       s.City,
			"latest_utc": s.LatestFrame().TimestampUTC.Format("2006-01-02T15:04:05Z07:00"),
		}
		fc.Append(f)
	}

	return fc
}
