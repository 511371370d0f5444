// Package registry discovers which radar stations cover a region and fetches
// their per-station detail metadata.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/MeKo-Tech/radarmosaic/internal/geo"
	"github.com/MeKo-Tech/radarmosaic/internal/httpfetch"
	"github.com/MeKo-Tech/radarmosaic/internal/radarerr"
	"github.com/MeKo-Tech/radarmosaic/internal/types"
)

const (
	// RadarListURL is the upstream station catalog endpoint.
	RadarListURL = "https://radar.bmkg.go.id:8090/radarlist"
	// RadarImagePublicURL is the public-tier per-station detail endpoint.
	RadarImagePublicURL = "https://api-apps.bmkg.go.id/api/radar-image"
	// RadarImageURL is the authenticated-tier per-station detail endpoint,
	// used when the "token" environment variable is set.
	RadarImageURL = "https://radar.bmkg.go.id:8090/sidarmaimage"
)

const frameTimeLayout = "2006-01-02 15:04 MST"

// Config controls which stations are retained by ListInRegion.
type Config struct {
	ExcludeRadar        []string
	IgnoreOldRadars     bool
	DeclareOldAfterMins int
}

func (c Config) excluded(code string) bool {
	for _, x := range c.ExcludeRadar {
		if x == code {
			return true
		}
	}
	return false
}

// Registry loads the station catalog and per-station detail. It holds only
// endpoint URLs and caches nothing, so every call fetches afresh and one
// Registry can serve many renders.
type Registry struct {
	ListURL        string
	ImagePublicURL string
	ImageURL       string
}

// New creates a Registry pointed at the production BMKG endpoints.
func New() *Registry {
	return &Registry{
		ListURL:        RadarListURL,
		ImagePublicURL: RadarImagePublicURL,
		ImageURL:       RadarImageURL,
	}
}

type listEnvelope struct {
	Datas []rawSummary `json:"datas"`
}

type rawSummary struct {
	Kode       string    `json:"kode"`
	Kota       string    `json:"Kota"`
	Stasiun    string    `json:"Stasiun"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	OverlayTLC []float64 `json:"overlayTLC"`
	OverlayBRC []float64 `json:"overlayBRC"`
}

// List fetches and parses the station catalog. The upstream response may be
// a bare JSON array or wrapped in {"datas": [...]}; both shapes are accepted.
func (r *Registry) List(ctx context.Context) ([]types.StationSummary, error) {
	body, err := httpfetch.Get(ctx, r.ListURL, nil)
	if err != nil {
		return nil, err
	}

	raws, err := parseListBody(body)
	if err != nil {
		return nil, err
	}

	summaries := make([]types.StationSummary, 0, len(raws))
	for _, raw := range raws {
		if len(raw.OverlayTLC) != 2 || len(raw.OverlayBRC) != 2 {
			return nil, &radarerr.ParseError{Context: fmt.Sprintf("station %s missing overlay bounds", raw.Kode)}
		}

		bounds, err := geo.NewRegion(raw.OverlayTLC[0], raw.OverlayTLC[1], raw.OverlayBRC[0], raw.OverlayBRC[1])
		if err != nil {
			return nil, &radarerr.ParseError{Context: fmt.Sprintf("station %s has invalid bounds", raw.Kode), Cause: err}
		}

		summaries = append(summaries, types.StationSummary{
			Code:        raw.Kode,
			City:        raw.Kota,
			StationName: raw.Stasiun,
			Lat:         raw.Lat,
			Lon:         raw.Lon,
			Bounds:      bounds,
		})
	}

	return summaries, nil
}

func parseListBody(body []byte) ([]rawSummary, error) {
	var arr []rawSummary
	if err := json.Unmarshal(body, &arr); err == nil {
		return arr, nil
	}

	var env listEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &radarerr.ParseError{Context: "station list response", Cause: err}
	}
	return env.Datas, nil
}

type rawDetail struct {
	Bounds struct {
		TLC []float64 `json:"overlayTLC"`
		BRC []float64 `json:"overlayBRC"`
	} `json:"bounds"`
	Latest struct {
		TimeUTC string `json:"timeUTC"`
	} `json:"Latest"`
	LastOneHour struct {
		File    []string `json:"file"`
		TimeUTC []string `json:"timeUTC"`
	} `json:"LastOneHour"`
	Legends struct {
		Colors []string `json:"colors"`
	} `json:"legends"`
}

// Detail fetches and parses one station's detail metadata. It returns nil,
// nil (not an error) if the station should be silently dropped: "No Data"
// latest timestamp, or filtered by the staleness threshold.
func (r *Registry) Detail(ctx context.Context, summary types.StationSummary, cfg Config) (*types.StationDetail, error) {
	url := r.ImagePublicURL + "?radar=" + summary.Code
	if token := os.Getenv("token"); token != "" {
		url = r.ImageURL + "?radar=" + summary.Code + "&token=" + token
	}

	body, err := httpfetch.Get(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	var raw rawDetail
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &radarerr.ParseError{Context: fmt.Sprintf("detail for station %s", summary.Code), Cause: err}
	}

	if strings.TrimSpace(raw.Latest.TimeUTC) == "No Data" || strings.TrimSpace(raw.Latest.TimeUTC) == "" {
		return nil, nil
	}

	frames, err := parseFrames(raw.LastOneHour.File, raw.LastOneHour.TimeUTC)
	if err != nil {
		return nil, &radarerr.ParseError{Context: fmt.Sprintf("frames for station %s", summary.Code), Cause: err}
	}
	if len(frames) == 0 {
		return nil, nil
	}

	detail := types.StationDetail{
		StationSummary: summary,
		Frames:         frames,
	}

	if len(raw.Bounds.TLC) == 2 && len(raw.Bounds.BRC) == 2 {
		bounds, err := geo.NewRegion(raw.Bounds.TLC[0], raw.Bounds.TLC[1], raw.Bounds.BRC[0], raw.Bounds.BRC[1])
		if err == nil {
			detail.Bounds = bounds
		}
	}

	for _, hex := range raw.Legends.Colors {
		c, err := geo.ParseHexColor(hex)
		if err != nil {
			return nil, &radarerr.ParseError{Context: fmt.Sprintf("palette color for station %s", summary.Code), Cause: err}
		}
		detail.Palette = append(detail.Palette, c)
	}

	if cfg.IgnoreOldRadars {
		threshold := time.Duration(cfg.DeclareOldAfterMins) * time.Minute
		if detail.IsStale(time.Now(), threshold) {
			return nil, nil
		}
	}

	return &detail, nil
}

func parseFrames(files, timestamps []string) ([]types.Frame, error) {
	if len(files) != len(timestamps) {
		return nil, fmt.Errorf("mismatched file/timestamp counts: %d vs %d", len(files), len(timestamps))
	}

	frames := make([]types.Frame, 0, len(files))
	for i, ts := range timestamps {
		t, err := time.Parse(frameTimeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("invalid frame timestamp %q: %w", ts, err)
		}
		frames = append(frames, types.Frame{TimestampUTC: t, ImageURL: files[i]})
	}
	return frames, nil
}

// ListInRegion orchestrates List + concurrent Detail fetches for every
// summary whose bounds overlap the region and whose code is not excluded.
// Detail fetches run one goroutine per candidate guarded by a single mutex
// over the shared result slice; the first error encountered is surfaced
// after all fetches join.
func (r *Registry) ListInRegion(ctx context.Context, region geo.Region, cfg Config) ([]types.StationDetail, error) {
	summaries, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]types.StationSummary, 0, len(summaries))
	for _, s := range summaries {
		if cfg.excluded(s.Code) {
			continue
		}
		if !geo.IsOverlapping(s.Bounds, region) {
			continue
		}
		candidates = append(candidates, s)
	}

	var (
		mu       sync.Mutex
		details  []types.StationDetail
		firstErr error
		wg       sync.WaitGroup
	)

	for _, summary := range candidates {
		wg.Add(1)
		go func(s types.StationSummary) {
			defer wg.Done()

			detail, err := r.Detail(ctx, s, cfg)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			if detail != nil {
				details = append(details, *detail)
			}
		}(summary)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	return details, nil
}
