package region

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/radarmosaic/internal/config"
	"github.com/MeKo-Tech/radarmosaic/internal/geo"
	"github.com/MeKo-Tech/radarmosaic/internal/registry"
)

func encodedPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type staticBasemap struct {
	img image.Image
}

func (s staticBasemap) Basemap(_ context.Context, _ geo.Region, _, _ int) (image.Image, error) {
	return s.img, nil
}

func TestRendererRenderEndToEnd(t *testing.T) {
	radarPNG := encodedPNG(t, color.NRGBA{R: 255, A: 255})

	imageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(radarPNG)
	}))
	defer imageSrv.Close()

	detailSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"bounds":{"overlayTLC":[-5,105],"overlayBRC":[-7,108]},
			"Latest":{"timeUTC":"2026-07-31 10:00 UTC"},
			"LastOneHour":{"file":["` + imageSrv.URL + `/a.png"],"timeUTC":["2026-07-31 10:00 UTC"]},
			"legends":{"colors":["#FF0000"]}
		}`))
	}))
	defer detailSrv.Close()

	listSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"kode":"JAK","Kota":"Jakarta","Stasiun":"JAK Radar","lat":-6,"lon":106.5,"overlayTLC":[-5,105],"overlayBRC":[-7,108]}]`))
	}))
	defer listSrv.Close()

	base := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			base.Set(x, y, color.NRGBA{B: 100, A: 255})
		}
	}

	renderer := &Renderer{
		Registry: &registry.Registry{ListURL: listSrv.URL, ImagePublicURL: detailSrv.URL},
		Basemap:  staticBasemap{img: base},
		Fetch: func(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
			return radarPNG, nil
		},
	}

	region, err := geo.NewRegion(-5, 105, -8, 108)
	require.NoError(t, err)

	cfg := config.New()
	cfg.RadarRangeOverride = map[string]float64{"JAK": 5}
	cfg.RadarPriority = map[string]int{"JAK": 1}

	result, report, err := renderer.Render(context.Background(), region, 64, 64, cfg)
	require.NoError(t, err)
	require.False(t, report.Empty)
	require.Contains(t, report.UsedRadars, "JAK")
	require.Equal(t, image.Rect(0, 0, 64, 64), result.Canvas.Bounds())
}

func TestRendererRenderReportsEmptyWhenNoStations(t *testing.T) {
	listSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer listSrv.Close()

	renderer := &Renderer{
		Registry: &registry.Registry{ListURL: listSrv.URL},
		Basemap:  nil,
		Fetch: func(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
			return nil, nil
		},
	}

	region, err := geo.NewRegion(-5, 105, -8, 108)
	require.NoError(t, err)

	result, report, err := renderer.Render(context.Background(), region, 32, 32, config.New())
	require.NoError(t, err)
	require.True(t, report.Empty)
	require.Equal(t, image.Rect(0, 0, 32, 32), result.Canvas.Bounds())
}
