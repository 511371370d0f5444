// Package imagefetch concurrently downloads the latest frame for each
// retained station. Frames are normally PNG, but a handful of older AWOS
// sites on the network still publish BMP snapshots, so both decoders are
// registered.
package imagefetch

import (
	"bytes"
	"context"
	"image"
	_ "image/png"
	"sync"

	_ "golang.org/x/image/bmp"

	"github.com/MeKo-Tech/radarmosaic/internal/radarerr"
	"github.com/MeKo-Tech/radarmosaic/internal/types"
)

// Fetcher is injected so tests can stub the network round trip.
type Fetcher func(ctx context.Context, url string, headers map[string]string) ([]byte, error)

// FetchAll downloads each station's latest frame into a pre-sized slot
// vector keyed by station index. One goroutine per station, eagerly
// launched with no pool bound, since the station count is small. All are joined
// before returning; the first error recorded by any task wins.
func FetchAll(ctx context.Context, stations []types.StationDetail, fetch Fetcher) ([]image.Image, error) {
	images := make([]image.Image, len(stations))

	var (
		mu       sync.Mutex
		firstErr error
		wg       sync.WaitGroup
	)

	for i, station := range stations {
		wg.Add(1)
		go func(i int, s types.StationDetail) {
			defer wg.Done()

			body, err := fetch(ctx, s.LatestFrame().ImageURL, nil)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}

			img, _, err := image.Decode(bytes.NewReader(body))
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = &radarerr.DecodeError{StationCode: s.Code, Cause: err}
				}
				mu.Unlock()
				return
			}

			images[i] = img
		}(i, station)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	return images, nil
}
