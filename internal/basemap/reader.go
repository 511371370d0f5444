package basemap

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"fmt"
	"image"
	"io"

	"github.com/MeKo-Tech/radarmosaic/internal/geo"
)

// Reader reads cached basemap rasters from an on-disk database.
type Reader struct {
	db   *sql.DB
	path string
}

// OpenReader opens a basemap cache database for reading.
func OpenReader(path string) (*Reader, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='rasters'").Scan(&count)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}
	if count == 0 {
		db.Close()
		return nil, fmt.Errorf("database does not contain rasters table")
	}

	return &Reader{db: db, path: path}, nil
}

// ErrNotFound is returned when a region+size raster isn't present in the cache.
var ErrNotFound = fmt.Errorf("basemap: raster not found in cache")

// Get reads a cached raster for the given region and pixel size.
func (r *Reader) Get(region geo.Region, width, height int) (image.Image, error) {
	key := cacheKey(region, width, height)

	var compressed []byte
	err := r.db.QueryRow("SELECT raster_data FROM rasters WHERE cache_key=?", key).Scan(&compressed)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query raster %q: %w", key, err)
	}

	uncompressed, err := gzipDecompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress raster %q: %w", key, err)
	}

	img, _, err := imageDecode(uncompressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode raster %q: %w", key, err)
	}

	return img, nil
}

// Metadata reads metadata from the database.
func (r *Reader) Metadata() (Metadata, error) {
	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	metaMap := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		metaMap[name] = value
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, fmt.Errorf("error iterating metadata: %w", err)
	}

	return Metadata{
		Name:        metaMap["name"],
		Attribution: metaMap["attribution"],
		Description: metaMap["description"],
	}, nil
}

// Close closes the database connection.
func (r *Reader) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	uncompressed, err := io.ReadAll(gr)
	if err != nil {
		return nil, err
	}

	return uncompressed, nil
}

// CachedSource wraps another Source with a persistent on-disk raster cache.
// A cache miss falls through to the underlying source; when Writer is set,
// the fetched raster is also written to the cache for next time.
type CachedSource struct {
	Reader   *Reader
	Writer   *Writer
	Fallback Source
}

// Basemap implements Source, preferring the on-disk cache.
func (c *CachedSource) Basemap(ctx context.Context, region geo.Region, width, height int) (image.Image, error) {
	if c.Reader != nil {
		img, err := c.Reader.Get(region, width, height)
		if err == nil {
			return img, nil
		}
		if err != ErrNotFound {
			return nil, err
		}
	}

	if c.Fallback == nil {
		return nil, ErrNotFound
	}

	img, err := c.Fallback.Basemap(ctx, region, width, height)
	if err != nil {
		return nil, err
	}

	if c.Writer != nil {
		if err := c.Writer.Put(region, width, height, img); err != nil {
			return nil, fmt.Errorf("failed to cache raster: %w", err)
		}
	}

	return img, nil
}
