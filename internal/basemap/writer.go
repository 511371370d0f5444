package basemap

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"fmt"
	"image"
	"image/png"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/MeKo-Tech/radarmosaic/internal/geo"
)

// DefaultBatchSize is the number of rasters to buffer before flushing to the database.
const DefaultBatchSize = 20

type rasterEntry struct {
	data   []byte // PNG data (will be gzip-compressed before storage)
	key    string
	width  int
	height int
}

// Writer writes whole pre-composited basemap rasters to an on-disk cache.
type Writer struct {
	db        *sql.DB
	path      string
	batch     []rasterEntry
	metadata  Metadata
	batchSize int
	mu        sync.Mutex
}

// New creates a new basemap cache database. The database is created if it
// doesn't exist, and the schema is initialized.
func New(path string, metadata Metadata) (*Writer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = 50000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if err := insertMetadata(db, metadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to insert metadata: %w", err)
	}

	return &Writer{
		db:        db,
		path:      path,
		batch:     make([]rasterEntry, 0, DefaultBatchSize),
		batchSize: DefaultBatchSize,
		metadata:  metadata,
	}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS metadata (
			name TEXT NOT NULL,
			value TEXT
		);

		CREATE TABLE IF NOT EXISTS rasters (
			cache_key TEXT NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			raster_data BLOB NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS raster_index ON rasters (cache_key);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

func insertMetadata(db *sql.DB, meta Metadata) error {
	if _, err := db.Exec("DELETE FROM metadata"); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}

	stmt, err := db.Prepare("INSERT INTO metadata (name, value) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare metadata insert: %w", err)
	}
	defer stmt.Close()

	for key, value := range meta.ToMap() {
		if _, err := stmt.Exec(key, value); err != nil {
			return fmt.Errorf("failed to insert metadata %q: %w", key, err)
		}
	}

	return nil
}

// Put adds a basemap raster to the batch, keyed by region and pixel size.
// When the batch is full, it is automatically flushed.
func (w *Writer) Put(region geo.Region, width, height int, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("failed to encode raster: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.batch = append(w.batch, rasterEntry{
		key:    cacheKey(region, width, height),
		width:  width,
		height: height,
		data:   buf.Bytes(),
	})

	if len(w.batch) >= w.batchSize {
		return w.flushLocked()
	}

	return nil
}

// Flush writes any buffered rasters to the database.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	if len(w.batch) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO rasters (cache_key, width, height, raster_data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, entry := range w.batch {
		compressed, err := gzipCompress(entry.data)
		if err != nil {
			return fmt.Errorf("failed to compress raster %q: %w", entry.key, err)
		}

		if _, err := stmt.Exec(entry.key, entry.width, entry.height, compressed); err != nil {
			return fmt.Errorf("failed to insert raster %q: %w", entry.key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.batch = w.batch[:0]
	return nil
}

// Close flushes any remaining rasters and closes the database.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		w.db.Close()
		return err
	}

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)

	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return nil, err
	}

	if err := gw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
