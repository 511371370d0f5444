package basemap

import (
	"context"
	"image"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/radarmosaic/internal/geo"
)

func testRegion(t *testing.T) geo.Region {
	t.Helper()
	r, err := geo.NewRegion(-6.0, 106.0, -7.0, 107.0)
	if err != nil {
		t.Fatalf("geo.NewRegion() error: %v", err)
	}
	return r
}

func TestWriterReaderRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "basemap.db")

	w, err := New(dbPath, Metadata{Name: "test basemap"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	region := testRegion(t)
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}

	if err := w.Put(region, 4, 4, img); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	r, err := OpenReader(dbPath)
	if err != nil {
		t.Fatalf("OpenReader() error: %v", err)
	}
	defer r.Close()

	got, err := r.Get(region, 4, 4)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Bounds().Dx() != 4 || got.Bounds().Dy() != 4 {
		t.Errorf("Get() size = %v, want 4x4", got.Bounds())
	}
}

func TestReaderGetMiss(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "basemap.db")

	w, err := New(dbPath, Metadata{Name: "empty"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	r, err := OpenReader(dbPath)
	if err != nil {
		t.Fatalf("OpenReader() error: %v", err)
	}
	defer r.Close()

	if _, err := r.Get(testRegion(t), 100, 100); err != ErrNotFound {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestNullSource(t *testing.T) {
	ns := NullSource{}
	img, err := ns.Basemap(context.Background(), testRegion(t), 10, 10)
	if err != nil {
		t.Fatalf("Basemap() error: %v", err)
	}
	if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 10 {
		t.Errorf("Basemap() size = %v, want 10x10", img.Bounds())
	}

	if _, err := ns.Basemap(context.Background(), testRegion(t), 0, 10); err == nil {
		t.Errorf("Basemap() expected error for zero width")
	}
}

func TestCachedSourceFallsThroughAndCaches(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "basemap.db")

	w, err := New(dbPath, Metadata{Name: "cached"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer w.Close()

	calls := 0
	fallback := sourceFunc(func(_ context.Context, region geo.Region, width, height int) (image.Image, error) {
		calls++
		return NullSource{}.Basemap(context.Background(), region, width, height)
	})

	cs := &CachedSource{Writer: w, Fallback: fallback}
	region := testRegion(t)

	if _, err := cs.Basemap(context.Background(), region, 8, 8); err != nil {
		t.Fatalf("Basemap() error: %v", err)
	}
	if calls != 1 {
		t.Errorf("fallback calls = %d, want 1", calls)
	}
}

type sourceFunc func(ctx context.Context, region geo.Region, width, height int) (image.Image, error)

func (f sourceFunc) Basemap(ctx context.Context, region geo.Region, width, height int) (image.Image, error) {
	return f(ctx, region, width, height)
}
