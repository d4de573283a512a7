package raster

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sarlab/insar-analyzer/common"
)

type fakeBackend struct {
	name string
	ext  string
	r    *Raster
	err  error
}

func (b *fakeBackend) Name() string          { return b.name }
func (b *fakeBackend) CanOpen(p string) bool { return strings.HasSuffix(p, b.ext) }
func (b *fakeBackend) Open(ctx context.Context, p string) (*Raster, error) {
	return b.r, b.err
}

func withBackends(t *testing.T, bs ...Backend) {
	t.Helper()
	saved := backends
	backends = bs
	t.Cleanup(func() { backends = saved })
}

func TestOpenSelectsFirstCapableBackend(t *testing.T) {
	first := &fakeBackend{name: "first", ext: ".tif", r: &Raster{Width: 2, Height: 1, Data: []float64{1, 2}}}
	second := &fakeBackend{name: "second", ext: ".tif", r: &Raster{Width: 1, Height: 1, Data: []float64{9}}}
	withBackends(t, first, second)

	r, err := Open(context.Background(), "a_displacement.tif")
	if err != nil {
		t.Fatal(err)
	}
	if r.Width != 2 {
		t.Errorf("expected the first backend's raster, got %dx%d", r.Width, r.Height)
	}
	if r.Type != common.ProductDisplacement {
		t.Errorf("expected Displacement, got %v", r.Type)
	}
	if r.Path != "a_displacement.tif" {
		t.Errorf("path not set: %q", r.Path)
	}
}

func TestOpenNoBackend(t *testing.T) {
	withBackends(t, &fakeBackend{name: "h5only", ext: ".h5"})
	_, err := Open(context.Background(), "scene.tif")
	var enb ErrNoBackend
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.As(err, &enb) {
		t.Fatalf("expected ErrNoBackend, got %v", err)
	}
	if !strings.Contains(enb.Error(), "scene.tif") {
		t.Errorf("error should name the path: %v", enb)
	}
}

func TestOpenRejectsEmptyRaster(t *testing.T) {
	withBackends(t, &fakeBackend{name: "empty", ext: ".tif", r: &Raster{}})
	if _, err := Open(context.Background(), "x.tif"); err == nil {
		t.Fatal("expected an error for an empty raster")
	}
}

func TestAt(t *testing.T) {
	r := &Raster{Width: 2, Height: 2, Data: []float64{1, 2, 3, math.NaN()}}
	if v, ok := r.At(1, 1); !ok || !math.IsNaN(v) {
		t.Errorf("expected NaN, true; got %v, %v", v, ok)
	}
	if v, ok := r.At(0, 1); !ok || v != 3 {
		t.Errorf("expected 3; got %v, %v", v, ok)
	}
	for _, xy := range [][2]int{{-1, 0}, {0, -1}, {2, 0}, {0, 2}} {
		if _, ok := r.At(xy[0], xy[1]); ok {
			t.Errorf("(%d,%d): expected out of bounds", xy[0], xy[1])
		}
	}
}

func TestPixelToGeo(t *testing.T) {
	gt := [6]float64{100, 0.5, 0, 50, 0, -0.5}
	r := &Raster{Width: 4, Height: 4, Data: make([]float64, 16), GeoTransform: &gt}
	gx, gy, ok := r.PixelToGeo(2, 2)
	if !ok || gx != 101 || gy != 49 {
		t.Errorf("expected (101, 49, true), got (%v, %v, %v)", gx, gy, ok)
	}
	r.GeoTransform = nil
	if _, _, ok := r.PixelToGeo(0, 0); ok {
		t.Error("expected ok=false without geotransform")
	}
}

func TestFiniteValues(t *testing.T) {
	r := &Raster{Width: 5, Height: 1, Data: []float64{1, math.NaN(), math.Inf(1), -2, math.Inf(-1)}}
	vals := r.FiniteValues()
	if len(vals) != 2 || vals[0] != 1 || vals[1] != -2 {
		t.Errorf("expected [1 -2], got %v", vals)
	}
}

func TestSqueeze(t *testing.T) {
	cases := []struct {
		dims []int
		want int
	}{
		{[]int{1, 100, 200}, 2},
		{[]int{100, 200}, 2},
		{[]int{1, 1, 100, 200}, 2},
		{[]int{3, 100, 200}, 3},
	}
	for _, c := range cases {
		if got := len(squeeze(c.dims)); got != c.want {
			t.Errorf("squeeze(%v): expected rank %d, got %d", c.dims, c.want, got)
		}
	}
}

func TestPickDataset(t *testing.T) {
	found := []h5Dataset{
		{path: "science/grids/data/coherence", dims: []int{100, 100}},
		{path: "science/grids/data/displacement", dims: []int{10, 10}},
		{path: "science/grids/data/amplitude", dims: []int{500, 500}},
	}
	if got := pickDataset(found); got.path != "science/grids/data/displacement" {
		t.Errorf("expected the displacement dataset, got %s", got.path)
	}
	// without a displacement-like name the largest wins
	if got := pickDataset([]h5Dataset{found[0], found[2]}); got.path != "science/grids/data/amplitude" {
		t.Errorf("expected amplitude, got %s", got.path)
	}
}

func TestGTiffRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roundtrip_displacement.tif")

	src := &Raster{
		Width:        3,
		Height:       2,
		Data:         []float64{0.0123, -0.5, 1.25, math.NaN(), 3.75, -2.5},
		GeoTransform: &[6]float64{-118.0, 0.001, 0, 34.5, 0, -0.001},
	}
	if err := WriteGTiff(path, src); err != nil {
		t.Fatal(err)
	}

	got, err := NewGDALBackend().Open(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Width != src.Width || got.Height != src.Height {
		t.Fatalf("expected %dx%d, got %dx%d", src.Width, src.Height, got.Width, got.Height)
	}
	for i, want := range src.Data {
		if math.IsNaN(want) {
			if !math.IsNaN(got.Data[i]) {
				t.Errorf("cell %d: expected NaN, got %v", i, got.Data[i])
			}
			continue
		}
		// stored as Float32
		if got.Data[i] != float64(float32(want)) {
			t.Errorf("cell %d: expected %v, got %v", i, want, got.Data[i])
		}
	}
	if got.GeoTransform == nil || *got.GeoTransform != *src.GeoTransform {
		t.Errorf("geotransform not preserved: %v", got.GeoTransform)
	}
}
