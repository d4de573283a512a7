package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/sarlab/insar-analyzer/raster"
)

func TestPointSetNaming(t *testing.T) {
	s := NewPointSet()
	p1 := s.AddPoint(Point{X: 1, Y: 1})
	p2 := s.AddPoint(Point{X: 2, Y: 2})
	p3 := s.AddPoint(Point{X: 3, Y: 3})
	if p1.Name != "P1" || p2.Name != "P2" || p3.Name != "P3" {
		t.Fatalf("unexpected names %s %s %s", p1.Name, p2.Name, p3.Name)
	}

	if !s.Remove("P2") {
		t.Fatal("remove P2 failed")
	}
	// numbering keeps going, the gap stays
	p4 := s.AddPoint(Point{X: 4, Y: 4})
	if p4.Name != "P4" {
		t.Errorf("expected P4 after deleting P2, got %s", p4.Name)
	}
	if _, ok := s.Point("P2"); ok {
		t.Error("P2 should be gone")
	}
	if _, ok := s.Point("P4"); !ok {
		t.Error("P4 should exist")
	}

	r1 := s.AddRegion(Region{X0: 5, Y0: 5, X1: 1, Y1: 1})
	if r1.Name != "R1" {
		t.Errorf("expected R1, got %s", r1.Name)
	}
	if r1.X0 != 1 || r1.X1 != 5 || r1.Y0 != 1 || r1.Y1 != 5 {
		t.Errorf("region corners not normalized: %+v", r1)
	}

	s.Clear()
	if p := s.AddPoint(Point{}); p.Name != "P1" {
		t.Errorf("expected numbering restart after Clear, got %s", p.Name)
	}
}

func gridRaster(path string, w, h int, fill func(x, y int) float64) *raster.Raster {
	data := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			data[y*w+x] = fill(x, y)
		}
	}
	return &raster.Raster{Path: path, Width: w, Height: h, Data: data}
}

func testStack() *Stack {
	// deliberately out of order: NewStack must sort by secondary date
	r2 := gridRaster("S1AA_20150817T223551_20150905T223551_displacement.tif", 4, 4, func(x, y int) float64 { return 0.02 })
	r1 := gridRaster("S1AA_20150817T223551_20150829T223551_displacement.tif", 4, 4, func(x, y int) float64 {
		if x == 0 && y == 0 {
			return math.NaN()
		}
		return 0.01
	})
	return NewStack([]*raster.Raster{r2, r1})
}

func TestNewStackOrdering(t *testing.T) {
	s := testStack()
	if len(s.Epochs) != 2 {
		t.Fatalf("expected 2 epochs, got %d", len(s.Epochs))
	}
	if !s.Epochs[0].Date.Before(s.Epochs[1].Date) {
		t.Error("epochs not sorted by date")
	}
	want := time.Date(2015, 8, 29, 0, 0, 0, 0, time.UTC)
	if !s.Epochs[0].Date.Equal(want) {
		t.Errorf("expected first epoch %v, got %v", want, s.Epochs[0].Date)
	}

	undated := gridRaster("b_displacement.tif", 2, 2, func(x, y int) float64 { return 0 })
	undated2 := gridRaster("a_displacement.tif", 2, 2, func(x, y int) float64 { return 0 })
	s2 := NewStack([]*raster.Raster{undated, s.Epochs[0].Raster, undated2})
	if s2.Epochs[0].HasDate != true || s2.Epochs[1].Raster.Path != "a_displacement.tif" {
		t.Errorf("undated epochs should sort last by name: %v", []string{
			s2.Epochs[0].Raster.Path, s2.Epochs[1].Raster.Path, s2.Epochs[2].Raster.Path})
	}
}

func TestExtractSeriesSkipsInvalid(t *testing.T) {
	s := testStack()
	points := []Point{
		{Name: "P1", X: 0, Y: 0},  // NaN in the first epoch
		{Name: "P2", X: 9, Y: 9},  // out of bounds everywhere
		{Name: "P3", X: 1, Y: 1},
	}
	series := ExtractSeries(s, points, nil, 0)
	if len(series) != 3 {
		t.Fatalf("expected 3 series, got %d", len(series))
	}
	if len(series[0].Samples) != 1 {
		t.Errorf("P1: NaN sample should be skipped, got %d samples", len(series[0].Samples))
	}
	if len(series[1].Samples) != 0 {
		t.Errorf("P2: out-of-bounds samples should be skipped, got %d", len(series[1].Samples))
	}
	if len(series[2].Samples) != 2 {
		t.Errorf("P3: expected 2 samples, got %d", len(series[2].Samples))
	}
	if series[2].Samples[0].Value != 0.01 || series[2].Samples[1].Value != 0.02 {
		t.Errorf("P3: unexpected values %+v", series[2].Samples)
	}
}

func TestExtractSeriesReferenceCorrection(t *testing.T) {
	s := testStack()
	ref := &Point{Name: "P9", X: 2, Y: 2}
	points := []Point{{Name: "P1", X: 1, Y: 1}}

	// reference sampled from epoch 0 (value 0.01), applied to both epochs
	series := ExtractSeries(s, points, ref, 0)
	got := series[0].Samples
	if math.Abs(got[0].Value) > 1e-12 || math.Abs(got[1].Value-0.01) > 1e-12 {
		t.Errorf("correction with current=0: got %+v", got)
	}

	// switching the displayed epoch changes the offset for the whole series
	series = ExtractSeries(s, points, ref, 1)
	got = series[0].Samples
	if math.Abs(got[0].Value+0.01) > 1e-12 || math.Abs(got[1].Value) > 1e-12 {
		t.Errorf("correction with current=1: got %+v", got)
	}

	// out-of-range current index disables the correction
	series = ExtractSeries(s, points, ref, 5)
	if series[0].Samples[0].Value != 0.01 {
		t.Errorf("invalid current index should disable correction, got %+v", series[0].Samples)
	}
}

func TestExtractRegionSeries(t *testing.T) {
	s := testStack()
	regions := []Region{{Name: "R1", X0: 0, Y0: 0, X1: 1, Y1: 1}}
	series := ExtractRegionSeries(s, regions)
	if len(series) != 1 || len(series[0].Samples) != 2 {
		t.Fatalf("unexpected series %+v", series)
	}
	// first epoch has a NaN at (0,0): mean of the remaining 3 pixels
	if math.Abs(series[0].Samples[0].Value-0.01) > 1e-12 {
		t.Errorf("expected 0.01, got %v", series[0].Samples[0].Value)
	}
}

func TestSeriesStats(t *testing.T) {
	d0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Series{Name: "P1", Samples: []Sample{
		{Date: d0, Value: 0},
		{Date: d0.AddDate(0, 0, 120), Value: -0.010},
		{Date: d0.AddDate(0, 0, 240), Value: -0.020},
		{Date: d0.AddDate(0, 0, 365), Value: -0.0365},
	}}
	ps := SeriesStats(s)
	if ps.Count != 4 {
		t.Errorf("count: %d", ps.Count)
	}
	if ps.MinMM != -36.5 || ps.MaxMM != 0 {
		t.Errorf("min/max: %v/%v", ps.MinMM, ps.MaxMM)
	}
	// -36.5 mm over 365 days ≈ -36.525 mm/yr
	if math.Abs(ps.RateMMYr+36.525) > 0.01 {
		t.Errorf("rate: %v", ps.RateMMYr)
	}

	if ps := SeriesStats(Series{Name: "P2"}); ps.Count != 0 || ps.RateMMYr != 0 {
		t.Errorf("empty series: %+v", ps)
	}
}

func TestSceneStats(t *testing.T) {
	r := gridRaster("disp.tif", 2, 2, func(x, y int) float64 { return 0 })
	r.Data = []float64{-0.05, -0.02, 0.01, math.NaN()}
	ss := Scene(r)
	if ss.ValidPixels != 3 {
		t.Errorf("valid: %d", ss.ValidPixels)
	}
	if math.Abs(ss.SubsidenceFraction-2.0/3.0) > 1e-12 {
		t.Errorf("subsidence fraction: %v", ss.SubsidenceFraction)
	}
	if ss.MinM != -0.05 || ss.MaxM != 0.01 {
		t.Errorf("min/max: %v/%v", ss.MinM, ss.MaxM)
	}
}

func TestExtractSeriesSkipsUndatedEpochs(t *testing.T) {
	dated := gridRaster("S1AA_20150817T223551_20150829T223551_displacement.tif", 2, 2, func(x, y int) float64 { return 0.01 })
	undated := gridRaster("stacked_displacement.tif", 2, 2, func(x, y int) float64 { return 0.05 })
	s := NewStack([]*raster.Raster{dated, undated})

	series := ExtractSeries(s, []Point{{Name: "P1", X: 0, Y: 0}}, nil, 0)
	if len(series[0].Samples) != 1 {
		t.Fatalf("expected only the dated epoch, got %d samples", len(series[0].Samples))
	}
	if series[0].Samples[0].Value != 0.01 {
		t.Errorf("unexpected value %v", series[0].Samples[0].Value)
	}
	if series[0].Samples[0].Date.IsZero() {
		t.Error("sample carries no date")
	}

	regions := ExtractRegionSeries(s, []Region{{Name: "R1", X0: 0, Y0: 0, X1: 1, Y1: 1}})
	if len(regions[0].Samples) != 1 {
		t.Fatalf("expected only the dated epoch for the region, got %d samples", len(regions[0].Samples))
	}
}
