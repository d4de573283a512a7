package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/sarlab/insar-analyzer/common"
	"github.com/sarlab/insar-analyzer/raster"
)

// Epoch is one displacement raster of a stack with its acquisition date
// (the secondary date of the interferometric pair).
type Epoch struct {
	Raster  *raster.Raster
	Date    time.Time
	HasDate bool
}

// Stack is the ordered set of displacement epochs under analysis.
type Stack struct {
	Epochs []Epoch
}

// NewStack orders rasters by the secondary acquisition date parsed from
// their file names. Undated rasters sort last, by name.
func NewStack(rasters []*raster.Raster) *Stack {
	epochs := make([]Epoch, 0, len(rasters))
	for _, r := range rasters {
		_, sec, ok := common.ParseDatePair(r.Path)
		epochs = append(epochs, Epoch{Raster: r, Date: sec, HasDate: ok})
	}
	sort.SliceStable(epochs, func(i, j int) bool {
		a, b := epochs[i], epochs[j]
		switch {
		case a.HasDate && b.HasDate:
			return a.Date.Before(b.Date)
		case a.HasDate:
			return true
		case b.HasDate:
			return false
		default:
			return a.Raster.Path < b.Raster.Path
		}
	})
	return &Stack{Epochs: epochs}
}

// Sample is one valid observation of a point.
type Sample struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"` // meters
}

// Series is the extracted displacement history of one point or region.
type Series struct {
	Name    string   `json:"name"`
	Samples []Sample `json:"samples"`
}

// ExtractSeries samples every dated epoch at each point. Undated epochs
// are skipped, there is no date to plot them on. Out-of-bounds and NaN
// samples are skipped, never zero-filled. When a reference point is given,
// its value is sampled from the epoch at index current (the raster being
// displayed) and subtracted as a constant offset from every sample of every
// point. The reference is NOT re-sampled per epoch.
func ExtractSeries(stack *Stack, points []Point, ref *Point, current int) []Series {
	refCorr := 0.0
	if ref != nil && current >= 0 && current < len(stack.Epochs) {
		if v, ok := stack.Epochs[current].Raster.At(ref.X, ref.Y); ok && !math.IsNaN(v) {
			refCorr = v
		}
	}

	out := make([]Series, 0, len(points))
	for _, p := range points {
		s := Series{Name: p.Name}
		for _, e := range stack.Epochs {
			if !e.HasDate {
				continue
			}
			v, ok := e.Raster.At(p.X, p.Y)
			if !ok || math.IsNaN(v) {
				continue
			}
			s.Samples = append(s.Samples, Sample{Date: e.Date, Value: v - refCorr})
		}
		out = append(out, s)
	}
	return out
}

// ExtractRegionSeries averages the finite pixels of each region per dated
// epoch.
func ExtractRegionSeries(stack *Stack, regions []Region) []Series {
	out := make([]Series, 0, len(regions))
	for _, reg := range regions {
		s := Series{Name: reg.Name}
		for _, e := range stack.Epochs {
			if !e.HasDate {
				continue
			}
			sum, n := 0.0, 0
			for y := reg.Y0; y <= reg.Y1; y++ {
				for x := reg.X0; x <= reg.X1; x++ {
					if v, ok := e.Raster.At(x, y); ok && !math.IsNaN(v) {
						sum += v
						n++
					}
				}
			}
			if n == 0 {
				continue
			}
			s.Samples = append(s.Samples, Sample{Date: e.Date, Value: sum / float64(n)})
		}
		out = append(out, s)
	}
	return out
}
