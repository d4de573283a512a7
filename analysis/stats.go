package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/sarlab/insar-analyzer/raster"
)

// subsidenceThreshold marks a pixel as subsiding (meters, LOS).
const subsidenceThreshold = -0.01

const daysPerYear = 365.25

// PointStats summarizes one extracted series in millimeters.
type PointStats struct {
	Name     string  `json:"name"`
	Count    int     `json:"count"`
	MeanMM   float64 `json:"mean_mm"`
	MedianMM float64 `json:"median_mm"`
	StdMM    float64 `json:"std_mm"`
	MinMM    float64 `json:"min_mm"`
	MaxMM    float64 `json:"max_mm"`
	RateMMYr float64 `json:"rate_mm_yr"`
}

// SceneStats summarizes the currently displayed displacement raster.
type SceneStats struct {
	ValidPixels        int     `json:"valid_pixels"`
	MeanM              float64 `json:"mean_m"`
	StdM               float64 `json:"std_m"`
	MinM               float64 `json:"min_m"`
	MaxM               float64 `json:"max_m"`
	SubsidenceFraction float64 `json:"subsidence_fraction"`
}

// SeriesStats computes per-point statistics over the valid samples of a
// series. The rate is the end-to-end slope between the first and last
// dated samples.
func SeriesStats(s Series) PointStats {
	ps := PointStats{Name: s.Name, Count: len(s.Samples)}
	if len(s.Samples) == 0 {
		return ps
	}
	mm := make([]float64, len(s.Samples))
	for i, smp := range s.Samples {
		mm[i] = smp.Value * 1000
	}
	sorted := append([]float64(nil), mm...)
	sort.Float64s(sorted)

	ps.MeanMM = stat.Mean(mm, nil)
	ps.MedianMM = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	if len(mm) > 1 {
		ps.StdMM = stat.StdDev(mm, nil)
	}
	ps.MinMM = sorted[0]
	ps.MaxMM = sorted[len(sorted)-1]

	first, last := s.Samples[0], s.Samples[len(s.Samples)-1]
	if days := last.Date.Sub(first.Date).Hours() / 24; days > 0 {
		ps.RateMMYr = (last.Value - first.Value) * 1000 / (days / daysPerYear)
	}
	return ps
}

// Scene computes scene-wide statistics of a displacement raster, including
// the fraction of valid pixels below the subsidence threshold.
func Scene(r *raster.Raster) SceneStats {
	var ss SceneStats
	ss.MinM = math.Inf(1)
	ss.MaxM = math.Inf(-1)
	vals := r.FiniteValues()
	ss.ValidPixels = len(vals)
	if len(vals) == 0 {
		ss.MinM, ss.MaxM = 0, 0
		return ss
	}
	subsiding := 0
	for _, v := range vals {
		if v < ss.MinM {
			ss.MinM = v
		}
		if v > ss.MaxM {
			ss.MaxM = v
		}
		if v < subsidenceThreshold {
			subsiding++
		}
	}
	ss.MeanM = stat.Mean(vals, nil)
	if len(vals) > 1 {
		ss.StdM = stat.StdDev(vals, nil)
	}
	ss.SubsidenceFraction = float64(subsiding) / float64(len(vals))
	return ss
}
