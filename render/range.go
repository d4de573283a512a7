package render

import (
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/sarlab/insar-analyzer/common"
	"github.com/sarlab/insar-analyzer/raster"
)

// Range is a display scaling interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// AutoRange computes the 2nd..98th percentile interval of the finite values
// of a raster. Displacement products get a range symmetric around zero so
// that uplift and subsidence share the same color scale. When the raster
// has no finite values, ok is false and the fixed fallback interval is
// returned, (0, 1) or (-0.1, 0.1) for displacement products.
func AutoRange(r *raster.Raster) (Range, bool) {
	vals := r.FiniteValues()
	if len(vals) == 0 {
		if isDisplacement(r.Type) {
			return Range{Min: -0.1, Max: 0.1}, false
		}
		return Range{Min: 0, Max: 1}, false
	}
	sort.Float64s(vals)
	p2 := stat.Quantile(0.02, stat.Empirical, vals, nil)
	p98 := stat.Quantile(0.98, stat.Empirical, vals, nil)

	if isDisplacement(r.Type) {
		m := math.Max(math.Abs(p2), math.Abs(p98))
		if m == 0 {
			m = 0.5
		}
		return Range{Min: -m, Max: m}, true
	}
	if p2 == p98 {
		return Range{Min: p2 - 0.5, Max: p98 + 0.5}, true
	}
	return Range{Min: p2, Max: p98}, true
}

func isDisplacement(t common.ProductType) bool {
	return t == common.ProductDisplacement || t == common.ProductVerticalDisp
}

// ParseRangeOverride applies user-supplied bounds on top of the automatic
// range. Each bound is parsed independently and silently ignored when empty
// or unparseable. An inverted or empty interval falls back to auto entirely.
func ParseRangeOverride(minStr, maxStr string, auto Range) Range {
	rng := auto
	if v, err := strconv.ParseFloat(minStr, 64); err == nil && !math.IsNaN(v) {
		rng.Min = v
	}
	if v, err := strconv.ParseFloat(maxStr, 64); err == nil && !math.IsNaN(v) {
		rng.Max = v
	}
	if rng.Min >= rng.Max {
		return auto
	}
	return rng
}
